// Package photos persists photo rows in the remote PostgreSQL store. Every
// row carries a RemoteDerivatives payload.
package photos

import (
	"context"

	"github.com/dmitrijs2005/moments/internal/models"
)

type Repository interface {
	Insert(ctx context.Context, userID string, p *models.Photo) error
	DeleteByID(ctx context.Context, id string) error
	DeleteByMemoryID(ctx context.Context, memoryID string) (int64, error)
	GetByID(ctx context.Context, id string) (*models.Photo, error)
	GetByMemoryID(ctx context.Context, memoryID string) ([]models.Photo, error)
	// IDsByUser maps memory id to its photo ids in display order.
	IDsByUser(ctx context.Context, userID string) (map[string][]string, error)
}
