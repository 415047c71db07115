// Package memories persists memory rows in the remote PostgreSQL store.
// PhotoIDs are not stored on the row; callers derive them from photos.
package memories

import (
	"context"

	"github.com/dmitrijs2005/moments/internal/models"
)

type Repository interface {
	Insert(ctx context.Context, userID string, m *models.Memory) error
	Update(ctx context.Context, m *models.Memory) error
	DeleteByID(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.Memory, error)
	GetByDate(ctx context.Context, userID, date string) (*models.Memory, error)
	GetAll(ctx context.Context, userID string) ([]models.Memory, error)
	AdjustPhotoCount(ctx context.Context, id string, delta int) error
}
