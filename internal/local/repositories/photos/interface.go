package photos

import (
	"context"

	"github.com/dmitrijs2005/moments/internal/models"
)

// Repository describes CRUD and query operations for locally stored photos.
type Repository interface {
	// Insert stores a photo. The payload must be a models.LocalBlob.
	Insert(ctx context.Context, p *models.Photo) error

	// DeleteByID returns common.ErrorNotFound when the id is absent.
	DeleteByID(ctx context.Context, id string) error

	// DeleteByMemoryID removes every photo of a memory and reports how many.
	DeleteByMemoryID(ctx context.Context, memoryID string) (int64, error)

	GetByID(ctx context.Context, id string) (*models.Photo, error)

	// GetByMemoryID returns the photos of a memory by display order, then
	// creation time.
	GetByMemoryID(ctx context.Context, memoryID string) ([]models.Photo, error)

	GetAll(ctx context.Context) ([]models.Photo, error)
	BulkInsert(ctx context.Context, ps []models.Photo) error
	Clear(ctx context.Context) error
}
