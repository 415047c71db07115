package memories

import (
	"context"

	"github.com/dmitrijs2005/moments/internal/models"
)

// Repository describes CRUD and query operations for memories.
type Repository interface {
	Insert(ctx context.Context, m *models.Memory) error

	// Update overwrites date, note, photo ids and updated_at.
	// Returns common.ErrorNotFound when the id is absent.
	Update(ctx context.Context, m *models.Memory) error

	// DeleteByID returns common.ErrorNotFound when the id is absent.
	DeleteByID(ctx context.Context, id string) error

	GetByID(ctx context.Context, id string) (*models.Memory, error)

	// GetByDate returns the earliest memory recorded for the day.
	GetByDate(ctx context.Context, date string) (*models.Memory, error)

	// GetAll returns every memory ordered by date, newest first.
	GetAll(ctx context.Context) ([]models.Memory, error)

	BulkInsert(ctx context.Context, ms []models.Memory) error
	Clear(ctx context.Context) error
}
