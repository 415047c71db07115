package memories

import (
	"context"
	"io"

	"github.com/dmitrijs2005/moments/internal/models"
)

// Backend is the storage a Manager drives: *local.Store in local mode and
// *remote.Service in remote mode.
//
// GetMemory and FindMemoryByDate return common.ErrorNotFound when nothing
// matches. DeleteMemory removes the memory, its photos and their stored
// bytes. AddPhoto persists one photo from its derivatives.
type Backend interface {
	ListMemories(ctx context.Context) ([]models.Memory, error)
	GetMemory(ctx context.Context, id string) (*models.Memory, error)
	FindMemoryByDate(ctx context.Context, date string) (*models.Memory, error)
	CreateMemory(ctx context.Context, m *models.Memory) error
	UpdateMemory(ctx context.Context, m *models.Memory) error
	DeleteMemory(ctx context.Context, id string) error
	ListPhotos(ctx context.Context, memoryID string) ([]models.Photo, error)
	AddPhoto(ctx context.Context, np *models.NewPhoto) (*models.Photo, error)
	DeletePhoto(ctx context.Context, id string) error
}

// Generator turns an uploaded file into its derivatives.
type Generator interface {
	Generate(ctx context.Context, original []byte) (*models.Derivatives, error)
}

// Codec reads and replaces the whole collection. Only the local store has
// one.
type Codec interface {
	Export(ctx context.Context, w io.Writer) error
	Import(ctx context.Context, r io.Reader) error
}

// File is one uploaded input.
type File struct {
	Name string
	Data []byte
}
