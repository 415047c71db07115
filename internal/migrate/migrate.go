// Package migrate copies the local collection into the remote backend.
package migrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/moments/internal/common"
	"github.com/dmitrijs2005/moments/internal/logging"
	"github.com/dmitrijs2005/moments/internal/models"
	"github.com/google/uuid"
)

type Source interface {
	ListMemories(ctx context.Context) ([]models.Memory, error)
	ListPhotos(ctx context.Context, memoryID string) ([]models.Photo, error)
}

type Target interface {
	FindMemoryByDate(ctx context.Context, date string) (*models.Memory, error)
	CreateMemory(ctx context.Context, m *models.Memory) error
	UpdateMemory(ctx context.Context, m *models.Memory) error
	AddPhoto(ctx context.Context, np *models.NewPhoto) (*models.Photo, error)
}

type Generator interface {
	Generate(ctx context.Context, original []byte) (*models.Derivatives, error)
}

// Stage names reported through Progress.
const (
	StageRead     = "read"
	StageMemories = "memories"
	StagePhotos   = "photos"
	StageDone     = "done"
)

type Progress struct {
	Stage   string
	Current int
	Total   int
	Message string
}

type Stats struct {
	Memories int
	Photos   int
	Failed   int
	Bytes    int64
}

type Migrator struct {
	source    Source
	target    Target
	generator Generator
	logger    logging.Logger
	newID     func() string
}

func New(source Source, target Target, generator Generator, logger logging.Logger) *Migrator {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Migrator{source: source, target: target, generator: generator, logger: logger, newID: uuid.NewString}
}

type pending struct {
	memory models.Memory
	photos []models.Photo
}

// Run copies every memory, newest date first, and its photos in display
// order. A memory whose date already exists on the target is merged into
// it. A photo that fails is skipped; the run continues and the returned
// error wraps common.ErrPartialUpload. onProgress may be nil.
func (m *Migrator) Run(ctx context.Context, onProgress func(Progress)) (Stats, error) {
	ctx = logging.WithOperation(ctx, "migrate.run")
	report := func(p Progress) {
		if onProgress != nil {
			onProgress(p)
		}
	}

	var stats Stats

	report(Progress{Stage: StageRead, Total: 1, Message: "reading local memories"})
	ms, err := m.source.ListMemories(ctx)
	if err != nil {
		return stats, err
	}

	work := make([]pending, 0, len(ms))
	totalPhotos := 0
	for _, mem := range ms {
		ps, err := m.source.ListPhotos(ctx, mem.ID)
		if err != nil {
			return stats, err
		}
		work = append(work, pending{memory: mem, photos: ps})
		totalPhotos += len(ps)
	}
	m.logger.Info(ctx, "migration started", "memories", len(ms), "photos", totalPhotos)

	var firstErr error
	for i, w := range work {
		report(Progress{Stage: StageMemories, Current: i + 1, Total: len(work), Message: "migrating " + w.memory.Date})

		dst, err := m.targetMemory(ctx, w.memory)
		if err != nil {
			return stats, fmt.Errorf("memory %s: %w", w.memory.Date, err)
		}
		stats.Memories++

		base := len(dst.PhotoIDs)
		for j, p := range w.photos {
			n := stats.Photos + stats.Failed + 1
			report(Progress{Stage: StagePhotos, Current: n, Total: totalPhotos, Message: fmt.Sprintf("uploading photo %d/%d (%s)", n, totalPhotos, w.memory.Date)})

			added, size, err := m.copyPhoto(ctx, dst, p, base+j)
			if err != nil {
				m.logger.Error(ctx, "photo migration failed", "photo", p.ID, "memory", w.memory.Date, "error", err)
				stats.Failed++
				if firstErr == nil {
					firstErr = fmt.Errorf("photo %s: %w", p.ID, err)
				}
				continue
			}
			dst.PhotoIDs = append(dst.PhotoIDs, added)
			stats.Photos++
			stats.Bytes += size
		}

		if err := m.target.UpdateMemory(ctx, dst); err != nil {
			return stats, fmt.Errorf("memory %s: %w", w.memory.Date, err)
		}
	}

	report(Progress{Stage: StageDone, Current: 1, Total: 1, Message: fmt.Sprintf("migrated %d memories, %d photos", stats.Memories, stats.Photos)})
	m.logger.Info(ctx, "migration finished", "memories", stats.Memories, "photos", stats.Photos, "failed", stats.Failed, "bytes", stats.Bytes)

	if firstErr != nil {
		return stats, fmt.Errorf("%w: %d of %d photos failed: %w", common.ErrPartialUpload, stats.Failed, totalPhotos, firstErr)
	}
	return stats, nil
}

func (m *Migrator) targetMemory(ctx context.Context, src models.Memory) (*models.Memory, error) {
	existing, err := m.target.FindMemoryByDate(ctx, src.Date)
	switch {
	case err == nil:
		if src.Note != "" {
			existing.Note = src.Note
		}
		if existing.PhotoIDs == nil {
			existing.PhotoIDs = []string{}
		}
		return existing, nil
	case !errors.Is(err, common.ErrorNotFound):
		return nil, err
	}

	mem := &models.Memory{
		ID:        m.newID(),
		Date:      src.Date,
		Note:      src.Note,
		PhotoIDs:  []string{},
		CreatedAt: src.CreatedAt,
		UpdatedAt: src.UpdatedAt,
	}
	if err := m.target.CreateMemory(ctx, mem); err != nil {
		return nil, err
	}
	return mem, nil
}

func (m *Migrator) copyPhoto(ctx context.Context, dst *models.Memory, p models.Photo, order int) (string, int64, error) {
	blob, ok := p.Payload.(models.LocalBlob)
	if !ok {
		return "", 0, fmt.Errorf("%w: photo has no local bytes", common.ErrUnsupported)
	}
	d, err := m.generator.Generate(ctx, blob.Data)
	if err != nil {
		return "", 0, err
	}
	added, err := m.target.AddPhoto(ctx, &models.NewPhoto{
		ID:           m.newID(),
		MemoryID:     dst.ID,
		DisplayOrder: order,
		CreatedAt:    p.CreatedAt,
		Derivatives:  d,
	})
	if err != nil {
		return "", 0, err
	}
	return added.ID, int64(len(blob.Data)), nil
}
