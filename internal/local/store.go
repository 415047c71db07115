// Package local is the transactional store used in local mode. It keeps
// memories, photo blobs and settings in SQLite and implements the backend
// the lifecycle manager talks to.
package local

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/dmitrijs2005/moments/internal/common"
	"github.com/dmitrijs2005/moments/internal/dbx"
	memoriesrepo "github.com/dmitrijs2005/moments/internal/local/repositories/memories"
	photosrepo "github.com/dmitrijs2005/moments/internal/local/repositories/photos"
	"github.com/dmitrijs2005/moments/internal/local/repositories/settings"
	"github.com/dmitrijs2005/moments/internal/logging"
	"github.com/dmitrijs2005/moments/internal/models"
)

// Repositories are the local repositories bound to one DBTX.
type Repositories struct {
	Memories memoriesrepo.Repository
	Photos   photosrepo.Repository
	Settings settings.Repository
}

func newRepositories(db dbx.DBTX) Repositories {
	return Repositories{
		Memories: memoriesrepo.NewSQLiteRepository(db),
		Photos:   photosrepo.NewSQLiteRepository(db),
		Settings: settings.NewSQLiteRepository(db),
	}
}

// Store owns the local database handle.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// NewStore wraps an already migrated database.
func NewStore(db *sql.DB, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Store{db: db, logger: logger}
}

// Open initializes the database at dsn and returns a Store over it.
func Open(ctx context.Context, dsn string, logger logging.Logger) (*Store, error) {
	db, err := InitDatabase(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return NewStore(db, logger), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Settings returns the settings repository bound to the database.
func (s *Store) Settings() settings.Repository {
	return settings.NewSQLiteRepository(s.db)
}

// WithTx runs fn against repositories bound to a single transaction: either
// every write inside fn lands or none does.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, newRepositories(tx))
	})
	if err != nil {
		return storageErr(err)
	}
	return nil
}

func (s *Store) repos() Repositories {
	return newRepositories(s.db)
}

// storageErr marks driver failures as storage failures while keeping
// not-found and validation errors recognisable.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	if isDomain(err) {
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrorStorage, err)
}

func isDomain(err error) bool {
	for _, target := range []error{common.ErrorNotFound, common.ErrorValidation, common.ErrorStorage, common.ErrDecode} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *Store) ListMemories(ctx context.Context) ([]models.Memory, error) {
	ms, err := s.repos().Memories.GetAll(ctx)
	return ms, storageErr(err)
}

func (s *Store) GetMemory(ctx context.Context, id string) (*models.Memory, error) {
	m, err := s.repos().Memories.GetByID(ctx, id)
	return m, storageErr(err)
}

func (s *Store) FindMemoryByDate(ctx context.Context, date string) (*models.Memory, error) {
	m, err := s.repos().Memories.GetByDate(ctx, date)
	return m, storageErr(err)
}

func (s *Store) CreateMemory(ctx context.Context, m *models.Memory) error {
	return storageErr(s.repos().Memories.Insert(ctx, m))
}

func (s *Store) UpdateMemory(ctx context.Context, m *models.Memory) error {
	return storageErr(s.repos().Memories.Update(ctx, m))
}

// DeleteMemory removes the memory and all of its photos in one transaction.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	return s.WithTx(ctx, func(ctx context.Context, r Repositories) error {
		if _, err := r.Memories.GetByID(ctx, id); err != nil {
			return err
		}
		n, err := r.Photos.DeleteByMemoryID(ctx, id)
		if err != nil {
			return err
		}
		if err := r.Memories.DeleteByID(ctx, id); err != nil {
			return err
		}
		s.logger.Info(ctx, "memory deleted", "id", id, "photos", n)
		return nil
	})
}

// ListPhotos returns the photos of memoryID in the order of the memory's
// photo ids. Photos the memory does not list yet come last, by display order.
func (s *Store) ListPhotos(ctx context.Context, memoryID string) ([]models.Photo, error) {
	var (
		mem *models.Memory
		ps  []models.Photo
	)
	err := dbx.WithReadTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		r := newRepositories(tx)
		var err error
		if ps, err = r.Photos.GetByMemoryID(ctx, memoryID); err != nil {
			return err
		}
		mem, err = r.Memories.GetByID(ctx, memoryID)
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, storageErr(err)
	}
	if mem != nil {
		sortByPhotoIDs(ps, mem.PhotoIDs)
	}
	return ps, nil
}

func sortByPhotoIDs(ps []models.Photo, ids []string) {
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	rank := func(p models.Photo) int {
		if i, ok := pos[p.ID]; ok {
			return i
		}
		return len(ids)
	}
	slices.SortStableFunc(ps, func(a, b models.Photo) int {
		return cmp.Compare(rank(a), rank(b))
	})
}

// AddPhoto keeps the preview rendition as the stored blob.
func (s *Store) AddPhoto(ctx context.Context, np *models.NewPhoto) (*models.Photo, error) {
	if np.Derivatives == nil || len(np.Derivatives.Preview) == 0 {
		return nil, fmt.Errorf("%w: photo %s has no image data", common.ErrorValidation, np.ID)
	}
	blob := np.Derivatives.Preview

	p := &models.Photo{
		ID:           np.ID,
		MemoryID:     np.MemoryID,
		MimeType:     http.DetectContentType(blob),
		CreatedAt:    np.CreatedAt,
		DisplayOrder: np.DisplayOrder,
		Width:        np.Derivatives.Width,
		Height:       np.Derivatives.Height,
		FileSize:     int64(len(blob)),
		Payload:      models.LocalBlob{Data: blob},
	}
	if err := s.repos().Photos.Insert(ctx, p); err != nil {
		return nil, storageErr(err)
	}
	return p, nil
}

func (s *Store) DeletePhoto(ctx context.Context, photoID string) error {
	return storageErr(s.repos().Photos.DeleteByID(ctx, photoID))
}

// Snapshot reads every memory and photo from one consistent snapshot.
func (s *Store) Snapshot(ctx context.Context) ([]models.Memory, []models.Photo, error) {
	var (
		ms []models.Memory
		ps []models.Photo
	)
	err := dbx.WithReadTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		r := newRepositories(tx)
		var err error
		if ms, err = r.Memories.GetAll(ctx); err != nil {
			return err
		}
		ps, err = r.Photos.GetAll(ctx)
		return err
	})
	if err != nil {
		return nil, nil, storageErr(err)
	}
	return ms, ps, nil
}

// ReplaceAll clears memories and photos and inserts the given rows in one
// transaction. On failure the previous contents are untouched.
func (s *Store) ReplaceAll(ctx context.Context, ms []models.Memory, ps []models.Photo) error {
	return s.WithTx(ctx, func(ctx context.Context, r Repositories) error {
		if err := r.Photos.Clear(ctx); err != nil {
			return err
		}
		if err := r.Memories.Clear(ctx); err != nil {
			return err
		}
		if err := r.Memories.BulkInsert(ctx, ms); err != nil {
			return err
		}
		if err := r.Photos.BulkInsert(ctx, ps); err != nil {
			return err
		}
		s.logger.Info(ctx, "local store replaced", "memories", len(ms), "photos", len(ps))
		return nil
	})
}
