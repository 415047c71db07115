// Package remote is the persistence service used in remote mode: memory and
// photo rows live in PostgreSQL, rendition bytes in an object store.
//
// Every call is scoped to one owner resolved at construction. Object-store
// writes happen before the row that references them is committed, and
// objects are removed again when that commit fails, so a committed photo
// row always points at stored objects.
package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/dmitrijs2005/moments/internal/common"
	sc "github.com/dmitrijs2005/moments/internal/config"
	"github.com/dmitrijs2005/moments/internal/dbx"
	"github.com/dmitrijs2005/moments/internal/logging"
	"github.com/dmitrijs2005/moments/internal/models"
	"github.com/dmitrijs2005/moments/internal/remote/objectstore"
	"github.com/dmitrijs2005/moments/internal/remote/repositories/repomanager"
	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"
)

// deleteConcurrency bounds parallel object deletions.
const deleteConcurrency = 4

var sqlOpen = sql.Open

type Service struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       objectstore.Store
	ownerID     string
	logger      logging.Logger
}

func NewService(db *sql.DB, rm repomanager.RepositoryManager, store objectstore.Store, ownerID string, logger logging.Logger) *Service {
	return &Service{
		db:          db,
		repomanager: rm,
		store:       store,
		ownerID:     ownerID,
		logger:      logger,
	}
}

// Open connects to PostgreSQL, applies migrations, builds the configured
// object store and resolves the owner row.
func Open(ctx context.Context, cfg *sc.Config, logger logging.Logger) (*Service, error) {
	db, err := sqlOpen("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate remote store: %w", err)
	}

	store, err := objectstore.New(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	ownerID, err := EnsureOwner(ctx, db, rm, cfg.OwnerEmail)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info(ctx, "remote store ready", "owner", cfg.OwnerEmail, "object_store", cfg.ObjectStore)
	return NewService(db, rm, store, ownerID, logger), nil
}

// EnsureOwner returns the id of the user with email, creating it if needed.
func EnsureOwner(ctx context.Context, db dbx.DBTX, rm repomanager.RepositoryManager, email string) (string, error) {
	users := rm.Users(db)

	u, err := users.GetByEmail(ctx, email)
	if errors.Is(err, common.ErrorNotFound) {
		u, err = users.Create(ctx, email)
	}
	if err != nil {
		return "", fmt.Errorf("%w: resolve owner: %w", common.ErrorStorage, err)
	}
	return u.ID, nil
}

func (s *Service) OwnerID() string { return s.ownerID }

func (s *Service) Close() error {
	return s.db.Close()
}

func storageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrorValidation) ||
		errors.Is(err, common.ErrorStorage) || errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrorStorage, err)
}

// UploadDerivativeSet stores the three renditions of one photo concurrently
// under "<owner>/<memory>/<photo>/<rendition>.<ext>". On any failure the
// renditions already written are deleted and no result is returned.
func (s *Service) UploadDerivativeSet(ctx context.Context, memoryID, photoID string, d *models.Derivatives) (*models.RemoteDerivatives, error) {
	if d == nil || len(d.Original) == 0 {
		return nil, fmt.Errorf("%w: empty photo %s", common.ErrorValidation, photoID)
	}

	type part struct {
		key         string
		data        []byte
		contentType string
	}

	previewType := http.DetectContentType(d.Preview)
	thumbType := http.DetectContentType(d.Thumbnail)
	parts := []part{
		{objectstore.PhotoKey(s.ownerID, memoryID, photoID, objectstore.RenditionOriginal, d.MimeType), d.Original, d.MimeType},
		{objectstore.PhotoKey(s.ownerID, memoryID, photoID, objectstore.RenditionPreview, previewType), d.Preview, previewType},
		{objectstore.PhotoKey(s.ownerID, memoryID, photoID, objectstore.RenditionThumbnail, thumbType), d.Thumbnail, thumbType},
	}

	var (
		mu       sync.Mutex
		uploaded []string
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range parts {
		g.Go(func() error {
			if err := s.store.Put(gctx, p.key, p.data, p.contentType); err != nil {
				return err
			}
			mu.Lock()
			uploaded = append(uploaded, p.key)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.removeObjects(context.WithoutCancel(ctx), uploaded)
		return nil, storageErr(fmt.Errorf("upload photo %s: %w", photoID, err))
	}

	return &models.RemoteDerivatives{
		OriginalURL:  s.store.URL(parts[0].key),
		PreviewURL:   s.store.URL(parts[1].key),
		ThumbnailURL: s.store.URL(parts[2].key),
		Paths: models.StoragePaths{
			Original:  parts[0].key,
			Preview:   parts[1].key,
			Thumbnail: parts[2].key,
		},
	}, nil
}

// removeObjects is best-effort cleanup; failures are logged.
func (s *Service) removeObjects(ctx context.Context, keys []string) {
	if err := s.deleteObjects(ctx, keys); err != nil {
		s.logger.Warn(ctx, "object cleanup failed", "keys", keys, "error", err)
	}
}

func (s *Service) deleteObjects(ctx context.Context, keys []string) error {
	var g errgroup.Group
	g.SetLimit(deleteConcurrency)
	for _, k := range keys {
		g.Go(func() error {
			return s.store.Delete(ctx, k)
		})
	}
	return g.Wait()
}

func (s *Service) withPhotoIDs(ctx context.Context, m *models.Memory) (*models.Memory, error) {
	photos, err := s.repomanager.Photos(s.db).GetByMemoryID(ctx, m.ID)
	if err != nil {
		return nil, storageErr(err)
	}
	m.PhotoIDs = make([]string, 0, len(photos))
	for _, p := range photos {
		m.PhotoIDs = append(m.PhotoIDs, p.ID)
	}
	return m, nil
}

// ListMemories returns the owner's memories newest first with PhotoIDs
// filled in display order.
func (s *Service) ListMemories(ctx context.Context) ([]models.Memory, error) {
	ms, err := s.repomanager.Memories(s.db).GetAll(ctx, s.ownerID)
	if err != nil {
		return nil, storageErr(err)
	}
	ids, err := s.repomanager.Photos(s.db).IDsByUser(ctx, s.ownerID)
	if err != nil {
		return nil, storageErr(err)
	}
	for i := range ms {
		ms[i].PhotoIDs = ids[ms[i].ID]
		if ms[i].PhotoIDs == nil {
			ms[i].PhotoIDs = []string{}
		}
	}
	return ms, nil
}

func (s *Service) GetMemory(ctx context.Context, id string) (*models.Memory, error) {
	m, err := s.repomanager.Memories(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	return s.withPhotoIDs(ctx, m)
}

func (s *Service) FindMemoryByDate(ctx context.Context, date string) (*models.Memory, error) {
	m, err := s.repomanager.Memories(s.db).GetByDate(ctx, s.ownerID, date)
	if err != nil {
		return nil, storageErr(err)
	}
	return s.withPhotoIDs(ctx, m)
}

func (s *Service) CreateMemoryRecord(ctx context.Context, m *models.Memory) error {
	return storageErr(s.repomanager.Memories(s.db).Insert(ctx, s.ownerID, m))
}

func (s *Service) UpdateMemoryRecord(ctx context.Context, m *models.Memory) error {
	return storageErr(s.repomanager.Memories(s.db).Update(ctx, m))
}

// DeleteMemoryRecord removes all rendition objects of the memory first and
// then its rows in one transaction. If object removal fails nothing is
// deleted from the database, so the call can be retried.
func (s *Service) DeleteMemoryRecord(ctx context.Context, id string) error {
	if _, err := s.repomanager.Memories(s.db).GetByID(ctx, id); err != nil {
		return storageErr(err)
	}
	photos, err := s.repomanager.Photos(s.db).GetByMemoryID(ctx, id)
	if err != nil {
		return storageErr(err)
	}

	var keys []string
	for _, p := range photos {
		if rd, ok := p.Payload.(models.RemoteDerivatives); ok {
			keys = append(keys, rd.Paths.Keys()...)
		}
	}
	if err := s.deleteObjects(ctx, keys); err != nil {
		return storageErr(fmt.Errorf("delete objects of memory %s: %w", id, err))
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Photos(tx).DeleteByMemoryID(ctx, id); err != nil {
			return err
		}
		return s.repomanager.Memories(tx).DeleteByID(ctx, id)
	})
	return storageErr(err)
}

// ListPhotos returns photos of a memory ordered by display order.
func (s *Service) ListPhotos(ctx context.Context, memoryID string) ([]models.Photo, error) {
	ps, err := s.repomanager.Photos(s.db).GetByMemoryID(ctx, memoryID)
	return ps, storageErr(err)
}

// AddPhoto uploads the renditions and then records the photo row and the
// memory's photo count in one transaction.
func (s *Service) AddPhoto(ctx context.Context, np *models.NewPhoto) (*models.Photo, error) {
	if np.Derivatives == nil {
		return nil, fmt.Errorf("%w: photo %s has no derivatives", common.ErrorValidation, np.ID)
	}

	rd, err := s.UploadDerivativeSet(ctx, np.MemoryID, np.ID, np.Derivatives)
	if err != nil {
		return nil, err
	}

	p := &models.Photo{
		ID:           np.ID,
		MemoryID:     np.MemoryID,
		MimeType:     np.Derivatives.MimeType,
		CreatedAt:    np.CreatedAt,
		DisplayOrder: np.DisplayOrder,
		Width:        np.Derivatives.Width,
		Height:       np.Derivatives.Height,
		FileSize:     int64(len(np.Derivatives.Original)),
		Payload:      *rd,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Photos(tx).Insert(ctx, s.ownerID, p); err != nil {
			return err
		}
		return s.repomanager.Memories(tx).AdjustPhotoCount(ctx, np.MemoryID, 1)
	})
	if err != nil {
		s.removeObjects(context.WithoutCancel(ctx), rd.Paths.Keys())
		return nil, storageErr(err)
	}

	return p, nil
}

// DeletePhoto removes the objects of the photo and then its row. Object
// removal failure leaves the row in place.
func (s *Service) DeletePhoto(ctx context.Context, id string) error {
	p, err := s.repomanager.Photos(s.db).GetByID(ctx, id)
	if err != nil {
		return storageErr(err)
	}

	if rd, ok := p.Payload.(models.RemoteDerivatives); ok {
		if err := s.deleteObjects(ctx, rd.Paths.Keys()); err != nil {
			return storageErr(fmt.Errorf("delete objects of photo %s: %w", id, err))
		}
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Photos(tx).DeleteByID(ctx, id); err != nil {
			return err
		}
		return s.repomanager.Memories(tx).AdjustPhotoCount(ctx, p.MemoryID, -1)
	})
	return storageErr(err)
}

// Fetch reads one rendition from the object store.
func (s *Service) Fetch(ctx context.Context, key string) ([]byte, error) {
	b, err := s.store.Get(ctx, key)
	return b, storageErr(err)
}

// CreateMemory, UpdateMemory and DeleteMemory let Service act as a
// lifecycle backend next to the local store.

func (s *Service) CreateMemory(ctx context.Context, m *models.Memory) error {
	return s.CreateMemoryRecord(ctx, m)
}

func (s *Service) UpdateMemory(ctx context.Context, m *models.Memory) error {
	return s.UpdateMemoryRecord(ctx, m)
}

func (s *Service) DeleteMemory(ctx context.Context, id string) error {
	return s.DeleteMemoryRecord(ctx, id)
}
