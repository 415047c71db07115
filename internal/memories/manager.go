// Package memories is the lifecycle manager the presentation layer talks to.
//
// A Manager caches the memory list, merges same-day entries, fans photo
// uploads out to a bounded worker group and keeps one last-error slot. It
// owns the preview registry used to display photos.
//
// Concurrency: calls may come from several goroutines. Mutations of one
// memory id, and creates for one date, are serialized; everything else runs
// in parallel and relies on the backend's own transactions.
//
// Partial failure: when some files of a create or update fail, the photos
// that were stored stay stored and are recorded on the memory, and the call
// returns an error wrapping common.ErrPartialUpload.
package memories

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/moments/internal/common"
	"github.com/dmitrijs2005/moments/internal/logging"
	"github.com/dmitrijs2005/moments/internal/models"
	"github.com/dmitrijs2005/moments/internal/previews"
	"github.com/dmitrijs2005/moments/internal/timex"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultUploadConcurrency = 3

type Manager struct {
	backend   Backend
	generator Generator
	codec     Codec
	previews  *previews.Registry
	logger    logging.Logger

	uploadConcurrency int
	now               func() int64
	newID             func() string

	locks *keyedMutex

	mu       sync.RWMutex
	memories []models.Memory
	pending  int
	lastErr  string

	subMu   sync.Mutex
	subs    map[int]chan State
	nextSub int
}

type Option func(*Manager)

// WithCodec enables ExportAll and ImportAll.
func WithCodec(c Codec) Option {
	return func(m *Manager) { m.codec = c }
}

// WithUploadConcurrency bounds how many files of one call are processed at
// the same time. Values below 1 are ignored.
func WithUploadConcurrency(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.uploadConcurrency = n
		}
	}
}

// WithRegistry shares an existing preview registry.
func WithRegistry(r *previews.Registry) Option {
	return func(m *Manager) { m.previews = r }
}

func NewManager(backend Backend, generator Generator, logger logging.Logger, opts ...Option) *Manager {
	m := &Manager{
		backend:           backend,
		generator:         generator,
		logger:            logger,
		uploadConcurrency: defaultUploadConcurrency,
		now:               timex.NowMillis,
		newID:             uuid.NewString,
		locks:             newKeyedMutex(),
		subs:              make(map[int]chan State),
	}
	for _, o := range opts {
		o(m)
	}
	if m.previews == nil {
		m.previews = previews.NewRegistry()
	}
	return m
}

// Previews is the registry display code acquires photo handles from.
func (m *Manager) Previews() *previews.Registry {
	return m.previews
}

// busy marks one operation as running until the returned func is called.
// State.Loading stays true while any operation is running.
func (m *Manager) busy() func() {
	m.mu.Lock()
	m.pending++
	m.mu.Unlock()
	m.publish()

	return func() {
		m.mu.Lock()
		m.pending--
		m.mu.Unlock()
		m.publish()
	}
}

// fail logs err, stores it in the last-error slot and returns it.
func (m *Manager) fail(ctx context.Context, err error) error {
	m.logger.Error(ctx, "operation failed", "error", err)
	m.mu.Lock()
	m.lastErr = err.Error()
	m.mu.Unlock()
	m.publish()
	return err
}

// LoadAll refreshes the cache from the backend, newest date first. On
// failure the previous list is kept and the error recorded.
func (m *Manager) LoadAll(ctx context.Context) ([]models.Memory, error) {
	ctx = logging.WithOperation(ctx, "memories.load")
	m.mu.Lock()
	m.pending++
	m.mu.Unlock()
	m.publish()

	ms, err := m.backend.ListMemories(ctx)

	m.mu.Lock()
	m.pending--
	if err == nil {
		m.memories = ms
		m.lastErr = ""
	}
	m.mu.Unlock()

	if err != nil {
		return m.Memories(), m.fail(ctx, err)
	}
	m.publish()
	return cloneMemories(ms), nil
}

// reload refreshes the cache after a mutation. Its own failure is recorded
// but does not replace the mutation's result.
func (m *Manager) reload(ctx context.Context) {
	_, _ = m.LoadAll(ctx)
}

// Create records files and note under date. When a memory already exists
// for date the files are appended to it and a non-empty note replaces its
// note; an empty note keeps the existing one.
func (m *Manager) Create(ctx context.Context, date, note string, files []File) (*models.Memory, error) {
	ctx = logging.WithOperation(ctx, "memories.create")
	defer m.busy()()

	if _, err := models.ParseDate(date); err != nil {
		return nil, m.fail(ctx, err)
	}

	unlockDate := m.locks.Lock(dateKey(date))
	defer unlockDate()

	mem, unlockID, err := m.lockMemoryOnDate(ctx, date)
	if err != nil {
		return nil, m.fail(ctx, err)
	}
	isNew := mem == nil

	if isNew {
		now := m.now()
		mem = &models.Memory{
			ID:        m.newID(),
			Date:      date,
			Note:      note,
			PhotoIDs:  []string{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		defer m.locks.Lock(idKey(mem.ID))()
		if err := m.backend.CreateMemory(ctx, mem); err != nil {
			return nil, m.fail(ctx, err)
		}
	} else {
		defer unlockID()
		if note != "" {
			mem.Note = note
		}
	}

	start, err := m.nextDisplayOrder(ctx, mem.ID, isNew)
	if err != nil {
		return nil, m.fail(ctx, err)
	}

	added, uploadErr := m.persistFiles(ctx, mem.ID, start, files)

	if isNew && len(added) == 0 && len(files) > 0 {
		if err := m.backend.DeleteMemory(ctx, mem.ID); err != nil {
			m.logger.Warn(ctx, "empty memory left behind", "id", mem.ID, "error", err)
		}
		m.reload(ctx)
		return nil, m.fail(ctx, uploadErr)
	}

	mem.PhotoIDs = append(mem.PhotoIDs, added...)
	mem.UpdatedAt = m.now()
	if err := m.backend.UpdateMemory(ctx, mem); err != nil {
		m.reload(ctx)
		return nil, m.fail(ctx, err)
	}

	m.logger.Info(ctx, "memory saved", "id", mem.ID, "date", mem.Date, "merged", !isNew, "photos", len(added))
	m.reload(ctx)

	if uploadErr != nil {
		return mem, m.fail(ctx, uploadErr)
	}
	return mem, nil
}

// lockMemoryOnDate finds the memory on date and takes its id lock. The caller
// holds the date lock, but an update moving that memory away from date does
// not, so the memory is read again under the id lock and the lookup repeats
// when it has moved or is gone. A nil memory means date is free.
func (m *Manager) lockMemoryOnDate(ctx context.Context, date string) (*models.Memory, func(), error) {
	for {
		existing, err := m.backend.FindMemoryByDate(ctx, date)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, nil
		}
		if err != nil {
			return nil, nil, err
		}

		unlockID := m.locks.Lock(idKey(existing.ID))
		mem, err := m.backend.GetMemory(ctx, existing.ID)
		switch {
		case err == nil && mem.Date == date:
			return mem, unlockID, nil
		case err == nil, errors.Is(err, common.ErrorNotFound):
			unlockID()
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		default:
			unlockID()
			return nil, nil, err
		}
	}
}

// Update rewrites date and note of memory id, appends newFiles and deletes
// the photos in removedPhotoIDs that belong to it. Deletions are not undone
// when a later step fails. Moving a memory onto a date that another memory
// already uses is rejected.
func (m *Manager) Update(ctx context.Context, id, date, note string, newFiles []File, removedPhotoIDs []string) (*models.Memory, error) {
	ctx = logging.WithOperation(ctx, "memories.update")
	defer m.busy()()

	if _, err := models.ParseDate(date); err != nil {
		return nil, m.fail(ctx, err)
	}

	unlockDate := m.locks.Lock(dateKey(date))
	defer unlockDate()
	unlockID := m.locks.Lock(idKey(id))
	defer unlockID()

	mem, err := m.backend.GetMemory(ctx, id)
	if err != nil {
		return nil, m.fail(ctx, err)
	}

	if date != mem.Date {
		other, err := m.backend.FindMemoryByDate(ctx, date)
		switch {
		case err == nil && other.ID != id:
			return nil, m.fail(ctx, fmt.Errorf("%w: %s already has a memory", common.ErrorValidation, date))
		case err != nil && !errors.Is(err, common.ErrorNotFound):
			return nil, m.fail(ctx, err)
		}
	}

	removed := make(map[string]struct{}, len(removedPhotoIDs))
	for _, pid := range removedPhotoIDs {
		removed[pid] = struct{}{}
	}

	start, err := m.nextDisplayOrder(ctx, id, false)
	if err != nil {
		return nil, m.fail(ctx, err)
	}

	added, uploadErr := m.persistFiles(ctx, id, start, newFiles)

	var (
		survivors []string
		deleted   int
		deleteErr error
	)
	for _, pid := range mem.PhotoIDs {
		if _, ok := removed[pid]; !ok {
			survivors = append(survivors, pid)
			continue
		}
		err := m.backend.DeletePhoto(ctx, pid)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			m.logger.Error(ctx, "photo delete failed", "photo", pid, "error", err)
			if deleteErr == nil {
				deleteErr = err
			}
			survivors = append(survivors, pid)
			continue
		}
		deleted++
	}

	mem.Date = date
	mem.Note = note
	mem.PhotoIDs = append(make([]string, 0, len(survivors)+len(added)), survivors...)
	mem.PhotoIDs = append(mem.PhotoIDs, added...)
	mem.UpdatedAt = m.now()

	if err := m.backend.UpdateMemory(ctx, mem); err != nil {
		m.reload(ctx)
		return nil, m.fail(ctx, err)
	}

	m.logger.Info(ctx, "memory updated", "id", id, "added", len(added), "removed", deleted)
	m.reload(ctx)

	if err := errors.Join(uploadErr, deleteErr); err != nil {
		return mem, m.fail(ctx, err)
	}
	return mem, nil
}

// Delete removes the memory, its photos and their stored bytes.
func (m *Manager) Delete(ctx context.Context, id string) error {
	ctx = logging.WithOperation(ctx, "memories.delete")
	defer m.busy()()

	unlock := m.locks.Lock(idKey(id))
	defer unlock()

	if _, err := m.backend.GetMemory(ctx, id); err != nil {
		return m.fail(ctx, err)
	}
	if err := m.backend.DeleteMemory(ctx, id); err != nil {
		m.reload(ctx)
		return m.fail(ctx, err)
	}

	m.logger.Info(ctx, "memory deleted", "id", id)
	m.reload(ctx)
	return nil
}

// PhotosByMemoryID loads the photos of one memory in display order. It is
// meant to be called lazily, when the memory is shown.
func (m *Manager) PhotosByMemoryID(ctx context.Context, memoryID string) ([]models.Photo, error) {
	return m.backend.ListPhotos(ctx, memoryID)
}

// ExportAll writes the whole collection to w.
func (m *Manager) ExportAll(ctx context.Context, w io.Writer) error {
	ctx = logging.WithOperation(ctx, "memories.export")
	if m.codec == nil {
		return m.fail(ctx, fmt.Errorf("%w: export", common.ErrUnsupported))
	}
	if err := m.codec.Export(ctx, w); err != nil {
		return m.fail(ctx, err)
	}
	return nil
}

// ImportAll replaces the whole collection with the document read from r.
func (m *Manager) ImportAll(ctx context.Context, r io.Reader) error {
	ctx = logging.WithOperation(ctx, "memories.import")
	defer m.busy()()
	if m.codec == nil {
		return m.fail(ctx, fmt.Errorf("%w: import", common.ErrUnsupported))
	}
	if err := m.codec.Import(ctx, r); err != nil {
		return m.fail(ctx, err)
	}
	m.reload(ctx)
	return nil
}

func (m *Manager) nextDisplayOrder(ctx context.Context, memoryID string, isNew bool) (int, error) {
	if isNew {
		return 0, nil
	}
	photos, err := m.backend.ListPhotos(ctx, memoryID)
	if err != nil {
		return 0, err
	}
	next := 0
	for _, p := range photos {
		if p.DisplayOrder >= next {
			next = p.DisplayOrder + 1
		}
	}
	return next, nil
}

// persistFiles generates and stores every file with at most
// uploadConcurrency in flight. Display order is fixed at submission, so the
// returned ids follow the input order whatever the completion order was.
// Failed files are skipped; the first failure is returned wrapped in
// common.ErrPartialUpload after all files have finished.
func (m *Manager) persistFiles(ctx context.Context, memoryID string, start int, files []File) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}

	ids := make([]string, len(files))
	errs := make([]error, len(files))

	var g errgroup.Group
	g.SetLimit(m.uploadConcurrency)

	for i, f := range files {
		np := &models.NewPhoto{
			ID:           m.newID(),
			MemoryID:     memoryID,
			DisplayOrder: start + i,
			CreatedAt:    m.now(),
		}
		g.Go(func() error {
			d, err := m.generator.Generate(ctx, f.Data)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", f.Name, err)
				return nil
			}
			np.Derivatives = d

			p, err := m.backend.AddPhoto(ctx, np)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", f.Name, err)
				return nil
			}
			ids[i] = p.ID
			return nil
		})
	}
	_ = g.Wait()

	added := make([]string, 0, len(files))
	var (
		first  error
		failed int
	)
	for i := range files {
		if errs[i] != nil {
			m.logger.Error(ctx, "photo upload failed", "memory", memoryID, "error", errs[i])
			if first == nil {
				first = errs[i]
			}
			failed++
			continue
		}
		added = append(added, ids[i])
	}

	if first != nil {
		return added, fmt.Errorf("%w: %d of %d files failed: %w", common.ErrPartialUpload, failed, len(files), first)
	}
	return added, nil
}
