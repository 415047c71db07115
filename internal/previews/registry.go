// Package previews hands out display handles for photos.
//
// A photo stored as a local blob gets a "blob:moments/<uuid>" handle that
// resolves to its bytes until the Scope that created it is closed. A photo
// stored remotely is displayed through its public URL, which is returned as
// is and never registered or revoked.
package previews

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/moments/internal/common"
	"github.com/dmitrijs2005/moments/internal/models"
	"github.com/google/uuid"
)

const handlePrefix = "blob:moments/"

var ErrScopeClosed = errors.New("preview scope closed")

type blob struct {
	data     []byte
	mimeType string
}

// Registry owns every live local handle. It is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	handles map[string]blob
}

func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]blob)}
}

// IsLocalHandle reports whether h was issued by a Registry.
func IsLocalHandle(h string) bool {
	return strings.HasPrefix(h, handlePrefix)
}

// Resolve returns the bytes behind a live handle.
func (r *Registry) Resolve(handle string) ([]byte, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.handles[handle]
	return b.data, b.mimeType, ok
}

// Live is the number of handles not yet revoked.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

func (r *Registry) create(data []byte, mimeType string) string {
	h := handlePrefix + uuid.NewString()
	r.mu.Lock()
	r.handles[h] = blob{data: data, mimeType: mimeType}
	r.mu.Unlock()
	return h
}

func (r *Registry) revoke(handle string) {
	r.mu.Lock()
	delete(r.handles, handle)
	r.mu.Unlock()
}

// NewScope starts a set of handles that are released together.
func (r *Registry) NewScope() *Scope {
	return &Scope{reg: r, owned: make(map[string]string)}
}

// Scope tracks the handles it created, keyed by photo id, and revokes
// exactly those on Close.
type Scope struct {
	reg *Registry

	mu     sync.Mutex
	owned  map[string]string
	closed bool
}

// Acquire returns a handle for the preview rendition of p.
func (s *Scope) Acquire(p models.Photo) (string, error) {
	return s.acquire(p, false)
}

// AcquireThumbnail is Acquire for the thumbnail rendition. Local photos only
// keep one rendition, so both return the same handle for them.
func (s *Scope) AcquireThumbnail(p models.Photo) (string, error) {
	return s.acquire(p, true)
}

func (s *Scope) acquire(p models.Photo, thumbnail bool) (string, error) {
	switch payload := p.Payload.(type) {
	case models.RemoteDerivatives:
		if thumbnail && payload.ThumbnailURL != "" {
			return payload.ThumbnailURL, nil
		}
		return payload.PreviewURL, nil

	case models.LocalBlob:
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return "", ErrScopeClosed
		}
		if h, ok := s.owned[p.ID]; ok {
			return h, nil
		}
		h := s.reg.create(payload.Data, p.MimeType)
		s.owned[p.ID] = h
		return h, nil

	default:
		return "", fmt.Errorf("%w: photo %s has no payload", common.ErrorValidation, p.ID)
	}
}

// Owned is the number of handles this scope currently holds.
func (s *Scope) Owned() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.owned)
}

// Close revokes the scope's handles. Calls after the first are no-ops.
func (s *Scope) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, h := range s.owned {
		s.reg.revoke(h)
	}
	s.owned = nil
}
