package objectstore

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/dmitrijs2005/moments/internal/common"
)

type object struct {
	data        []byte
	contentType string
}

// MemoryStore keeps objects in a map. PutHook, when set, runs before every
// Put and may block or fail it; it must be set before the store is shared.
type MemoryStore struct {
	PutHook func(ctx context.Context, key string) error

	mu      sync.RWMutex
	objects map[string]object
	baseURL string
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{objects: make(map[string]object), baseURL: baseURL}
}

func (s *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if s.PutHook != nil {
		if err := s.PutHook(ctx, key); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{data: slices.Clone(data), contentType: contentType}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return slices.Clone(o.data), nil
}

func (s *MemoryStore) ContentType(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects[key].contentType
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *MemoryStore) URL(key string) string {
	return publicURL(s.baseURL, key)
}

// Keys returns the stored keys in sorted order.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.objects))
}
