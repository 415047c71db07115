// Package settings stores the singleton configuration records of the local
// store (password and share configuration) as JSON values keyed by name.
package settings

import "context"

// Repository is a small key/value store. Get returns (nil, nil) for an
// absent key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
}
