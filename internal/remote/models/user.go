// Package models holds row types that exist only in the remote store.
package models

// User owns memories and photos in the remote store. The application runs
// with a single owner resolved by email at startup.
type User struct {
	ID    string
	Email string
}
