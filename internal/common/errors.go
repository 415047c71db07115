// Package common defines shared constants and sentinel errors used across
// the local store, the remote persistence service and the lifecycle manager.
// Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Storage errors: driver, object store or transaction failures.
	ErrorStorage     = errors.New("storage failure")
	ErrPartialUpload = errors.New("partial upload failure")

	// Validation errors (dates, passwords, share ranges).
	ErrorValidation = errors.New("validation error")

	// Import errors: the document is malformed or a blob can not be decoded.
	ErrDecode = errors.New("decode failure")

	// Access gate errors.
	ErrorUnauthorized = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")

	// The operation is not available in the configured deployment mode.
	ErrUnsupported = errors.New("unsupported in this mode")
)
