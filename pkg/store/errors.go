package store

import "errors"

// ============================================================================
// Standard Object Store Errors
// ============================================================================

// Backends wrap these with the offending key:
//
//	return ObjectInfo{}, fmt.Errorf("object %q: %w", key, store.ErrNotFound)

var (
	// ErrNotFound indicates the key does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrInvalidKey indicates a key the backend cannot represent
	// (for example an empty key).
	ErrInvalidKey = errors.New("invalid object key")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("object store closed")
)

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
