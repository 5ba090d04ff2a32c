// Package store defines the flat object store contract the namespace engine
// is built on, together with decorators shared by every backend.
package store

import (
	"context"
	"time"
)

// ============================================================================
// ObjectStore Interface
// ============================================================================

// ObjectInfo is the metadata a store reports for a single object.
//
// Only size, hash and modification time are tracked. Hash is whatever
// content fingerprint the backend exposes (an MD5 hex digest or ETag for
// most implementations) and is informational only.
type ObjectInfo struct {
	// Key is the full object key, relative to any configured key prefix.
	Key string `json:"key"`

	// Size is the object length in bytes.
	Size int64 `json:"size"`

	// Hash is the backend's content fingerprint.
	Hash string `json:"hash,omitempty"`

	// LastModified is the last write time reported by the backend.
	LastModified time.Time `json:"last_modified"`
}

// ObjectStore is a flat key/value store with prefix listing.
//
// Keys are opaque strings: the store has no notion of directories and
// treats "/" like any other byte. Every call is independent; nothing is
// atomic across calls.
//
// Error Contract:
//   - Stat and Get return an error wrapping ErrNotFound for absent keys
//   - Delete of an absent key succeeds
//   - Any other failure is returned as-is (network, auth, server errors)
//
// Context Cancellation:
// All methods check the context before doing work and pass it down to the
// backend client.
//
// Thread Safety:
// Implementations must be safe for concurrent use.
type ObjectStore interface {
	// List returns every object whose key starts with prefix, in ascending
	// key order. Backends consume their own pagination before returning.
	// An empty prefix lists the whole store.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Stat returns the metadata of a single object.
	Stat(ctx context.Context, key string) (ObjectInfo, error)

	// Get returns the full content of an object.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put creates or overwrites an object. A nil or empty data slice
	// writes a zero-length object.
	Put(ctx context.Context, key string, data []byte) error

	// Delete removes an object. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Copier is implemented by stores with a native server-side copy.
//
// Copy must not stream content through the caller. The destination is
// overwritten if it exists; a missing source yields ErrNotFound.
type Copier interface {
	Copy(ctx context.Context, srcKey, dstKey string) error
}

// PrefixProber is implemented by stores that can answer "is there at least
// one key under this prefix" without listing the whole subtree.
type PrefixProber interface {
	HasPrefix(ctx context.Context, prefix string) (bool, error)
}

// CopyObject copies srcKey to dstKey using the store's native copy when it
// has one and falling back to Get followed by Put otherwise.
func CopyObject(ctx context.Context, s ObjectStore, srcKey, dstKey string) error {
	if c, ok := s.(Copier); ok {
		return c.Copy(ctx, srcKey, dstKey)
	}

	data, err := s.Get(ctx, srcKey)
	if err != nil {
		return err
	}
	return s.Put(ctx, dstKey, data)
}

// HasPrefix reports whether any key starts with prefix, using the store's
// PrefixProber when available.
func HasPrefix(ctx context.Context, s ObjectStore, prefix string) (bool, error) {
	if p, ok := s.(PrefixProber); ok {
		return p.HasPrefix(ctx, prefix)
	}

	objects, err := s.List(ctx, prefix)
	if err != nil {
		return false, err
	}
	return len(objects) > 0, nil
}
