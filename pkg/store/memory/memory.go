package memory

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/bucketfs/pkg/store"
)

// MemoryObjectStore implements store.ObjectStore in process memory.
//
// It is designed for:
//   - Unit tests of anything built on an ObjectStore
//   - Ephemeral serving where persistence is not wanted
//
// Characteristics:
//   - Lexicographic listing, same ordering as S3 and Azure
//   - Native Copy and HasPrefix
//   - Data is copied on the way in and out, callers may reuse buffers
//
// Thread Safety:
// All operations are protected by a sync.RWMutex.
type MemoryObjectStore struct {
	mu      sync.RWMutex
	objects map[string]*object
	closed  bool

	// now is swappable for deterministic tests.
	now func() time.Time
}

type object struct {
	data     []byte
	hash     string
	modified time.Time
}

// NewMemoryObjectStore creates an empty in-memory store.
func NewMemoryObjectStore(ctx context.Context) (*MemoryObjectStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &MemoryObjectStore{
		objects: make(map[string]*object),
		now:     time.Now,
	}, nil
}

func newObject(data []byte, now time.Time) *object {
	sum := md5.Sum(data)
	return &object{
		data:     slices.Clone(data),
		hash:     hex.EncodeToString(sum[:]),
		modified: now,
	}
}

func (o *object) info(key string) store.ObjectInfo {
	return store.ObjectInfo{
		Key:          key,
		Size:         int64(len(o.data)),
		Hash:         o.hash,
		LastModified: o.modified,
	}
}

func (s *MemoryObjectStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return store.ErrClosed
	}
	return nil
}

// ============================================================================
// Reads
// ============================================================================

func (s *MemoryObjectStore) List(ctx context.Context, prefix string) ([]store.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	result := make([]store.ObjectInfo, len(keys))
	for i, key := range keys {
		result[i] = s.objects[key].info(key)
	}
	return result, nil
}

func (s *MemoryObjectStore) HasPrefix(ctx context.Context, prefix string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx); err != nil {
		return false, err
	}

	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryObjectStore) Stat(ctx context.Context, key string) (store.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx); err != nil {
		return store.ObjectInfo{}, err
	}

	obj, ok := s.objects[key]
	if !ok {
		return store.ObjectInfo{}, fmt.Errorf("object %q: %w", key, store.ErrNotFound)
	}
	return obj.info(key), nil
}

func (s *MemoryObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx); err != nil {
		return nil, err
	}

	obj, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %q: %w", key, store.ErrNotFound)
	}
	return slices.Clone(obj.data), nil
}

// ============================================================================
// Writes
// ============================================================================

func (s *MemoryObjectStore) Put(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return store.ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx); err != nil {
		return err
	}

	s.objects[key] = newObject(data, s.now())
	return nil
}

func (s *MemoryObjectStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx); err != nil {
		return err
	}

	delete(s.objects, key)
	return nil
}

func (s *MemoryObjectStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	if dstKey == "" {
		return store.ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx); err != nil {
		return err
	}

	src, ok := s.objects[srcKey]
	if !ok {
		return fmt.Errorf("object %q: %w", srcKey, store.ErrNotFound)
	}
	s.objects[dstKey] = newObject(src.data, s.now())
	return nil
}

// Len returns the number of stored objects.
func (s *MemoryObjectStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func (s *MemoryObjectStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.objects = make(map[string]*object)
	return nil
}
