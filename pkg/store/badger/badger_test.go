package badger

import (
	"context"
	"testing"

	"github.com/marmos91/bucketfs/pkg/store"
	storetesting "github.com/marmos91/bucketfs/pkg/store/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBadgerObjectStore runs the complete ObjectStore conformance suite
// against an in-memory BadgerDB.
func TestBadgerObjectStore(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func(t *testing.T) store.ObjectStore {
			s, err := NewBadgerObjectStore(context.Background(), BadgerObjectStoreConfig{InMemory: true})
			require.NoError(t, err)
			return s
		},
	}

	suite.Run(t)
}

func TestBadgerObjectStorePersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewBadgerObjectStore(ctx, BadgerObjectStoreConfig{DBPath: dir})
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "notes/", nil))
	require.NoError(t, s.Put(ctx, "notes/todo.txt", []byte("buy milk")))
	require.NoError(t, s.Close())

	s, err = NewBadgerObjectStore(ctx, BadgerObjectStoreConfig{DBPath: dir})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	data, err := s.Get(ctx, "notes/todo.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("buy milk"), data)

	objects, err := s.List(ctx, "notes/")
	require.NoError(t, err)
	assert.Len(t, objects, 2)
}

func TestBadgerObjectStoreRequiresPath(t *testing.T) {
	_, err := NewBadgerObjectStore(context.Background(), BadgerObjectStoreConfig{})
	assert.Error(t, err)
}

func TestBadgerListIgnoresContentNamespace(t *testing.T) {
	ctx := context.Background()
	s, err := NewBadgerObjectStore(ctx, BadgerObjectStoreConfig{InMemory: true})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Put(ctx, "x", []byte("1")))

	objects, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, objects, 1, "content entries must not show up as objects")
	assert.Equal(t, "x", objects[0].Key)
}
