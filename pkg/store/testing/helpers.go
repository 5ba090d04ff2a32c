package testing

import (
	"testing"

	"github.com/marmos91/bucketfs/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustPut writes an object and fails the test if it errors.
func mustPut(t *testing.T, s store.ObjectStore, key string, data []byte) {
	t.Helper()
	require.NoError(t, s.Put(testContext(), key, data), "Put(%q) should succeed", key)
}

// mustGet reads an object and fails the test if it errors.
func mustGet(t *testing.T, s store.ObjectStore, key string) []byte {
	t.Helper()
	data, err := s.Get(testContext(), key)
	require.NoError(t, err, "Get(%q) should succeed", key)
	return data
}

// listKeys returns the keys under prefix in listing order.
func listKeys(t *testing.T, s store.ObjectStore, prefix string) []string {
	t.Helper()
	objects, err := s.List(testContext(), prefix)
	require.NoError(t, err, "List(%q) should succeed", prefix)

	keys := make([]string, len(objects))
	for i, obj := range objects {
		keys[i] = obj.Key
	}
	return keys
}

// assertExists checks whether Stat finds key.
func assertExists(t *testing.T, s store.ObjectStore, key string, expected bool) {
	t.Helper()
	_, err := s.Stat(testContext(), key)
	if expected {
		assert.NoError(t, err, "Stat(%q) should find the object", key)
		return
	}
	assert.ErrorIs(t, err, store.ErrNotFound, "Stat(%q) should report not found", key)
}

// assertContentEquals checks the content stored at key.
func assertContentEquals(t *testing.T, s store.ObjectStore, key string, expected []byte) {
	t.Helper()
	assert.Equal(t, expected, mustGet(t, s, key), "content mismatch for %q", key)
}
