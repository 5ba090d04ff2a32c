package testing

import (
	"testing"

	"github.com/marmos91/bucketfs/pkg/store"
	"github.com/stretchr/testify/assert"
)

// RunCopyTests covers store.CopyObject, which uses the native copy when the
// backend has one.
func (suite *StoreTestSuite) RunCopyTests(t *testing.T) {
	t.Run("CopyObject", suite.testCopyObject)
	t.Run("CopyOverwritesDestination", suite.testCopyOverwrites)
	t.Run("CopyZeroLength", suite.testCopyZeroLength)
	t.Run("CopyMissingSource", suite.testCopyMissingSource)
}

func (suite *StoreTestSuite) testCopyObject(t *testing.T) {
	s := suite.newStore(t)

	mustPut(t, s, "src/x.txt", []byte("payload"))
	assert.NoError(t, store.CopyObject(testContext(), s, "src/x.txt", "dst/x.txt"))

	assertContentEquals(t, s, "dst/x.txt", []byte("payload"))
	assertContentEquals(t, s, "src/x.txt", []byte("payload"))
}

func (suite *StoreTestSuite) testCopyOverwrites(t *testing.T) {
	s := suite.newStore(t)

	mustPut(t, s, "a.txt", []byte("new"))
	mustPut(t, s, "b.txt", []byte("old content"))
	assert.NoError(t, store.CopyObject(testContext(), s, "a.txt", "b.txt"))

	assertContentEquals(t, s, "b.txt", []byte("new"))
}

func (suite *StoreTestSuite) testCopyZeroLength(t *testing.T) {
	s := suite.newStore(t)

	mustPut(t, s, "d/", nil)
	assert.NoError(t, store.CopyObject(testContext(), s, "d/", "e/"))
	assertExists(t, s, "e/", true)
}

func (suite *StoreTestSuite) testCopyMissingSource(t *testing.T) {
	s := suite.newStore(t)

	err := store.CopyObject(testContext(), s, "missing.txt", "dst.txt")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assertExists(t, s, "dst.txt", false)
}
