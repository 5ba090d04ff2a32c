package testing

import (
	"testing"

	"github.com/marmos91/bucketfs/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBasicTests covers Put, Get, Stat and Delete.
func (suite *StoreTestSuite) RunBasicTests(t *testing.T) {
	t.Run("PutGetRoundTrip", suite.testPutGetRoundTrip)
	t.Run("PutOverwrites", suite.testPutOverwrites)
	t.Run("ZeroLengthObject", suite.testZeroLengthObject)
	t.Run("StatReportsSize", suite.testStatReportsSize)
	t.Run("MissingKey", suite.testMissingKey)
	t.Run("DeleteIsIdempotent", suite.testDeleteIsIdempotent)
	t.Run("CallerBufferIsolation", suite.testCallerBufferIsolation)
}

func (suite *StoreTestSuite) testPutGetRoundTrip(t *testing.T) {
	s := suite.newStore(t)

	mustPut(t, s, "temp/bar/hello.txt", []byte("Hello world"))
	assertContentEquals(t, s, "temp/bar/hello.txt", []byte("Hello world"))
}

func (suite *StoreTestSuite) testPutOverwrites(t *testing.T) {
	s := suite.newStore(t)

	mustPut(t, s, "doc.txt", []byte("first version"))
	mustPut(t, s, "doc.txt", []byte("second"))

	assertContentEquals(t, s, "doc.txt", []byte("second"))
	assert.Len(t, listKeys(t, s, "doc"), 1)
}

func (suite *StoreTestSuite) testZeroLengthObject(t *testing.T) {
	s := suite.newStore(t)

	mustPut(t, s, "dir/", nil)

	info, err := s.Stat(testContext(), "dir/")
	require.NoError(t, err)
	assert.Equal(t, "dir/", info.Key)
	assert.Zero(t, info.Size)
	assert.Empty(t, mustGet(t, s, "dir/"))
}

func (suite *StoreTestSuite) testStatReportsSize(t *testing.T) {
	s := suite.newStore(t)
	data := []byte("0123456789")

	mustPut(t, s, "a/b.bin", data)

	info, err := s.Stat(testContext(), "a/b.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), info.Size)
	assert.False(t, info.LastModified.IsZero(), "LastModified should be set")
}

func (suite *StoreTestSuite) testMissingKey(t *testing.T) {
	s := suite.newStore(t)

	_, err := s.Get(testContext(), "nope.txt")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assertExists(t, s, "nope.txt", false)
}

func (suite *StoreTestSuite) testDeleteIsIdempotent(t *testing.T) {
	s := suite.newStore(t)

	mustPut(t, s, "gone.txt", []byte("x"))
	require.NoError(t, s.Delete(testContext(), "gone.txt"))
	assertExists(t, s, "gone.txt", false)

	assert.NoError(t, s.Delete(testContext(), "gone.txt"), "deleting an absent key should succeed")
}

func (suite *StoreTestSuite) testCallerBufferIsolation(t *testing.T) {
	s := suite.newStore(t)
	buf := []byte("original")

	mustPut(t, s, "iso.txt", buf)
	buf[0] = 'X'

	got := mustGet(t, s, "iso.txt")
	assert.Equal(t, []byte("original"), got)

	got[0] = 'Y'
	assertContentEquals(t, s, "iso.txt", []byte("original"))
}
