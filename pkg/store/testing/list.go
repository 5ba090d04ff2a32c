package testing

import (
	"testing"

	"github.com/marmos91/bucketfs/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunListTests covers prefix listing and prefix probing.
func (suite *StoreTestSuite) RunListTests(t *testing.T) {
	t.Run("EmptyStore", suite.testListEmpty)
	t.Run("PrefixFilter", suite.testListPrefixFilter)
	t.Run("SortedOrder", suite.testListSortedOrder)
	t.Run("WholeSubtree", suite.testListWholeSubtree)
	t.Run("HasPrefix", suite.testHasPrefix)
}

func (suite *StoreTestSuite) testListEmpty(t *testing.T) {
	s := suite.newStore(t)
	assert.Empty(t, listKeys(t, s, ""))
}

func (suite *StoreTestSuite) testListPrefixFilter(t *testing.T) {
	s := suite.newStore(t)

	mustPut(t, s, "a/", nil)
	mustPut(t, s, "a/x.txt", []byte("x"))
	mustPut(t, s, "ab.txt", []byte("ab"))
	mustPut(t, s, "b/y.txt", []byte("y"))

	assert.Equal(t, []string{"a/", "a/x.txt"}, listKeys(t, s, "a/"))
	assert.Equal(t, []string{"a/", "a/x.txt", "ab.txt"}, listKeys(t, s, "a"))
	assert.Empty(t, listKeys(t, s, "c/"))
}

func (suite *StoreTestSuite) testListSortedOrder(t *testing.T) {
	s := suite.newStore(t)

	for _, key := range []string{"m.txt", "c/", "z/z.txt", "a.txt", "c/d.txt"} {
		mustPut(t, s, key, []byte(key))
	}

	assert.Equal(t, []string{"a.txt", "c/", "c/d.txt", "m.txt", "z/z.txt"}, listKeys(t, s, ""))
}

func (suite *StoreTestSuite) testListWholeSubtree(t *testing.T) {
	s := suite.newStore(t)

	mustPut(t, s, "a/", nil)
	mustPut(t, s, "a/b/", nil)
	mustPut(t, s, "a/b/c.txt", []byte("deep"))

	objects, err := s.List(testContext(), "a/")
	require.NoError(t, err)
	require.Len(t, objects, 3)
	assert.Equal(t, "a/b/c.txt", objects[2].Key)
	assert.Equal(t, int64(4), objects[2].Size)
}

func (suite *StoreTestSuite) testHasPrefix(t *testing.T) {
	s := suite.newStore(t)

	mustPut(t, s, "dir/file.txt", []byte("f"))

	ok, err := store.HasPrefix(testContext(), s, "dir/")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.HasPrefix(testContext(), s, "other/")
	require.NoError(t, err)
	assert.False(t, ok)
}
