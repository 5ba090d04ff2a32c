package testing

import (
	"context"
	"testing"

	"github.com/marmos91/bucketfs/pkg/store"
)

// StoreTestSuite is the conformance suite for ObjectStore implementations.
// It tests the interface contract only, so every backend (memory, badger,
// S3, Azure) runs the same checks.
//
// Usage:
//
//	func TestMyObjectStore(t *testing.T) {
//	    suite := &storetesting.StoreTestSuite{
//	        NewStore: func(t *testing.T) store.ObjectStore {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore returns an empty store. It is called once per subtest so
	// tests never observe each other's keys. Shared backends should hand
	// out a unique key prefix per call (see store.Prefixed).
	NewStore func(t *testing.T) store.ObjectStore
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("BasicOperations", suite.RunBasicTests)
	t.Run("Listing", suite.RunListTests)
	t.Run("Copy", suite.RunCopyTests)
}

func (suite *StoreTestSuite) newStore(t *testing.T) store.ObjectStore {
	t.Helper()
	s := suite.NewStore(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testContext() context.Context {
	return context.Background()
}
