package badger

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/bucketfs/pkg/store"
)

// BadgerObjectStore implements store.ObjectStore on an embedded BadgerDB.
//
// It gives a single-node deployment a persistent object store with the same
// flat key semantics as a cloud bucket. Copy runs inside one transaction,
// so it is atomic for a single object.
//
// Thread Safety:
// BadgerDB transactions provide isolation; the store holds no other state.
type BadgerObjectStore struct {
	db *badger.DB
}

// BadgerObjectStoreConfig contains configuration for the badger store.
type BadgerObjectStoreConfig struct {
	// DBPath is the database directory. Ignored when InMemory is set.
	DBPath string

	// InMemory keeps the database in RAM (tests).
	InMemory bool

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64).
	BlockCacheSizeMB int64

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 32).
	IndexCacheSizeMB int64
}

type objectMeta struct {
	Size     int64     `json:"size"`
	Hash     string    `json:"hash"`
	Modified time.Time `json:"modified"`
}

// NewBadgerObjectStore opens (or creates) a BadgerDB-backed object store.
func NewBadgerObjectStore(ctx context.Context, cfg BadgerObjectStoreConfig) (*BadgerObjectStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.DBPath == "" {
			return nil, fmt.Errorf("badger object store: db path is required")
		}
		opts = badger.DefaultOptions(cfg.DBPath)
	}

	blockCacheMB := cfg.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := cfg.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}

	opts = opts.
		WithLoggingLevel(badger.WARNING).
		WithCompression(options.Snappy).
		WithBlockCacheSize(blockCacheMB << 20).
		WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.DBPath, err)
	}

	return &BadgerObjectStore{db: db}, nil
}

func readMeta(item *badger.Item) (objectMeta, error) {
	var meta objectMeta
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &meta)
	})
	if err != nil {
		return objectMeta{}, fmt.Errorf("failed to decode object metadata: %w", err)
	}
	return meta, nil
}

func (m objectMeta) info(key string) store.ObjectInfo {
	return store.ObjectInfo{Key: key, Size: m.Size, Hash: m.Hash, LastModified: m.Modified}
}

func notFound(key string) error {
	return fmt.Errorf("object %q: %w", key, store.ErrNotFound)
}

// ============================================================================
// Reads
// ============================================================================

func (s *BadgerObjectStore) List(ctx context.Context, prefix string) ([]store.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result []store.ObjectInfo
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Prefix = keyMeta(prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			meta, err := readMeta(item)
			if err != nil {
				return err
			}
			result = append(result, meta.info(objectKeyFromMeta(item.Key())))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list prefix %q: %w", prefix, err)
	}
	return result, nil
}

func (s *BadgerObjectStore) HasPrefix(ctx context.Context, prefix string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = keyMeta(prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		it.Rewind()
		found = it.Valid()
		return nil
	})
	return found, err
}

func (s *BadgerObjectStore) Stat(ctx context.Context, key string) (store.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return store.ObjectInfo{}, err
	}

	var info store.ObjectInfo
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyMeta(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFound(key)
		}
		if err != nil {
			return err
		}

		meta, err := readMeta(item)
		if err != nil {
			return err
		}
		info = meta.info(key)
		return nil
	})
	return info, err
}

func (s *BadgerObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyData(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFound(key)
		}
		if err != nil {
			return err
		}

		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// ============================================================================
// Writes
// ============================================================================

func putObject(txn *badger.Txn, key string, data []byte) error {
	sum := md5.Sum(data)
	meta, err := json.Marshal(objectMeta{
		Size:     int64(len(data)),
		Hash:     hex.EncodeToString(sum[:]),
		Modified: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode object metadata: %w", err)
	}

	if err := txn.Set(keyMeta(key), meta); err != nil {
		return err
	}
	// Badger may retain the slice until commit, hand it a private copy.
	return txn.Set(keyData(key), append([]byte{}, data...))
}

func (s *BadgerObjectStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return store.ErrInvalidKey
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return putObject(txn, key, data)
	})
}

func (s *BadgerObjectStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(keyMeta(key)); err != nil {
			return err
		}
		return txn.Delete(keyData(key))
	})
}

func (s *BadgerObjectStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dstKey == "" {
		return store.ErrInvalidKey
	}

	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyData(srcKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFound(srcKey)
		}
		if err != nil {
			return err
		}

		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return putObject(txn, dstKey, data)
	})
}

func (s *BadgerObjectStore) Close() error {
	return s.db.Close()
}
