package store

import (
	"context"
	"strings"
)

// PrefixedStore roots every key under a fixed key prefix, so a namespace can
// live inside a shared bucket or container. Keys passed in and returned out
// are relative to the prefix.
type PrefixedStore struct {
	inner  ObjectStore
	prefix string
}

// Prefixed wraps s so that all keys live under prefix. Leading slashes are
// dropped and a trailing slash is added. An empty prefix returns s unchanged.
func Prefixed(s ObjectStore, prefix string) ObjectStore {
	prefix = NormalizePrefix(prefix)
	if prefix == "" {
		return s
	}
	return &PrefixedStore{inner: s, prefix: prefix}
}

// NormalizePrefix strips leading slashes and guarantees a trailing slash on
// non-empty prefixes.
func NormalizePrefix(prefix string) string {
	prefix = strings.TrimLeft(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

// Prefix returns the normalized key prefix.
func (p *PrefixedStore) Prefix() string {
	return p.prefix
}

func (p *PrefixedStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	objects, err := p.inner.List(ctx, p.prefix+prefix)
	if err != nil {
		return nil, err
	}

	out := objects[:0]
	for _, obj := range objects {
		rel := obj.Key[len(p.prefix):]
		// The prefix marker itself is the namespace root, which is never an entry.
		if rel == "" {
			continue
		}
		obj.Key = rel
		out = append(out, obj)
	}
	return out, nil
}

func (p *PrefixedStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	info, err := p.inner.Stat(ctx, p.prefix+key)
	if err != nil {
		return ObjectInfo{}, err
	}
	info.Key = key
	return info, nil
}

func (p *PrefixedStore) Get(ctx context.Context, key string) ([]byte, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *PrefixedStore) Put(ctx context.Context, key string, data []byte) error {
	return p.inner.Put(ctx, p.prefix+key, data)
}

func (p *PrefixedStore) Delete(ctx context.Context, key string) error {
	return p.inner.Delete(ctx, p.prefix+key)
}

func (p *PrefixedStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	return CopyObject(ctx, p.inner, p.prefix+srcKey, p.prefix+dstKey)
}

func (p *PrefixedStore) HasPrefix(ctx context.Context, prefix string) (bool, error) {
	return HasPrefix(ctx, p.inner, p.prefix+prefix)
}

func (p *PrefixedStore) Close() error {
	return p.inner.Close()
}
