package store

import (
	"context"
	"time"
)

// Metrics receives per-call observations from InstrumentedStore.
//
// Implementations must be safe for concurrent use. The Prometheus-backed
// implementation lives in pkg/metrics.
type Metrics interface {
	// ObserveOperation records one backend call and its outcome.
	// operation is one of list, stat, get, put, delete, copy, probe.
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordBytes records payload bytes moved by get and put.
	RecordBytes(operation string, bytes int64)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, time.Duration, error) {}
func (noopMetrics) RecordBytes(string, int64)                     {}

// InstrumentedStore reports every call to a Metrics sink.
type InstrumentedStore struct {
	inner   ObjectStore
	metrics Metrics
}

// Instrumented wraps s with metrics collection. A nil m returns s.
func Instrumented(s ObjectStore, m Metrics) ObjectStore {
	if m == nil {
		return s
	}
	return &InstrumentedStore{inner: s, metrics: m}
}

func (i *InstrumentedStore) observe(op string, start time.Time, err error) {
	// A missing key is an answer, not a failure.
	if IsNotFound(err) {
		err = nil
	}
	i.metrics.ObserveOperation(op, time.Since(start), err)
}

func (i *InstrumentedStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	start := time.Now()
	objects, err := i.inner.List(ctx, prefix)
	i.observe("list", start, err)
	return objects, err
}

func (i *InstrumentedStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	start := time.Now()
	info, err := i.inner.Stat(ctx, key)
	i.observe("stat", start, err)
	return info, err
}

func (i *InstrumentedStore) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	data, err := i.inner.Get(ctx, key)
	i.observe("get", start, err)
	if err == nil {
		i.metrics.RecordBytes("get", int64(len(data)))
	}
	return data, err
}

func (i *InstrumentedStore) Put(ctx context.Context, key string, data []byte) error {
	start := time.Now()
	err := i.inner.Put(ctx, key, data)
	i.observe("put", start, err)
	if err == nil {
		i.metrics.RecordBytes("put", int64(len(data)))
	}
	return err
}

func (i *InstrumentedStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := i.inner.Delete(ctx, key)
	i.observe("delete", start, err)
	return err
}

func (i *InstrumentedStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	start := time.Now()
	err := CopyObject(ctx, i.inner, srcKey, dstKey)
	i.observe("copy", start, err)
	return err
}

func (i *InstrumentedStore) HasPrefix(ctx context.Context, prefix string) (bool, error) {
	start := time.Now()
	ok, err := HasPrefix(ctx, i.inner, prefix)
	i.observe("probe", start, err)
	return ok, err
}

func (i *InstrumentedStore) Close() error {
	return i.inner.Close()
}

// NoopMetrics returns a Metrics that discards everything.
func NoopMetrics() Metrics {
	return noopMetrics{}
}
