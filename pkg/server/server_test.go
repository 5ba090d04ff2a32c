package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marmos91/bucketfs/pkg/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	protocol string
	port     int
	failWith error

	stops   atomic.Int32
	stopped chan struct{}
	once    sync.Once
}

func newFake(protocol string, port int) *fakeAdapter {
	return &fakeAdapter{protocol: protocol, port: port, stopped: make(chan struct{})}
}

func (f *fakeAdapter) Serve(ctx context.Context) error {
	if f.failWith != nil {
		return f.failWith
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.stopped:
		return nil
	}
}

func (f *fakeAdapter) Stop(context.Context) error {
	f.stops.Add(1)
	f.once.Do(func() { close(f.stopped) })
	return nil
}

func (f *fakeAdapter) Protocol() string { return f.protocol }
func (f *fakeAdapter) Port() int        { return f.port }

func newServer(t *testing.T) (*Server, *memory.MemoryObjectStore) {
	t.Helper()
	s, err := memory.NewMemoryObjectStore(context.Background())
	require.NoError(t, err)
	return New(s, time.Second), s
}

func TestAddAdapterConflicts(t *testing.T) {
	srv, _ := newServer(t)

	require.NoError(t, srv.AddAdapter(newFake("REST", 8888)))
	assert.Error(t, srv.AddAdapter(newFake("REST", 9999)))
	assert.Error(t, srv.AddAdapter(newFake("OTHER", 8888)))
	require.NoError(t, srv.AddAdapter(newFake("OTHER", 0)))
	assert.Len(t, srv.Adapters(), 2)
}

func TestServeWithoutAdapters(t *testing.T) {
	srv, _ := newServer(t)
	assert.Error(t, srv.Serve(context.Background()))
}

func TestServeStopsOnCancel(t *testing.T) {
	srv, s := newServer(t)
	a, b := newFake("A", 1), newFake("B", 2)
	require.NoError(t, srv.AddAdapter(a))
	require.NoError(t, srv.AddAdapter(b))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	assert.Equal(t, int32(1), a.stops.Load())
	assert.Equal(t, int32(1), b.stops.Load())

	// The store is closed once all adapters are down.
	_, err := s.List(context.Background(), "")
	assert.Error(t, err)

	assert.Error(t, srv.Serve(context.Background()), "second Serve must fail")
}

func TestServeStopsOthersOnFailure(t *testing.T) {
	srv, _ := newServer(t)
	healthy := newFake("HEALTHY", 1)
	broken := newFake("BROKEN", 2)
	broken.failWith = errors.New("bind failed")

	require.NoError(t, srv.AddAdapter(healthy))
	require.NoError(t, srv.AddAdapter(broken))

	err := srv.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BROKEN adapter error")
	assert.Equal(t, int32(1), healthy.stops.Load())
}
