//go:build e2e

// Package e2e runs the whole BucketFS stack (object store, namespace
// engine, content manager, REST adapter, server) and drives it over HTTP.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/marmos91/bucketfs/pkg/adapter/rest"
	"github.com/marmos91/bucketfs/pkg/config"
	"github.com/marmos91/bucketfs/pkg/contents"
	"github.com/marmos91/bucketfs/pkg/namespace"
	"github.com/marmos91/bucketfs/pkg/server"
	"github.com/marmos91/bucketfs/pkg/store"
	"github.com/stretchr/testify/require"
)

// TestContext is a running server plus an HTTP client pointed at it.
type TestContext struct {
	T       *testing.T
	Store   store.ObjectStore
	BaseURL string
	Token   string

	client *http.Client
	cancel context.CancelFunc
	done   chan error
}

// NewTestContext starts a server on a free port backed by the store cfg
// describes. The server is stopped on test cleanup.
func NewTestContext(t *testing.T, storeCfg config.StoreConfig) *TestContext {
	t.Helper()

	cfg := config.GetDefaultConfig()
	cfg.Store = storeCfg
	cfg.Adapters.REST.Port = 0
	cfg.Adapters.REST.Token = "e2e-token"

	ctx, cancel := context.WithCancel(context.Background())

	s, err := config.CreateObjectStore(ctx, &cfg.Store, nil)
	require.NoError(t, err)

	manager := contents.NewManager(namespace.New(s), cfg.Contents.Manager(), nil)
	adapter := rest.New(cfg.Adapters.REST, manager, nil)

	srv := server.New(s, 5*time.Second)
	require.NoError(t, srv.AddAdapter(adapter))

	tc := &TestContext{
		T:      t,
		Store:  s,
		Token:  cfg.Adapters.REST.Token,
		client: &http.Client{Timeout: 10 * time.Second},
		cancel: cancel,
		done:   make(chan error, 1),
	}
	go func() { tc.done <- srv.Serve(ctx) }()

	select {
	case <-adapter.Ready():
	case err := <-tc.done:
		t.Fatalf("server exited before becoming ready: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not become ready")
	}
	tc.BaseURL = fmt.Sprintf("http://127.0.0.1:%d", adapter.Port())

	t.Cleanup(tc.Close)
	return tc
}

// Close stops the server and waits for it to exit.
func (tc *TestContext) Close() {
	tc.cancel()
	select {
	case err := <-tc.done:
		if err != nil {
			tc.T.Errorf("server shutdown: %v", err)
		}
	case <-time.After(10 * time.Second):
		tc.T.Error("server did not stop")
	}
}

// Do sends a request to the contents API and decodes a JSON response into
// out when out is non-nil. It returns the status code.
func (tc *TestContext) Do(method, path string, body, out any) int {
	tc.T.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(tc.T, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, tc.BaseURL+"/api/contents/"+path, reader)
	require.NoError(tc.T, err)
	req.Header.Set("Authorization", "Bearer "+tc.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := tc.client.Do(req)
	require.NoError(tc.T, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(tc.T, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}
