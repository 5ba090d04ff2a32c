package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/marmos91/bucketfs/internal/logger"
	"github.com/marmos91/bucketfs/pkg/contents"
)

// RESTAdapter implements adapter.Adapter for the contents REST API.
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. http.Server.Shutdown stops accepting connections and waits for
//     in-flight requests (up to ShutdownTimeout)
//  3. Remaining connections are closed when the timeout expires
//
// Thread safety:
// All methods are safe for concurrent use. Shutdown runs at most once.
type RESTAdapter struct {
	config  RESTConfig
	manager *contents.Manager
	log     *logger.Logger
	metrics Metrics

	server *http.Server

	// boundPort is the port of the live listener, 0 before Serve binds.
	boundPort atomic.Int32

	ready        chan struct{}
	readyOnce    sync.Once
	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates a REST adapter serving manager. m may be nil.
func New(config RESTConfig, manager *contents.Manager, m Metrics) *RESTAdapter {
	config.applyDefaults()
	log := logger.Default().With("component", "rest")

	a := &RESTAdapter{
		config:  config,
		manager: manager,
		log:     log,
		metrics: m,
		ready:   make(chan struct{}),
	}
	a.server = &http.Server{
		Handler:      NewRouter(manager, config, log, m),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return a
}

// Serve binds the listener and serves until ctx is cancelled or Stop is
// called.
func (a *RESTAdapter) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", a.config.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", a.config.Port, err)
	}
	if tcp, ok := listener.Addr().(*net.TCPAddr); ok {
		a.boundPort.Store(int32(tcp.Port))
	}
	a.readyOnce.Do(func() { close(a.ready) })

	a.log.Info("REST API listening on %s", listener.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
		defer cancel()
		if err := a.Stop(stopCtx); err != nil {
			return err
		}
		<-errCh
		return ctx.Err()

	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("REST server error: %w", err)
	}
}

// Ready is closed once Serve has bound its listener.
func (a *RESTAdapter) Ready() <-chan struct{} {
	return a.ready
}

// Stop gracefully shuts the HTTP server down. Safe to call repeatedly.
func (a *RESTAdapter) Stop(ctx context.Context) error {
	a.shutdownOnce.Do(func() {
		a.log.Debug("REST API shutting down")
		if err := a.server.Shutdown(ctx); err != nil {
			a.log.Warn("graceful shutdown incomplete, closing connections: %v", err)
			_ = a.server.Close()
			a.shutdownErr = err
		}
	})
	return a.shutdownErr
}

func (a *RESTAdapter) Protocol() string {
	return "REST"
}

func (a *RESTAdapter) Port() int {
	if p := a.boundPort.Load(); p != 0 {
		return int(p)
	}
	return a.config.Port
}
