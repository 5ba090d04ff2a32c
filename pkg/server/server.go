package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/bucketfs/internal/logger"
	"github.com/marmos91/bucketfs/pkg/adapter"
	"github.com/marmos91/bucketfs/pkg/store"
)

// DefaultStopTimeout bounds adapter shutdown when no timeout is configured.
const DefaultStopTimeout = 30 * time.Second

// Server manages the lifecycle of the adapters exposing one namespace and
// owns the object store behind it.
//
// Lifecycle:
//  1. Creation: New() with the object store
//  2. Registration: AddAdapter() for each transport
//  3. Startup: Serve() starts all adapters concurrently
//  4. Shutdown: context cancellation or an adapter failure stops every
//     adapter in reverse registration order, then the store is closed
//
// Thread safety:
// Server is safe for concurrent use. AddAdapter() must not be called after
// Serve(), and Serve() may only be called once.
//
// Example usage:
//
//	srv := server.New(objectStore, cfg.Server.ShutdownTimeout)
//	srv.AddAdapter(rest.New(restConfig, manager, restMetrics))
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
//	    log.Fatal(err)
//	}
type Server struct {
	store       store.ObjectStore
	stopTimeout time.Duration

	// mu protects adapters and served
	mu       sync.Mutex
	adapters []adapter.Adapter
	served   bool
}

// New creates a Server over s. A non-positive stopTimeout uses
// DefaultStopTimeout.
//
// Panics if s is nil (programmer error).
func New(s store.ObjectStore, stopTimeout time.Duration) *Server {
	if s == nil {
		panic("object store cannot be nil")
	}
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	return &Server{
		store:       s,
		stopTimeout: stopTimeout,
		adapters:    make([]adapter.Adapter, 0, 2),
	}
}

// AddAdapter registers an adapter to be started by Serve().
//
// Returns an error when another adapter already serves the same protocol
// or the same non-zero port.
//
// Panics if a is nil or Serve() has already been called.
func (s *Server) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		panic("cannot add adapter after Serve() has been called")
	}

	protocol, port := a.Protocol(), a.Port()
	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
		if port != 0 && existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter", port, existing.Protocol())
		}
	}

	s.adapters = append(s.adapters, a)
	logger.Info("Registered %s adapter on port %d", protocol, port)
	return nil
}

// Adapters returns a snapshot of the registered adapters.
func (s *Server) Adapters() []adapter.Adapter {
	s.mu.Lock()
	defer s.mu.Unlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}

// Serve starts all registered adapters and blocks until the context is
// cancelled or an adapter fails.
//
// Returns:
//   - the context error when shutdown was triggered by cancellation
//   - the first adapter error when an adapter failed
//   - an error when no adapter is registered or Serve was already called
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		return errors.New("Serve() has already been called on this server instance")
	}
	s.served = true
	if len(s.adapters) == 0 {
		s.mu.Unlock()
		return errors.New("no adapters registered; call AddAdapter() before Serve()")
	}
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	s.mu.Unlock()

	logger.Info("Starting bucketfs with %d adapter(s)", len(adapters))

	// Buffered so failing adapters never block.
	errChan := make(chan adapterError, len(adapters))
	var wg sync.WaitGroup

	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			logger.Info("Starting %s adapter on port %d", protocol, a.Port())

			err := a.Serve(ctx)
			switch {
			case err == nil:
				if ctx.Err() == nil {
					errChan <- adapterError{protocol: protocol, err: errors.New("stopped unexpectedly")}
				}
				logger.Info("%s adapter stopped", protocol)
			case errors.Is(err, context.Canceled) || ctx.Err() != nil:
				logger.Debug("%s adapter stopped gracefully", protocol)
			default:
				logger.Error("%s adapter failed: %v", protocol, err)
				errChan <- adapterError{protocol: protocol, err: err}
			}
		}(adp)
	}

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		s.stopAllAdapters(adapters)
		shutdownErr = ctx.Err()

	case adapterErr := <-errChan:
		logger.Error("Adapter %s failed: %v - initiating shutdown of all adapters",
			adapterErr.protocol, adapterErr.err)
		s.stopAllAdapters(adapters)
		shutdownErr = fmt.Errorf("%s adapter error: %w", adapterErr.protocol, adapterErr.err)
	}

	logger.Debug("Waiting for all adapters to complete shutdown")
	wg.Wait()

	if err := s.store.Close(); err != nil {
		logger.Warn("Error closing object store: %v", err)
	}

	logger.Info("bucketfs stopped gracefully")
	return shutdownErr
}

// adapterError pairs an adapter protocol name with its error.
type adapterError struct {
	protocol string
	err      error
}

// stopAllAdapters stops adapters in reverse registration order, sharing one
// stop deadline. Errors are logged and do not interrupt the sequence.
func (s *Server) stopAllAdapters(adapters []adapter.Adapter) {
	ctx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
	defer cancel()

	logger.Info("Initiating graceful shutdown of %d adapter(s)", len(adapters))

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		protocol := adp.Protocol()

		logger.Debug("Stopping %s adapter (port %d)", protocol, adp.Port())
		if err := adp.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s adapter: %v", protocol, err)
		}
	}
}
