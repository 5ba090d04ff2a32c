package adapter

import (
	"context"
)

// Adapter is a transport that exposes the namespace to clients and can be
// managed by server.Server.
//
// Adapters receive their dependencies (the contents manager, metrics) at
// construction, so the server only drives their lifecycle.
//
// Lifecycle:
//  1. Creation: the adapter is built with its transport configuration
//  2. Startup: Serve() binds the listener and blocks until shutdown
//  3. Shutdown: Stop() initiates graceful shutdown within the context deadline
//
// Thread safety:
// Implementations must be safe for concurrent use. Stop() may be called
// concurrently with Serve() and more than once.
type Adapter interface {
	// Serve starts the transport and blocks until the context is cancelled
	// or an unrecoverable error occurs.
	//
	// When the context is cancelled, Serve must stop accepting requests,
	// let in-flight requests finish within the shutdown timeout and return
	// nil or context.Canceled.
	//
	// If Serve returns before context cancellation, the server treats it as
	// a fatal error and stops all other adapters.
	Serve(ctx context.Context) error

	// Stop initiates graceful shutdown. It must be idempotent and respect
	// the context deadline.
	Stop(ctx context.Context) error

	// Protocol returns the human-readable protocol name for logging and
	// metrics, e.g. "REST".
	Protocol() string

	// Port returns the TCP port the adapter listens on. After Serve has
	// bound its listener this is the actual port, which differs from the
	// configured one when the configuration asks for port 0.
	Port() int
}
