// Package metrics provides Prometheus metrics for bucketfs components.
//
// Metrics are optional: when the registry is not initialized every
// constructor returns nil and components fall back to their no-op
// implementations.
//
// Usage:
//
//	metrics.InitRegistry()
//
//	engine := namespace.New(store,
//	    namespace.WithMetrics(metrics.NewNamespaceMetrics()))
//	objects := store.Instrumented(backend, metrics.NewStoreMetrics("s3"))
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// registry is written once by InitRegistry and read afterwards.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry with the Go
// runtime and process collectors. Subsequent calls are ignored.
func InitRegistry() {
	registryOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		registry = reg
	})
}

// GetRegistry returns the global registry, or nil when metrics are
// disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}

// latencyBuckets covers object store round trips from a local store
// (sub-millisecond) to a slow remote bucket.
var latencyBuckets = []float64{
	0.0005, // 500µs
	0.001,  // 1ms
	0.005,  // 5ms
	0.01,   // 10ms
	0.025,  // 25ms
	0.05,   // 50ms
	0.1,    // 100ms
	0.25,   // 250ms
	0.5,    // 500ms
	1.0,    // 1s
	2.5,    // 2.5s
	5.0,    // 5s
	10.0,   // 10s
	30.0,   // 30s
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
