package config

import (
	"github.com/marmos91/bucketfs/pkg/adapter/rest"
	"github.com/marmos91/bucketfs/pkg/metrics"
	"github.com/marmos91/bucketfs/pkg/namespace"
	"github.com/marmos91/bucketfs/pkg/store"
)

// MetricsResult contains all metrics-related components created from configuration.
//
// When metrics are disabled every field is nil; the consumers treat a nil
// sink as "no metrics".
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics
	Server *metrics.Server

	// Namespace instruments engine operations
	Namespace namespace.Metrics

	// Store instruments object store calls
	Store store.Metrics

	// HTTP instruments REST requests
	HTTP rest.Metrics
}

// InitializeMetrics creates all metrics components based on configuration.
//
// When enabled it initializes the global Prometheus registry before
// building the collectors.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server: metrics.NewServer(metrics.ServerConfig{
			Port:            cfg.Metrics.Port,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		}),
		Namespace: metrics.NewNamespaceMetrics(),
		Store:     metrics.NewStoreMetrics(cfg.Store.Type),
		HTTP:      metrics.NewHTTPMetrics(),
	}
}
