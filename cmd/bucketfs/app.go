package main

import (
	"context"
	"fmt"
	"io"

	"github.com/marmos91/bucketfs/internal/logger"
	"github.com/marmos91/bucketfs/pkg/config"
	"github.com/marmos91/bucketfs/pkg/namespace"
	"github.com/marmos91/bucketfs/pkg/store"
	"go.opentelemetry.io/otel/trace/noop"
)

// app bundles what every subcommand needs: the loaded configuration, the
// object store and the engine on top of it.
type app struct {
	cfg       *config.Config
	store     store.ObjectStore
	engine    *namespace.Engine
	logCloser io.Closer
}

// loadConfig reads the configuration and installs the process logger.
func loadConfig(opts *globalOptions) (*config.Config, io.Closer, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	closer, err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		return nil, nil, err
	}
	return cfg, closer, nil
}

// openApp loads configuration and opens the store. nsMetrics and
// storeMetrics may be nil.
func openApp(ctx context.Context, opts *globalOptions, nsMetrics namespace.Metrics, storeMetrics store.Metrics) (*app, error) {
	cfg, closer, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	return openAppWithConfig(ctx, cfg, closer, nsMetrics, storeMetrics)
}

func openAppWithConfig(ctx context.Context, cfg *config.Config, closer io.Closer, nsMetrics namespace.Metrics, storeMetrics store.Metrics) (*app, error) {
	s, err := config.CreateObjectStore(ctx, &cfg.Store, storeMetrics)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("failed to create object store: %w", err)
	}

	engineOpts := []namespace.Option{
		namespace.WithLogger(logger.Default()),
		namespace.WithMetrics(nsMetrics),
	}
	if !cfg.Tracing.Enabled {
		engineOpts = append(engineOpts, namespace.WithTracer(noop.NewTracerProvider().Tracer("")))
	}

	return &app{
		cfg:       cfg,
		store:     s,
		engine:    namespace.New(s, engineOpts...),
		logCloser: closer,
	}, nil
}

// Close releases the store and the log output.
func (a *app) Close() error {
	err := a.store.Close()
	if cerr := a.logCloser.Close(); err == nil {
		err = cerr
	}
	return err
}
