package main

import (
	"context"
	"fmt"

	"github.com/marmos91/bucketfs/internal/logger"
	"github.com/marmos91/bucketfs/pkg/config"
	"github.com/marmos91/bucketfs/pkg/contents"
	"github.com/marmos91/bucketfs/pkg/server"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the contents REST API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *globalOptions) error {
	cfg, logCloser, err := loadConfig(opts)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()

	logger.Info("BucketFS starting: store=%s prefix=%q", cfg.Store.Type, cfg.Store.KeyPrefix)

	m := config.InitializeMetrics(cfg)

	// The server owns the store from here on and closes it on shutdown.
	a, err := openAppWithConfig(ctx, cfg, nopCloser{}, m.Namespace, m.Store)
	if err != nil {
		return err
	}

	manager := contents.NewManager(a.engine, cfg.Contents.Manager(), nil)

	adapters, err := config.CreateAdapters(cfg, manager, m.HTTP)
	if err != nil {
		_ = a.store.Close()
		return err
	}

	srv := server.New(a.store, cfg.Server.ShutdownTimeout)
	for _, ad := range adapters {
		if err := srv.AddAdapter(ad); err != nil {
			_ = a.store.Close()
			return fmt.Errorf("failed to add %s adapter: %w", ad.Protocol(), err)
		}
	}

	if m.Server != nil {
		go func() {
			if err := m.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	logger.Info("Server is running. Press Ctrl+C to stop.")
	if err := srv.Serve(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
