package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/bucketfs/internal/logger"
	"github.com/marmos91/bucketfs/internal/ratelimiter"
	"github.com/marmos91/bucketfs/pkg/adapter"
	"github.com/marmos91/bucketfs/pkg/adapter/rest"
	"github.com/marmos91/bucketfs/pkg/contents"
	"github.com/marmos91/bucketfs/pkg/store"
	storeAzure "github.com/marmos91/bucketfs/pkg/store/azure"
	storeBadger "github.com/marmos91/bucketfs/pkg/store/badger"
	storeMemory "github.com/marmos91/bucketfs/pkg/store/memory"
	storeS3 "github.com/marmos91/bucketfs/pkg/store/s3"
	"github.com/mitchellh/mapstructure"
)

// CreateObjectStore creates the configured object store with its
// decorators applied.
//
// The backend selected by cfg.Type is built from its option map, then
// wrapped (innermost first) with metrics m, the rate limiter and the key
// prefix. A nil m skips instrumentation.
func CreateObjectStore(ctx context.Context, cfg *StoreConfig, m store.Metrics) (store.ObjectStore, error) {
	backend, err := createBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := store.Instrumented(backend, m)

	if cfg.RateLimit.RequestsPerSecond > 0 {
		s = store.RateLimited(s, ratelimiter.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
		logger.Debug("Object store rate limited to %.1f req/s", cfg.RateLimit.RequestsPerSecond)
	}

	if cfg.KeyPrefix != "" {
		s = store.Prefixed(s, cfg.KeyPrefix)
	}

	return s, nil
}

func createBackend(ctx context.Context, cfg *StoreConfig) (store.ObjectStore, error) {
	switch cfg.Type {
	case "memory":
		s, err := storeMemory.NewMemoryObjectStore(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create memory store: %w", err)
		}
		return s, nil
	case "badger":
		return createBadgerStore(ctx, cfg.Badger)
	case "s3":
		return createS3Store(ctx, cfg.S3)
	case "azure":
		return createAzureStore(ctx, cfg.Azure)
	default:
		return nil, fmt.Errorf("unknown store type: %q (supported: memory, badger, s3, azure)", cfg.Type)
	}
}

// decodeOptions decodes a backend option map, accepting the string forms
// env variables produce ("true", "64").
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(options)
}

func createBadgerStore(ctx context.Context, options map[string]any) (store.ObjectStore, error) {
	type BadgerStoreOptions struct {
		DBPath           string `mapstructure:"db_path"`
		InMemory         bool   `mapstructure:"in_memory"`
		BlockCacheSizeMB int64  `mapstructure:"block_cache_mb"`
		IndexCacheSizeMB int64  `mapstructure:"index_cache_mb"`
	}

	var opts BadgerStoreOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode badger store options: %w", err)
	}

	if opts.DBPath == "" && !opts.InMemory {
		return nil, fmt.Errorf("badger store: db_path is required")
	}

	s, err := storeBadger.NewBadgerObjectStore(ctx, storeBadger.BadgerObjectStoreConfig{
		DBPath:           opts.DBPath,
		InMemory:         opts.InMemory,
		BlockCacheSizeMB: opts.BlockCacheSizeMB,
		IndexCacheSizeMB: opts.IndexCacheSizeMB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger store: %w", err)
	}

	logger.Info("Badger object store opened: path=%s in_memory=%v", opts.DBPath, opts.InMemory)
	return s, nil
}

func createS3Store(ctx context.Context, options map[string]any) (store.ObjectStore, error) {
	type S3StoreOptions struct {
		Bucket          string `mapstructure:"bucket"`
		Region          string `mapstructure:"region"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
		SkipBucketCheck bool   `mapstructure:"skip_bucket_check"`
	}

	var opts S3StoreOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode S3 store options: %w", err)
	}

	if opts.Bucket == "" {
		return nil, fmt.Errorf("S3 store: bucket is required")
	}
	if opts.Region == "" {
		return nil, fmt.Errorf("S3 store: region is required")
	}

	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	configOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(opts.Region),
	}

	// Static credentials when given, otherwise the default chain
	// (environment, shared config, instance role).
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// MinIO and Localstack need a custom endpoint with path-style addressing.
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	// ========================================================================
	// Step 3: Create S3 Object Store
	// ========================================================================

	s, err := storeS3.NewS3ObjectStore(ctx, storeS3.S3ObjectStoreConfig{
		Client:          client,
		Bucket:          opts.Bucket,
		SkipBucketCheck: opts.SkipBucketCheck,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 store: %w", err)
	}

	logger.Info("S3 object store initialized: bucket=%s, region=%s", opts.Bucket, opts.Region)
	return s, nil
}

func createAzureStore(ctx context.Context, options map[string]any) (store.ObjectStore, error) {
	type AzureStoreOptions struct {
		Container        string `mapstructure:"container"`
		ServiceURL       string `mapstructure:"service_url"`
		AccountName      string `mapstructure:"account_name"`
		AccountKey       string `mapstructure:"account_key"`
		ConnectionString string `mapstructure:"connection_string"`
		CreateContainer  bool   `mapstructure:"create_container"`
	}

	var opts AzureStoreOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode Azure store options: %w", err)
	}

	if opts.Container == "" {
		return nil, fmt.Errorf("azure store: container is required")
	}

	s, err := storeAzure.NewAzureObjectStore(ctx, storeAzure.AzureObjectStoreConfig{
		ServiceURL:       opts.ServiceURL,
		AccountName:      opts.AccountName,
		AccountKey:       opts.AccountKey,
		ConnectionString: opts.ConnectionString,
		Container:        opts.Container,
		CreateContainer:  opts.CreateContainer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure store: %w", err)
	}

	logger.Info("Azure object store initialized: container=%s", opts.Container)
	return s, nil
}

// CreateAdapters creates all enabled transports serving manager.
func CreateAdapters(cfg *Config, manager *contents.Manager, httpMetrics rest.Metrics) ([]adapter.Adapter, error) {
	var adapters []adapter.Adapter

	if cfg.Adapters.REST.Enabled {
		adapters = append(adapters, rest.New(cfg.Adapters.REST, manager, httpMetrics))
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no adapters enabled in configuration")
	}

	return adapters, nil
}
