package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/bucketfs/pkg/adapter/rest"
	"github.com/marmos91/bucketfs/pkg/contents"
	"github.com/spf13/viper"
)

// Config represents the complete BucketFS configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (BUCKETFS_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Store Configuration Pattern:
// Each object store backend defines its own options, decoded from the
// section matching store.type (store.memory, store.badger, store.s3,
// store.azure). The other sections are ignored.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains process-wide settings
	Server ServerConfig `mapstructure:"server"`

	// Store selects and configures the object store holding the namespace
	Store StoreConfig `mapstructure:"store"`

	// Contents configures the document content manager
	Contents ContentsConfig `mapstructure:"contents"`

	// Adapters contains transport configurations
	Adapters AdaptersConfig `mapstructure:"adapters"`

	// Metrics controls the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Tracing controls OpenTelemetry spans around namespace operations
	Tracing TracingConfig `mapstructure:"tracing"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains process-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for adapters to stop
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// StoreConfig specifies the object store.
type StoreConfig struct {
	// Type selects the backend
	// Valid values: memory, badger, s3, azure
	Type string `mapstructure:"type" validate:"required,oneof=memory badger s3 azure"`

	// KeyPrefix roots the namespace under a key prefix inside the
	// bucket or container. Empty uses the whole bucket.
	KeyPrefix string `mapstructure:"key_prefix"`

	// RateLimit throttles calls into the backend
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// Memory contains in-memory store options (none currently)
	Memory map[string]any `mapstructure:"memory"`

	// Badger contains BadgerDB options: db_path, in_memory,
	// block_cache_mb, index_cache_mb
	Badger map[string]any `mapstructure:"badger"`

	// S3 contains S3 options: bucket, region, endpoint, access_key_id,
	// secret_access_key, max_retries, skip_bucket_check
	S3 map[string]any `mapstructure:"s3"`

	// Azure contains Azure Blob options: container, service_url,
	// account_name, account_key, connection_string, create_container
	Azure map[string]any `mapstructure:"azure"`
}

// RateLimitConfig configures the token bucket in front of the store.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained call rate. 0 disables limiting.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`

	// Burst is the bucket size. 0 derives it from the rate.
	Burst int `mapstructure:"burst" validate:"gte=0"`
}

// ContentsConfig configures the content manager.
type ContentsConfig struct {
	// UntitledFile is the base name for new files
	UntitledFile string `mapstructure:"untitled_file" validate:"required,excludes=/"`

	// UntitledNotebook is the base name for new notebooks
	UntitledNotebook string `mapstructure:"untitled_notebook" validate:"required,excludes=/"`

	// UntitledDirectory is the base name for new directories
	UntitledDirectory string `mapstructure:"untitled_directory" validate:"required,excludes=/"`

	// HideDotfiles hides entries whose name starts with "." from listings
	HideDotfiles bool `mapstructure:"hide_dotfiles"`

	// AlwaysDeleteDir lets delete remove populated directories recursively
	AlwaysDeleteDir bool `mapstructure:"always_delete_dir"`
}

// Manager converts the section into a contents.Config.
func (c ContentsConfig) Manager() contents.Config {
	return contents.Config{
		UntitledFile:      c.UntitledFile,
		UntitledNotebook:  c.UntitledNotebook,
		UntitledDirectory: c.UntitledDirectory,
		HideDotfiles:      c.HideDotfiles,
		AlwaysDeleteDir:   c.AlwaysDeleteDir,
	}
}

// AdaptersConfig contains all transport configurations.
type AdaptersConfig struct {
	// REST contains the contents REST API configuration.
	// Uses the rest.RESTConfig type directly to avoid duplication.
	REST rest.RESTConfig `mapstructure:"rest"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	// Enabled starts the metrics registry and HTTP endpoint
	Enabled bool `mapstructure:"enabled"`

	// Port is the metrics HTTP port
	Port int `mapstructure:"port" validate:"min=0,max=65535"`
}

// TracingConfig controls OpenTelemetry instrumentation.
type TracingConfig struct {
	// Enabled routes namespace spans to the global tracer provider.
	// When false spans go to a no-op tracer.
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from file, environment, and defaults.
//
// An empty configPath searches the default location. A missing file is
// not an error: defaults and environment variables still apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)
	registerDefaults(v)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variables and the config file search.
//
// Environment variables use the BUCKETFS_ prefix with dots replaced by
// underscores, e.g. BUCKETFS_STORE_S3_BUCKET=notebooks.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("BUCKETFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

// registerDefaults makes every default key known to viper so that
// AutomaticEnv can override keys absent from the file.
func registerDefaults(v *viper.Viper) {
	for key, value := range flatten("", defaultDocument(GetDefaultConfig())) {
		v.SetDefault(key, value)
	}
}

func flatten(prefix string, doc map[string]any) map[string]any {
	out := make(map[string]any)
	for k, val := range doc {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok && len(nested) > 0 {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = val
	}
	return out
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns $XDG_CONFIG_HOME/bucketfs, ~/.config/bucketfs, or
// "." when the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "bucketfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "bucketfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
