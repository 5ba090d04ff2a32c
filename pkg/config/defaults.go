package config

import (
	"strings"
	"time"

	"github.com/marmos91/bucketfs/pkg/adapter/rest"
	"github.com/marmos91/bucketfs/pkg/contents"
	"github.com/marmos91/bucketfs/pkg/metrics"
)

// Default REST port, the notebook server's conventional one.
const DefaultRESTPort = 8888

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values are replaced, explicit values are preserved. Backend option
// maps get their known keys so generated files and env overrides see them.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyStoreDefaults(&cfg.Store)
	applyContentsDefaults(&cfg.Contents)
	applyRESTDefaults(&cfg.Adapters.REST)
	applyMetricsDefaults(&cfg.Metrics)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	cfg.Badger = withDefaults(cfg.Badger, map[string]any{
		"db_path":        "/tmp/bucketfs-badger",
		"in_memory":      false,
		"block_cache_mb": 64,
		"index_cache_mb": 32,
	})
	cfg.S3 = withDefaults(cfg.S3, map[string]any{
		"bucket":            "",
		"region":            "us-east-1",
		"endpoint":          "",
		"access_key_id":     "",
		"secret_access_key": "",
		"max_retries":       10,
		"skip_bucket_check": false,
	})
	cfg.Azure = withDefaults(cfg.Azure, map[string]any{
		"container":         "",
		"service_url":       "",
		"account_name":      "",
		"account_key":       "",
		"connection_string": "",
		"create_container":  false,
	})
}

// withDefaults fills missing keys of m from defaults.
func withDefaults(m, defaults map[string]any) map[string]any {
	if m == nil {
		m = make(map[string]any, len(defaults))
	}
	for k, v := range defaults {
		if _, ok := m[k]; !ok {
			m[k] = v
		}
	}
	return m
}

func applyContentsDefaults(cfg *ContentsConfig) {
	def := contents.DefaultConfig()
	if cfg.UntitledFile == "" {
		cfg.UntitledFile = def.UntitledFile
	}
	if cfg.UntitledNotebook == "" {
		cfg.UntitledNotebook = def.UntitledNotebook
	}
	if cfg.UntitledDirectory == "" {
		cfg.UntitledDirectory = def.UntitledDirectory
	}
}

func applyRESTDefaults(cfg *rest.RESTConfig) {
	// A config without an explicit port never configured the adapter;
	// enable it so a bare config still serves something.
	if cfg.Port == 0 {
		cfg.Port = DefaultRESTPort
		cfg.Enabled = true
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 60 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 2 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 256 << 20
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = metrics.DefaultPort
	}
}

// GetDefaultConfig returns a Config with all default values applied.
//
// Used to generate sample configuration files and in tests.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Adapters: AdaptersConfig{
			REST: rest.RESTConfig{Enabled: true},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// defaultDocument renders cfg as the nested key/value tree used both for
// viper defaults and for the generated YAML file. Durations are written
// in their string form ("30s").
func defaultDocument(cfg *Config) map[string]any {
	rc := cfg.Adapters.REST
	return map[string]any{
		"logging": map[string]any{
			"level":  cfg.Logging.Level,
			"format": cfg.Logging.Format,
			"output": cfg.Logging.Output,
		},
		"server": map[string]any{
			"shutdown_timeout": cfg.Server.ShutdownTimeout.String(),
		},
		"store": map[string]any{
			"type":       cfg.Store.Type,
			"key_prefix": cfg.Store.KeyPrefix,
			"rate_limit": map[string]any{
				"requests_per_second": cfg.Store.RateLimit.RequestsPerSecond,
				"burst":               cfg.Store.RateLimit.Burst,
			},
			"memory": cfg.Store.Memory,
			"badger": cfg.Store.Badger,
			"s3":     cfg.Store.S3,
			"azure":  cfg.Store.Azure,
		},
		"contents": map[string]any{
			"untitled_file":      cfg.Contents.UntitledFile,
			"untitled_notebook":  cfg.Contents.UntitledNotebook,
			"untitled_directory": cfg.Contents.UntitledDirectory,
			"hide_dotfiles":      cfg.Contents.HideDotfiles,
			"always_delete_dir":  cfg.Contents.AlwaysDeleteDir,
		},
		"adapters": map[string]any{
			"rest": map[string]any{
				"enabled":          rc.Enabled,
				"port":             rc.Port,
				"token":            rc.Token,
				"read_timeout":     rc.ReadTimeout.String(),
				"write_timeout":    rc.WriteTimeout.String(),
				"idle_timeout":     rc.IdleTimeout.String(),
				"shutdown_timeout": rc.ShutdownTimeout.String(),
				"max_body_bytes":   rc.MaxBodyBytes,
			},
		},
		"metrics": map[string]any{
			"enabled": cfg.Metrics.Enabled,
			"port":    cfg.Metrics.Port,
		},
		"tracing": map[string]any{
			"enabled": cfg.Tracing.Enabled,
		},
	}
}
