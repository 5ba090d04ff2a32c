package rest

import "time"

// RESTConfig holds configuration for the contents REST API.
//
// Default values (applied by New if zero):
//   - ReadTimeout: 30s
//   - WriteTimeout: 60s
//   - IdleTimeout: 2m
//   - ShutdownTimeout: 30s
//   - MaxBodyBytes: 256MiB
type RESTConfig struct {
	// Enabled controls whether the REST adapter is started.
	Enabled bool `mapstructure:"enabled"`

	// Port is the TCP port to listen on. 0 picks a free port.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`

	// Token enables bearer authentication when non-empty. Every request
	// except the health check must carry "Authorization: Bearer <token>".
	Token string `mapstructure:"token"`

	// ReadTimeout bounds reading a whole request including the body.
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"min=0"`

	// WriteTimeout bounds writing the response.
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0"`

	// IdleTimeout closes keep-alive connections left idle this long.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"min=0"`

	// ShutdownTimeout is how long in-flight requests get to finish on stop.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`

	// MaxBodyBytes caps request bodies. Larger uploads are rejected.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" validate:"min=0"`
}

func (c *RESTConfig) applyDefaults() {
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 60 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 2 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = 256 << 20
	}
}
