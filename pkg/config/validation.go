package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate = validator.New()

// Validate validates the configuration using struct tags and custom rules.
//
// Log level normalization is handled in ApplyDefaults; validation accepts
// both cases.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs validation that struct tags cannot express.
func validateCustomRules(cfg *Config) error {
	rl := cfg.Store.RateLimit
	if rl.Burst > 0 && rl.RequestsPerSecond == 0 {
		return fmt.Errorf("store.rate_limit: burst is set but requests_per_second is 0")
	}

	rc := cfg.Adapters.REST
	if cfg.Metrics.Enabled && rc.Enabled && rc.Port != 0 && rc.Port == cfg.Metrics.Port {
		return fmt.Errorf("metrics.port: %d is already used by adapters.rest", cfg.Metrics.Port)
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
