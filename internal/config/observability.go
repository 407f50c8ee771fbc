package config

import (
	"fmt"

	"github.com/rs/zerolog"
)

// ObservabilityConfig controls logging and APM. The New Relic agent is only
// started when a license key is present.
type ObservabilityConfig struct {
	ServiceName string `koanf:"service_name"`
	Environment string `koanf:"environment"`
	LicenseKey  string `koanf:"license_key"`
	LogLevel    string `koanf:"log_level"`
}

// DefaultObservabilityConfig returns the config used when none is supplied.
func DefaultObservabilityConfig() *ObservabilityConfig {
	return &ObservabilityConfig{LogLevel: "info"}
}

// Validate checks the log level parses.
func (o *ObservabilityConfig) Validate() error {
	if o.LogLevel == "" {
		o.LogLevel = "info"
	}
	if _, err := zerolog.ParseLevel(o.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", o.LogLevel, err)
	}
	return nil
}

// Level returns the parsed zerolog level.
func (o *ObservabilityConfig) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(o.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// APMEnabled reports whether the New Relic agent should be started.
func (o *ObservabilityConfig) APMEnabled() bool {
	return o.LicenseKey != ""
}
