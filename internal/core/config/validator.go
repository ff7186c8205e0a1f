package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/gobwas/glob"

	"vcdscan/internal/engine/sampler"
)

// Validate checks every section and returns the first problem found.
func Validate(cfg *Config) error {
	for _, check := range []func(*Config) error{
		validateVersion,
		validateInput,
		validateParse,
		validateQuery,
		validateOutput,
		validateLogging,
		validateObservability,
		validateWatch,
	} {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateInput(cfg *Config) error {
	if cfg.Input.BufferSize < 16 {
		return fmt.Errorf("input.buffer_size must be >= 16, got %d", cfg.Input.BufferSize)
	}
	return nil
}

func validateParse(cfg *Config) error {
	if cfg.Parse.MaxCycles < 0 {
		return fmt.Errorf("parse.max_cycles must be >= 0, got %d", cfg.Parse.MaxCycles)
	}
	if _, err := sampler.ParseMode(cfg.Parse.SampleMode); err != nil {
		return fmt.Errorf("parse.sample_mode: %w", err)
	}
	return nil
}

func validateQuery(cfg *Config) error {
	switch cfg.Query.Format {
	case "binary", "hex":
	default:
		return fmt.Errorf("query.format must be one of: binary, hex")
	}
	for i, pattern := range cfg.Query.Include {
		if _, err := glob.Compile(pattern, '.'); err != nil {
			return fmt.Errorf("query.include[%d] %q: %w", i, pattern, err)
		}
	}
	for i, pattern := range cfg.Query.Exclude {
		if _, err := glob.Compile(pattern, '.'); err != nil {
			return fmt.Errorf("query.exclude[%d] %q: %w", i, pattern, err)
		}
	}
	return nil
}

func validateOutput(cfg *Config) error {
	switch cfg.Output.Format {
	case "text", "tsv", "json":
	default:
		return fmt.Errorf("output.format must be one of: text, tsv, json")
	}
	return nil
}

func validateLogging(cfg *Config) error {
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be one of: text, json")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	obs := cfg.Observability
	if !obs.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(obs.Address); err != nil {
		return fmt.Errorf("observability.address %q: %w", obs.Address, err)
	}
	if obs.EnableTracing && strings.TrimSpace(obs.OTLPEndpoint) == "" {
		return fmt.Errorf("observability.otlp_endpoint must not be empty when observability.enable_tracing=true")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", cfg.Watch.Debounce)
	}
	for i, pattern := range cfg.Watch.Patterns {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("watch.patterns[%d] %q: %w", i, pattern, err)
		}
	}
	if cfg.Watch.Enabled && cfg.Input.Path == "" {
		return fmt.Errorf("watch.enabled=true requires input.path")
	}
	return nil
}
