package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix starts every environment override key.
const EnvPrefix = "VCDSCAN_"

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: VCDSCAN_[SECTION]_[KEY] (e.g., VCDSCAN_PARSE_MAX_CYCLES).
func ApplyEnvOverrides(cfg *Config) {
	// Input
	setEnvString(&cfg.Input.Path, "VCDSCAN_INPUT_PATH")
	setEnvInt(&cfg.Input.BufferSize, "VCDSCAN_INPUT_BUFFER_SIZE")

	// Clock
	setEnvString(&cfg.Clock.Signal, "VCDSCAN_CLOCK_SIGNAL")

	// Parse
	setEnvBool(&cfg.Parse.Lenient, "VCDSCAN_PARSE_LENIENT")
	setEnvInt(&cfg.Parse.MaxCycles, "VCDSCAN_PARSE_MAX_CYCLES")
	setEnvString(&cfg.Parse.SampleMode, "VCDSCAN_PARSE_SAMPLE_MODE")
	setEnvBool(&cfg.Parse.StrictIDs, "VCDSCAN_PARSE_STRICT_IDS")

	// Query
	setEnvBool(&cfg.Query.MergeEdges, "VCDSCAN_QUERY_MERGE_EDGES")
	setEnvList(&cfg.Query.Include, "VCDSCAN_QUERY_INCLUDE")
	setEnvList(&cfg.Query.Exclude, "VCDSCAN_QUERY_EXCLUDE")
	setEnvString(&cfg.Query.Format, "VCDSCAN_QUERY_FORMAT")

	// Output
	setEnvString(&cfg.Output.Format, "VCDSCAN_OUTPUT_FORMAT")
	setEnvString(&cfg.Output.Path, "VCDSCAN_OUTPUT_PATH")

	// Logging
	setEnvString(&cfg.Logging.Level, "VCDSCAN_LOGGING_LEVEL")
	setEnvString(&cfg.Logging.Format, "VCDSCAN_LOGGING_FORMAT")
	setEnvDuration(&cfg.Logging.ProgressInterval, "VCDSCAN_LOGGING_PROGRESS_INTERVAL")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "VCDSCAN_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.Address, "VCDSCAN_OBSERVABILITY_ADDRESS")
	setEnvBool(&cfg.Observability.EnableTracing, "VCDSCAN_OBSERVABILITY_ENABLE_TRACING")
	setEnvString(&cfg.Observability.OTLPEndpoint, "VCDSCAN_OBSERVABILITY_OTLP_ENDPOINT")

	// Watch
	setEnvBool(&cfg.Watch.Enabled, "VCDSCAN_WATCH_ENABLED")
	setEnvDuration(&cfg.Watch.Debounce, "VCDSCAN_WATCH_DEBOUNCE")
	setEnvList(&cfg.Watch.Patterns, "VCDSCAN_WATCH_PATTERNS")

	normalize(cfg)
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

// setEnvList splits a comma-separated value.
func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = strings.Split(val, ",")
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
