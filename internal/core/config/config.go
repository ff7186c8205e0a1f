package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultFile is the configuration file looked up when no path is given.
const DefaultFile = "vcdscan.toml"

type Config struct {
	Version       int           `toml:"version"`
	Input         Input         `toml:"input"`
	Clock         Clock         `toml:"clock"`
	Parse         Parse         `toml:"parse"`
	Query         Query         `toml:"query"`
	Output        Output        `toml:"output"`
	Logging       Logging       `toml:"logging"`
	Observability Observability `toml:"observability"`
	Watch         Watch         `toml:"watch"`
}

type Input struct {
	Path       string `toml:"path"`
	BufferSize int    `toml:"buffer_size"`
}

type Clock struct {
	// Signal is a hierarchical path or identifier code. Empty selects the
	// first 1-bit signal named clk or clock.
	Signal string `toml:"signal"`
}

type Parse struct {
	Lenient    bool   `toml:"lenient"`
	MaxCycles  int    `toml:"max_cycles"`
	SampleMode string `toml:"sample_mode"`
	StrictIDs  bool   `toml:"strict_ids"`
}

type Query struct {
	MergeEdges bool     `toml:"merge_edges"`
	Include    []string `toml:"include"`
	Exclude    []string `toml:"exclude"`
	Format     string   `toml:"format"`
}

type Output struct {
	Format string `toml:"format"`
	Path   string `toml:"path"`
}

type Logging struct {
	Level            string        `toml:"level"`
	Format           string        `toml:"format"`
	ProgressInterval time.Duration `toml:"progress_interval"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	Address       string `toml:"address"`
	EnableTracing bool   `toml:"enable_tracing"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
}

type Watch struct {
	Enabled  bool          `toml:"enabled"`
	Debounce time.Duration `toml:"debounce"`
	Patterns []string      `toml:"patterns"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	applyDefaults(&cfg)
	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if cfg.Input.BufferSize <= 0 {
		cfg.Input.BufferSize = 64 * 1024
	}
	if strings.TrimSpace(cfg.Parse.SampleMode) == "" {
		cfg.Parse.SampleMode = "settled"
	}
	if strings.TrimSpace(cfg.Query.Format) == "" {
		cfg.Query.Format = "binary"
	}
	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = "text"
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
	if strings.TrimSpace(cfg.Logging.Format) == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.ProgressInterval <= 0 {
		cfg.Logging.ProgressInterval = 2 * time.Second
	}
	if strings.TrimSpace(cfg.Observability.Address) == "" {
		cfg.Observability.Address = "127.0.0.1:9464"
	}
	// Default debounce if not set.
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if len(cfg.Watch.Patterns) == 0 {
		cfg.Watch.Patterns = []string{"*.vcd"}
	}
}

func normalize(cfg *Config) {
	cfg.Input.Path = strings.TrimSpace(cfg.Input.Path)
	cfg.Clock.Signal = strings.TrimSpace(cfg.Clock.Signal)
	cfg.Parse.SampleMode = strings.ToLower(strings.TrimSpace(cfg.Parse.SampleMode))
	cfg.Query.Format = strings.ToLower(strings.TrimSpace(cfg.Query.Format))
	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	cfg.Query.Include = trimAll(cfg.Query.Include)
	cfg.Query.Exclude = trimAll(cfg.Query.Exclude)
	cfg.Watch.Patterns = trimAll(cfg.Watch.Patterns)
}

func trimAll(values []string) []string {
	if len(values) == 0 {
		return values
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
