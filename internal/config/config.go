// Package config provides configuration types and defaults for ibakit.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"ibakit/internal/log"
)

// Config holds all configuration options for ibakit.
type Config struct {
	// Decoder selects the decoder backend. Currently only "fixture".
	Decoder string `mapstructure:"decoder"`

	AutoReload bool           `mapstructure:"auto_reload"`
	Watch      WatchConfig    `mapstructure:"watch"`
	Search     SearchConfig   `mapstructure:"search"`
	Registry   RegistryConfig `mapstructure:"registry"`
	History    HistoryConfig  `mapstructure:"history"`
	Tracing    TracingConfig  `mapstructure:"tracing"`
}

// WatchConfig holds source file watching options.
type WatchConfig struct {
	// DebounceMS coalesces rapid file events into one notification.
	DebounceMS int `mapstructure:"debounce_ms"`
}

// Debounce returns the debounce interval as a duration.
func (w WatchConfig) Debounce() time.Duration {
	if w.DebounceMS <= 0 {
		return time.Second
	}
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// SearchConfig holds search result caching options.
type SearchConfig struct {
	CacheEnabled    bool `mapstructure:"cache_enabled"`
	CacheTTLSeconds int  `mapstructure:"cache_ttl_seconds"`
}

// CacheTTL returns the cache TTL as a duration.
func (s SearchConfig) CacheTTL() time.Duration {
	if s.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

// RegistryConfig holds signal definition registry options.
type RegistryConfig struct {
	// Palette overrides the built-in plot color cycle. Hex colors,
	// assigned to new definitions in order.
	Palette []string `mapstructure:"palette"`
}

// HistoryConfig holds recent-file history options.
type HistoryConfig struct {
	// DBPath is the sqlite database location.
	// Default: ~/.config/ibakit/history.db
	DBPath string `mapstructure:"db_path"`

	// Keep bounds how many entries survive pruning.
	Keep int `mapstructure:"keep"`
}

// TracingConfig holds tracing configuration for load and export spans.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for "file" exporter.
	// Default: ~/.config/ibakit/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`
}

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/ibakit/traces/traces.jsonl or empty string if home dir unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ibakit", "traces", "traces.jsonl")
}

// DefaultHistoryDBPath returns the default path for the history database.
// Returns ~/.config/ibakit/history.db or empty string if home dir unavailable.
func DefaultHistoryDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ibakit", "history.db")
}

var hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ValidatePalette checks a palette override for errors.
// Returns nil if the palette is empty (built-in cycle applies).
func ValidatePalette(palette []string) error {
	for i, color := range palette {
		if !hexColorRe.MatchString(color) {
			return fmt.Errorf("registry.palette[%d]: %q is not a #RRGGBB color", i, color)
		}
	}
	return nil
}

// ValidateHistory checks history configuration for errors.
func ValidateHistory(h HistoryConfig) error {
	if h.Keep < 0 {
		return fmt.Errorf("history.keep must be >= 0, got %d", h.Keep)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
			// Valid
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if tracing.Enabled {
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// Validate checks the whole configuration for errors.
func (c Config) Validate() error {
	if c.Decoder != "" && c.Decoder != "fixture" {
		return fmt.Errorf("decoder must be \"fixture\", got %q", c.Decoder)
	}
	if err := ValidatePalette(c.Registry.Palette); err != nil {
		return err
	}
	if err := ValidateHistory(c.History); err != nil {
		return err
	}
	return ValidateTracing(c.Tracing)
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Decoder:    "fixture",
		AutoReload: false,
		Watch: WatchConfig{
			DebounceMS: 1000,
		},
		Search: SearchConfig{
			CacheEnabled:    true,
			CacheTTLSeconds: 300,
		},
		History: HistoryConfig{
			DBPath: DefaultHistoryDBPath(),
			Keep:   50,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     "", // Derived from config dir at runtime
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# ibakit Configuration

# Decoder backend for .dat files
decoder: fixture

# Reload the catalog automatically when the source file changes on disk.
# When false, a file-changed notification is still published.
auto_reload: false

# Source file watching
watch:
  debounce_ms: 1000   # Coalesce rapid file events into one notification

# Search result caching
search:
  cache_enabled: true
  cache_ttl_seconds: 300

# Signal definition registry
registry:
  # Override the plot color cycle. Colors are assigned to new
  # definitions in order and wrap around.
  # palette:
  #   - "#0000FF"
  #   - "#FF0000"
  #   - "#008000"

# Recent file history
history:
  # db_path: ~/.config/ibakit/history.db
  keep: 50   # Entries kept when pruning

# Tracing for load and export operations
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/ibakit/traces/traces.jsonl  # Output file for file exporter
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
