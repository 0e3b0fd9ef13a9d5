// Package config loads fetchsql configuration from defaults, a fetchsql.yaml
// file, FETCHSQL_* environment variables and command-line flags.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/fetchsql/internal/cli/output"
	"github.com/leapstack-labs/fetchsql/pkg/transpile"
)

// Config holds all CLI configuration options.
type Config struct {
	OutputFormat string          `koanf:"output"`
	LogLevel     string          `koanf:"log_level"`
	Verbose      bool            `koanf:"verbose"`
	Metadata     MetadataConfig  `koanf:"metadata"`
	Transpile    TranspileConfig `koanf:"transpile"`
	Serve        ServeConfig     `koanf:"serve"`
	Watch        WatchConfig     `koanf:"watch"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// MetadataConfig locates the entity and attribute catalog.
type MetadataConfig struct {
	Catalog string `koanf:"catalog"`
	SQLite  string `koanf:"sqlite"`
}

// TranspileConfig tunes SQL → FetchXML translation.
type TranspileConfig struct {
	CountStar string `koanf:"count_star"`
}

// ServeConfig configures the preview HTTP server.
type ServeConfig struct {
	Addr string `koanf:"addr"`
}

// WatchConfig configures the file watcher.
type WatchConfig struct {
	Debounce time.Duration `koanf:"debounce"`
}

// Default configuration values.
const (
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel   = "info"
	DefaultCatalog    = "catalog.yaml"
	DefaultCountStar  = "wildcard"
	DefaultServeAddr  = "127.0.0.1:8765"
	DefaultDebounce   = 150 * time.Millisecond
	DefaultConfigFile = "fetchsql.yaml"
)

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		OutputFormat: DefaultOutput,
		LogLevel:     DefaultLogLevel,
		Metadata:     MetadataConfig{Catalog: DefaultCatalog},
		Transpile:    TranspileConfig{CountStar: DefaultCountStar},
		Serve:        ServeConfig{Addr: DefaultServeAddr},
		Watch:        WatchConfig{Debounce: DefaultDebounce},
	}
}

// Validate checks enumerated values.
func (c *Config) Validate() error {
	if !output.Valid(c.OutputFormat) {
		return fmt.Errorf("invalid output %q: want auto, text, markdown or json", c.OutputFormat)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := c.TranspileOptions(); err != nil {
		return err
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("invalid watch.debounce %s: must not be negative", c.Watch.Debounce)
	}
	return nil
}

// TranspileOptions converts the transpile section into translator options.
func (c *Config) TranspileOptions() ([]transpile.Option, error) {
	switch strings.ToLower(c.Transpile.CountStar) {
	case "", "wildcard":
		return nil, nil
	case "primary-key", "primary_key":
		return []transpile.Option{transpile.WithCountStarAttribute(transpile.CountStarPrimaryKey)}, nil
	default:
		return nil, fmt.Errorf("invalid transpile.count_star %q: want wildcard or primary-key", c.Transpile.CountStar)
	}
}

// ParseLogLevel maps debug, info, warn or error to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q: %w", s, err)
	}
	return level, nil
}
