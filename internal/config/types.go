// Package config loads routegen settings from defaults, routegen.yaml,
// ROUTEGEN_ environment variables and command-line flags.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Default values.
const (
	DefaultPagesDir     = "src/pages"
	DefaultOutputDir    = "public"
	DefaultManifestPath = ".routegen/manifest.db"
	DefaultDebounceMS   = 100
)

// DataKind selects the query executor for a data source.
type DataKind string

const (
	DataSQLite DataKind = "sqlite"
	DataJSON   DataKind = "json"
)

// Config holds all routegen settings.
type Config struct {
	PagesDir      string   `koanf:"pages_dir"`
	DataSource    string   `koanf:"data_source"`
	OutputDir     string   `koanf:"output_dir"`
	ManifestPath  string   `koanf:"manifest_path"`
	TrailingSlash bool     `koanf:"trailing_slash"`
	Verbose       bool     `koanf:"verbose"`
	DebounceMS    int      `koanf:"debounce_ms"`
	Concurrency   int      `koanf:"concurrency"`
	QueryTags     []string `koanf:"query_tags"`

	// Set by Load, not read from any source.
	ProjectRoot string `koanf:"-"`
	ConfigFile  string `koanf:"-"`
}

// Debounce returns the watch debounce window.
func (c *Config) Debounce() time.Duration {
	if c.DebounceMS <= 0 {
		return DefaultDebounceMS * time.Millisecond
	}
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// DataKind infers the executor from the data source extension.
func (c *Config) DataKind() (DataKind, error) {
	switch strings.ToLower(filepath.Ext(c.DataSource)) {
	case ".db", ".sqlite", ".sqlite3":
		return DataSQLite, nil
	case ".json":
		return DataJSON, nil
	case "":
		return "", fmt.Errorf("data_source is not set")
	default:
		return "", fmt.Errorf("data_source %s: unsupported extension (want .db, .sqlite or .json)", c.DataSource)
	}
}

// Validate checks the settings a build needs.
func (c *Config) Validate() error {
	if c.PagesDir == "" {
		return fmt.Errorf("pages_dir is not set")
	}
	if _, err := c.DataKind(); err != nil {
		return err
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	return nil
}
