// Package config provides configuration management for the lagom manifest
// service.
//
// Config file locations (priority order):
//  1. $LAGOM_CONFIG
//  2. ./lagom.yaml
//  3. ~/.config/lagom/config.yaml
//  4. /etc/lagom/config.yaml
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration
type Config struct {
	Version   int            `yaml:"version"`
	Listen    string         `yaml:"listen"`
	Database  DatabaseConfig `yaml:"database"`
	Manifests []string       `yaml:"manifests"` // files to load and watch
	Index     IndexConfig    `yaml:"index"`
	Lint      LintConfig     `yaml:"lint"`
}

// DatabaseConfig holds storage settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// IndexConfig holds package index probe settings. Interval and Timeout are
// Go duration strings ("15m", "10s").
type IndexConfig struct {
	BaseURL            string `yaml:"base_url"`
	Interval           string `yaml:"interval"`
	Timeout            string `yaml:"timeout"`
	MaxConcurrent      int    `yaml:"max_concurrent"`
	IncludePreReleases bool   `yaml:"include_pre_releases"`
	Enabled            bool   `yaml:"enabled"`
}

// IntervalDuration parses the probe interval, falling back to the default
// on a missing or malformed value.
func (c IndexConfig) IntervalDuration() time.Duration {
	if d, err := time.ParseDuration(c.Interval); err == nil && d > 0 {
		return d
	}
	return 15 * time.Minute
}

// TimeoutDuration parses the probe timeout, falling back to the default
// on a missing or malformed value.
func (c IndexConfig) TimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(c.Timeout); err == nil && d > 0 {
		return d
	}
	return 10 * time.Second
}

// LintConfig holds linter settings
type LintConfig struct {
	// DisabledRules lists rule IDs to skip. The grammar and conflict
	// rules cannot be disabled.
	DisabledRules []string `yaml:"disabled_rules"`
}

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnvironment()

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{
		Version:  1,
		Listen:   ":3000",
		Database: DatabaseConfig{Path: "./lagom.db"},
		Index: IndexConfig{
			BaseURL:       "https://pypi.org/pypi",
			Interval:      "15m",
			Timeout:       "10s",
			MaxConcurrent: 4,
			Enabled:       true,
		},
	}
	cfg.applyEnvironment()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Listen == "" {
		c.Listen = ":3000"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./lagom.db"
	}
	if c.Index.BaseURL == "" {
		c.Index.BaseURL = "https://pypi.org/pypi"
	}
	if c.Index.Interval == "" {
		c.Index.Interval = "15m"
	}
	if c.Index.Timeout == "" {
		c.Index.Timeout = "10s"
	}
	if c.Index.MaxConcurrent == 0 {
		c.Index.MaxConcurrent = 4
	}
}

// applyEnvironment applies environment variable overrides
func (c *Config) applyEnvironment() {
	if addr := os.Getenv("LAGOM_ADDR"); addr != "" {
		c.Listen = addr
	}
	if db := os.Getenv("LAGOM_DB"); db != "" {
		c.Database.Path = db
	}
	if index := os.Getenv("LAGOM_INDEX_URL"); index != "" {
		c.Index.BaseURL = index
	}
}
