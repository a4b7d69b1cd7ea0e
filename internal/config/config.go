// Package config loads engine configuration from a YAML file with sensible
// defaults for everything left unset.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all tunables of the engine.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StorageConfig shapes the page store and WAL.
type StorageConfig struct {
	// DataDirectory holds the page file, WAL, and catalog. Empty keeps the
	// database in memory.
	DataDirectory string `yaml:"data_directory"`
	// PageSize caps the payload bytes per heap page.
	PageSize int `yaml:"page_size"`
	// WALEnabled turns write-ahead logging on.
	WALEnabled bool `yaml:"wal_enabled"`
}

// OptimizerConfig shapes planning behavior.
type OptimizerConfig struct {
	// IndexScanEnabled lets the planner pick index and index-only scans.
	IndexScanEnabled bool `yaml:"index_scan_enabled"`
	// IndexJoinEnabled lets the planner consider index joins.
	IndexJoinEnabled bool `yaml:"index_join_enabled"`
}

// LoggingConfig shapes the zap logger built for the engine.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Development switches to the human-readable console encoder.
	Development bool `yaml:"development"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDirectory: "./data",
			PageSize:      4096,
			WALEnabled:    true,
		},
		Optimizer: OptimizerConfig{
			IndexScanEnabled: true,
			IndexJoinEnabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Storage.PageSize < 512 {
		return fmt.Errorf("page_size %d is below the 512-byte minimum", c.Storage.PageSize)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}
