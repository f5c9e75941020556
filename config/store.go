package config

import (
	"fmt"

	"github.com/kilianp07/actsched/core/factory"
)

// StoreConfig defines settings for schedule result storage and rotation.
type StoreConfig struct {
	// Backend selects the store type: "jsonl", "sqlite" or "none".
	Backend string `json:"backend"`
	// Path is the file location of the store.
	Path string `json:"path"`
	// MaxSizeMB triggers rotation of the jsonl store when the file exceeds
	// this size in megabytes. Zero disables rotation.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *StoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "none"
	}
	if c.Path == "" {
		switch c.Backend {
		case "jsonl":
			c.Path = "schedules.jsonl"
		case "sqlite":
			c.Path = "schedules.db"
		}
	}
}

// Validate checks mandatory fields.
func (c StoreConfig) Validate() error {
	switch c.Backend {
	case "none":
		return nil
	case "jsonl", "sqlite":
	default:
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("rotation settings must not be negative")
	}
	return nil
}

// ModuleConfig returns the factory configuration of the store.
func (c StoreConfig) ModuleConfig() factory.ModuleConfig {
	return factory.ModuleConfig{Type: c.Backend, Conf: map[string]any{
		"path":         c.Path,
		"max_size_mb":  c.MaxSizeMB,
		"max_backups":  c.MaxBackups,
		"max_age_days": c.MaxAgeDays,
	}}
}

// LogConfig sets the application log level.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level"`
}

// SetDefaults logs at info level.
func (c *LogConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks the level name.
func (c LogConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("unknown level %q", c.Level)
}
