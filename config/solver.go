package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/kilianp07/actsched/core/factory"
	"github.com/kilianp07/actsched/core/milp"
)

// SolverConfig selects the MILP backend and bounds every solve.
type SolverConfig struct {
	// Backend is a registered backend name.
	Backend string `json:"backend"`
	// MaxSessions is the number of concurrent backend sessions (licence slots).
	MaxSessions int `json:"max_sessions"`
	// TimeLimitSeconds is the per-job deadline enforced by the watchdog.
	TimeLimitSeconds     float64 `json:"time_limit_seconds"`
	GapTolerance         float64 `json:"gap_tolerance"`
	MaxNodes             int     `json:"max_nodes"`
	IntegralityTolerance float64 `json:"integrality_tolerance"`
}

// SetDefaults applies sane defaults.
func (c *SolverConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "bnb"
	}
	if c.MaxSessions == 0 {
		c.MaxSessions = runtime.NumCPU()
	}
	if c.TimeLimitSeconds == 0 {
		c.TimeLimitSeconds = 30
	}
}

// Validate checks the bounds.
func (c SolverConfig) Validate() error {
	if c.TimeLimitSeconds < 0 {
		return fmt.Errorf("time_limit_seconds must not be negative")
	}
	if c.GapTolerance < 0 || c.GapTolerance >= 1 {
		return fmt.Errorf("gap_tolerance must be in [0, 1)")
	}
	if c.MaxSessions < 0 || c.MaxNodes < 0 || c.IntegralityTolerance < 0 {
		return fmt.Errorf("max_sessions, max_nodes and integrality_tolerance must not be negative")
	}
	return nil
}

// TimeLimit returns the per-job deadline.
func (c SolverConfig) TimeLimit() time.Duration {
	return time.Duration(c.TimeLimitSeconds * float64(time.Second))
}

// BackendConfig returns the module configuration of the backend.
func (c SolverConfig) BackendConfig() factory.ModuleConfig {
	return factory.ModuleConfig{Type: c.Backend, Conf: map[string]any{"max_sessions": c.MaxSessions}}
}

// Options returns the per-solve backend options.
func (c SolverConfig) Options() milp.Options {
	return milp.Options{
		GapTolerance:         c.GapTolerance,
		MaxNodes:             c.MaxNodes,
		IntegralityTolerance: c.IntegralityTolerance,
	}
}

// BatchConfig sizes the worker pool.
type BatchConfig struct {
	Workers                 int     `json:"workers"`
	ProgressIntervalSeconds float64 `json:"progress_interval_seconds"`
}

// SetDefaults uses one worker per CPU.
func (c *BatchConfig) SetDefaults() {
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
}

// Validate checks the pool size.
func (c BatchConfig) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.ProgressIntervalSeconds < 0 {
		return fmt.Errorf("progress_interval_seconds must not be negative")
	}
	return nil
}

// ProgressInterval returns the progress log period, zero when disabled.
func (c BatchConfig) ProgressInterval() time.Duration {
	return time.Duration(c.ProgressIntervalSeconds * float64(time.Second))
}
