package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/actsched/core/metrics"
	"github.com/kilianp07/actsched/infra/monitoring"
	"github.com/kilianp07/actsched/infra/mqtt"
)

type Config struct {
	Solver  SolverConfig            `json:"solver"`
	Batch   BatchConfig             `json:"batch"`
	Model   ModelConfig             `json:"model"`
	Metrics metrics.Config          `json:"metrics"`
	Store   StoreConfig             `json:"store"`
	MQTT    mqtt.Config             `json:"mqtt"`
	Log     LogConfig               `json:"log"`
	Sentry  monitoring.SentryConfig `json:"sentry"`
}

// Default returns a configuration with every section defaulted, used when
// no file is given.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// Load reads a YAML or JSON file, applies K_ prefixed environment overrides
// (K_SOLVER__TIME_LIMIT_SECONDS=5), then defaults and validates every
// section.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills unset fields of every section.
func (c *Config) SetDefaults() {
	c.Solver.SetDefaults()
	c.Batch.SetDefaults()
	c.Model.SetDefaults()
	c.Store.SetDefaults()
	c.MQTT.SetDefaults()
	c.Log.SetDefaults()
}

// Validate checks every section and joins the errors.
func (c Config) Validate() error {
	sections := []struct {
		name string
		v    interface{ Validate() error }
	}{
		{"solver", c.Solver},
		{"batch", c.Batch},
		{"model", c.Model},
		{"store", c.Store},
		{"mqtt", c.MQTT},
		{"log", c.Log},
		{"sentry", c.Sentry},
	}
	var errs []error
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
