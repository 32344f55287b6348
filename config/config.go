// Package config loads the planner configuration from a YAML or JSON
// file with optional environment variable overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"shopfloor-planner/core/calendar"
	"shopfloor-planner/core/metrics"
	"shopfloor-planner/core/plan"
	"shopfloor-planner/core/simulate"
	"shopfloor-planner/infra/notify"
	"shopfloor-planner/infra/store"
)

// HTTPConfig defines the API listener settings.
type HTTPConfig struct {
	Addr string `json:"addr"`
}

// SetDefaults applies the default listen address.
func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8000"
	}
}

type Config struct {
	HTTP       HTTPConfig      `json:"http"`
	Database   store.Config    `json:"database"`
	Calendar   calendar.Config `json:"calendar"`
	Scheduling plan.Config     `json:"scheduling"`
	Simulation simulate.Config `json:"simulation"`
	Metrics    metrics.Config  `json:"metrics"`
	Notify     notify.Config   `json:"notify"`
}

// Load reads the config file at path. Environment variables prefixed
// with SFP_ override file values, with "__" as the nesting separator
// (SFP_DATABASE__DSN overrides database.dsn).
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
	if err := k.Load(env.Provider("SFP_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "sfp_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.HTTP.SetDefaults()
	cfg.Calendar.SetDefaults()
	cfg.Scheduling.SetDefaults()
	cfg.Simulation.SetDefaults()
	cfg.Notify.SetDefaults()
	if err := cfg.Database.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Calendar.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
