// Package config loads the console configuration from a JSON or YAML file
// with optional environment overrides.
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

	"github.com/resqlabs/console/infra/metrics"
	"github.com/resqlabs/console/infra/rest"
	"github.com/resqlabs/console/infra/ws"
)

// OperatorConfig identifies the console operator.
type OperatorConfig struct {
	ID int64 `json:"id"`
}

// Validate checks the operator identity.
func (c OperatorConfig) Validate() error {
	if c.ID <= 0 {
		return fmt.Errorf("operator: id is required")
	}
	return nil
}

// MetricsConfig enables the observability sinks.
type MetricsConfig struct {
	PromEnabled bool                 `json:"prom_enabled"`
	PromAddr    string               `json:"prom_addr"`
	Influx      metrics.InfluxConfig `json:"influx"`
}

// SetDefaults fills unset fields with their defaults.
func (c *MetricsConfig) SetDefaults() {
	if c.PromAddr == "" {
		c.PromAddr = ":2112"
	}
}

// Config is the root console configuration.
type Config struct {
	API      rest.Config    `json:"api"`
	Realtime ws.Config      `json:"realtime"`
	Operator OperatorConfig `json:"operator"`
	Metrics  MetricsConfig  `json:"metrics"`
}

// Load reads the configuration file, applies RESQ_-prefixed environment
// overrides (RESQ_API__TOKEN sets api.token) and validates the result.
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
	if err := k.Load(env.Provider("RESQ_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "resq_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.API.SetDefaults()
	cfg.Realtime.SetDefaults()
	cfg.Metrics.SetDefaults()
	if err := cfg.API.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Realtime.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Operator.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
