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

	"github.com/kilianp07/fleetsim/core/metrics"
	"github.com/kilianp07/fleetsim/core/spatial"
)

// Config is the root configuration of a simulation or sweep.
type Config struct {
	Simulation SimulationConfig `json:"simulation"`
	Grid       spatial.Config   `json:"grid"`
	Input      InputConfig      `json:"input"`
	Output     OutputConfig     `json:"output"`
	Metrics    metrics.Config   `json:"metrics"`
	Sweep      SweepConfig      `json:"sweep"`
	Logging    LoggingConfig    `json:"logging"`
}

// Load reads a YAML or JSON file and applies K_ prefixed environment
// overrides, e.g. K_SIMULATION__FLEET_SIZE=100.
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
	// Optional environment overrides. A double underscore separates levels.
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	// Bundling is on unless explicitly disabled.
	if !k.Exists("simulation.greedy_common_origin") {
		cfg.Simulation.GreedyCommonOrigin = true
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Simulation.SetDefaults()
	c.Grid.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	checks := []struct {
		section string
		err     error
	}{
		{"simulation", c.Simulation.Validate()},
		{"grid", c.Grid.Validate()},
		{"input", c.Input.Validate()},
		{"output", c.Output.Validate()},
		{"metrics", c.Metrics.Validate()},
		{"sweep", c.Sweep.Validate()},
		{"logging", c.Logging.Validate()},
	}
	for _, ch := range checks {
		if ch.err != nil {
			return fmt.Errorf("%s: %w", ch.section, ch.err)
		}
	}
	return nil
}
