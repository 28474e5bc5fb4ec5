package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// load reads YAML from path and unmarshals it over the defaults in cfg,
// so a partial config file only overrides the fields it sets.
func load(cfg *Config, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
