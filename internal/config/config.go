// Package config handles configuration loading for minilop.
package config

import "time"

// Config is the top-level, YAML-loadable configuration. CLI flags take
// precedence over whatever a config file sets; see cmd/minilop.
type Config struct {
	Target TargetConfig `yaml:"target"`
	Engine EngineConfig `yaml:"engine"`
	Output OutputConfig `yaml:"output"`
}

// TargetConfig describes the instrumented binary under test and the
// on-disk layout the harness and seed store use (spec.md §6).
type TargetConfig struct {
	Binary        string   `yaml:"binary"`
	Args          []string `yaml:"args"`
	SeedsFolder   string   `yaml:"seeds_folder"`
	QueueFolder   string   `yaml:"queue_folder"`
	CrashesFolder string   `yaml:"crashes_folder"`
	CurrentInput  string   `yaml:"current_input"`
	Dictionary    []string `yaml:"dictionary"`
}

// EngineConfig holds tunables for the harness and the main loop.
type EngineConfig struct {
	TimeoutMs int   `yaml:"timeout_ms"`
	RNGSeed   int64 `yaml:"rng_seed"`
}

// OutputConfig controls ambient reporting surfaces, none of which the
// core fuzzing algorithms read.
type OutputConfig struct {
	StatsFile string `yaml:"stats_file"`
	EnableTUI bool   `yaml:"enable_tui"`
	WebPort   int    `yaml:"web_port"`
	Verbose   bool   `yaml:"verbose"`
}

// DefaultConfig returns the configuration used when no file is given
// and no flags override it.
func DefaultConfig() *Config {
	return &Config{
		Target: TargetConfig{
			SeedsFolder:   "seeds",
			QueueFolder:   "queue",
			CrashesFolder: "crashes",
			CurrentInput:  "current_input",
		},
		Engine: EngineConfig{
			TimeoutMs: 1000,
		},
		Output: OutputConfig{
			EnableTUI: false,
			WebPort:   0,
		},
	}
}

// Timeout returns the configured harness timeout as a time.Duration.
func (c *Config) Timeout() time.Duration {
	if c.Engine.TimeoutMs <= 0 {
		return time.Second
	}
	return time.Duration(c.Engine.TimeoutMs) * time.Millisecond
}

// Load reads a YAML config file and merges it onto DefaultConfig.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	return load(cfg, path)
}
