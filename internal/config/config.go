// Package config holds the viper-backed configuration for the partarjan
// CLI: how many worker threads to run, how the vertex map and blocked
// lists are sized, and where the graph to process comes from.
//
// Structured the way the sibling perf-analysis repo's pkg/config/config.go
// does it: mapstructure-tagged nested structs, a setDefaults helper,
// environment-variable override via AutomaticEnv, and a Validate pass.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds every tunable the CLI exposes.
type Config struct {
	Engine EngineConfig `mapstructure:"engine"`
	Graph  GraphConfig  `mapstructure:"graph"`
	Log    LogConfig    `mapstructure:"log"`
}

// EngineConfig controls the parallel SCC core's internals.
type EngineConfig struct {
	NumThreads   int `mapstructure:"num_threads"`
	MapShardBits int `mapstructure:"map_shard_bits"`
	BlockedListP int `mapstructure:"blocked_list_p"`
}

// GraphConfig describes a graph source: a file path, or a generated
// random/clustered graph. Validate requires path or generate to be set;
// the run and bench subcommands do not read these fields and take their
// graph from their own flags (--input; --clusters/--random).
type GraphConfig struct {
	Path         string `mapstructure:"path"`
	Generate     bool   `mapstructure:"generate"`
	NumVertices  int    `mapstructure:"num_vertices"`
	EdgeFactor   int    `mapstructure:"edge_factor"`
	ClusterCount int    `mapstructure:"cluster_count"`
}

// LogConfig controls diagnostic output.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from configPath (if non-empty) or the standard
// search locations, applying defaults and environment overrides, and
// validating the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("partarjan")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/partarjan")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("partarjan: read config: %w", err)
		}
	}

	v.SetEnvPrefix("PARTARJAN")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("partarjan: unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("partarjan: invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.num_threads", 0) // 0 -> runtime.NumCPU
	v.SetDefault("engine.map_shard_bits", 12)
	v.SetDefault("engine.blocked_list_p", 3)

	v.SetDefault("graph.generate", false)
	v.SetDefault("graph.num_vertices", 10000)
	v.SetDefault("graph.edge_factor", 4)
	v.SetDefault("graph.cluster_count", 100)

	v.SetDefault("log.level", "info")
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.NumThreads < 0 {
		return fmt.Errorf("engine.num_threads must be >= 0")
	}
	if c.Engine.MapShardBits < 1 || c.Engine.MapShardBits > 20 {
		return fmt.Errorf("engine.map_shard_bits must be between 1 and 20")
	}
	if c.Engine.BlockedListP < 1 || c.Engine.BlockedListP > 10 {
		return fmt.Errorf("engine.blocked_list_p must be between 1 and 10")
	}
	if !c.Graph.Generate && c.Graph.Path == "" {
		return fmt.Errorf("graph.path is required unless graph.generate is set")
	}
	return nil
}
