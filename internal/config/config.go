// Package config holds the fedquery engine configuration: SLA budget,
// cache sizing, store weights and per-store connection strings. Values
// come from an optional YAML file with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"fedquery/internal/types"
)

// Config holds all fedquery configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Engine configures the query pipeline.
	Engine EngineConfig `yaml:"engine"`

	// Cache configures the result cache.
	Cache CacheConfig `yaml:"cache"`

	// Ranking configures the aggregator.
	Ranking RankingConfig `yaml:"ranking"`

	// Stores configures per-store connections.
	Stores StoresConfig `yaml:"stores"`
}

// EngineConfig configures the execution pipeline.
type EngineConfig struct {
	// SLAMs is the outer per-call deadline in milliseconds.
	SLAMs int `yaml:"sla_ms"`

	// CoordinationOverheadMs is charged per operation in plan estimates.
	CoordinationOverheadMs int `yaml:"coordination_overhead_ms"`
}

// CacheConfig configures the result cache.
type CacheConfig struct {
	Size   int `yaml:"size"`
	TTLSec int `yaml:"ttl_sec"`
}

// RankingConfig configures the aggregator/ranker.
type RankingConfig struct {
	// StoreWeights maps store kind to its ranking weight.
	StoreWeights map[types.StoreKind]float64 `yaml:"store_weights"`

	// MaxPerSource is the diversity cap. 0 disables the filter.
	MaxPerSource int `yaml:"max_per_source"`
}

// StoresConfig carries per-store connection strings.
type StoresConfig struct {
	RelationalDSN  string `yaml:"relational_dsn"`
	VectorDSN      string `yaml:"vector_dsn"`
	GraphDSN       string `yaml:"graph_dsn"`
	KVPath         string `yaml:"kv_path"`
	FilesystemRoot string `yaml:"filesystem_root"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "fedquery",
		Version: "1.0.0",

		Engine: EngineConfig{
			SLAMs:                  2000,
			CoordinationOverheadMs: 10,
		},

		Cache: CacheConfig{
			Size:   100,
			TTLSec: 3600,
		},

		Ranking: RankingConfig{
			StoreWeights: map[types.StoreKind]float64{
				types.StoreVector:     1.2,
				types.StoreRelational: 1.0,
				types.StoreGraph:      0.9,
				types.StoreFilesystem: 0.8,
				types.StoreKV:         0.7,
			},
			MaxPerSource: 5,
		},

		Stores: StoresConfig{
			RelationalDSN:  "data/fedquery.db",
			VectorDSN:      "data/fedquery.db",
			GraphDSN:       "data/fedquery.db",
			KVPath:         "data/kv",
			FilesystemRoot: ".",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment variables override either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SLA_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			c.Engine.SLAMs = ms
		}
	}
	if v := os.Getenv("CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Cache.Size = n
		}
	}
	if v := os.Getenv("CACHE_TTL_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Cache.TTLSec = n
		}
	}
	if v := os.Getenv("MAX_PER_SOURCE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Ranking.MaxPerSource = n
		}
	}

	// STORE_WEIGHT_<KIND> overrides one weight at a time.
	for _, kind := range types.AllStoreKinds {
		env := "STORE_WEIGHT_" + strings.ToUpper(string(kind))
		if v := os.Getenv(env); v != "" {
			if w, err := strconv.ParseFloat(v, 64); err == nil && w > 0 {
				if c.Ranking.StoreWeights == nil {
					c.Ranking.StoreWeights = make(map[types.StoreKind]float64)
				}
				c.Ranking.StoreWeights[kind] = w
			}
		}
	}

	// Per-store connection strings.
	if v := os.Getenv("RELATIONAL_DSN"); v != "" {
		c.Stores.RelationalDSN = v
	}
	if v := os.Getenv("VECTOR_DSN"); v != "" {
		c.Stores.VectorDSN = v
	}
	if v := os.Getenv("GRAPH_DSN"); v != "" {
		c.Stores.GraphDSN = v
	}
	if v := os.Getenv("KV_PATH"); v != "" {
		c.Stores.KVPath = v
	}
	if v := os.Getenv("FILESYSTEM_ROOT"); v != "" {
		c.Stores.FilesystemRoot = v
	}
}

// SLA returns the outer deadline as a duration.
func (c *Config) SLA() time.Duration {
	if c.Engine.SLAMs <= 0 {
		return 2000 * time.Millisecond
	}
	return time.Duration(c.Engine.SLAMs) * time.Millisecond
}

// CacheTTL returns the result cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTLSec <= 0 {
		return time.Hour
	}
	return time.Duration(c.Cache.TTLSec) * time.Second
}

// StoreWeight returns the ranking weight for a store, defaulting to 1.0
// for unknown kinds.
func (c *Config) StoreWeight(kind types.StoreKind) float64 {
	if w, ok := c.Ranking.StoreWeights[kind]; ok {
		return w
	}
	return 1.0
}

// Validate checks the configuration for obviously broken values.
func (c *Config) Validate() error {
	if c.Engine.SLAMs <= 0 {
		return fmt.Errorf("sla_ms must be positive, got %d", c.Engine.SLAMs)
	}
	if c.Cache.Size <= 0 {
		return fmt.Errorf("cache size must be positive, got %d", c.Cache.Size)
	}
	if c.Ranking.MaxPerSource < 0 {
		return fmt.Errorf("max_per_source must be >= 0, got %d", c.Ranking.MaxPerSource)
	}
	for kind, w := range c.Ranking.StoreWeights {
		if w <= 0 {
			return fmt.Errorf("store weight for %s must be positive, got %v", kind, w)
		}
	}
	return nil
}
