package config

import (
	"os"
	"path/filepath"
	"testing"

	"fedquery/internal/types"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Engine.SLAMs != 2000 {
		t.Errorf("default SLA = %d, want 2000", cfg.Engine.SLAMs)
	}
	if cfg.Cache.Size != 100 || cfg.Cache.TTLSec != 3600 {
		t.Errorf("default cache = %d/%d, want 100/3600", cfg.Cache.Size, cfg.Cache.TTLSec)
	}
	if cfg.Ranking.MaxPerSource != 5 {
		t.Errorf("default max_per_source = %d, want 5", cfg.Ranking.MaxPerSource)
	}
	if w := cfg.StoreWeight(types.StoreVector); w != 1.2 {
		t.Errorf("vector weight = %v, want 1.2", w)
	}
	if w := cfg.StoreWeight(types.StoreKind("bogus")); w != 1.0 {
		t.Errorf("unknown store weight = %v, want 1.0", w)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.SLAMs != 2000 {
		t.Errorf("SLA = %d, want default 2000", cfg.Engine.SLAMs)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fedquery.yaml")
	body := `
engine:
  sla_ms: 1500
cache:
  size: 50
  ttl_sec: 60
ranking:
  max_per_source: 3
stores:
  relational_dsn: /tmp/test.db
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.SLAMs != 1500 {
		t.Errorf("SLA = %d, want 1500", cfg.Engine.SLAMs)
	}
	if cfg.Cache.Size != 50 || cfg.Cache.TTLSec != 60 {
		t.Errorf("cache = %d/%d, want 50/60", cfg.Cache.Size, cfg.Cache.TTLSec)
	}
	if cfg.Ranking.MaxPerSource != 3 {
		t.Errorf("max_per_source = %d, want 3", cfg.Ranking.MaxPerSource)
	}
	if cfg.Stores.RelationalDSN != "/tmp/test.db" {
		t.Errorf("relational dsn = %q", cfg.Stores.RelationalDSN)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SLA_MS", "900")
	t.Setenv("CACHE_SIZE", "7")
	t.Setenv("CACHE_TTL_SEC", "11")
	t.Setenv("MAX_PER_SOURCE", "0")
	t.Setenv("STORE_WEIGHT_VECTOR", "1.5")
	t.Setenv("STORE_WEIGHT_KV", "0.4")
	t.Setenv("KV_PATH", "/tmp/kvdir")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.SLAMs != 900 {
		t.Errorf("SLA = %d, want 900", cfg.Engine.SLAMs)
	}
	if cfg.Cache.Size != 7 || cfg.Cache.TTLSec != 11 {
		t.Errorf("cache = %d/%d, want 7/11", cfg.Cache.Size, cfg.Cache.TTLSec)
	}
	if cfg.Ranking.MaxPerSource != 0 {
		t.Errorf("max_per_source = %d, want 0 (disabled)", cfg.Ranking.MaxPerSource)
	}
	if w := cfg.StoreWeight(types.StoreVector); w != 1.5 {
		t.Errorf("vector weight = %v, want 1.5", w)
	}
	if w := cfg.StoreWeight(types.StoreKV); w != 0.4 {
		t.Errorf("kv weight = %v, want 0.4", w)
	}
	if cfg.Stores.KVPath != "/tmp/kvdir" {
		t.Errorf("kv path = %q", cfg.Stores.KVPath)
	}
}

func TestEnvOverrideIgnoresGarbage(t *testing.T) {
	t.Setenv("SLA_MS", "not-a-number")
	t.Setenv("STORE_WEIGHT_GRAPH", "-2")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.SLAMs != 2000 {
		t.Errorf("SLA = %d, want default after garbage env", cfg.Engine.SLAMs)
	}
	if w := cfg.StoreWeight(types.StoreGraph); w != 0.9 {
		t.Errorf("graph weight = %v, want default 0.9 after negative env", w)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.SLAMs = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero SLA")
	}

	cfg = DefaultConfig()
	cfg.Ranking.StoreWeights[types.StoreKV] = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative store weight")
	}
}
