package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"fedquery/internal/types"
)

func sampleResponse(id string) *types.Response {
	return &types.Response{
		Success: true,
		Items: []types.ResultItem{{
			ID:      id,
			Kind:    types.ItemDocument,
			Content: "content " + id,
			Metadata: map[string]interface{}{
				"tag": "original",
			},
		}},
		Metadata: types.ResponseMetadata{RequestID: id},
	}
}

func TestKeyNormalization(t *testing.T) {
	opts := types.DefaultQueryOptions()
	a := Key("Memory%Architecture", opts)
	b := Key("  memory%architecture  ", opts)
	c := Key("memory%architecture\textra", opts)
	if a != b {
		t.Error("case and surrounding whitespace must not change the key")
	}
	if a == c {
		t.Error("different queries must not collide")
	}

	opts2 := opts
	opts2.Limit = 50
	if Key("memory%x", opts) == Key("memory%x", opts2) {
		t.Error("limit must be part of the key")
	}
	opts3 := opts
	opts3.Strategy = types.StrategySequential
	if Key("memory%x", opts) == Key("memory%x", opts3) {
		t.Error("strategy must be part of the key")
	}
}

func TestGetMissThenHit(t *testing.T) {
	c := New(10, time.Minute)
	key := Key("memory%x", types.DefaultQueryOptions())

	if got := c.Get(key); got != nil {
		t.Fatal("empty cache returned a hit")
	}
	c.Set(key, sampleResponse("r1"))

	got := c.Get(key)
	if got == nil {
		t.Fatal("miss after Set")
	}
	if !got.Metadata.FromCache {
		t.Error("cached copy must set FromCache")
	}
	if got.Metadata.RequestID != "r1" {
		t.Errorf("requestID = %s", got.Metadata.RequestID)
	}

	hits, misses, size := c.Stats()
	if hits != 1 || misses != 1 || size != 1 {
		t.Errorf("stats = %d/%d/%d, want 1/1/1", hits, misses, size)
	}
}

func TestTTLExpiry(t *testing.T) {
	c := New(10, 100*time.Millisecond)
	now := time.Now()
	c.nowFn = func() time.Time { return now }

	key := Key("memory%x", types.DefaultQueryOptions())
	c.Set(key, sampleResponse("r1"))

	if c.Get(key) == nil {
		t.Fatal("fresh entry missed")
	}
	now = now.Add(200 * time.Millisecond)
	if c.Get(key) != nil {
		t.Fatal("expired entry returned")
	}
	if _, _, size := c.Stats(); size != 0 {
		t.Errorf("expired entry not removed, size = %d", size)
	}
}

func TestMutationIsolation(t *testing.T) {
	c := New(10, time.Minute)
	key := Key("memory%x", types.DefaultQueryOptions())

	original := sampleResponse("r1")
	c.Set(key, original)

	// Mutating the caller's copy after Set must not reach the cache.
	original.Items[0].Content = "mutated"
	original.Items[0].Metadata["tag"] = "mutated"

	first := c.Get(key)
	if first.Items[0].Content != "content r1" || first.Items[0].Metadata["tag"] != "original" {
		t.Fatal("cache aliased the caller's response")
	}

	// Mutating a returned hit must not poison later hits.
	first.Items[0].Metadata["tag"] = "poisoned"
	second := c.Get(key)
	if second.Items[0].Metadata["tag"] != "original" {
		t.Fatal("cache aliased a returned copy")
	}

	// Repeated hits are identical apart from nothing: idempotent reads.
	third := c.Get(key)
	if diff := cmp.Diff(second, third); diff != "" {
		t.Errorf("repeated hits differ (-second +third):\n%s", diff)
	}
}

func TestEvictionRemovesOldestBatch(t *testing.T) {
	c := New(100, time.Hour)
	now := time.Now()
	c.nowFn = func() time.Time { return now }

	// Insert 101 entries with strictly increasing ages.
	for i := 0; i <= 100; i++ {
		now = now.Add(time.Second)
		c.Set(fmt.Sprintf("key-%03d", i), sampleResponse(fmt.Sprintf("r%d", i)))
	}

	_, _, size := c.Stats()
	if size != 101-evictBatch {
		t.Fatalf("size = %d, want %d after evicting %d", size, 101-evictBatch, evictBatch)
	}
	// The 20 oldest are gone, the newest survive.
	for i := 0; i < evictBatch; i++ {
		if c.Get(fmt.Sprintf("key-%03d", i)) != nil {
			t.Errorf("old entry key-%03d survived eviction", i)
		}
	}
	if c.Get("key-100") == nil {
		t.Error("newest entry evicted")
	}
}

func TestZeroCapDefaults(t *testing.T) {
	c := New(0, time.Minute)
	if c.cap != 100 {
		t.Errorf("cap = %d, want default 100", c.cap)
	}
}
