package aggregator

import (
	"math"
	"testing"
	"time"

	"fedquery/internal/config"
	"fedquery/internal/types"
)

func item(id, content string, score float64, source types.StoreKind) types.ResultItem {
	return types.ResultItem{
		ID:          id,
		Kind:        types.ItemDocument,
		Title:       id,
		Content:     content,
		Score:       score,
		SourceStore: source,
		ContentHash: types.HashContent(content),
	}
}

func successResult(items ...types.ResultItem) types.RunResult {
	return types.RunResult{Success: true, Items: items}
}

func aggregate(t *testing.T, results []types.RunResult, terms []string, opts types.QueryOptions) []types.ResultItem {
	t.Helper()
	a := New(config.DefaultConfig())
	q := &types.SemanticQuery{Kind: types.QueryMemory, SearchTerms: terms}
	return a.Aggregate(results, q, opts)
}

func TestAggregateDedupesByContentHash(t *testing.T) {
	results := []types.RunResult{
		successResult(item("rel-1", "Shared Content", 0.5, types.StoreRelational)),
		// Same content after trim+lowercase normalization; higher raw score.
		successResult(item("vec-1", "  shared content  ", 0.9, types.StoreVector)),
	}

	got := aggregate(t, results, nil, types.DefaultQueryOptions())
	if len(got) != 1 {
		t.Fatalf("items = %d, want 1 after dedup", len(got))
	}
	if got[0].ID != "vec-1" {
		t.Errorf("survivor = %s, want the higher-scored vec-1", got[0].ID)
	}
	sources, ok := got[0].Metadata["duplicateSources"].([]types.StoreKind)
	if !ok || len(sources) != 2 {
		t.Fatalf("duplicateSources = %v", got[0].Metadata["duplicateSources"])
	}
}

func TestAggregateDedupTieBreaksOnStoreWeight(t *testing.T) {
	// Equal raw scores: vector's 1.2 weight beats filesystem's 0.8.
	results := []types.RunResult{
		successResult(item("fs-1", "same", 0.5, types.StoreFilesystem)),
		successResult(item("vec-1", "same", 0.5, types.StoreVector)),
	}
	got := aggregate(t, results, nil, types.DefaultQueryOptions())
	if len(got) != 1 || got[0].ID != "vec-1" {
		t.Fatalf("got %+v, want vec-1 to win the tie", got)
	}
}

func TestCompositeScoreFactors(t *testing.T) {
	a := New(config.DefaultConfig())

	short := item("a", "tiny", 1.0, types.StoreRelational)
	if got := a.composite(short, nil); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("baseline composite = %v, want 1.0", got)
	}

	long := item("b", string(make([]byte, 250)), 1.0, types.StoreRelational)
	if got := a.composite(long, nil); math.Abs(got-1.2) > 1e-9 {
		t.Errorf("long-content composite = %v, want 1.2", got)
	}

	recent := item("c", "tiny", 1.0, types.StoreRelational)
	recent.Metadata = map[string]interface{}{"timestamp": time.Now().Add(-time.Hour)}
	if got := a.composite(recent, nil); math.Abs(got-1.05) > 1e-9 {
		t.Errorf("recent composite = %v, want 1.05", got)
	}

	stale := item("d", "tiny", 1.0, types.StoreRelational)
	stale.Metadata = map[string]interface{}{"timestamp": time.Now().Add(-48 * time.Hour)}
	if got := a.composite(stale, nil); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("stale composite = %v, want 1.0", got)
	}

	vec := item("e", "tiny", 1.0, types.StoreVector)
	if got := a.composite(vec, nil); math.Abs(got-1.2) > 1e-9 {
		t.Errorf("vector-weighted composite = %v, want 1.2", got)
	}
}

func TestTermBoost(t *testing.T) {
	terms := []string{"alpha", "beta"}

	both := types.ResultItem{Title: "alpha beta", Content: "alpha beta"}
	if got := termBoost(both, terms); math.Abs(got-1.5) > 1e-9 {
		t.Errorf("full hits boost = %v, want 1.5", got)
	}

	titleOnly := types.ResultItem{Title: "alpha", Content: "nothing"}
	want := 1 + 0.3*0.5
	if got := termBoost(titleOnly, terms); math.Abs(got-want) > 1e-9 {
		t.Errorf("half-title boost = %v, want %v", got, want)
	}

	none := types.ResultItem{Title: "x", Content: "y"}
	if got := termBoost(none, terms); got != 1.0 {
		t.Errorf("no-hit boost = %v, want 1.0", got)
	}
}

func TestAggregateSortsAndRanks(t *testing.T) {
	results := []types.RunResult{
		successResult(
			item("low", "l", 0.2, types.StoreRelational),
			item("high", "h", 0.9, types.StoreRelational),
			item("mid", "m", 0.5, types.StoreRelational),
		),
	}
	got := aggregate(t, results, nil, types.DefaultQueryOptions())
	wantOrder := []string{"high", "mid", "low"}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("rank %d = %s, want %s", i+1, got[i].ID, id)
		}
		if got[i].RankPosition != i+1 {
			t.Errorf("rankPosition = %d, want %d", got[i].RankPosition, i+1)
		}
	}
}

func TestAggregateDiversityCap(t *testing.T) {
	var items []types.ResultItem
	for i := 0; i < 8; i++ {
		items = append(items, item(
			string(rune('a'+i)), string(rune('a'+i))+"-content",
			1.0-float64(i)*0.05, types.StoreRelational))
	}
	items = append(items, item("kv", "kv-content", 0.1, types.StoreKV))

	opts := types.DefaultQueryOptions()
	opts.Limit = 20
	got := aggregate(t, []types.RunResult{successResult(items...)}, nil, opts)

	if len(got) != 9 {
		t.Fatalf("items = %d, diversity cap must flag, not discard", len(got))
	}
	var flagged int
	for _, it := range got {
		if it.DiversityFiltered {
			flagged++
			if it.SourceStore != types.StoreRelational {
				t.Errorf("flagged item from %s", it.SourceStore)
			}
		}
	}
	// 8 relational items against a cap of 5.
	if flagged != 3 {
		t.Errorf("flagged = %d, want 3", flagged)
	}
	// Flagging never reorders: the list stays sorted by composite score.
	for i := 1; i < len(got); i++ {
		if got[i].CompositeScore > got[i-1].CompositeScore {
			t.Fatalf("rank %d score %.3f above rank %d score %.3f",
				i+1, got[i].CompositeScore, i, got[i-1].CompositeScore)
		}
	}
	if got[len(got)-1].ID != "kv" {
		t.Errorf("last item = %s, want the low-scoring kv item", got[len(got)-1].ID)
	}
	for _, it := range got[:5] {
		if it.DiversityFiltered {
			t.Errorf("item %s within the cap was flagged", it.ID)
		}
	}
}

func TestAggregateLimitAndMinScore(t *testing.T) {
	results := []types.RunResult{
		successResult(
			item("a", "a", 0.9, types.StoreRelational),
			item("b", "b", 0.5, types.StoreRelational),
			item("c", "c", 0.1, types.StoreRelational),
		),
	}

	opts := types.DefaultQueryOptions()
	opts.Limit = 2
	got := aggregate(t, results, nil, opts)
	if len(got) != 2 {
		t.Errorf("limit: items = %d, want 2", len(got))
	}

	opts = types.DefaultQueryOptions()
	opts.MinScore = 0.4
	got = aggregate(t, results, nil, opts)
	if len(got) != 2 {
		t.Fatalf("minScore: items = %d, want 2", len(got))
	}
	for _, it := range got {
		if it.CompositeScore < 0.4 {
			t.Errorf("item %s below minScore: %v", it.ID, it.CompositeScore)
		}
	}
}

func TestAggregateIgnoresFailedResults(t *testing.T) {
	results := []types.RunResult{
		successResult(item("ok", "ok", 0.5, types.StoreRelational)),
		{Success: false, Items: []types.ResultItem{item("bad", "bad", 0.9, types.StoreVector)}},
	}
	got := aggregate(t, results, nil, types.DefaultQueryOptions())
	if len(got) != 1 || got[0].ID != "ok" {
		t.Fatalf("got %+v, failed results must be ignored", got)
	}
}

func TestCompositeMonotoneInRawScore(t *testing.T) {
	a := New(config.DefaultConfig())
	prev := -1.0
	for s := 0.0; s <= 1.0; s += 0.1 {
		it := item("x", "constant content", s, types.StoreRelational)
		got := a.composite(it, nil)
		if got < prev {
			t.Fatalf("composite not monotone: score %v -> %v (prev %v)", s, got, prev)
		}
		prev = got
	}
}
