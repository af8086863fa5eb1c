// Package aggregator merges per-store result sets into one ranked list:
// content-hash dedup, composite scoring with store/content/recency/term
// boosts, a per-store diversity cap, and the final limit.
package aggregator

import (
	"sort"
	"strings"
	"time"

	"fedquery/internal/config"
	"fedquery/internal/logging"
	"fedquery/internal/types"
)

type Aggregator struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Aggregate merges the gathered run results into the final ranked item
// list for the response.
func (a *Aggregator) Aggregate(results []types.RunResult, q *types.SemanticQuery, opts types.QueryOptions) []types.ResultItem {
	timer := logging.StartTimer(logging.CategoryEngine, "aggregate")
	defer timer.Stop()

	var items []types.ResultItem
	for _, res := range results {
		if res.Success {
			items = append(items, res.Items...)
		}
	}
	if len(items) == 0 {
		return nil
	}

	items = a.dedupe(items)
	for i := range items {
		items[i].CompositeScore = a.composite(items[i], q.SearchTerms)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CompositeScore > items[j].CompositeScore
	})

	items = a.diversityFilter(items)
	for i := range items {
		items[i].RankPosition = i + 1
	}

	if opts.MinScore > 0 {
		kept := items[:0]
		for _, it := range items {
			if it.CompositeScore >= opts.MinScore {
				kept = append(kept, it)
			}
		}
		items = kept
	}

	if len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return items
}

// dedupe groups items by content hash and keeps the best representative
// per group, judged by (rawScore, storeWeight). Groups of size > 1 record
// every member's source store on the survivor.
func (a *Aggregator) dedupe(items []types.ResultItem) []types.ResultItem {
	type group struct {
		best    types.ResultItem
		sources []types.StoreKind
	}
	groups := map[[16]byte]*group{}
	var order [][16]byte

	for _, it := range items {
		g, ok := groups[it.ContentHash]
		if !ok {
			groups[it.ContentHash] = &group{best: it, sources: []types.StoreKind{it.SourceStore}}
			order = append(order, it.ContentHash)
			continue
		}
		g.sources = append(g.sources, it.SourceStore)
		if a.betterRepresentative(it, g.best) {
			g.best = it
		}
	}

	out := make([]types.ResultItem, 0, len(order))
	for _, h := range order {
		g := groups[h]
		if len(g.sources) > 1 {
			if g.best.Metadata == nil {
				g.best.Metadata = map[string]interface{}{}
			}
			g.best.Metadata["duplicateSources"] = g.sources
		}
		out = append(out, g.best)
	}
	if dropped := len(items) - len(out); dropped > 0 {
		logging.EngineDebug("dedup dropped %d duplicate item(s)", dropped)
	}
	return out
}

func (a *Aggregator) betterRepresentative(candidate, current types.ResultItem) bool {
	if candidate.Score != current.Score {
		return candidate.Score > current.Score
	}
	return a.cfg.StoreWeight(candidate.SourceStore) > a.cfg.StoreWeight(current.SourceStore)
}

// composite applies the full scoring pipeline to one item.
func (a *Aggregator) composite(it types.ResultItem, searchTerms []string) float64 {
	score := it.Score * a.cfg.StoreWeight(it.SourceStore)
	score *= contentBoost(it.Content)
	score *= recencyBoost(it.Metadata)
	if len(searchTerms) > 0 {
		score *= termBoost(it, searchTerms)
	}
	return score
}

func contentBoost(content string) float64 {
	switch {
	case len(content) > 200:
		return 1.2
	case len(content) > 50:
		return 1.1
	default:
		return 1.0
	}
}

// recencyBoost rewards items whose metadata timestamp is within the last
// 24 hours.
func recencyBoost(meta map[string]interface{}) float64 {
	raw, ok := meta["timestamp"]
	if !ok {
		return 1.0
	}
	var ts time.Time
	switch v := raw.(type) {
	case time.Time:
		ts = v
	case string:
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return 1.0
		}
		ts = parsed
	default:
		return 1.0
	}
	if time.Since(ts) <= 24*time.Hour && time.Since(ts) >= 0 {
		return 1.05
	}
	return 1.0
}

// termBoost rewards search-term hits, title hits counting more than
// content hits. Capped at 2.0.
func termBoost(it types.ResultItem, terms []string) float64 {
	title := strings.ToLower(it.Title)
	content := strings.ToLower(it.Content)
	var titleHits, contentHits int
	for _, term := range terms {
		lt := strings.ToLower(term)
		if strings.Contains(title, lt) {
			titleHits++
		}
		if strings.Contains(content, lt) {
			contentHits++
		}
	}
	n := float64(len(terms))
	boost := 1 + 0.3*(float64(titleHits)/n) + 0.2*(float64(contentHits)/n)
	if boost > 2.0 {
		boost = 2.0
	}
	return boost
}

// diversityFilter caps per-store representation at MaxPerSource. Items
// over the cap are flagged in place, never discarded or reordered, so the
// list stays sorted by composite score.
func (a *Aggregator) diversityFilter(items []types.ResultItem) []types.ResultItem {
	max := a.cfg.Ranking.MaxPerSource
	if max <= 0 {
		return items
	}
	perStore := map[types.StoreKind]int{}
	flagged := 0
	for i := range items {
		perStore[items[i].SourceStore]++
		if perStore[items[i].SourceStore] > max {
			items[i].DiversityFiltered = true
			flagged++
		}
	}
	if flagged > 0 {
		logging.EngineDebug("diversity cap flagged %d item(s)", flagged)
	}
	return items
}
