// Package engine exposes the top-level Execute facade: cache, parse,
// plan, coordinate, recover, aggregate, respond. The Engine owns the
// adapter registry, the result cache and the metrics sink; there are no
// package-level singletons.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fedquery/internal/aggregator"
	"fedquery/internal/cache"
	"fedquery/internal/config"
	"fedquery/internal/coordinator"
	"fedquery/internal/cost"
	"fedquery/internal/fallback"
	"fedquery/internal/logging"
	"fedquery/internal/parser"
	"fedquery/internal/planner"
	"fedquery/internal/runner"
	"fedquery/internal/store"
	"fedquery/internal/types"
)

// Metrics receives one record per Execute call. Implementations own
// their concurrency.
type Metrics interface {
	RecordQuery(kind types.QueryKind, durationMs float64, items int, fromCache bool, slaOK bool)
}

// logMetrics is the default sink, writing to the performance category.
type logMetrics struct{}

func (logMetrics) RecordQuery(kind types.QueryKind, durationMs float64, items int, fromCache bool, slaOK bool) {
	logging.Get(logging.CategoryPerformance).Info(
		"query kind=%s duration=%.1fms items=%d cached=%v sla_ok=%v",
		kind, durationMs, items, fromCache, slaOK)
}

type Engine struct {
	cfg         *config.Config
	registry    *store.Registry
	planner     *planner.Planner
	runner      *runner.Runner
	coordinator *coordinator.Coordinator
	aggregator  *aggregator.Aggregator
	fallback    *fallback.Handler
	cache       *cache.ResultCache
	metrics     Metrics
}

// Option customizes engine construction.
type Option func(*Engine)

// WithMetrics replaces the default log-backed metrics sink.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func New(cfg *config.Config, registry *store.Registry, opts ...Option) *Engine {
	model := cost.NewModel()
	r := runner.New(registry)
	e := &Engine{
		cfg:         cfg,
		registry:    registry,
		planner:     planner.New(cfg, model, registry),
		runner:      r,
		coordinator: coordinator.New(r),
		aggregator:  aggregator.New(cfg),
		fallback:    fallback.New(cfg, registry, r),
		cache:       cache.New(cfg.Cache.Size, cfg.CacheTTL()),
		metrics:     logMetrics{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry exposes the adapter registry for registration at startup and
// for health reporting.
func (e *Engine) Registry() *store.Registry { return e.registry }

// CacheStats reports result-cache hit/miss counters and size.
func (e *Engine) CacheStats() (hits, misses int64, size int) { return e.cache.Stats() }

// Execute answers one query. Parse errors are returned to the caller;
// everything downstream degrades into the response instead of erroring.
func (e *Engine) Execute(ctx context.Context, rawQuery string, opts types.QueryOptions) (*types.Response, error) {
	start := time.Now()
	opts.Clamp()
	if opts.Strategy == types.StrategyCached {
		opts.UseCache = true
	}

	cacheKey := cache.Key(rawQuery, opts)
	if opts.UseCache {
		if hit := e.cache.Get(cacheKey); hit != nil {
			logging.Engine("cache hit for %q", rawQuery)
			e.metrics.RecordQuery(hit.QueryAnalysis.Kind, msSince(start), len(hit.Items), true, true)
			return hit, nil
		}
	}

	q, err := parser.Parse(rawQuery)
	if err != nil {
		return nil, err
	}

	plan := e.planner.Plan(ctx, q, opts)
	if plan.Empty() {
		resp := e.emptyPlanResponse(q, plan, start)
		e.metrics.RecordQuery(q.Kind, resp.Metadata.ExecutionTimeMs, 0, false, true)
		return resp, nil
	}

	execCtx, cancel := context.WithTimeout(ctx, e.cfg.SLA())
	defer cancel()

	gathered, coordErr := e.coordinator.Execute(execCtx, plan)
	if coordErr != nil {
		logging.Engine("coordination degraded: %v", coordErr)
	}

	results, emptyFallbackOK := e.recover(execCtx, gathered, plan, q, opts)
	items := e.aggregator.Aggregate(results, q, opts)

	resp := e.buildResponse(q, plan, gathered, results, items, opts, start)
	resp.Success = len(items) > 0 || emptyFallbackOK

	if opts.UseCache && resp.Success {
		e.cache.Set(cacheKey, resp)
	}
	e.metrics.RecordQuery(q.Kind, resp.Metadata.ExecutionTimeMs, len(items), false, resp.Metadata.SLACompliance)
	return resp, nil
}

// recover runs the fallback handler over every failed operation and
// appends whatever it salvages. The second return reports an empty but
// valid single-store recovery, which still counts as success.
func (e *Engine) recover(ctx context.Context, gathered *coordinator.Result, plan *types.ExecutionPlan, q *types.SemanticQuery, opts types.QueryOptions) ([]types.RunResult, bool) {
	results := gathered.Results
	if len(gathered.Errors) == 0 {
		return results, false
	}

	attempted := make(map[types.StoreKind]bool, len(plan.Operations))
	for _, op := range plan.Operations {
		attempted[op.Store] = true
	}

	emptyFallbackOK := false
	for _, res := range gathered.Results {
		if res.Err == nil {
			continue
		}
		recovered := e.fallback.Recover(ctx, res, q, opts, attempted)
		for _, rec := range recovered {
			attempted[rec.Op.Store] = true
			if rec.Success && len(rec.Items) == 0 {
				emptyFallbackOK = true
			}
		}
		results = append(results, recovered...)
	}
	return results, emptyFallbackOK
}

// emptyPlanResponse reports total unavailability: one error per targeted
// store, empty items.
func (e *Engine) emptyPlanResponse(q *types.SemanticQuery, plan *types.ExecutionPlan, start time.Time) *types.Response {
	errs := make([]*types.OpError, 0, len(q.TargetStores))
	for _, kind := range q.TargetStores {
		errs = append(errs, &types.OpError{
			Store:   kind,
			Kind:    types.OpErrUnavailable,
			Message: "store not registered or unhealthy",
		})
	}
	return &types.Response{
		Success:       false,
		Items:         []types.ResultItem{},
		QueryAnalysis: analysis(q),
		Metadata: types.ResponseMetadata{
			RequestID:       uuid.NewString(),
			ExecutionTimeMs: msSince(start),
			Errors:          errs,
			Warnings:        plan.Notes,
			SLACompliance:   true,
		},
	}
}

func (e *Engine) buildResponse(q *types.SemanticQuery, plan *types.ExecutionPlan, gathered *coordinator.Result, results []types.RunResult, items []types.ResultItem, opts types.QueryOptions, start time.Time) *types.Response {
	elapsed := msSince(start)

	var errs []*types.OpError
	storesQueried := make([]types.StoreKind, 0, len(results))
	seen := map[types.StoreKind]bool{}
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
		if !seen[res.Op.Store] {
			seen[res.Op.Store] = true
			storesQueried = append(storesQueried, res.Op.Store)
		}
	}

	speedup, efficiency := parallelGains(gathered, len(plan.ParallelOps))

	return &types.Response{
		Items:         items,
		QueryAnalysis: analysis(q),
		Metadata: types.ResponseMetadata{
			RequestID:             uuid.NewString(),
			ExecutionTimeMs:       elapsed,
			StoresQueried:         storesQueried,
			TotalOperations:       len(plan.Operations),
			ParallelOperations:    len(plan.ParallelOps),
			SequentialOperations:  len(plan.SequentialOps),
			ParallelEfficiencyPct: efficiency,
			SpeedupFactor:         speedup,
			SLACompliance:         elapsed <= float64(e.cfg.Engine.SLAMs),
			Errors:                errs,
			Warnings:              plan.Notes,
		},
	}
}

// parallelGains compares summed per-op durations in the parallel group
// against its wall-clock time. Efficiency is speedup normalized by the
// group size.
func parallelGains(gathered *coordinator.Result, parallelOps int) (speedup, efficiencyPct float64) {
	if parallelOps == 0 || gathered.ParallelWallMs <= 0 {
		return 1, 100
	}
	var sum float64
	for i, res := range gathered.Results {
		if i >= parallelOps {
			break
		}
		sum += res.DurationMs
	}
	speedup = sum / gathered.ParallelWallMs
	if speedup < 1 {
		speedup = 1
	}
	efficiencyPct = speedup / float64(parallelOps) * 100
	if efficiencyPct > 100 {
		efficiencyPct = 100
	}
	return speedup, efficiencyPct
}

func analysis(q *types.SemanticQuery) types.QueryAnalysis {
	return types.QueryAnalysis{
		Kind:           q.Kind,
		SearchTerms:    append([]string(nil), q.SearchTerms...),
		Temporal:       q.Temporal,
		TopicFilters:   append([]string(nil), q.TopicFilters...),
		StoresTargeted: append([]types.StoreKind(nil), q.TargetStores...),
	}
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
