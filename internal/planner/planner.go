// Package planner turns a SemanticQuery into an ExecutionPlan: one
// operation per selected store, cost-ordered, partitioned into a parallel
// group and a sequential tail, trimmed to the SLA budget.
package planner

import (
	"context"
	"sort"
	"strings"

	"fedquery/internal/config"
	"fedquery/internal/cost"
	"fedquery/internal/logging"
	"fedquery/internal/store"
	"fedquery/internal/types"
)

// priorityTables order stores per query kind; lower index is higher
// priority. Stores absent from a table still get planned, after all
// listed ones.
var priorityTables = map[types.QueryKind][]types.StoreKind{
	types.QueryMemory: {
		types.StoreVector, types.StoreRelational, types.StoreFilesystem,
		types.StoreGraph, types.StoreKV,
	},
	types.QueryChat: {
		types.StoreRelational, types.StoreKV,
	},
	types.QueryDocument: {
		types.StoreFilesystem, types.StoreVector, types.StoreRelational,
		types.StoreGraph, types.StoreKV,
	},
}

type Planner struct {
	cfg      *config.Config
	model    *cost.Model
	registry *store.Registry
}

func New(cfg *config.Config, model *cost.Model, registry *store.Registry) *Planner {
	return &Planner{cfg: cfg, model: model, registry: registry}
}

// Plan builds the execution plan for q under opts. A plan with no
// operations is returned (never an error) when no store can serve the
// query; the caller short-circuits on Empty().
func (p *Planner) Plan(ctx context.Context, q *types.SemanticQuery, opts types.QueryOptions) *types.ExecutionPlan {
	timer := logging.StartTimer(logging.CategoryPlanner, "plan")
	defer timer.Stop()

	plan := &types.ExecutionPlan{QueryKind: q.Kind}

	stores := p.selectStores(ctx, q, opts, plan)
	if len(stores) == 0 {
		plan.Notes = append(plan.Notes, "no healthy stores available")
		logging.Planner("degenerate plan: no stores for kind=%s", q.Kind)
		return plan
	}

	for _, kind := range stores {
		op, ok := p.buildOperation(ctx, kind, q, opts)
		if !ok {
			plan.Notes = append(plan.Notes, "skipped "+string(kind)+": invalid params")
			continue
		}
		plan.Operations = append(plan.Operations, op)
	}
	if len(plan.Operations) == 0 {
		return plan
	}

	p.order(plan.Operations, q.Kind)
	p.assignTimeouts(plan.Operations)
	applyStrategy(plan, opts.Strategy)
	partition(plan)
	p.enforceBudget(plan)

	logging.Planner("plan: kind=%s ops=%d parallel=%d sequential=%d est=%.0fms",
		q.Kind, len(plan.Operations), len(plan.ParallelOps), len(plan.SequentialOps),
		plan.EstimatedTotalMs)
	return plan
}

// selectStores filters the parser's proposal to healthy registered
// adapters, honoring the single-database restriction.
func (p *Planner) selectStores(ctx context.Context, q *types.SemanticQuery, opts types.QueryOptions, plan *types.ExecutionPlan) []types.StoreKind {
	candidates := q.TargetStores
	if opts.Database != "" {
		candidates = []types.StoreKind{opts.Database}
	}

	var selected []types.StoreKind
	for _, kind := range candidates {
		if p.registry.Healthy(ctx, kind) {
			selected = append(selected, kind)
		} else {
			plan.Notes = append(plan.Notes, "skipped "+string(kind)+": unavailable")
		}
	}
	if len(selected) == 0 && opts.Database == "" && p.registry.Healthy(ctx, types.StoreRelational) {
		selected = []types.StoreKind{types.StoreRelational}
		plan.Notes = append(plan.Notes, "fell back to relational")
	}
	return selected
}

// buildOperation assembles the per-store operation. Params failing
// validation disqualify the store rather than poisoning the plan.
func (p *Planner) buildOperation(ctx context.Context, kind types.StoreKind, q *types.SemanticQuery, opts types.QueryOptions) (types.DatabaseOperation, bool) {
	params := BuildParams(p.cfg, kind, q, opts)
	if params == nil || params.Validate() != nil {
		return types.DatabaseOperation{}, false
	}

	sizeHint := p.registry.Health(ctx, kind).SizeHint
	op := types.DatabaseOperation{
		Store:           kind,
		Params:          params,
		EstimatedCostMs: p.model.Estimate(kind, params, sizeHint),
		Mode:            defaultMode(kind, q.Kind),
		Retries:         1,
	}
	return op, true
}

// BuildParams assembles the per-store params carrying q's intent. Shared
// with the fallback handler, which re-targets a failed operation at an
// alternative store.
func BuildParams(cfg *config.Config, kind types.StoreKind, q *types.SemanticQuery, opts types.QueryOptions) types.OpParams {
	joined := strings.Join(q.SearchTerms, " ")
	switch kind {
	case types.StoreRelational:
		terms := append(append([]string(nil), q.SearchTerms...), q.TopicFilters...)
		if q.Kind == types.QueryChat {
			// Chat history reads by recency; retrieve keeps created_at order
			// primary rather than term relevance.
			return &types.RetrieveParams{
				Query:        joined,
				SearchTerms:  terms,
				Limit:        opts.Limit,
				Temporal:     q.Temporal,
				ResourceType: "chat",
			}
		}
		return &types.SearchParams{
			Query:       joined,
			SearchTerms: terms,
			Limit:       opts.Limit,
			Temporal:    q.Temporal,
		}
	case types.StoreVector:
		return &types.VectorSearchParams{Query: joined, K: opts.Limit}
	case types.StoreGraph:
		return &types.GraphQueryParams{Pattern: joined, MaxDepth: 2}
	case types.StoreKV:
		if len(q.SearchTerms) == 0 {
			return nil
		}
		return &types.CacheLookupParams{Pattern: q.SearchTerms[0] + "*"}
	case types.StoreFilesystem:
		return &types.FileSearchParams{
			Path:    cfg.Stores.FilesystemRoot,
			Pattern: filePattern(q.SearchTerms),
			Limit:   opts.Limit,
		}
	}
	return nil
}

// filePattern prefers an explicit glob among the terms, falling back to
// substring match on the first term.
func filePattern(terms []string) string {
	for _, t := range terms {
		if strings.ContainsAny(t, "*?[") {
			return t
		}
	}
	if len(terms) > 0 {
		return terms[0]
	}
	return ""
}

// defaultMode serializes the slower stores so they cannot starve the
// parallel group; vector search joins the parallel group only for memory
// queries, where it is the primary store.
func defaultMode(store types.StoreKind, kind types.QueryKind) types.ExecutionMode {
	switch store {
	case types.StoreRelational, types.StoreKV:
		return types.ModeParallel
	case types.StoreVector:
		if kind == types.QueryMemory {
			return types.ModeParallel
		}
		return types.ModeSequential
	default: // graph, filesystem
		return types.ModeSequential
	}
}

// order sorts by the per-kind priority table, then by estimated cost
// ascending, and stamps Priority.
func (p *Planner) order(ops []types.DatabaseOperation, kind types.QueryKind) {
	table := priorityTables[kind]
	rank := func(s types.StoreKind) int {
		for i, k := range table {
			if k == s {
				return i
			}
		}
		return len(table)
	}
	sort.SliceStable(ops, func(i, j int) bool {
		ri, rj := rank(ops[i].Store), rank(ops[j].Store)
		if ri != rj {
			return ri < rj
		}
		return ops[i].EstimatedCostMs < ops[j].EstimatedCostMs
	})
	for i := range ops {
		ops[i].Priority = rank(ops[i].Store)
	}
}

// assignTimeouts gives each op min(storeSLA, equal share of the request
// SLA).
func (p *Planner) assignTimeouts(ops []types.DatabaseOperation) {
	share := float64(p.cfg.Engine.SLAMs) / float64(len(ops))
	for i := range ops {
		timeout := cost.StoreSLA(ops[i].Store)
		if share < timeout {
			timeout = share
		}
		if timeout < 50 {
			timeout = 50
		}
		ops[i].TimeoutMs = int(timeout)
	}
}

// applyStrategy mutates operation modes per the caller's strategy.
// Hybrid and cached leave the defaults alone; selective keeps only the
// top-priority operation.
func applyStrategy(plan *types.ExecutionPlan, strategy types.Strategy) {
	switch strategy {
	case types.StrategyParallel:
		for i := range plan.Operations {
			plan.Operations[i].Mode = types.ModeParallel
		}
	case types.StrategySequential:
		for i := range plan.Operations {
			plan.Operations[i].Mode = types.ModeSequential
		}
	case types.StrategySelective:
		plan.Operations = plan.Operations[:1]
		plan.Notes = append(plan.Notes, "selective: restricted to "+string(plan.Operations[0].Store))
	}
}

// partition splits ordered operations into the parallel group and the
// sequential tail. One op per store means parallel ops are always
// pairwise compatible.
func partition(plan *types.ExecutionPlan) {
	plan.ParallelOps = plan.ParallelOps[:0]
	plan.SequentialOps = plan.SequentialOps[:0]
	for _, op := range plan.Operations {
		if op.Mode == types.ModeParallel {
			plan.ParallelOps = append(plan.ParallelOps, op)
		} else {
			plan.SequentialOps = append(plan.SequentialOps, op)
		}
	}
}

// enforceBudget computes the estimated total and drops the lowest-priority
// operations while the estimate exceeds the SLA ceiling. At least one
// operation always survives.
func (p *Planner) enforceBudget(plan *types.ExecutionPlan) {
	sla := float64(p.cfg.Engine.SLAMs)
	for {
		plan.EstimatedTotalMs = p.estimateTotal(plan)
		if plan.EstimatedTotalMs <= sla || len(plan.Operations) <= 1 {
			return
		}
		dropped := plan.Operations[len(plan.Operations)-1]
		plan.Operations = plan.Operations[:len(plan.Operations)-1]
		partition(plan)
		plan.Notes = append(plan.Notes,
			"dropped "+string(dropped.Store)+" to meet SLA budget")
		logging.PlannerDebug("budget: dropped %s (est %.0fms over %.0fms SLA)",
			dropped.Store, plan.EstimatedTotalMs, sla)
	}
}

func (p *Planner) estimateTotal(plan *types.ExecutionPlan) float64 {
	var maxParallel, sumSequential float64
	for _, op := range plan.ParallelOps {
		if op.EstimatedCostMs > maxParallel {
			maxParallel = op.EstimatedCostMs
		}
	}
	for _, op := range plan.SequentialOps {
		sumSequential += op.EstimatedCostMs
	}
	overhead := float64(p.cfg.Engine.CoordinationOverheadMs) * float64(len(plan.Operations))
	return maxParallel + sumSequential + overhead
}
