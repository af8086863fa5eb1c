// Package fallback recovers from per-operation failures: retry with
// backoff, re-targeting at an alternative store, degrading to a single
// relational search, or emitting a minimal placeholder result. A Handler
// holds no per-call state; each Recover call is independent.
package fallback

import (
	"context"
	"time"

	"fedquery/internal/config"
	"fedquery/internal/logging"
	"fedquery/internal/planner"
	"fedquery/internal/runner"
	"fedquery/internal/store"
	"fedquery/internal/types"
)

// alternativeOrder is the store priority walked when re-targeting a
// failed operation.
var alternativeOrder = []types.StoreKind{
	types.StoreRelational, types.StoreVector, types.StoreFilesystem,
	types.StoreGraph, types.StoreKV,
}

const (
	retryBaseBackoff = 100 * time.Millisecond
	maxRetryAttempts = 3
)

type Handler struct {
	cfg      *config.Config
	registry *store.Registry
	runner   *runner.Runner
}

func New(cfg *config.Config, registry *store.Registry, r *runner.Runner) *Handler {
	return &Handler{cfg: cfg, registry: registry, runner: r}
}

// Recover attempts to compensate for one failed operation. attempted
// lists stores the plan already queried, so alternative-store recovery
// never duplicates work. The returned results, possibly empty, join the
// plan's results before aggregation.
func (h *Handler) Recover(ctx context.Context, failed types.RunResult, q *types.SemanticQuery, opts types.QueryOptions, attempted map[types.StoreKind]bool) []types.RunResult {
	if failed.Err == nil {
		return nil
	}
	logging.Fallback("recovering %s/%s %s", failed.Err.Store, failed.Err.Op, failed.Err.Kind)

	switch failed.Err.Kind {
	case types.OpErrConnection, types.OpErrUnavailable, types.OpErrPermission:
		return h.alternativeStore(ctx, failed, q, opts, attempted)
	case types.OpErrTimeout:
		return h.retry(ctx, failed.Op)
	case types.OpErrSyntax:
		return h.singleStore(ctx, failed, q, opts)
	case types.OpErrResourceExhausted:
		return []types.RunResult{minimalResult(failed)}
	default:
		if failed.Op.Store != "" {
			return h.retry(ctx, failed.Op)
		}
		return h.singleStore(ctx, failed, q, opts)
	}
}

// alternativeStore re-targets the failed operation's intent at the first
// healthy store in priority order that has not been tried yet.
func (h *Handler) alternativeStore(ctx context.Context, failed types.RunResult, q *types.SemanticQuery, opts types.QueryOptions, attempted map[types.StoreKind]bool) []types.RunResult {
	for _, kind := range alternativeOrder {
		if kind == failed.Op.Store || attempted[kind] {
			continue
		}
		if !h.registry.Healthy(ctx, kind) {
			continue
		}
		params := planner.BuildParams(h.cfg, kind, q, opts)
		if params == nil || params.Validate() != nil {
			continue
		}
		op := types.DatabaseOperation{
			Store:     kind,
			Params:    params,
			Mode:      types.ModeSequential,
			TimeoutMs: failed.Op.TimeoutMs,
		}
		logging.Fallback("alternative store: %s -> %s", failed.Op.Store, kind)
		return []types.RunResult{h.runner.Run(ctx, op)}
	}
	logging.Fallback("no alternative store for %s", failed.Op.Store)
	return nil
}

// retry re-runs the failed operation with exponential backoff, bounded
// by op.Retries and the attempt cap.
func (h *Handler) retry(ctx context.Context, op types.DatabaseOperation) []types.RunResult {
	attempts := op.Retries
	if attempts > maxRetryAttempts {
		attempts = maxRetryAttempts
	}
	backoff := retryBaseBackoff
	for i := 0; i < attempts; i++ {
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil
		}
		backoff *= 2

		res := h.runner.Run(ctx, op)
		logging.Fallback("retry %d/%d on %s: success=%v", i+1, attempts, op.Store, res.Success)
		if res.Success {
			return []types.RunResult{res}
		}
		if i == attempts-1 {
			return []types.RunResult{res}
		}
	}
	return nil
}

// singleStore degrades to one relational search carrying the original
// terms.
func (h *Handler) singleStore(ctx context.Context, failed types.RunResult, q *types.SemanticQuery, opts types.QueryOptions) []types.RunResult {
	if failed.Op.Store == types.StoreRelational {
		return nil
	}
	if !h.registry.Healthy(ctx, types.StoreRelational) {
		return nil
	}
	params := planner.BuildParams(h.cfg, types.StoreRelational, q, opts)
	if params == nil || params.Validate() != nil {
		return nil
	}
	op := types.DatabaseOperation{
		Store:     types.StoreRelational,
		Params:    params,
		Mode:      types.ModeSequential,
		TimeoutMs: failed.Op.TimeoutMs,
	}
	logging.Fallback("single-store fallback: %s -> relational", failed.Op.Store)
	return []types.RunResult{h.runner.Run(ctx, op)}
}

// minimalResult produces the degraded placeholder for an exhausted
// store: one generic item carrying a user-facing explanation.
func minimalResult(failed types.RunResult) types.RunResult {
	msg := "store " + string(failed.Err.Store) + " is over capacity; results are degraded"
	item := types.ResultItem{
		ID:          "degraded-" + string(failed.Err.Store),
		Kind:        types.ItemGeneric,
		Title:       "degraded result",
		Content:     msg,
		Score:       0.1,
		SourceStore: failed.Err.Store,
		Metadata: map[string]interface{}{
			"degraded": true,
			"cause":    string(failed.Err.Kind),
		},
	}
	item.ContentHash = types.HashContent(item.Content)
	return types.RunResult{Op: failed.Op, Success: true, Items: []types.ResultItem{item}}
}
