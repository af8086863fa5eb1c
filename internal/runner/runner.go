// Package runner executes a single DatabaseOperation against its store
// adapter, enforces the per-operation timeout, and normalizes whatever
// the adapter returns into ResultItems.
package runner

import (
	"context"
	"fmt"
	"time"

	"fedquery/internal/logging"
	"fedquery/internal/store"
	"fedquery/internal/types"
)

type Runner struct {
	registry *store.Registry
}

func New(registry *store.Registry) *Runner {
	return &Runner{registry: registry}
}

// Run executes op and always returns a RunResult; failures are carried
// in RunResult.Err, never raised.
func (r *Runner) Run(ctx context.Context, op types.DatabaseOperation) types.RunResult {
	start := time.Now()
	result := types.RunResult{Op: op}

	adapter, err := r.registry.Get(op.Store)
	if err != nil {
		result.Err = &types.OpError{
			Store: op.Store, Op: op.OpKind(),
			Kind: types.OpErrUnavailable, Message: err.Error(),
		}
		result.DurationMs = msSince(start)
		return result
	}
	if op.Params == nil {
		result.Err = &types.OpError{
			Store: op.Store, Op: op.OpKind(),
			Kind: types.OpErrSyntax, Message: "operation has no params",
		}
		result.DurationMs = msSince(start)
		return result
	}

	payload, err := r.execute(ctx, adapter, op)
	result.DurationMs = msSince(start)
	if err != nil {
		result.Err = types.ClassifyOpError(op.Store, op.OpKind(), err)
		logging.Runner("op failed: %v (%.1fms)", result.Err, result.DurationMs)
		return result
	}

	result.Raw = payload
	result.Items = Normalize(payload, op.Store)
	result.Success = true
	logging.RunnerDebug("op done: store=%s op=%s items=%d %.1fms",
		op.Store, op.OpKind(), len(result.Items), result.DurationMs)
	return result
}

// execute runs the adapter call under the operation timeout. The adapter
// runs in its own goroutine; on timeout its context is cancelled and the
// result, when it eventually arrives, is discarded.
func (r *Runner) execute(ctx context.Context, adapter store.Adapter, op types.DatabaseOperation) (types.Payload, error) {
	opCtx := ctx
	cancel := context.CancelFunc(func() {})
	if op.TimeoutMs > 0 {
		opCtx, cancel = context.WithTimeout(ctx, op.Timeout())
	}
	defer cancel()

	type outcome struct {
		payload types.Payload
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		p, err := adapter.Execute(opCtx, op.Params)
		done <- outcome{p, err}
	}()

	select {
	case out := <-done:
		return out.payload, out.err
	case <-opCtx.Done():
		if opCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("operation timed out after %dms", op.TimeoutMs)
		}
		return nil, opCtx.Err()
	}
}

// Normalize flattens a payload variant into ResultItems, attaching the
// source store and content hash.
func Normalize(payload types.Payload, source types.StoreKind) []types.ResultItem {
	var items []types.ResultItem

	switch p := payload.(type) {
	case types.Documents:
		for _, d := range p {
			score := d.Similarity
			if score == 0 {
				score = d.Score
			}
			title := d.Title
			if title == "" {
				title = d.FileName
			}
			meta := cloneMeta(d.Metadata)
			if !d.CreatedAt.IsZero() {
				if meta == nil {
					meta = map[string]interface{}{}
				}
				if _, ok := meta["timestamp"]; !ok {
					meta["timestamp"] = d.CreatedAt
				}
			}
			items = append(items, types.ResultItem{
				ID:       d.ID,
				Kind:     types.ItemDocument,
				Title:    title,
				Content:  d.Content,
				Score:    score,
				Metadata: meta,
			})
		}
	case types.Files:
		for _, f := range p {
			title := f.Name
			if title == "" {
				title = f.Path
			}
			items = append(items, types.ResultItem{
				ID:      f.Path,
				Kind:    types.ItemFile,
				Title:   title,
				Content: f.Path,
				Score:   0.5,
				Metadata: map[string]interface{}{
					"size":      f.Size,
					"timestamp": f.ModTime,
				},
			})
		}
	case types.Nodes:
		for _, n := range p {
			title := n.Label
			if title == "" {
				title = n.Name
			}
			items = append(items, types.ResultItem{
				ID:      n.ID,
				Kind:    types.ItemNode,
				Title:   title,
				Content: nodeContent(n),
				Score:   0.6,
				Metadata: map[string]interface{}{
					"relation": n.Relation,
					"depth":    n.Depth,
				},
			})
		}
	case types.CacheValues:
		for _, cv := range p {
			items = append(items, types.ResultItem{
				ID:      cv.Key,
				Kind:    types.ItemCacheEntry,
				Title:   cv.Key,
				Content: cv.Value,
				Score:   0.4,
			})
		}
	case types.Generic:
		for i, row := range p {
			items = append(items, types.ResultItem{
				ID:       fmt.Sprintf("%s-%d", source, i),
				Kind:     types.ItemGeneric,
				Title:    stringField(row, "title"),
				Content:  stringField(row, "content"),
				Score:    0.5,
				Metadata: row,
			})
		}
	}

	for i := range items {
		items[i].SourceStore = source
		items[i].ContentHash = types.HashContent(items[i].Content)
	}
	return items
}

func nodeContent(n types.Node) string {
	if n.Relation != "" {
		return n.ID + " " + n.Relation
	}
	return n.ID
}

func stringField(row map[string]interface{}, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}

func cloneMeta(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
