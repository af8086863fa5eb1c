// Package coordinator executes an ExecutionPlan: the parallel group fans
// out as one goroutine per operation, the sequential tail runs in plan
// order afterwards, and all per-operation outcomes are gathered into a
// single result regardless of individual failures.
package coordinator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"fedquery/internal/logging"
	"fedquery/internal/runner"
	"fedquery/internal/types"
)

// Result gathers every operation outcome plus wall-clock timings. Timings
// feed the parallel-efficiency metrics in the response.
type Result struct {
	Results          []types.RunResult
	Errors           []*types.OpError
	ParallelWallMs   float64
	SequentialWallMs float64
	TotalWallMs      float64
}

// Succeeded counts operations that produced a usable payload.
func (r *Result) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Success {
			n++
		}
	}
	return n
}

// SumOpDurations adds up per-operation execution times. Compared against
// wall time, this yields the speedup factor of the parallel group.
func (r *Result) SumOpDurations() float64 {
	var sum float64
	for _, res := range r.Results {
		sum += res.DurationMs
	}
	return sum
}

type Coordinator struct {
	runner *runner.Runner
}

func New(r *runner.Runner) *Coordinator {
	return &Coordinator{runner: r}
}

// Execute runs the plan under ctx. The caller sets the outer SLA deadline
// on ctx; on expiry, in-flight operations are cancelled and whatever has
// been gathered so far is returned. A nil error with per-op failures in
// Result.Errors is the partial-success path; the returned error is
// non-nil only when every operation failed.
func (c *Coordinator) Execute(ctx context.Context, plan *types.ExecutionPlan) (*Result, error) {
	out := &Result{}
	if plan.Empty() {
		return out, nil
	}
	total := time.Now()

	// Fan-out: one goroutine per parallel op, started in plan order.
	// Goroutines always return nil so one failure never cancels siblings;
	// failures travel inside RunResult.
	if len(plan.ParallelOps) > 0 {
		start := time.Now()
		results := make([]types.RunResult, len(plan.ParallelOps))
		g, gctx := errgroup.WithContext(ctx)
		for i, op := range plan.ParallelOps {
			i, op := i, op
			g.Go(func() error {
				results[i] = c.runner.Run(gctx, op)
				return nil
			})
		}
		g.Wait()
		out.ParallelWallMs = msSince(start)
		out.Results = append(out.Results, results...)
	}

	// Sequential tail, in plan order. The outer deadline is the only thing
	// that stops the chain early.
	if len(plan.SequentialOps) > 0 {
		start := time.Now()
		for _, op := range plan.SequentialOps {
			if ctx.Err() != nil {
				out.Results = append(out.Results, types.RunResult{
					Op: op,
					Err: &types.OpError{
						Store: op.Store, Op: op.OpKind(),
						Kind:    types.OpErrTimeout,
						Message: "request deadline reached before operation started",
					},
				})
				continue
			}
			out.Results = append(out.Results, c.runner.Run(ctx, op))
		}
		out.SequentialWallMs = msSince(start)
	}

	out.TotalWallMs = msSince(total)
	for _, res := range out.Results {
		if res.Err != nil {
			out.Errors = append(out.Errors, res.Err)
		}
	}

	logging.Coordinator("executed plan: ops=%d ok=%d errs=%d wall=%.1fms",
		len(out.Results), out.Succeeded(), len(out.Errors), out.TotalWallMs)

	if out.Succeeded() == 0 && len(out.Errors) > 0 {
		return out, &types.CoordinationError{
			Outcome: types.CoordinationTotal,
			Errors:  out.Errors,
		}
	}
	return out, nil
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
