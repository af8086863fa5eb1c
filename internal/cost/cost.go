// Package cost estimates per-operation execution cost in milliseconds.
// Estimates feed planner ordering and timeout budgeting; they are advisory
// only, the operation timeout is what actually bounds execution.
package cost

import (
	"math"
	"strings"

	"fedquery/internal/logging"
	"fedquery/internal/types"
)

// Base costs per store, in milliseconds, for a trivial operation.
var baseCosts = map[types.StoreKind]float64{
	types.StoreRelational: 50,
	types.StoreVector:     200,
	types.StoreGraph:      300,
	types.StoreKV:         20,
	types.StoreFilesystem: 150,
}

// Per-store SLA ceilings in milliseconds. These cap individual operation
// estimates and timeouts; the engine-level SLA caps the whole request.
var storeSLAs = map[types.StoreKind]float64{
	types.StoreRelational: 600,
	types.StoreVector:     1000,
	types.StoreGraph:      1200,
	types.StoreKV:         200,
	types.StoreFilesystem: 800,
}

// Model computes cost estimates. Zero-config construction; the weights
// here are tuning constants, not deployment configuration.
type Model struct{}

func NewModel() *Model { return &Model{} }

// StoreSLA returns the per-store SLA ceiling in milliseconds.
func StoreSLA(store types.StoreKind) float64 {
	if sla, ok := storeSLAs[store]; ok {
		return sla
	}
	return 1000
}

// Estimate computes the cost of running params against store, given a
// size hint (row/document count) from the adapter's health probe. A zero
// or negative hint means unknown and is treated as small.
func (m *Model) Estimate(store types.StoreKind, params types.OpParams, sizeHint int64) float64 {
	base, ok := baseCosts[store]
	if !ok {
		base = 100
	}

	c := base *
		complexityFactor(termCount(params)) *
		dataSizeFactor(sizeHint) *
		operationFactor(store, params) *
		storeAdjustment(store, params)

	c = saturate(c, StoreSLA(store))
	logging.Get(logging.CategoryCost).Debug("estimate store=%s op=%s sizeHint=%d -> %.1fms",
		store, params.OpKind(), sizeHint, c)
	return c
}

func complexityFactor(terms int) float64 {
	switch {
	case terms <= 2:
		return 1.0
	case terms <= 4:
		return 1.5
	case terms <= 7:
		return 2.0
	default:
		return 3.0
	}
}

func dataSizeFactor(sizeHint int64) float64 {
	switch {
	case sizeHint <= 100:
		return 1.0
	case sizeHint <= 1000:
		return 1.2
	case sizeHint <= 10000:
		return 1.5
	default:
		return 2.0
	}
}

func operationFactor(store types.StoreKind, params types.OpParams) float64 {
	switch params.OpKind() {
	case types.OpVectorSearch:
		if store == types.StoreVector {
			return 1.5
		}
	case types.OpGraphQuery:
		if store == types.StoreGraph {
			return 2.0
		}
	case types.OpCacheLookup:
		if store == types.StoreKV {
			return 0.3
		}
	}
	return 1.0
}

func storeAdjustment(store types.StoreKind, params types.OpParams) float64 {
	switch store {
	case types.StoreRelational:
		// Short term lists hit indexes well.
		if termCount(params) <= 2 {
			return 0.8
		}
	case types.StoreVector:
		if vp, ok := params.(*types.VectorSearchParams); ok && vp.K > 10 {
			return 1 + 0.05*float64(vp.K-10)
		}
	}
	return 1.0
}

// saturate compresses estimates above 80% of the store SLA so a single
// pathological estimate cannot dominate plan ordering.
func saturate(c, sla float64) float64 {
	knee := 0.8 * sla
	if c <= knee {
		return c
	}
	return knee * math.Log10(1+c/knee)
}

// termCount extracts the search-term arity from whichever params variant
// carries one.
func termCount(params types.OpParams) int {
	switch p := params.(type) {
	case *types.RetrieveParams:
		return len(p.SearchTerms)
	case *types.SearchParams:
		return len(p.SearchTerms)
	case *types.VectorSearchParams:
		return len(splitWords(p.Query))
	case *types.GraphQueryParams:
		if p.Pattern != "" {
			return len(splitWords(p.Pattern))
		}
		return 1
	default:
		return 1
	}
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
}
