package cost

import (
	"math"
	"testing"

	"fedquery/internal/types"
)

func searchParams(terms ...string) *types.SearchParams {
	return &types.SearchParams{Query: "q", SearchTerms: terms, Limit: 10}
}

func TestEstimateBaseCosts(t *testing.T) {
	m := NewModel()

	tests := []struct {
		store  types.StoreKind
		params types.OpParams
		want   float64
	}{
		// Two terms, tiny store: complexity 1.0, dataSize 1.0.
		{types.StoreKV, &types.CacheLookupParams{Key: "k"}, 20 * 0.3},
		{types.StoreFilesystem, &types.FileSearchParams{Path: ".", Pattern: "x", Limit: 5}, 150},
		// Relational gets the short-term-list discount.
		{types.StoreRelational, searchParams("a", "b"), 50 * 0.8},
	}
	for _, tt := range tests {
		got := m.Estimate(tt.store, tt.params, 10)
		if math.Abs(got-tt.want) > 0.01 {
			t.Errorf("Estimate(%s, %s) = %.2f, want %.2f",
				tt.store, tt.params.OpKind(), got, tt.want)
		}
	}
}

func TestComplexityFactor(t *testing.T) {
	tests := []struct {
		terms int
		want  float64
	}{
		{0, 1.0}, {2, 1.0}, {3, 1.5}, {4, 1.5}, {5, 2.0}, {7, 2.0}, {8, 3.0}, {20, 3.0},
	}
	for _, tt := range tests {
		if got := complexityFactor(tt.terms); got != tt.want {
			t.Errorf("complexityFactor(%d) = %v, want %v", tt.terms, got, tt.want)
		}
	}
}

func TestDataSizeFactor(t *testing.T) {
	tests := []struct {
		size int64
		want float64
	}{
		{0, 1.0}, {100, 1.0}, {101, 1.2}, {1000, 1.2}, {1001, 1.5}, {10000, 1.5}, {10001, 2.0},
	}
	for _, tt := range tests {
		if got := dataSizeFactor(tt.size); got != tt.want {
			t.Errorf("dataSizeFactor(%d) = %v, want %v", tt.size, got, tt.want)
		}
	}
}

func TestOperationFactorOnlyOnNativeStore(t *testing.T) {
	vec := &types.VectorSearchParams{Query: "q", K: 5}
	if got := operationFactor(types.StoreVector, vec); got != 1.5 {
		t.Errorf("vector_search on VECTOR = %v, want 1.5", got)
	}
	if got := operationFactor(types.StoreRelational, vec); got != 1.0 {
		t.Errorf("vector_search off VECTOR = %v, want 1.0", got)
	}
	graph := &types.GraphQueryParams{Pattern: "deploy"}
	if got := operationFactor(types.StoreGraph, graph); got != 2.0 {
		t.Errorf("graph_query on GRAPH = %v, want 2.0", got)
	}
}

func TestVectorLargeKAdjustment(t *testing.T) {
	small := &types.VectorSearchParams{Query: "q", K: 10}
	large := &types.VectorSearchParams{Query: "q", K: 30}
	if got := storeAdjustment(types.StoreVector, small); got != 1.0 {
		t.Errorf("k=10 adjustment = %v, want 1.0", got)
	}
	want := 1 + 0.05*20
	if got := storeAdjustment(types.StoreVector, large); math.Abs(got-want) > 1e-9 {
		t.Errorf("k=30 adjustment = %v, want %v", got, want)
	}
}

func TestSaturationCompressesLargeEstimates(t *testing.T) {
	m := NewModel()

	// Eight terms against a huge graph store: 300 * 3.0 * 2.0 * 2.0 = 3600,
	// well past 0.8 * 1200 = 960.
	p := &types.GraphQueryParams{Pattern: "a b c d e f g h"}
	got := m.Estimate(types.StoreGraph, p, 50000)
	if got >= 3600 {
		t.Fatalf("estimate %.1f not saturated", got)
	}
	knee := 0.8 * StoreSLA(types.StoreGraph)
	want := knee * math.Log10(1+3600/knee)
	if math.Abs(got-want) > 0.5 {
		t.Errorf("saturated estimate = %.2f, want %.2f", got, want)
	}
}

func TestSaturationBelowKneeIsIdentity(t *testing.T) {
	if got := saturate(100, 1000); got != 100 {
		t.Errorf("saturate(100, 1000) = %v, want 100", got)
	}
}

func TestEstimateMonotoneInTermCount(t *testing.T) {
	m := NewModel()
	prev := 0.0
	for _, terms := range [][]string{
		{"a"}, {"a", "b", "c"}, {"a", "b", "c", "d", "e"},
		{"a", "b", "c", "d", "e", "f", "g", "h"},
	} {
		got := m.Estimate(types.StoreFilesystem, searchParams(terms...), 10)
		if got < prev {
			t.Fatalf("cost decreased with more terms: %v terms -> %.1f (prev %.1f)",
				len(terms), got, prev)
		}
		prev = got
	}
}

func TestStoreSLAUnknownDefault(t *testing.T) {
	if got := StoreSLA(types.StoreKind("bogus")); got != 1000 {
		t.Errorf("unknown store SLA = %v, want 1000", got)
	}
}
