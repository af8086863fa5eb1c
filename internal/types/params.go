package types

import (
	"fmt"
	"strings"
)

// =============================================================================
// OPERATION PARAMETER VARIANTS
// =============================================================================

// OpParams is the tagged union of per-operation parameters. One variant
// exists per OperationKind; the planner validates at plan time and the
// runner switches on the concrete type, so planner and runner cannot
// miscompose an operation.
type OpParams interface {
	OpKind() OperationKind
	Validate() error
}

// RetrieveParams drives RELATIONAL retrieve: LIKE-join across content and
// tags, temporal filter by created_at, order by created_at DESC.
type RetrieveParams struct {
	Query        string
	SearchTerms  []string
	Limit        int
	Temporal     *TemporalRange
	ResourceType string
}

func (p RetrieveParams) OpKind() OperationKind { return OpRetrieve }

func (p RetrieveParams) Validate() error {
	if len(p.SearchTerms) == 0 && p.Query == "" {
		return fmt.Errorf("retrieve: query or search terms required")
	}
	if p.Limit <= 0 {
		return fmt.Errorf("retrieve: limit must be positive, got %d", p.Limit)
	}
	if p.Temporal != nil && p.Temporal.End.Before(p.Temporal.Start) {
		return fmt.Errorf("retrieve: temporal end precedes start")
	}
	return nil
}

// SearchParams shares the relational contract with RetrieveParams but maps
// to the SEARCH operation kind.
type SearchParams struct {
	Query        string
	SearchTerms  []string
	Limit        int
	Temporal     *TemporalRange
	ResourceType string
}

func (p SearchParams) OpKind() OperationKind { return OpSearch }

func (p SearchParams) Validate() error {
	if len(p.SearchTerms) == 0 && p.Query == "" {
		return fmt.Errorf("search: query or search terms required")
	}
	if p.Limit <= 0 {
		return fmt.Errorf("search: limit must be positive, got %d", p.Limit)
	}
	if p.Temporal != nil && p.Temporal.End.Before(p.Temporal.Start) {
		return fmt.Errorf("search: temporal end precedes start")
	}
	return nil
}

// VectorSearchParams drives nearest-neighbor search by the embedding of
// Query, returning the top K matches.
type VectorSearchParams struct {
	Query string
	K     int
}

func (p VectorSearchParams) OpKind() OperationKind { return OpVectorSearch }

func (p VectorSearchParams) Validate() error {
	if strings.TrimSpace(p.Query) == "" {
		return fmt.Errorf("vector_search: empty query")
	}
	if p.K <= 0 {
		return fmt.Errorf("vector_search: k must be positive, got %d", p.K)
	}
	return nil
}

// GraphQueryParams drives graph queries either by an adapter-specific
// pattern or by a bounded traversal from StartID.
type GraphQueryParams struct {
	Pattern  string
	StartID  string
	RelTypes []string
	MaxDepth int
}

func (p GraphQueryParams) OpKind() OperationKind { return OpGraphQuery }

func (p GraphQueryParams) Validate() error {
	if p.Pattern == "" && p.StartID == "" {
		return fmt.Errorf("graph_query: pattern or startId required")
	}
	if p.MaxDepth < 0 || p.MaxDepth > 5 {
		return fmt.Errorf("graph_query: maxDepth must be in [0,5], got %d", p.MaxDepth)
	}
	return nil
}

// CacheLookupParams drives KV lookups. Exactly one of Key or Pattern must
// be present.
type CacheLookupParams struct {
	Key     string
	Pattern string
}

func (p CacheLookupParams) OpKind() OperationKind { return OpCacheLookup }

func (p CacheLookupParams) Validate() error {
	if (p.Key == "") == (p.Pattern == "") {
		return fmt.Errorf("cache_lookup: exactly one of key or pattern required")
	}
	return nil
}

// FileSearchParams drives filesystem search under Path for names matching
// Pattern.
type FileSearchParams struct {
	Path    string
	Pattern string
	Limit   int
}

func (p FileSearchParams) OpKind() OperationKind { return OpFileSearch }

func (p FileSearchParams) Validate() error {
	if p.Path == "" {
		return fmt.Errorf("file_search: path required")
	}
	if p.Pattern == "" {
		return fmt.Errorf("file_search: pattern required")
	}
	if p.Limit <= 0 {
		return fmt.Errorf("file_search: limit must be positive, got %d", p.Limit)
	}
	return nil
}
