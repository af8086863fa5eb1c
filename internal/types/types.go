// Package types defines the shared data model for the federated query
// pipeline: store/query/operation enumerations, the semantic query and
// execution plan entities, result items, and the response envelope.
package types

import (
	"crypto/md5"
	"strings"
	"time"
)

// =============================================================================
// ENUMERATIONS
// =============================================================================

// StoreKind identifies a backing store.
type StoreKind string

const (
	StoreRelational StoreKind = "relational"
	StoreVector     StoreKind = "vector"
	StoreGraph      StoreKind = "graph"
	StoreKV         StoreKind = "kv"
	StoreFilesystem StoreKind = "filesystem"
)

// AllStoreKinds lists every store kind in fallback priority order.
var AllStoreKinds = []StoreKind{
	StoreRelational, StoreVector, StoreFilesystem, StoreGraph, StoreKV,
}

// QueryKind determines planner priority order and default stores.
type QueryKind string

const (
	QueryMemory   QueryKind = "memory"
	QueryChat     QueryKind = "chat"
	QueryDocument QueryKind = "document"
)

// ParseQueryKind maps a case-insensitive token onto a QueryKind.
func ParseQueryKind(tok string) (QueryKind, bool) {
	switch strings.ToLower(strings.TrimSpace(tok)) {
	case "memory":
		return QueryMemory, true
	case "chat":
		return QueryChat, true
	case "document":
		return QueryDocument, true
	}
	return "", false
}

// OperationKind identifies what an operation asks a store to do.
type OperationKind string

const (
	OpRetrieve     OperationKind = "retrieve"
	OpSearch       OperationKind = "search"
	OpVectorSearch OperationKind = "vector_search"
	OpGraphQuery   OperationKind = "graph_query"
	OpFileSearch   OperationKind = "file_search"
	OpCacheLookup  OperationKind = "cache_lookup"
)

// ExecutionMode controls how the coordinator schedules an operation.
type ExecutionMode string

const (
	ModeParallel   ExecutionMode = "parallel"
	ModeSequential ExecutionMode = "sequential"
)

// TemporalKind names a recognized temporal expression.
type TemporalKind string

const (
	TemporalRecent    TemporalKind = "recent"
	TemporalToday     TemporalKind = "today"
	TemporalYesterday TemporalKind = "yesterday"
	TemporalLastWeek  TemporalKind = "last_week"
	TemporalLastMonth TemporalKind = "last_month"
	TemporalCustom    TemporalKind = "custom"
)

// ItemKind classifies a normalized result item.
type ItemKind string

const (
	ItemDocument   ItemKind = "document"
	ItemFile       ItemKind = "file"
	ItemNode       ItemKind = "node"
	ItemCacheEntry ItemKind = "cache_entry"
	ItemGeneric    ItemKind = "generic"
)

// Strategy selects the coordination style requested by the caller.
type Strategy string

const (
	StrategyParallel   Strategy = "parallel"
	StrategySequential Strategy = "sequential"
	StrategyHybrid     Strategy = "hybrid"
	StrategySelective  Strategy = "selective"
	StrategyCached     Strategy = "cached"
)

// =============================================================================
// SEMANTIC QUERY
// =============================================================================

// TemporalRange is a concrete (start, end) window derived from a keyword
// or supplied by the caller. All times are UTC.
type TemporalRange struct {
	Kind  TemporalKind
	Start time.Time
	End   time.Time
}

// SemanticQuery is the parsed form of a raw query string. Immutable once
// built by the parser.
type SemanticQuery struct {
	Kind         QueryKind
	SearchTerms  []string
	Temporal     *TemporalRange
	TopicFilters []string
	TargetStores []StoreKind
	Original     string
}

// QueryOptions are the per-call knobs accepted by Engine.Execute.
type QueryOptions struct {
	Limit    int
	Strategy Strategy
	UseCache bool
	// Database restricts execution to a single store when non-empty.
	Database StoreKind
	// MinScore drops items below this composite score after ranking,
	// before the limit is applied. Zero disables the filter.
	MinScore float64
}

// DefaultQueryOptions returns the documented call-option defaults.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		Limit:    10,
		Strategy: StrategyHybrid,
		UseCache: true,
	}
}

// Clamp normalizes the options into their legal ranges.
func (o *QueryOptions) Clamp() {
	if o.Limit <= 0 {
		o.Limit = 10
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
	if o.Strategy == "" {
		o.Strategy = StrategyHybrid
	}
}

// =============================================================================
// OPERATIONS AND PLAN
// =============================================================================

// DatabaseOperation is one unit of work against a single store. Immutable
// during execution.
type DatabaseOperation struct {
	Store           StoreKind
	Params          OpParams
	EstimatedCostMs float64
	Mode            ExecutionMode
	Priority        int
	TimeoutMs       int
	Retries         int
}

// OpKind returns the operation kind carried by the params variant.
func (op DatabaseOperation) OpKind() OperationKind {
	if op.Params == nil {
		return ""
	}
	return op.Params.OpKind()
}

// Timeout returns the per-operation deadline as a duration.
func (op DatabaseOperation) Timeout() time.Duration {
	return time.Duration(op.TimeoutMs) * time.Millisecond
}

// ExecutionPlan partitions operations into a parallel group and a
// sequential tail. Consumed exactly once by the coordinator.
type ExecutionPlan struct {
	QueryKind        QueryKind
	Operations       []DatabaseOperation
	ParallelOps      []DatabaseOperation
	SequentialOps    []DatabaseOperation
	EstimatedTotalMs float64
	Notes            []string
}

// Empty reports whether the plan has no operations at all.
func (p *ExecutionPlan) Empty() bool {
	return len(p.ParallelOps) == 0 && len(p.SequentialOps) == 0
}

// =============================================================================
// RESULT ITEMS
// =============================================================================

// ResultItem is the uniform currency between runner, aggregator and the
// response. ContentHash fingerprints normalized content for dedup.
type ResultItem struct {
	ID                string
	Kind              ItemKind
	Title             string
	Content           string
	Score             float64
	SourceStore       StoreKind
	Metadata          map[string]interface{}
	ContentHash       [16]byte
	CompositeScore    float64
	RankPosition      int
	DiversityFiltered bool
}

// HashContent fingerprints content after trim+lowercase normalization.
func HashContent(content string) [16]byte {
	return md5.Sum([]byte(strings.ToLower(strings.TrimSpace(content))))
}

// CloneMetadata returns a shallow copy of the item's metadata map so cached
// responses cannot alias live ones.
func (r ResultItem) CloneMetadata() map[string]interface{} {
	if r.Metadata == nil {
		return nil
	}
	out := make(map[string]interface{}, len(r.Metadata))
	for k, v := range r.Metadata {
		out[k] = v
	}
	return out
}

// RunResult is the outcome of executing one DatabaseOperation.
type RunResult struct {
	Op         DatabaseOperation
	Success    bool
	Items      []ResultItem
	Raw        Payload
	Err        *OpError
	DurationMs float64
}

// =============================================================================
// RESPONSE
// =============================================================================

// QueryAnalysis echoes how the query was understood.
type QueryAnalysis struct {
	Kind           QueryKind
	SearchTerms    []string
	Temporal       *TemporalRange
	TopicFilters   []string
	StoresTargeted []StoreKind
}

// ResponseMetadata carries execution telemetry for one call.
type ResponseMetadata struct {
	RequestID             string
	ExecutionTimeMs       float64
	StoresQueried         []StoreKind
	TotalOperations       int
	ParallelOperations    int
	SequentialOperations  int
	ParallelEfficiencyPct float64
	SpeedupFactor         float64
	SLACompliance         bool
	Errors                []*OpError
	Warnings              []string
	FromCache             bool
}

// Response is the top-level result of Engine.Execute.
type Response struct {
	Success       bool
	Items         []ResultItem
	QueryAnalysis QueryAnalysis
	Metadata      ResponseMetadata
}

// Clone returns a deep-enough copy to prevent mutation aliasing between
// the cache and callers: the item slice, per-item metadata, error and
// warning slices are all fresh.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	out := *r
	out.Items = make([]ResultItem, len(r.Items))
	for i, it := range r.Items {
		out.Items[i] = it
		out.Items[i].Metadata = it.CloneMetadata()
	}
	if r.Metadata.Errors != nil {
		out.Metadata.Errors = make([]*OpError, len(r.Metadata.Errors))
		for i, e := range r.Metadata.Errors {
			if e != nil {
				c := *e
				out.Metadata.Errors[i] = &c
			}
		}
	}
	out.Metadata.Warnings = append([]string(nil), r.Metadata.Warnings...)
	out.Metadata.StoresQueried = append([]StoreKind(nil), r.Metadata.StoresQueried...)
	out.QueryAnalysis.SearchTerms = append([]string(nil), r.QueryAnalysis.SearchTerms...)
	out.QueryAnalysis.TopicFilters = append([]string(nil), r.QueryAnalysis.TopicFilters...)
	out.QueryAnalysis.StoresTargeted = append([]StoreKind(nil), r.QueryAnalysis.StoresTargeted...)
	if r.QueryAnalysis.Temporal != nil {
		t := *r.QueryAnalysis.Temporal
		out.QueryAnalysis.Temporal = &t
	}
	return &out
}
