package types

import "time"

// =============================================================================
// ADAPTER PAYLOAD SUM TYPE
// =============================================================================

// Payload is the closed set of shapes an adapter may return. The runner
// pattern-matches on the concrete variant to build ResultItems, so the
// duck-typed per-store return shapes of the adapters never leak upward.
type Payload interface {
	isPayload()
}

// Document is a scored content row (relational rows, vector matches).
type Document struct {
	ID         string
	Title      string
	FileName   string
	Content    string
	Score      float64
	Similarity float64
	CreatedAt  time.Time
	Metadata   map[string]interface{}
}

// Documents is the payload variant for document-shaped results.
type Documents []Document

func (Documents) isPayload() {}

// File is a filesystem match.
type File struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// Files is the payload variant for filesystem results.
type Files []File

func (Files) isPayload() {}

// Node is a graph vertex reached by a query or traversal.
type Node struct {
	ID       string
	Label    string
	Name     string
	Relation string
	Depth    int
	Props    map[string]interface{}
}

// Nodes is the payload variant for graph results.
type Nodes []Node

func (Nodes) isPayload() {}

// CacheValue is one key/value hit from the KV store.
type CacheValue struct {
	Key   string
	Value string
}

// CacheValues is the payload variant for KV results.
type CacheValues []CacheValue

func (CacheValues) isPayload() {}

// Generic carries untyped rows from stores with no richer shape.
type Generic []map[string]interface{}

func (Generic) isPayload() {}
