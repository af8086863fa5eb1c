package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"fedquery/internal/logging"
	"fedquery/internal/types"
)

// =============================================================================
// VECTOR ADAPTER (SQLite + embeddings)
// =============================================================================

// Embedder turns text into an embedding vector. Embedding generation is
// outside the engine; deployments inject an implementation, and when none
// is present the adapter degrades to keyword matching.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// VectorAdapter serves VECTOR_SEARCH operations: nearest-neighbor by the
// embedding of the query over a SQLite-backed vector table.
type VectorAdapter struct {
	db       *sql.DB
	embedder Embedder
}

const vectorSchema = `
CREATE TABLE IF NOT EXISTS vectors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT DEFAULT '',
	content TEXT NOT NULL,
	embedding TEXT,
	metadata TEXT DEFAULT '{}',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// NewVectorAdapter opens the vector table at dsn. embedder may be nil, in
// which case searches fall back to keyword overlap.
func NewVectorAdapter(dsn string, embedder Embedder) (*VectorAdapter, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	if _, err := db.Exec(vectorSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize vector schema: %w", err)
	}
	return &VectorAdapter{db: db, embedder: embedder}, nil
}

// Name implements Adapter.
func (a *VectorAdapter) Name() types.StoreKind { return types.StoreVector }

// Health implements Adapter.
func (a *VectorAdapter) Health(ctx context.Context) Health {
	var count int64
	if err := a.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vectors").Scan(&count); err != nil {
		return Health{Healthy: false, Err: err}
	}
	return Health{Healthy: true, SizeHint: count}
}

// Execute implements Adapter.
func (a *VectorAdapter) Execute(ctx context.Context, params types.OpParams) (types.Payload, error) {
	p, ok := params.(*types.VectorSearchParams)
	if !ok {
		return nil, fmt.Errorf("vector store does not support %s", params.OpKind())
	}
	if a.embedder == nil {
		// Keyword-overlap fallback (backward compatible with unembedded
		// corpora).
		return a.keywordSearch(ctx, p.Query, p.K)
	}
	return a.semanticSearch(ctx, p.Query, p.K)
}

func (a *VectorAdapter) semanticSearch(ctx context.Context, query string, k int) (types.Payload, error) {
	timer := logging.StartTimer(logging.CategoryStore, "vector.semanticSearch")
	defer timer.Stop()

	queryEmbedding, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	rows, err := a.db.QueryContext(ctx,
		"SELECT id, title, content, embedding, metadata, created_at FROM vectors WHERE embedding IS NOT NULL",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type candidate struct {
		doc        types.Document
		similarity float64
	}
	var candidates []candidate

	for rows.Next() {
		var (
			id                           int64
			title, content, embJSON, met string
			createdAt                    time.Time
		)
		if err := rows.Scan(&id, &title, &content, &embJSON, &met, &createdAt); err != nil {
			continue
		}
		var emb []float32
		if err := json.Unmarshal([]byte(embJSON), &emb); err != nil {
			continue
		}
		sim, err := CosineSimilarity(queryEmbedding, emb)
		if err != nil {
			continue
		}
		doc := types.Document{
			ID:         fmt.Sprintf("vec-%d", id),
			Title:      title,
			Content:    content,
			Similarity: sim,
			CreatedAt:  createdAt,
		}
		if met != "" {
			json.Unmarshal([]byte(met), &doc.Metadata)
		}
		if doc.Metadata == nil {
			doc.Metadata = make(map[string]interface{})
		}
		doc.Metadata["timestamp"] = createdAt
		candidates = append(candidates, candidate{doc: doc, similarity: sim})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].similarity > candidates[j].similarity
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	docs := make(types.Documents, len(candidates))
	for i, c := range candidates {
		docs[i] = c.doc
	}
	logging.StoreDebug("vector search returned %d of top-%d candidates", len(docs), k)
	return docs, nil
}

// keywordSearch approximates similarity by term overlap when no embedder
// is configured.
func (a *VectorAdapter) keywordSearch(ctx context.Context, query string, k int) (types.Payload, error) {
	rows, err := a.db.QueryContext(ctx,
		"SELECT id, title, content, metadata, created_at FROM vectors",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	terms := splitTerms(query)
	var docs types.Documents
	for rows.Next() {
		var (
			id                  int64
			title, content, met string
			createdAt           time.Time
		)
		if err := rows.Scan(&id, &title, &content, &met, &createdAt); err != nil {
			continue
		}
		score := termOverlapScore(terms, title+" "+content)
		if score == 0 {
			continue
		}
		doc := types.Document{
			ID:         fmt.Sprintf("vec-%d", id),
			Title:      title,
			Content:    content,
			Similarity: score,
			CreatedAt:  createdAt,
		}
		if met != "" {
			json.Unmarshal([]byte(met), &doc.Metadata)
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Similarity > docs[j].Similarity })
	if len(docs) > k {
		docs = docs[:k]
	}
	return docs, rows.Err()
}

// Store inserts content with its embedding. Loader/test helper; the query
// pipeline never writes.
func (a *VectorAdapter) Store(ctx context.Context, title, content string, metadata map[string]interface{}, createdAt time.Time) error {
	var embJSON interface{}
	if a.embedder != nil {
		emb, err := a.embedder.Embed(ctx, content)
		if err != nil {
			return fmt.Errorf("failed to embed content: %w", err)
		}
		data, err := json.Marshal(emb)
		if err != nil {
			return fmt.Errorf("failed to serialize embedding: %w", err)
		}
		embJSON = string(data)
	}
	metaJSON, _ := json.Marshal(metadata)
	_, err := a.db.ExecContext(ctx,
		"INSERT INTO vectors (title, content, embedding, metadata, created_at) VALUES (?, ?, ?, ?, ?)",
		title, content, embJSON, string(metaJSON), createdAt,
	)
	return err
}

// Close releases the database handle.
func (a *VectorAdapter) Close() error { return a.db.Close() }
