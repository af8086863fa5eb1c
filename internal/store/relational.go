package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"fedquery/internal/logging"
	"fedquery/internal/types"
)

// =============================================================================
// RELATIONAL ADAPTER (SQLite)
// =============================================================================

// RelationalAdapter serves RETRIEVE and SEARCH operations from a SQLite
// documents table: LIKE-join across content and tags, temporal filter by
// created_at, ordered by created_at DESC.
type RelationalAdapter struct {
	db *sql.DB
}

const relationalSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	tags TEXT DEFAULT '',
	resource_type TEXT DEFAULT '',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);
CREATE INDEX IF NOT EXISTS idx_documents_resource_type ON documents(resource_type);
`

// NewRelationalAdapter opens (or creates) the SQLite database at dsn and
// ensures the schema exists.
func NewRelationalAdapter(dsn string) (*RelationalAdapter, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open relational store: %w", err)
	}
	if _, err := db.Exec(relationalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize relational schema: %w", err)
	}
	return &RelationalAdapter{db: db}, nil
}

// Name implements Adapter.
func (a *RelationalAdapter) Name() types.StoreKind { return types.StoreRelational }

// Health implements Adapter.
func (a *RelationalAdapter) Health(ctx context.Context) Health {
	var count int64
	err := a.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&count)
	if err != nil {
		return Health{Healthy: false, Err: err}
	}
	return Health{Healthy: true, SizeHint: count}
}

// Execute implements Adapter.
func (a *RelationalAdapter) Execute(ctx context.Context, params types.OpParams) (types.Payload, error) {
	switch p := params.(type) {
	case *types.RetrieveParams:
		return a.search(ctx, p.SearchTerms, p.Query, p.Limit, p.Temporal, p.ResourceType)
	case *types.SearchParams:
		return a.search(ctx, p.SearchTerms, p.Query, p.Limit, p.Temporal, p.ResourceType)
	default:
		return nil, fmt.Errorf("relational store does not support %s", params.OpKind())
	}
}

func (a *RelationalAdapter) search(ctx context.Context, terms []string, query string, limit int, temporal *types.TemporalRange, resourceType string) (types.Payload, error) {
	timer := logging.StartTimer(logging.CategoryStore, "relational.search")
	defer timer.Stop()

	if len(terms) == 0 && query != "" {
		terms = strings.Fields(query)
	}

	var conds []string
	var args []interface{}

	if len(terms) > 0 {
		var likes []string
		for _, term := range terms {
			likes = append(likes, "(content LIKE ? OR tags LIKE ?)")
			pattern := "%" + term + "%"
			args = append(args, pattern, pattern)
		}
		conds = append(conds, "("+strings.Join(likes, " OR ")+")")
	}
	if temporal != nil {
		conds = append(conds, "created_at >= ? AND created_at <= ?")
		args = append(args, temporal.Start, temporal.End)
	}
	if resourceType != "" {
		conds = append(conds, "resource_type = ?")
		args = append(args, resourceType)
	}

	q := "SELECT id, title, content, tags, resource_type, created_at FROM documents"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("relational query failed: %w", err)
	}
	defer rows.Close()

	var docs types.Documents
	for rows.Next() {
		var (
			id                         int64
			title, content, tags, rtyp string
			createdAt                  time.Time
		)
		if err := rows.Scan(&id, &title, &content, &tags, &rtyp, &createdAt); err != nil {
			logging.Get(logging.CategoryStore).Warn("relational row scan failed: %v", err)
			continue
		}
		docs = append(docs, types.Document{
			ID:        fmt.Sprintf("rel-%d", id),
			Title:     title,
			Content:   content,
			Score:     termOverlapScore(terms, content+" "+tags),
			CreatedAt: createdAt,
			Metadata: map[string]interface{}{
				"tags":          tags,
				"resource_type": rtyp,
				"timestamp":     createdAt,
			},
		})
	}

	logging.StoreDebug("relational search returned %d rows for %d terms", len(docs), len(terms))
	return docs, rows.Err()
}

// termOverlapScore is the store-reported relevance: the fraction of search
// terms present in the row's text.
func termOverlapScore(terms []string, text string) float64 {
	if len(terms) == 0 {
		return 0.5
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, term := range terms {
		if strings.Contains(lower, strings.ToLower(term)) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

// Insert adds a document row. Used by loaders and tests; the query
// pipeline itself never writes.
func (a *RelationalAdapter) Insert(ctx context.Context, title, content, tags, resourceType string, createdAt time.Time) error {
	_, err := a.db.ExecContext(ctx,
		"INSERT INTO documents (title, content, tags, resource_type, created_at) VALUES (?, ?, ?, ?, ?)",
		title, content, tags, resourceType, createdAt,
	)
	return err
}

// Close releases the database handle.
func (a *RelationalAdapter) Close() error { return a.db.Close() }
