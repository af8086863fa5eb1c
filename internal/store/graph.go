package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"fedquery/internal/logging"
	"fedquery/internal/types"
)

// =============================================================================
// GRAPH ADAPTER (SQLite edge table)
// =============================================================================

// GraphAdapter serves GRAPH_QUERY operations over a typed edge table.
// Pattern queries return an entity's neighborhood; traversal queries run a
// bounded BFS from a start node.
type GraphAdapter struct {
	db *sql.DB
}

const graphSchema = `
CREATE TABLE IF NOT EXISTS graph_edges (
	entity_a TEXT NOT NULL,
	relation TEXT NOT NULL,
	entity_b TEXT NOT NULL,
	weight REAL DEFAULT 1.0,
	metadata TEXT DEFAULT '{}',
	PRIMARY KEY (entity_a, relation, entity_b)
);
CREATE INDEX IF NOT EXISTS idx_graph_edges_b ON graph_edges(entity_b);
`

type graphEdge struct {
	EntityA  string
	Relation string
	EntityB  string
	Weight   float64
	Metadata map[string]interface{}
}

// NewGraphAdapter opens the edge table at dsn.
func NewGraphAdapter(dsn string) (*GraphAdapter, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph store: %w", err)
	}
	if _, err := db.Exec(graphSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize graph schema: %w", err)
	}
	return &GraphAdapter{db: db}, nil
}

// Name implements Adapter.
func (a *GraphAdapter) Name() types.StoreKind { return types.StoreGraph }

// Health implements Adapter.
func (a *GraphAdapter) Health(ctx context.Context) Health {
	var count int64
	if err := a.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM graph_edges").Scan(&count); err != nil {
		return Health{Healthy: false, Err: err}
	}
	return Health{Healthy: true, SizeHint: count}
}

// Execute implements Adapter.
func (a *GraphAdapter) Execute(ctx context.Context, params types.OpParams) (types.Payload, error) {
	p, ok := params.(*types.GraphQueryParams)
	if !ok {
		return nil, fmt.Errorf("graph store does not support %s", params.OpKind())
	}
	if p.StartID != "" {
		maxDepth := p.MaxDepth
		if maxDepth <= 0 {
			maxDepth = 5
		}
		return a.traverse(ctx, p.StartID, p.RelTypes, maxDepth)
	}
	return a.neighborhood(ctx, p.Pattern)
}

// neighborhood returns the nodes directly linked to the pattern entity in
// either direction.
func (a *GraphAdapter) neighborhood(ctx context.Context, entity string) (types.Payload, error) {
	timer := logging.StartTimer(logging.CategoryStore, "graph.neighborhood")
	defer timer.Stop()

	edges, err := a.queryEdges(ctx, entity, "both", nil)
	if err != nil {
		return nil, err
	}

	var nodes types.Nodes
	seen := make(map[string]bool)
	for _, e := range edges {
		other, relation := e.EntityB, e.Relation
		if e.EntityB == entity {
			other = e.EntityA
		}
		if seen[other] {
			continue
		}
		seen[other] = true
		nodes = append(nodes, types.Node{
			ID:       other,
			Label:    other,
			Relation: relation,
			Depth:    1,
			Props:    e.Metadata,
		})
	}
	logging.StoreDebug("graph neighborhood of %q: %d nodes", entity, len(nodes))
	return nodes, nil
}

// traverse runs a BFS from startID, following only relTypes when given,
// capped at maxDepth. Each reached node is reported once at its shallowest
// depth.
func (a *GraphAdapter) traverse(ctx context.Context, startID string, relTypes []string, maxDepth int) (types.Payload, error) {
	timer := logging.StartTimer(logging.CategoryStore, "graph.traverse")
	defer timer.Stop()

	type queueItem struct {
		entity string
		depth  int
	}

	visited := map[string]bool{startID: true}
	queue := []queueItem{{entity: startID, depth: 0}}
	var nodes types.Nodes

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		current := queue[0]
		queue = queue[1:]

		if current.depth >= maxDepth {
			continue
		}

		edges, err := a.queryEdges(ctx, current.entity, "outgoing", relTypes)
		if err != nil {
			continue
		}
		for _, e := range edges {
			if visited[e.EntityB] {
				continue
			}
			visited[e.EntityB] = true
			nodes = append(nodes, types.Node{
				ID:       e.EntityB,
				Label:    e.EntityB,
				Relation: e.Relation,
				Depth:    current.depth + 1,
				Props:    e.Metadata,
			})
			queue = append(queue, queueItem{entity: e.EntityB, depth: current.depth + 1})
		}
	}

	logging.StoreDebug("graph traversal from %q reached %d nodes (maxDepth=%d)", startID, len(nodes), maxDepth)
	return nodes, nil
}

func (a *GraphAdapter) queryEdges(ctx context.Context, entity, direction string, relTypes []string) ([]graphEdge, error) {
	var cond string
	var args []interface{}
	switch direction {
	case "outgoing":
		cond = "entity_a = ?"
		args = append(args, entity)
	case "incoming":
		cond = "entity_b = ?"
		args = append(args, entity)
	default:
		cond = "(entity_a = ? OR entity_b = ?)"
		args = append(args, entity, entity)
	}
	if len(relTypes) > 0 {
		placeholders := strings.Repeat("?,", len(relTypes))
		cond += " AND relation IN (" + placeholders[:len(placeholders)-1] + ")"
		for _, rt := range relTypes {
			args = append(args, rt)
		}
	}

	rows, err := a.db.QueryContext(ctx,
		"SELECT entity_a, relation, entity_b, weight, metadata FROM graph_edges WHERE "+cond, args...)
	if err != nil {
		return nil, fmt.Errorf("graph query failed: %w", err)
	}
	defer rows.Close()

	var edges []graphEdge
	for rows.Next() {
		var e graphEdge
		var metaJSON string
		if err := rows.Scan(&e.EntityA, &e.Relation, &e.EntityB, &e.Weight, &metaJSON); err != nil {
			logging.Get(logging.CategoryStore).Warn("graph row scan failed: %v", err)
			continue
		}
		if metaJSON != "" && metaJSON != "{}" {
			json.Unmarshal([]byte(metaJSON), &e.Metadata)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// AddEdge stores a typed edge. Loader/test helper; the query pipeline
// never writes.
func (a *GraphAdapter) AddEdge(ctx context.Context, entityA, relation, entityB string, weight float64) error {
	if entityA == "" || relation == "" || entityB == "" {
		return fmt.Errorf("invalid edge: entity_a/relation/entity_b must be non-empty")
	}
	_, err := a.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO graph_edges (entity_a, relation, entity_b, weight) VALUES (?, ?, ?, ?)",
		entityA, relation, entityB, weight,
	)
	return err
}

// Close releases the database handle.
func (a *GraphAdapter) Close() error { return a.db.Close() }
