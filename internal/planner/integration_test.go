package planner

import (
	"context"
	"testing"
	"time"

	"fedquery/internal/config"
	"fedquery/internal/store"
	"fedquery/internal/types"
)

// BuildParams and the adapters must agree on the params representation: a
// plan built here has to execute against real stores unchanged.
func TestBuildParamsExecuteOnRealAdapters(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.Stores.FilesystemRoot = "."
	q := &types.SemanticQuery{
		Kind:        types.QueryMemory,
		SearchTerms: []string{"deployment"},
	}
	opts := types.DefaultQueryOptions()

	rel, err := store.NewRelationalAdapter(":memory:")
	if err != nil {
		t.Fatalf("relational adapter: %v", err)
	}
	defer rel.Close()
	if err := rel.Insert(ctx, "Deploy notes", "deployment checklist", "ops", "", time.Now()); err != nil {
		t.Fatalf("seed row: %v", err)
	}

	payload, err := rel.Execute(ctx, BuildParams(cfg, types.StoreRelational, q, opts))
	if err != nil {
		t.Fatalf("relational adapter rejected planner-built params: %v", err)
	}
	docs, ok := payload.(types.Documents)
	if !ok || len(docs) != 1 {
		t.Fatalf("payload = %#v, want the seeded document", payload)
	}

	vec, err := store.NewVectorAdapter(":memory:", nil)
	if err != nil {
		t.Fatalf("vector adapter: %v", err)
	}
	defer vec.Close()
	graph, err := store.NewGraphAdapter(":memory:")
	if err != nil {
		t.Fatalf("graph adapter: %v", err)
	}
	defer graph.Close()
	kv, err := store.NewKVAdapter("")
	if err != nil {
		t.Fatalf("kv adapter: %v", err)
	}
	defer kv.Close()
	files, err := store.NewFilesystemAdapter(t.TempDir())
	if err != nil {
		t.Fatalf("filesystem adapter: %v", err)
	}

	for _, a := range []store.Adapter{vec, graph, kv, files} {
		params := BuildParams(cfg, a.Name(), q, opts)
		if params == nil {
			t.Fatalf("%s: no params built", a.Name())
		}
		if err := params.Validate(); err != nil {
			t.Fatalf("%s: invalid params: %v", a.Name(), err)
		}
		if _, err := a.Execute(ctx, params); err != nil {
			t.Errorf("%s adapter rejected planner-built params: %v", a.Name(), err)
		}
	}
}
