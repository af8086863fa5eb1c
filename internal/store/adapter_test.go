package store

import (
	"context"
	"sync/atomic"
	"testing"

	"fedquery/internal/types"
)

// countingAdapter tracks Health calls to exercise registry memoization.
type countingAdapter struct {
	kind        types.StoreKind
	healthCalls int32
	healthy     bool
}

func (f *countingAdapter) Name() types.StoreKind { return f.kind }

func (f *countingAdapter) Health(_ context.Context) Health {
	atomic.AddInt32(&f.healthCalls, 1)
	return Health{Healthy: f.healthy, SizeHint: 42}
}

func (f *countingAdapter) Execute(_ context.Context, _ types.OpParams) (types.Payload, error) {
	return types.Generic{}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	a := &countingAdapter{kind: types.StoreRelational, healthy: true}
	r.Register(a)

	if !r.Has(types.StoreRelational) {
		t.Error("Has should be true after Register")
	}
	got, err := r.Get(types.StoreRelational)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != Adapter(a) {
		t.Error("Get returned wrong adapter")
	}
	if _, err := r.Get(types.StoreGraph); err == nil {
		t.Error("Get should fail for unregistered store")
	}
}

func TestRegistryKindsPriorityOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&countingAdapter{kind: types.StoreKV, healthy: true})
	r.Register(&countingAdapter{kind: types.StoreVector, healthy: true})
	r.Register(&countingAdapter{kind: types.StoreRelational, healthy: true})

	kinds := r.Kinds()
	want := []types.StoreKind{types.StoreRelational, types.StoreVector, types.StoreKV}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("kinds[%d] = %s, want %s", i, kinds[i], want[i])
		}
	}
}

func TestRegistryHealthMemoized(t *testing.T) {
	r := NewRegistry()
	a := &countingAdapter{kind: types.StoreKV, healthy: true}
	r.Register(a)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		h := r.Health(ctx, types.StoreKV)
		if !h.Healthy || h.SizeHint != 42 {
			t.Fatalf("unexpected health %+v", h)
		}
	}
	if calls := atomic.LoadInt32(&a.healthCalls); calls != 1 {
		t.Errorf("adapter polled %d times within TTL, want 1", calls)
	}
}

func TestRegistryHealthUnregistered(t *testing.T) {
	r := NewRegistry()
	h := r.Health(context.Background(), types.StoreGraph)
	if h.Healthy {
		t.Error("unregistered store must be unhealthy")
	}
	if r.Healthy(context.Background(), types.StoreGraph) {
		t.Error("Healthy should be false for unregistered store")
	}
}
