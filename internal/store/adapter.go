// Package store defines the narrow capability interface every backing
// store implements to participate in federated execution, plus the
// adapter registry the engine owns.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fedquery/internal/logging"
	"fedquery/internal/types"
)

// Health reports adapter availability and an approximate row/entry count
// used by the cost model's data-size factor.
type Health struct {
	Healthy  bool
	SizeHint int64
	Err      error
}

// Adapter is the minimal interface a backing store must implement.
// Adapters must be safe under concurrent read access; the engine performs
// no writes through this interface.
type Adapter interface {
	Name() types.StoreKind
	Health(ctx context.Context) Health
	Execute(ctx context.Context, params types.OpParams) (types.Payload, error)
}

// healthCacheTTL bounds how often one call re-polls an adapter. Planner
// and cost model both consult health within a single Execute.
const healthCacheTTL = time.Second

type cachedHealth struct {
	health  Health
	checked time.Time
}

// Registry holds the adapters keyed by StoreKind. Owned exclusively by
// the engine; safe for concurrent reads.
type Registry struct {
	mu       sync.RWMutex
	adapters map[types.StoreKind]Adapter
	health   map[types.StoreKind]cachedHealth
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[types.StoreKind]Adapter),
		health:   make(map[types.StoreKind]cachedHealth),
	}
}

// Register adds an adapter, replacing any previous one of the same kind.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
	delete(r.health, a.Name())
	logging.Store("Registered %s adapter", a.Name())
}

// Get returns the adapter for a store kind.
func (r *Registry) Get(kind types.StoreKind) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for store %q", kind)
	}
	return a, nil
}

// Has reports whether an adapter is registered for the kind.
func (r *Registry) Has(kind types.StoreKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.adapters[kind]
	return ok
}

// Kinds returns the registered store kinds in priority order.
func (r *Registry) Kinds() []types.StoreKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.StoreKind, 0, len(r.adapters))
	for _, kind := range types.AllStoreKinds {
		if _, ok := r.adapters[kind]; ok {
			out = append(out, kind)
		}
	}
	return out
}

// Health returns the adapter's health, memoized for healthCacheTTL so the
// planner and cost model do not double-poll within one call.
func (r *Registry) Health(ctx context.Context, kind types.StoreKind) Health {
	r.mu.RLock()
	a, ok := r.adapters[kind]
	if !ok {
		r.mu.RUnlock()
		return Health{Healthy: false, Err: fmt.Errorf("store %q not registered", kind)}
	}
	if cached, hit := r.health[kind]; hit && time.Since(cached.checked) < healthCacheTTL {
		r.mu.RUnlock()
		return cached.health
	}
	r.mu.RUnlock()

	h := a.Health(ctx)

	r.mu.Lock()
	r.health[kind] = cachedHealth{health: h, checked: time.Now()}
	r.mu.Unlock()
	return h
}

// Healthy reports whether the store is registered and currently healthy.
func (r *Registry) Healthy(ctx context.Context, kind types.StoreKind) bool {
	return r.Health(ctx, kind).Healthy
}
