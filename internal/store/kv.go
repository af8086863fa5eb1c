package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"fedquery/internal/logging"
	"fedquery/internal/types"
)

// =============================================================================
// KV ADAPTER (Badger)
// =============================================================================

// KVAdapter serves CACHE_LOOKUP operations from a Badger key-value store:
// exact key lookup or prefix-pattern iteration.
type KVAdapter struct {
	db *badger.DB
}

// NewKVAdapter opens a Badger store at path. An empty path opens an
// in-memory store (useful for tests and cache-less deployments).
func NewKVAdapter(path string) (*KVAdapter, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open kv store: %w", err)
	}
	return &KVAdapter{db: db}, nil
}

// Name implements Adapter.
func (a *KVAdapter) Name() types.StoreKind { return types.StoreKV }

// Health implements Adapter.
func (a *KVAdapter) Health(ctx context.Context) Health {
	if a.db.IsClosed() {
		return Health{Healthy: false, Err: fmt.Errorf("kv store closed")}
	}
	var count int64
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
			// The hint feeds the cost model's data-size factor; an exact
			// count past 10k changes nothing.
			if count > 10000 {
				break
			}
		}
		return nil
	})
	if err != nil {
		return Health{Healthy: false, Err: err}
	}
	return Health{Healthy: true, SizeHint: count}
}

// Execute implements Adapter.
func (a *KVAdapter) Execute(ctx context.Context, params types.OpParams) (types.Payload, error) {
	p, ok := params.(*types.CacheLookupParams)
	if !ok {
		return nil, fmt.Errorf("kv store does not support %s", params.OpKind())
	}
	if p.Key != "" {
		return a.lookupKey(p.Key)
	}
	return a.lookupPattern(ctx, p.Pattern)
}

func (a *KVAdapter) lookupKey(key string) (types.Payload, error) {
	var values types.CacheValues
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil // miss, not an error
			}
			return err
		}
		return item.Value(func(val []byte) error {
			values = append(values, types.CacheValue{Key: key, Value: string(val)})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("kv lookup failed: %w", err)
	}
	logging.StoreDebug("kv key lookup %q: %d hit(s)", key, len(values))
	return values, nil
}

// lookupPattern iterates keys under the pattern's literal prefix. A
// trailing '*' is stripped; patterns without one behave as plain prefixes.
func (a *KVAdapter) lookupPattern(ctx context.Context, pattern string) (types.Payload, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	var values types.CacheValues
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()
		pfx := []byte(prefix)
		for it.Seek(pfx); it.ValidForPrefix(pfx); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			k := string(item.KeyCopy(nil))
			if err := item.Value(func(val []byte) error {
				values = append(values, types.CacheValue{Key: k, Value: string(val)})
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("kv pattern scan failed: %w", err)
	}
	logging.StoreDebug("kv pattern scan %q: %d hit(s)", pattern, len(values))
	return values, nil
}

// Set writes a key. Loader/test helper; the query pipeline never writes.
func (a *KVAdapter) Set(key, value string) error {
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
}

// Close releases the store.
func (a *KVAdapter) Close() error { return a.db.Close() }
