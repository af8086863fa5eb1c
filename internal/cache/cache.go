// Package cache provides the read-through response cache: MD5-keyed on
// the normalized query, TTL-bounded, with batch eviction of the oldest
// entries when the cap is exceeded.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"fedquery/internal/logging"
	"fedquery/internal/types"
)

// evictBatch is how many of the oldest entries go when the cache
// overflows its cap.
const evictBatch = 20

type entry struct {
	response   *types.Response
	insertedAt time.Time
}

type ResultCache struct {
	mu      sync.Mutex
	entries map[string]*entry
	cap     int
	ttl     time.Duration
	nowFn   func() time.Time

	hits   int64
	misses int64
}

func New(cap int, ttl time.Duration) *ResultCache {
	if cap <= 0 {
		cap = 100
	}
	return &ResultCache{
		entries: make(map[string]*entry),
		cap:     cap,
		ttl:     ttl,
		nowFn:   time.Now,
	}
}

// Key derives the cache key from the normalized query text plus the
// options that change the response shape.
func Key(query string, opts types.QueryOptions) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	material := fmt.Sprintf("%s|limit=%d|strategy=%s|db=%s|min=%g",
		normalized, opts.Limit, opts.Strategy, opts.Database, opts.MinScore)
	sum := md5.Sum([]byte(material))
	return hex.EncodeToString(sum[:])
}

// Get returns a deep copy of the cached response, or nil on miss or
// expiry. The copy has FromCache set.
func (c *ResultCache) Get(key string) *types.Response {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil
	}
	if c.nowFn().Sub(e.insertedAt) > c.ttl {
		delete(c.entries, key)
		c.misses++
		logging.CacheDebug("expired entry %s", key)
		return nil
	}
	c.hits++
	out := e.response.Clone()
	out.Metadata.FromCache = true
	return out
}

// Set stores a deep copy of the response, evicting the oldest batch when
// the cap is exceeded.
func (c *ResultCache) Set(key string, resp *types.Response) {
	if resp == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry{response: resp.Clone(), insertedAt: c.nowFn()}
	if len(c.entries) > c.cap {
		c.evictOldest()
	}
}

// evictOldest removes the evictBatch entries with the earliest insertion
// times. Caller holds the lock.
func (c *ResultCache) evictOldest() {
	type aged struct {
		key string
		at  time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{k, e.insertedAt})
	}
	// Selection of the oldest batch; the cache is small enough that a
	// full sort would also be fine.
	n := evictBatch
	if n > len(all) {
		n = len(all)
	}
	for i := 0; i < n; i++ {
		oldest := i
		for j := i + 1; j < len(all); j++ {
			if all[j].at.Before(all[oldest].at) {
				oldest = j
			}
		}
		all[i], all[oldest] = all[oldest], all[i]
		delete(c.entries, all[i].key)
	}
	logging.Cache("evicted %d oldest entries, %d remain", n, len(c.entries))
}

// Stats reports hit/miss counters and the current size.
func (c *ResultCache) Stats() (hits, misses int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.entries)
}
