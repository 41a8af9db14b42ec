package listsync

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
)

// SessionStore is the process-lifetime ephemeral tier shared by every cache
// adapter. Entries are namespaced per account so switching the active
// account inside one running process never leaks another account's lists.
type SessionStore struct {
	c *lru.Cache[string, any]
}

// NewSessionStore creates a bounded store. size <= 0 picks a default large
// enough for every list of a handful of accounts.
func NewSessionStore(size int) (*SessionStore, error) {
	if size <= 0 {
		size = 256
	}
	c, err := lru.New[string, any](size)
	if err != nil {
		return nil, err
	}
	return &SessionStore{c: c}, nil
}

type cacheEntry[T any] struct {
	snap     Snapshot[T]
	storedAt time.Time
}

// CacheAdapter is the cache tier for one (account, list) pair. It is never
// a source of truth: the merge engine always overwrites it, and a stale or
// missing cache entry only costs a slow path, never correctness.
type CacheAdapter[T any] struct {
	store  *SessionStore
	schema Schema[T]
	pubKey string
	clock  clockwork.Clock
}

func NewCacheAdapter[T any](store *SessionStore, schema Schema[T], pubKey string, clock clockwork.Clock) *CacheAdapter[T] {
	return &CacheAdapter[T]{store: store, schema: schema, pubKey: pubKey, clock: clock}
}

func (c *CacheAdapter[T]) key() string {
	return "account:" + c.pubKey + ":list:" + c.schema.StorageKey
}

// legacyKey is the pre-multi-account cache key. It is consulted once, for
// migration, then cleared.
func (c *CacheAdapter[T]) legacyKey() string {
	return "list:" + c.schema.StorageKey
}

// Get returns the cached snapshot and the time it was stored.
func (c *CacheAdapter[T]) Get() (Snapshot[T], time.Time, bool) {
	if v, ok := c.store.c.Get(c.key()); ok {
		if e, ok := v.(cacheEntry[T]); ok {
			return e.snap, e.storedAt, true
		}
	}

	// One-time migration of the legacy single-account entry.
	if v, ok := c.store.c.Get(c.legacyKey()); ok {
		c.store.c.Remove(c.legacyKey())
		if e, ok := v.(cacheEntry[T]); ok {
			c.store.c.Add(c.key(), e)
			return e.snap, e.storedAt, true
		}
	}

	var zero Snapshot[T]
	return zero, time.Time{}, false
}

// Set overwrites the cached snapshot. Last write wins; there is no merging
// at this layer because the cache is disposable.
func (c *CacheAdapter[T]) Set(snap Snapshot[T]) {
	c.store.c.Add(c.key(), cacheEntry[T]{snap: snap, storedAt: c.clock.Now()})
}

// seedLegacy is a test hook that plants an entry under the legacy key.
func (c *CacheAdapter[T]) seedLegacy(snap Snapshot[T]) {
	c.store.c.Add(c.legacyKey(), cacheEntry[T]{snap: snap, storedAt: c.clock.Now()})
}
