// ABOUTME: Process-wide tiered cache combining a bounded memory tier with the durable store
// ABOUTME: Read-through with promotion on durable hits, synchronous write-through on sets
package store

import (
	"container/list"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/harperreed/sift/models"
)

const defaultMemoryCapacity = 1024

// Cache is the process-wide tiered cache. There is exactly one instance per
// process, constructed explicitly and injected into request handlers. It has
// no notion of per-user partitioning: callers must owner-prefix every key
// (see models key builders). The key namespace is what enforces tenant
// isolation, not the cache.
type Cache struct {
	mu    sync.Mutex
	once  sync.Once
	mode  Mode
	store *Store

	// memory tier: LRU with fixed capacity and optional advisory TTL
	capacity int
	ttl      time.Duration
	entries  map[string]*list.Element
	order    *list.List
}

type memoryEntry struct {
	key       string
	value     *models.CacheEntry
	writtenAt time.Time
}

// Option configures the cache.
type Option func(*Cache)

// WithCapacity bounds the memory tier entry count.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithTTL sets an advisory expiry on memory-tier entries. Expired entries
// fall through to the durable tier on Get; expiry is never the sole source
// of truth.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		c.ttl = d
	}
}

func NewCache(store *Store, opts ...Option) *Cache {
	c := &Cache{
		store:    store,
		capacity: defaultMemoryCapacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize connects the durable tier. Safe to call more than once; only
// the first call does work. Degradation is logged once, here, and never
// surfaced as an error from Get/Set.
func (c *Cache) Initialize() Mode {
	c.once.Do(func() {
		mode, reason := c.store.Connect()
		c.mode = mode
		if mode == ModeMemoryOnly && reason != nil {
			log.Printf("cache: durable tier unavailable, continuing memory-only: %v", reason)
		}
	})
	return c.mode
}

// Get returns the entry for key, checking the memory tier first. A durable
// hit backfills the memory tier before returning, so repeated reads stop
// touching the durable store.
func (c *Cache) Get(key string) (*models.CacheEntry, bool) {
	c.mu.Lock()
	if elem, ok := c.entries[key]; ok {
		me := elem.Value.(*memoryEntry)
		if c.ttl == 0 || time.Since(me.writtenAt) < c.ttl {
			c.order.MoveToFront(elem)
			c.mu.Unlock()
			return me.value, true
		}
		// advisory expiry: drop and fall through to the durable tier
		c.order.Remove(elem)
		delete(c.entries, key)
	}
	c.mu.Unlock()

	raw, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}

	c.mu.Lock()
	c.promote(key, &entry)
	c.mu.Unlock()
	return &entry, true
}

// Set writes to both tiers synchronously, memory first. A crash between the
// two writes leaves the durable tier behind the memory tier, which is
// acceptable: memory is authoritative for the current process lifetime.
func (c *Cache) Set(key string, entry *models.CacheEntry) {
	c.mu.Lock()
	c.promote(key, entry)
	c.mu.Unlock()

	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	c.store.Set(key, raw)
}

// Clear empties both tiers.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.mu.Unlock()

	c.store.Clear()
}

// Mode reports the durable tier's state decided at Initialize.
func (c *Cache) Mode() Mode {
	return c.store.Mode()
}

// promote inserts or refreshes key in the memory tier, evicting the least
// recently used entry when over capacity. Caller holds c.mu.
func (c *Cache) promote(key string, entry *models.CacheEntry) {
	if elem, ok := c.entries[key]; ok {
		me := elem.Value.(*memoryEntry)
		me.value = entry
		me.writtenAt = time.Now()
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&memoryEntry{key: key, value: entry, writtenAt: time.Now()})
	c.entries[key] = elem

	for len(c.entries) > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*memoryEntry).key)
	}
}
