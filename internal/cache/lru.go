// Package cache holds the bounded in-memory and shared caches used by
// autocomplete.
package cache

import (
	"sync"
	"time"
)

type lruNode[V any] struct {
	key      string
	value    V
	storedAt time.Time
	prev     *lruNode[V]
	next     *lruNode[V]
}

// LRU is a thread-safe, size-bounded cache whose entries go stale ttl after
// they were stored. Staleness is checked on read; stale entries are dropped
// when touched and otherwise age out through LRU eviction.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	onEvict  func(key string)

	items map[string]*lruNode[V]
	// head.next is the most recently used entry, tail.prev the least.
	head *lruNode[V]
	tail *lruNode[V]
}

// NewLRU creates an LRU holding at most capacity entries.
// Parameters:
//   - capacity: maximum number of entries; <= 0 uses 10000.
//   - ttl: freshness window; <= 0 uses five minutes.
//   - now: clock used to judge freshness; nil uses time.Now.
// Returns:
//   - *LRU[V]: empty cache.
func NewLRU[V any](capacity int, ttl time.Duration, now func() time.Time) *LRU[V] {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	c := &LRU[V]{
		capacity: capacity,
		ttl:      ttl,
		now:      now,
		items:    make(map[string]*lruNode[V]),
		head:     &lruNode[V]{},
		tail:     &lruNode[V]{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// OnEvict registers fn to be called with the key of each capacity eviction.
func (c *LRU[V]) OnEvict(fn func(key string)) {
	c.mu.Lock()
	c.onEvict = fn
	c.mu.Unlock()
}

// Get returns the value for key if it was stored less than ttl ago.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	node, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if c.now().Sub(node.storedAt) >= c.ttl {
		c.unlink(node)
		delete(c.items, key)
		return zero, false
	}
	c.moveToFront(node)
	return node.value, true
}

// PutAt stores value under key with an explicit store time, replacing any
// previous entry. The least recently used entry is evicted when full.
func (c *LRU[V]) PutAt(key string, value V, storedAt time.Time) {
	c.mu.Lock()
	var evicted []string
	if node, ok := c.items[key]; ok {
		node.value = value
		node.storedAt = storedAt
		c.moveToFront(node)
	} else {
		node := &lruNode[V]{key: key, value: value, storedAt: storedAt}
		c.pushFront(node)
		c.items[key] = node
		for len(c.items) > c.capacity {
			oldest := c.tail.prev
			c.unlink(oldest)
			delete(c.items, oldest.key)
			evicted = append(evicted, oldest.key)
		}
	}
	onEvict := c.onEvict
	c.mu.Unlock()

	if onEvict != nil {
		for _, k := range evicted {
			onEvict(k)
		}
	}
}

// Len returns the number of entries, fresh or stale.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRU[V]) pushFront(node *lruNode[V]) {
	node.prev = c.head
	node.next = c.head.next
	c.head.next.prev = node
	c.head.next = node
}

func (c *LRU[V]) unlink(node *lruNode[V]) {
	node.prev.next = node.next
	node.next.prev = node.prev
	node.prev = nil
	node.next = nil
}

func (c *LRU[V]) moveToFront(node *lruNode[V]) {
	c.unlink(node)
	c.pushFront(node)
}
