package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
)

// lruItem is the internal structure stored in the recency list.
type lruItem[K comparable, V any] struct {
	key   K
	value V
}

// LRUCache is a generic, thread-safe, in-memory cache with a fixed size and a
// least-recently-used eviction policy. Unlike InMemoryCache it cannot grow
// without bound, which matters when the key space is open-ended (e.g. one
// entry per distinct message text).
type LRUCache[K comparable, V any] struct {
	maxSize int

	mu    sync.Mutex
	ll    *list.List          // Tracks item recency.
	cache map[K]*list.Element // Fast key lookups.
}

// NewLRUCache creates a new size-limited, in-memory LRU cache. maxSize must be
// greater than zero.
func NewLRUCache[K comparable, V any](maxSize int) (*LRUCache[K, V], error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("maxSize must be greater than 0")
	}
	return &LRUCache[K, V]{
		maxSize: maxSize,
		ll:      list.New(),
		cache:   make(map[K]*list.Element),
	}, nil
}

// FetchFromCache retrieves an item and marks it as most recently used.
func (c *LRUCache[K, V]) FetchFromCache(_ context.Context, key K) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.ll.MoveToFront(elem)
		return elem.Value.(*lruItem[K, V]).value, nil
	}
	var zero V
	return zero, fmt.Errorf("key '%v' not found in LRU cache", key)
}

// WriteToCache adds an item, evicting the least recently used entry when the
// cache is at capacity.
func (c *LRUCache[K, V]) WriteToCache(_ context.Context, key K, value V) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.ll.MoveToFront(elem)
		elem.Value.(*lruItem[K, V]).value = value
		return nil
	}

	elem := c.ll.PushFront(&lruItem[K, V]{key: key, value: value})
	c.cache[key] = elem

	if c.ll.Len() > c.maxSize {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.cache, oldest.Value.(*lruItem[K, V]).key)
		}
	}
	return nil
}

// Len reports the number of cached entries.
func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
