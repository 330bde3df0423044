// Package cache holds rendered month ledgers so the htmx partials do not hit
// the backing store on every poll. Entries live for a short TTL and are
// dropped eagerly when a write invalidates them; the LRU bound keeps a burst
// of distinct user+month keys from growing without limit.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRU is a mutex-guarded LRU cache with per-entry TTL. Zero value is not
// usable; construct with New.
type LRU[T any] struct {
	mu    sync.Mutex
	cap   int
	ttl   time.Duration
	byKey map[string]*list.Element
	order *list.List // front = most recently used

	janitorStop chan struct{}
	stopOnce    sync.Once
}

type entry[T any] struct {
	key      string
	value    T
	deadline time.Time
}

// New builds an LRU holding at most capacity entries, each valid for ttl.
func New[T any](capacity int, ttl time.Duration) *LRU[T] {
	return &LRU[T]{
		cap:         capacity,
		ttl:         ttl,
		byKey:       make(map[string]*list.Element),
		order:       list.New(),
		janitorStop: make(chan struct{}),
	}
}

// Get returns the cached value for key, treating expired entries as misses
// and removing them on the spot.
func (c *LRU[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.byKey[key]
	if !ok {
		return zero, false
	}

	e := elem.Value.(*entry[T])
	if time.Now().After(e.deadline) {
		c.remove(elem)
		return zero, false
	}

	c.order.MoveToFront(elem)
	return e.value, true
}

// Set stores value under key, restarting its TTL. When the cache is full the
// least recently used entry makes room.
func (c *LRU[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[T]{key: key, value: value, deadline: time.Now().Add(c.ttl)}

	if elem, ok := c.byKey[key]; ok {
		elem.Value = e
		c.order.MoveToFront(elem)
		return
	}

	c.byKey[key] = c.order.PushFront(e)

	if c.order.Len() > c.cap {
		if oldest := c.order.Back(); oldest != nil {
			c.remove(oldest)
		}
	}
}

// Delete drops key if present. Used to invalidate a ledger after a write.
func (c *LRU[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.byKey[key]; ok {
		c.remove(elem)
	}
}

// Len reports how many entries are held, expired ones included until the
// janitor or a Get sweeps them.
func (c *LRU[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byKey)
}

// Prune removes every expired entry and reports how many went.
func (c *LRU[T]) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var stale []*list.Element
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*entry[T]).deadline) {
			stale = append(stale, elem)
		}
	}
	for _, elem := range stale {
		c.remove(elem)
	}
	return len(stale)
}

// StartJanitor prunes expired entries every interval until Stop is called.
func (c *LRU[T]) StartJanitor(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.Prune()
			case <-c.janitorStop:
				return
			}
		}
	}()
}

// Stop halts the janitor. Safe to call more than once, or without a janitor.
func (c *LRU[T]) Stop() {
	c.stopOnce.Do(func() {
		close(c.janitorStop)
	})
}

// remove expects c.mu held.
func (c *LRU[T]) remove(elem *list.Element) {
	delete(c.byKey, elem.Value.(*entry[T]).key)
	c.order.Remove(elem)
}
