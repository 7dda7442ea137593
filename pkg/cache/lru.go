// Package cache keeps rendered responses of read-only HTTP routes, such as
// form definitions, until they expire or the data behind them is replaced.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	key         string
	body        []byte
	contentType string
	expiresAt   time.Time
}

// Responses is a thread-safe LRU cache of response bodies with a TTL.
//
// Every InvalidateAll starts a new generation. A response rendered during
// an older generation is dropped by Set, so a slow request cannot put stale
// data back after an invalidation.
type Responses struct {
	mu      sync.Mutex
	order   *list.List
	items   map[string]*list.Element
	maxSize int
	ttl     time.Duration
	gen     uint64
	now     func() time.Time
}

// New creates a cache holding at most maxSize responses for ttl each.
func New(maxSize int, ttl time.Duration) *Responses {
	if maxSize < 1 {
		maxSize = 1
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Responses{
		order:   list.New(),
		items:   make(map[string]*list.Element, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached response for key and marks it recently used.
// Expired entries are removed.
func (c *Responses) Get(key string) (body []byte, contentType string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, "", false
	}
	e := el.Value.(*entry)
	if c.now().After(e.expiresAt) {
		c.remove(el)
		return nil, "", false
	}
	c.order.MoveToFront(el)
	return e.body, e.contentType, true
}

// Generation returns the current generation, to be passed to Set.
func (c *Responses) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Set stores a response rendered during generation gen and reports whether
// it was kept. The least recently used entry is evicted when full.
func (c *Responses) Set(key string, gen uint64, body []byte, contentType string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return false
	}
	e := &entry{key: key, body: body, contentType: contentType, expiresAt: c.now().Add(c.ttl)}
	if el, ok := c.items[key]; ok {
		el.Value = e
		c.order.MoveToFront(el)
		return true
	}
	if c.order.Len() >= c.maxSize {
		c.remove(c.order.Back())
	}
	c.items[key] = c.order.PushFront(e)
	return true
}

// InvalidateAll drops every entry and starts a new generation.
func (c *Responses) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	clear(c.items)
	c.gen++
}

// Len returns the number of entries, including expired ones not yet removed.
func (c *Responses) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Responses) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}
