package geocode

import (
	"container/list"
	"context"
	"sync"
)

// defaultCacheSize bounds the resolution cache. The session-scale behavior of
// the cache never observably evicts; the bound is there so a long-running
// process cannot grow without limit.
const defaultCacheSize = 512

// CachedGeocoder wraps a Geocoder with an in-process LRU memo keyed by the
// normalized query. A hit bypasses the inner geocoder entirely. Safe for
// concurrent use.
type CachedGeocoder struct {
	inner Geocoder

	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List // front = most recently used
}

type cacheEntry struct {
	key        string
	candidates []Candidate
}

// NewCachedGeocoder wraps inner with an LRU of maxSize normalized queries.
// maxSize <= 0 selects the default bound.
func NewCachedGeocoder(inner Geocoder, maxSize int) *CachedGeocoder {
	if maxSize <= 0 {
		maxSize = defaultCacheSize
	}
	return &CachedGeocoder{
		inner:   inner,
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Candidates satisfies Geocoder. On a miss it delegates to the inner geocoder
// and stores the result, including empty result sets: a query that resolved to
// nothing will not be retried on the next keystroke replay.
func (c *CachedGeocoder) Candidates(ctx context.Context, query string) ([]Candidate, error) {
	key := Normalize(query)
	if key == "" {
		return nil, nil
	}

	if cands, ok := c.Lookup(key); ok {
		return cands, nil
	}

	cands, err := c.inner.Candidates(ctx, query)
	if err != nil {
		return nil, err
	}

	c.Store(key, cands)
	return cands, nil
}

// Lookup returns the cached candidates for an already-normalized key and
// marks the entry as recently used.
func (c *CachedGeocoder) Lookup(key string) ([]Candidate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).candidates, true
}

// Store inserts or refreshes an entry for an already-normalized key, evicting
// the least recently used entry when the bound is exceeded.
func (c *CachedGeocoder) Store(key string, candidates []Candidate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry).candidates = candidates
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&cacheEntry{key: key, candidates: candidates})
	c.items[key] = el

	if c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len reports the number of cached queries.
func (c *CachedGeocoder) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
