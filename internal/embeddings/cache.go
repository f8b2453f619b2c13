package embeddings

import (
	"container/list"
	"sync"
)

// Cache is a content-addressed mapping from (content hash, model id) to
// embedding vectors. Safe for concurrent use. Duplicate puts are
// idempotent no-ops. The cache is a pure performance optimization:
// losing it never loses retrievable content.
type Cache interface {
	Get(contentHash, model string) ([]float32, bool)
	Put(contentHash, model string, vector []float32)
	Len() int
}

type cacheEntry struct {
	key     string
	vector  []float32
	element *list.Element
}

type lruCache struct {
	mu         sync.Mutex
	maxEntries int
	items      map[string]*cacheEntry
	order      *list.List
}

// NewLRUCache creates an embedding cache capped at maxEntries.
// maxEntries <= 0 disables eviction (unbounded growth, acceptable at
// the corpus sizes this targets).
func NewLRUCache(maxEntries int) Cache {
	return &lruCache{
		maxEntries: maxEntries,
		items:      make(map[string]*cacheEntry),
		order:      list.New(),
	}
}

func cacheKey(contentHash, model string) string {
	return contentHash + "|" + model
}

func (c *lruCache) Get(contentHash, model string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.items[cacheKey(contentHash, model)]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(ent.element)
	return ent.vector, true
}

func (c *lruCache) Put(contentHash, model string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(contentHash, model)
	if ent, ok := c.items[key]; ok {
		// Entries are append-only; a duplicate put keeps the original.
		c.order.MoveToFront(ent.element)
		return
	}

	if c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		c.evictOldest()
	}

	stored := make([]float32, len(vector))
	copy(stored, vector)

	elem := c.order.PushFront(key)
	c.items[key] = &cacheEntry{key: key, vector: stored, element: elem}
}

func (c *lruCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *lruCache) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	key := elem.Value.(string)
	if ent, ok := c.items[key]; ok {
		c.order.Remove(ent.element)
		delete(c.items, key)
	}
}
