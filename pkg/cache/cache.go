package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// Item represents a cached item with expiration
type Item struct {
	Value      interface{}
	Expiration int64
}

// Expired checks if the cache item has expired
func (item Item) Expired(now time.Time) bool {
	if item.Expiration == 0 {
		return false
	}
	return now.UnixNano() > item.Expiration
}

// Cache is a size-bounded, thread-safe cache whose entries expire after a TTL.
// Eviction beyond maxItems is least-recently-used.
type Cache struct {
	items             *lru.Cache
	defaultExpiration time.Duration
	now               func() time.Time
}

// New creates a cache holding at most maxItems entries, each living for ttl
// (0 means no expiry).
func New(maxItems int, ttl time.Duration) (*Cache, error) {
	if maxItems <= 0 {
		maxItems = 1000
	}
	items, err := lru.New(maxItems)
	if err != nil {
		return nil, err
	}
	return &Cache{
		items:             items,
		defaultExpiration: ttl,
		now:               time.Now,
	}, nil
}

// Set adds an item to the cache with the default expiration
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithExpiration(key, value, c.defaultExpiration)
}

// SetWithExpiration adds an item to the cache with a specific expiration time
func (c *Cache) SetWithExpiration(key string, value interface{}, d time.Duration) {
	var exp int64
	if d > 0 {
		exp = c.now().Add(d).UnixNano()
	}
	c.items.Add(key, Item{Value: value, Expiration: exp})
}

// Get retrieves an item from the cache. Expired items are dropped on read.
func (c *Cache) Get(key string) (interface{}, bool) {
	raw, found := c.items.Get(key)
	if !found {
		return nil, false
	}
	item := raw.(Item)
	if item.Expired(c.now()) {
		c.items.Remove(key)
		return nil, false
	}
	return item.Value, true
}

// Delete removes an item from the cache
func (c *Cache) Delete(key string) {
	c.items.Remove(key)
}

// Flush removes all items from the cache
func (c *Cache) Flush() {
	c.items.Purge()
}

// Count returns the number of items in the cache (including expired items)
func (c *Cache) Count() int {
	return c.items.Len()
}
