package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Cache is a thread-safe TTL store using sync.Map. Signal sinks use it to
// suppress repeats of the same alert within a window.
type Cache struct {
	m   sync.Map
	mu  sync.Mutex // serializes Add
	now func() time.Time
}

var (
	once     sync.Once
	instance *Cache
)

func GetInstance() *Cache {
	once.Do(func() {
		instance = NewCache()
	})
	return instance
}

func NewCache() *Cache {
	return &Cache{now: time.Now}
}

type cacheItem struct {
	Value     interface{}
	ExpiresAt int64 // unix nanos; 0 means no expiration
}

func (c *Cache) expired(item cacheItem) bool {
	return item.ExpiresAt > 0 && c.now().UnixNano() > item.ExpiresAt
}

func (c *Cache) expiry(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return c.now().Add(ttl).UnixNano()
}

// Set stores a value for a key. A zero ttl never expires.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.m.Store(key, cacheItem{Value: value, ExpiresAt: c.expiry(ttl)})
}

// Get returns (value, true) if found and not expired.
func (c *Cache) Get(key string) (interface{}, bool) {
	v, ok := c.m.Load(key)
	if !ok {
		return nil, false
	}
	item := v.(cacheItem)
	if c.expired(item) {
		c.m.Delete(key)
		return nil, false
	}
	return item.Value, true
}

// Add stores value only when key is absent or expired. Returns false when a
// live entry already exists.
func (c *Cache) Add(key string, value interface{}, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.Get(key); ok {
		return false
	}
	c.Set(key, value, ttl)
	return true
}

func (c *Cache) Delete(key string) {
	c.m.Delete(key)
}

// Purge drops expired entries.
func (c *Cache) Purge() int {
	n := 0
	c.m.Range(func(k, v interface{}) bool {
		if c.expired(v.(cacheItem)) {
			c.m.Delete(k)
			n++
		}
		return true
	})
	return n
}

// Key joins parts into a composite key.
func Key(parts ...interface{}) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = fmt.Sprintf("%v", p)
	}
	return strings.Join(s, "|")
}
