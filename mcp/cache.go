package mcp

import (
	"encoding/json"
	"sync"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"outfitter/config"
)

const (
	// DefaultCacheTTL is how long a successful invocation result is reused.
	DefaultCacheTTL = 15 * time.Minute

	// DefaultSweepInterval is how often expired entries are removed
	// independent of access.
	DefaultSweepInterval = 60 * time.Second
)

type cacheEntry struct {
	result    *mcptypes.CallToolResult
	expiresAt time.Time
}

// ResultCache remembers successful tool invocation results keyed by tool
// name and canonicalized arguments. Entries expire after the TTL; a
// background sweep keeps the map from accumulating dead entries between
// lookups, and Get double-checks expiry so a stale entry is never served.
type ResultCache struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry

	stop     chan struct{}
	stopOnce sync.Once
}

// NewResultCache builds a cache and starts its sweep loop. Zero values fall
// back to the defaults.
func NewResultCache(ttl, sweepInterval time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}

	c := &ResultCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		stop:    make(chan struct{}),
	}

	go c.sweepLoop(sweepInterval)

	return c
}

// Get returns the cached result for the invocation, if present and fresh.
func (c *ResultCache) Get(name string, args map[string]any) (*mcptypes.CallToolResult, bool) {
	key := cacheKey(name, args)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}

	return entry.result, true
}

// Put stores a successful invocation result.
func (c *ResultCache) Put(name string, args map[string]any, result *mcptypes.CallToolResult) {
	key := cacheKey(name, args)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		result:    result,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Len reports the live entry count.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops the sweep loop.
func (c *ResultCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *ResultCache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *ResultCache) sweep() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}

	if removed > 0 && config.DebugLog != nil {
		config.DebugLog.Printf("[Directory] Cache sweep removed %d expired entries, %d remain", removed, len(c.entries))
	}
}

// cacheKey builds a deterministic key from the tool name and arguments.
// encoding/json sorts map keys, so deep-equal argument maps always produce
// the same key regardless of construction order.
func cacheKey(name string, args map[string]any) string {
	data, err := json.Marshal(args)
	if err != nil {
		data = []byte(err.Error())
	}
	return name + "\x00" + string(data)
}
