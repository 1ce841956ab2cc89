package keystore

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/caredata-io/school-health-module-encryption/types"
)

// DefaultCacheTTL bounds how long unwrapped material stays cached
const DefaultCacheTTL = 5 * time.Minute

// janitorInterval is how often expired entries are swept
const janitorInterval = time.Minute

type cacheEntry struct {
	material  *types.SecureBytes
	expiresAt time.Time
}

// UnwrapCache holds unwrapped key material for a bounded time so
// persistent stores do not unwrap on every access. Material is zeroed
// on eviction.
type UnwrapCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
	hits    uint64
	misses  uint64
	done    chan struct{}
	once    sync.Once
	logger  zerolog.Logger
}

// NewUnwrapCache creates a cache with the given TTL (DefaultCacheTTL
// when zero) and starts the background sweeper.
func NewUnwrapCache(ttl time.Duration) *UnwrapCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &UnwrapCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
		done:    make(chan struct{}),
		logger:  log.With().Str("component", "unwrap-cache").Logger(),
	}
	go c.janitor()
	return c
}

// Get returns cached material, or nil on miss or expiry
func (c *UnwrapCache) Get(keyID string) *types.SecureBytes {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[keyID]
	if !ok {
		c.misses++
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		entry.material.Clear()
		delete(c.entries, keyID)
		c.misses++
		return nil
	}
	c.hits++
	return entry.material
}

// Set caches material under the key ID, replacing any prior entry
func (c *UnwrapCache) Set(keyID string, material []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prior, ok := c.entries[keyID]; ok {
		prior.material.Clear()
	}
	c.entries[keyID] = &cacheEntry{
		material:  types.NewSecureBytes(material),
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Delete removes and zeroes one entry
func (c *UnwrapCache) Delete(keyID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[keyID]; ok {
		entry.material.Clear()
		delete(c.entries, keyID)
	}
}

// Stats returns hit and miss counters
func (c *UnwrapCache) Stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Close stops the sweeper and zeroes every entry
func (c *UnwrapCache) Close() {
	c.once.Do(func() {
		close(c.done)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, entry := range c.entries {
		entry.material.Clear()
		delete(c.entries, id)
	}
}

func (c *UnwrapCache) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *UnwrapCache) sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, entry := range c.entries {
		if now.After(entry.expiresAt) {
			entry.material.Clear()
			delete(c.entries, id)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug().Int("removed", removed).Msg("Swept expired cache entries")
	}
}
