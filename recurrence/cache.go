package recurrence

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cyp0633/libslots/datetime"
)

// CacheEntry represents a cached generation result
type CacheEntry struct {
	Occurrences []Occurrence
	ExpiresAt   time.Time
	AccessedAt  time.Time
}

// PreviewCache memoises generated previews. Form inputs are re-submitted on
// every keystroke, so identical inputs are common.
type PreviewCache struct {
	entries         map[string]*CacheEntry
	mutex           sync.RWMutex
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
	now             func() time.Time
}

// CacheConfig holds configuration for the preview cache
type CacheConfig struct {
	TTL             time.Duration // How long entries stay valid
	MaxEntries      int           // Maximum number of entries before eviction
	CleanupInterval time.Duration // How often to run cleanup
}

// DefaultCacheConfig provides sensible defaults for preview caching
var DefaultCacheConfig = CacheConfig{
	TTL:             5 * time.Minute,
	MaxEntries:      500,
	CleanupInterval: time.Minute,
}

// NewPreviewCache creates a cache and starts its cleanup goroutine.
func NewPreviewCache(config CacheConfig) *PreviewCache {
	if config.TTL <= 0 {
		config.TTL = DefaultCacheConfig.TTL
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultCacheConfig.MaxEntries
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCacheConfig.CleanupInterval
	}

	cache := &PreviewCache{
		entries:         make(map[string]*CacheEntry),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
		stopCleanup:     make(chan struct{}),
		now:             time.Now,
	}

	go cache.cleanupLoop()

	return cache
}

// cacheKey hashes every field that influences generation, including the zone
// the calendar reads fields in. The end date is keyed by its calendar day, the
// same day EffectiveEnd reads.
func cacheKey(cal datetime.Calendar, in Input) string {
	hasher := sha256.New()

	hasher.Write([]byte(cal.Location().String()))
	hasher.Write([]byte{0})
	hasher.Write([]byte(in.BaseStartAt.Format(time.RFC3339Nano)))
	hasher.Write([]byte{0})
	hasher.Write([]byte(in.BaseEndAt.Format(time.RFC3339Nano)))
	hasher.Write([]byte{0})
	hasher.Write([]byte(in.Settings.Type.String()))
	hasher.Write([]byte{0})

	if endDate, ok := in.Settings.EndDate.Get(); ok {
		hasher.Write([]byte(cal.StartOfDay(endDate).Format(datetime.LayoutDate)))
	}
	hasher.Write([]byte{0})

	days := append([]int(nil), in.Settings.SelectedDays...)
	sort.Ints(days)
	for _, d := range days {
		hasher.Write([]byte(strconv.Itoa(d)))
		hasher.Write([]byte{','})
	}

	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// Get returns a copy of a cached result if it exists and hasn't expired
func (c *PreviewCache) Get(key string) ([]Occurrence, bool) {
	now := c.now()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}
	if now.After(entry.ExpiresAt) {
		delete(c.entries, key)
		return nil, false
	}

	entry.AccessedAt = now
	return append([]Occurrence(nil), entry.Occurrences...), true
}

// Set stores a copy of occurrences under key
func (c *PreviewCache) Set(key string, occurrences []Occurrence) {
	now := c.now()
	entry := &CacheEntry{
		Occurrences: append([]Occurrence(nil), occurrences...),
		ExpiresAt:   now.Add(c.ttl),
		AccessedAt:  now,
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = entry
	if len(c.entries) > c.maxEntries {
		c.cleanup()
	}
}

// cleanup removes expired entries, then the least recently accessed ones
// while over the limit. Callers hold the write lock.
func (c *PreviewCache) cleanup() {
	now := c.now()

	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
		}
	}

	if len(c.entries) <= c.maxEntries {
		return
	}

	type keyAccess struct {
		key        string
		accessedAt time.Time
	}
	keyAccessList := make([]keyAccess, 0, len(c.entries))
	for key, entry := range c.entries {
		keyAccessList = append(keyAccessList, keyAccess{key: key, accessedAt: entry.AccessedAt})
	}
	sort.Slice(keyAccessList, func(i, j int) bool {
		return keyAccessList[i].accessedAt.Before(keyAccessList[j].accessedAt)
	})

	entriesToRemove := len(c.entries) - c.maxEntries
	for i := 0; i < entriesToRemove; i++ {
		delete(c.entries, keyAccessList[i].key)
	}
}

func (c *PreviewCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			c.cleanup()
			c.mutex.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine and clears the cache. It is safe to call
// more than once.
func (c *PreviewCache) Close() {
	c.closeOnce.Do(func() {
		close(c.stopCleanup)
	})
	c.mutex.Lock()
	c.entries = make(map[string]*CacheEntry)
	c.mutex.Unlock()
}

// Stats returns cache statistics
func (c *PreviewCache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	now := c.now()
	expired := 0
	for _, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			expired++
		}
	}

	return CacheStats{
		TotalEntries:   len(c.entries),
		ExpiredEntries: expired,
		ActiveEntries:  len(c.entries) - expired,
	}
}

// CacheStats provides information about cache occupancy
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
}
