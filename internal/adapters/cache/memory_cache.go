package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shieldtech/linkshield/internal/core"
	"github.com/shieldtech/linkshield/internal/urlutil"
	"go.uber.org/zap"
)

// keyPrefix namespaces verdict cache keys
const keyPrefix = "shield:url:"

// entry is one cached verdict with its expiry
type entry struct {
	verdict   core.Verdict
	expiresAt time.Time
}

// MemoryCache is an in-memory implementation of the VerdictCache interface
type MemoryCache struct {
	entries     map[string]entry
	mu          sync.RWMutex
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(logger *zap.Logger, cleanupFreq time.Duration) *MemoryCache {
	cache := &MemoryCache{
		entries:     make(map[string]entry),
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	go cache.startCleanupTask()

	return cache
}

// Get retrieves a cached verdict for a URL
func (c *MemoryCache) Get(ctx context.Context, rawURL string) (*core.Verdict, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[urlutil.CacheKey(keyPrefix, rawURL)]
	if !ok {
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		return nil, false
	}

	verdict := e.verdict
	return &verdict, true
}

// Set stores a verdict for a URL with the given TTL
func (c *MemoryCache) Set(ctx context.Context, rawURL string, verdict *core.Verdict, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[urlutil.CacheKey(keyPrefix, rawURL)] = entry{
		verdict:   *verdict,
		expiresAt: time.Now().Add(ttl),
	}
}

// Cleanup removes expired entries
func (c *MemoryCache) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expiredCount := 0

	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			expiredCount++
		}
	}

	c.logger.Debug("Cleaned up expired cache entries", zap.Int("expired_count", expiredCount))
	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (c *MemoryCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task
func (c *MemoryCache) Stop() {
	close(c.stopCh)
}
