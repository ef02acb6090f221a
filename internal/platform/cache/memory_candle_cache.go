package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"stocky_backend/internal/feature/candles/domain/entity"
	"stocky_backend/internal/feature/candles/usecase"
)

type memoryEntry struct {
	candles   []entity.Candle
	source    entity.Source
	expiresAt time.Time
}

// MemoryCandleCache is an in-process CandleCache. Expired entries are
// dropped lazily on read; there is no background eviction.
// Every read and write copies the candles, so callers never share slices.
type MemoryCandleCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

var (
	_ usecase.CandleCache      = (*MemoryCandleCache)(nil)
	_ usecase.CacheInvalidator = (*MemoryCandleCache)(nil)
)

// NewMemoryCandleCache returns an empty in-process cache.
func NewMemoryCandleCache() *MemoryCandleCache {
	return &MemoryCandleCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns a copy of the series stored at key if it has not expired.
func (c *MemoryCandleCache) Get(_ context.Context, key string) (entity.CandleSeries, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return entity.CandleSeries{}, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		// re-check: a concurrent Set may have refreshed the entry
		if cur, ok := c.entries[key]; ok && !c.now().Before(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return entity.CandleSeries{}, false, nil
	}
	return entity.CandleSeries{Candles: entity.CloneCandles(e.candles), Source: e.source}, true, nil
}

// Set stores a copy of series at key. Same-key writes are last-write-wins.
func (c *MemoryCandleCache) Set(_ context.Context, key string, series entity.CandleSeries, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	candles := entity.CloneCandles(series.Candles)
	if candles == nil {
		candles = []entity.Candle{}
	}
	c.mu.Lock()
	c.entries[key] = memoryEntry{
		candles:   candles,
		source:    series.Source,
		expiresAt: c.now().Add(ttl),
	}
	c.mu.Unlock()
	return nil
}

// DeletePrefix removes every entry whose key starts with prefix.
func (c *MemoryCandleCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *MemoryCandleCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
