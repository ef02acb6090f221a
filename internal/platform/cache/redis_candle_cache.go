// Package cache provides CandleCache implementations for the candles usecase.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"stocky_backend/internal/feature/candles/domain"
	"stocky_backend/internal/feature/candles/domain/entity"
	"stocky_backend/internal/feature/candles/usecase"
)

// DefaultTTL is applied when Set is called with a non-positive ttl.
const DefaultTTL = time.Hour

const sourceSuffix = ":source"

// globEscaper quotes the SCAN MATCH metacharacters.
var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

// RedisCandleCache stores candle series in Redis.
// The candles are a JSON array of {t,o,h,l,c,v} objects at key; the
// provenance lives at key+":source" with the same TTL.
type RedisCandleCache struct {
	rdb *redis.Client
}

var (
	_ usecase.CandleCache      = (*RedisCandleCache)(nil)
	_ usecase.CacheInvalidator = (*RedisCandleCache)(nil)
)

// NewRedisCandleCache returns a cache backed by rdb. A nil client yields a
// cache that always misses and drops writes.
func NewRedisCandleCache(rdb *redis.Client) *RedisCandleCache {
	return &RedisCandleCache{rdb: rdb}
}

// Get reads a series. A missing key is a miss, not an error. A corrupted
// entry is deleted and reported as a miss.
func (c *RedisCandleCache) Get(ctx context.Context, key string) (entity.CandleSeries, bool, error) {
	if c.rdb == nil {
		return entity.CandleSeries{}, false, nil
	}

	vals, err := c.rdb.MGet(ctx, key, key+sourceSuffix).Result()
	if err != nil {
		return entity.CandleSeries{}, false, fmt.Errorf("%w: get %s: %w", domain.ErrCacheUnavailable, key, err)
	}
	raw, ok := vals[0].(string)
	if !ok || raw == "" {
		return entity.CandleSeries{}, false, nil
	}

	var candles []entity.Candle
	if err := json.Unmarshal([]byte(raw), &candles); err != nil {
		// Delete corrupted cache entry
		slog.Warn("dropping corrupted cache entry", "key", key, "error", err)
		_ = c.rdb.Del(ctx, key, key+sourceSuffix).Err()
		return entity.CandleSeries{}, false, nil
	}

	source := entity.SourceUnknown
	if s, ok := vals[1].(string); ok && s != "" {
		source = entity.Source(s)
	}
	return entity.CandleSeries{Candles: candles, Source: source}, true, nil
}

// Set writes the series and its provenance with the given ttl.
func (c *RedisCandleCache) Set(ctx context.Context, key string, series entity.CandleSeries, ttl time.Duration) error {
	if c.rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	candles := series.Candles
	if candles == nil {
		candles = []entity.Candle{}
	}
	b, err := json.Marshal(candles)
	if err != nil {
		return fmt.Errorf("marshal candles: %w", err)
	}

	_, err = c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, key, b, ttl)
		p.Set(ctx, key+sourceSuffix, string(series.Source), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: set %s: %w", domain.ErrCacheUnavailable, key, err)
	}
	return nil
}

// DeletePrefix deletes every key starting with prefix using SCAN.
// prefix is matched literally.
func (c *RedisCandleCache) DeletePrefix(ctx context.Context, prefix string) error {
	if c.rdb == nil {
		return nil
	}
	pattern := globEscaper.Replace(prefix) + "*"
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return fmt.Errorf("%w: scan %s: %w", domain.ErrCacheUnavailable, prefix, err)
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("%w: del: %w", domain.ErrCacheUnavailable, err)
			}
		}
		cursor = cur
		if cursor == 0 {
			return nil
		}
	}
}
