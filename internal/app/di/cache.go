package di

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"stocky_backend/internal/feature/candles/usecase"
	"stocky_backend/internal/platform/cache"
	"stocky_backend/internal/platform/config"
	"stocky_backend/internal/platform/metrics"
	infraredis "stocky_backend/internal/platform/redis"
)

// BreakerObserver receives circuit breaker transitions.
type BreakerObserver interface {
	SetCacheBreakerState(state int, opened bool)
}

var _ BreakerObserver = (*metrics.Metrics)(nil)

// RedisConfig maps the application config onto the redis client config.
func RedisConfig(cfg *config.Config) infraredis.Config {
	return infraredis.Config{
		URL:            cfg.Redis.URL,
		Host:           cfg.Redis.Host,
		Port:           cfg.Redis.Port,
		Password:       cfg.Redis.Password,
		DB:             cfg.Redis.DB,
		ConnectTimeout: cfg.Redis.ConnectTimeout,
	}
}

// NewCandleCache creates the configured cache backend. The returned close
// function releases the backend's resources and is never nil.
//
// When Redis cannot be reached the server runs without a cache, matching
// the behavior of a nil cache in the usecase.
func NewCandleCache(ctx context.Context, cfg *config.Config, obs BreakerObserver) (usecase.CandleCache, func(), error) {
	noop := func() {}

	switch cfg.Cache.Backend {
	case config.CacheBackendNone:
		return nil, noop, nil
	case config.CacheBackendMemory:
		return cache.NewMemoryCandleCache(), noop, nil
	case config.CacheBackendRedis:
		rdb, err := infraredis.NewRedisClient(ctx, RedisConfig(cfg))
		if err != nil {
			slog.Warn("Redis unavailable. Running without cache.", "error", err)
			return nil, noop, nil
		}
		closeFn := func() {
			if err := rdb.Close(); err != nil {
				slog.Error("failed to close Redis client", "error", err)
			}
		}
		return NewBreakerRedisCache(rdb, cfg, obs), closeFn, nil
	default:
		return nil, noop, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// NewBreakerRedisCache wraps a Redis cache with a circuit breaker that
// reports its transitions to obs.
func NewBreakerRedisCache(rdb *redis.Client, cfg *config.Config, obs BreakerObserver) *cache.BreakerCache {
	b := cache.NewBreakerCache(cache.NewRedisCandleCache(rdb), cfg.Cache.BreakerFailures, cfg.Cache.BreakerReset)
	if obs != nil {
		log := b.OnStateChange
		b.OnStateChange = func(from, to cache.BreakerState) {
			if log != nil {
				log(from, to)
			}
			obs.SetCacheBreakerState(int(to), to == cache.StateOpen)
		}
	}
	return b
}
