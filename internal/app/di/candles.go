package di

import (
	"context"
	"time"

	"stocky_backend/internal/feature/candles/usecase"
	"stocky_backend/internal/platform/config"
	"stocky_backend/internal/platform/metrics"
	"stocky_backend/internal/shared/ratelimiter"
)

// NewCandlesUsecase wires providers, cache and metrics into a CandlesUsecase.
// m may be nil. The returned close function is never nil.
func NewCandlesUsecase(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*usecase.CandlesUsecase, func(), error) {
	providers, err := NewMarketProviders(cfg.Providers.Order)
	if err != nil {
		return nil, func() {}, err
	}
	policy, err := usecase.ParseEmptyResultPolicy(cfg.Providers.EmptyResultPolicy)
	if err != nil {
		return nil, func() {}, err
	}

	var obs BreakerObserver
	if m != nil {
		obs = m
	}
	candleCache, closeFn, err := NewCandleCache(ctx, cfg, obs)
	if err != nil {
		return nil, closeFn, err
	}

	opts := []usecase.Option{
		usecase.WithCacheTTL(cfg.Cache.TTL),
		usecase.WithEmptyResultPolicy(policy),
	}
	if m != nil {
		opts = append(opts, usecase.WithMetrics(m))
	}
	return usecase.NewCandlesUsecase(providers, candleCache, opts...), closeFn, nil
}

// NewWarmUsecase creates a WarmUsecase throttled to the configured rate.
func NewWarmUsecase(cfg *config.Config, candles usecase.CandlesGetter) *usecase.WarmUsecase {
	rl := ratelimiter.NewRateLimiter(cfg.Warm.RatePerMinute, time.Minute)
	return usecase.NewWarmUsecase(candles, rl, cfg.WarmResolutions(), cfg.Warm.LookbackDays)
}
