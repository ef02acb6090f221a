package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"stocky_backend/internal/feature/candles/domain"
	"stocky_backend/internal/feature/candles/domain/entity"
	"stocky_backend/internal/feature/candles/usecase"
)

// BreakerState is the circuit breaker state.
type BreakerState int

const (
	StateClosed   BreakerState = iota // calls pass through
	StateOpen                         // calls fail fast
	StateHalfOpen                     // one probe call allowed
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned while the breaker rejects calls. It wraps
// domain.ErrCacheUnavailable.
var ErrCircuitOpen = fmt.Errorf("%w: circuit breaker is open", domain.ErrCacheUnavailable)

// BreakerCache guards a CandleCache with a circuit breaker. After
// maxFailures consecutive errors the breaker opens and every call fails
// fast for resetTimeout, then a single probe decides whether to close again.
// A cache miss is not a failure.
type BreakerCache struct {
	inner usecase.CandleCache

	mu           sync.Mutex
	state        BreakerState
	failures     int
	maxFailures  int
	resetTimeout time.Duration
	openedAt     time.Time
	now          func() time.Time

	// OnStateChange is called on every transition while the lock is held.
	OnStateChange func(from, to BreakerState)
}

var (
	_ usecase.CandleCache      = (*BreakerCache)(nil)
	_ usecase.CacheInvalidator = (*BreakerCache)(nil)
)

// NewBreakerCache wraps inner. maxFailures < 1 is treated as 1.
func NewBreakerCache(inner usecase.CandleCache, maxFailures int, resetTimeout time.Duration) *BreakerCache {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &BreakerCache{
		inner:        inner,
		state:        StateClosed,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		now:          time.Now,
		OnStateChange: func(from, to BreakerState) {
			slog.Warn("cache circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	}
}

// Get reads through the breaker.
func (b *BreakerCache) Get(ctx context.Context, key string) (entity.CandleSeries, bool, error) {
	var (
		series entity.CandleSeries
		ok     bool
	)
	err := b.execute(func() error {
		var err error
		series, ok, err = b.inner.Get(ctx, key)
		return err
	})
	if err != nil {
		return entity.CandleSeries{}, false, err
	}
	return series, ok, nil
}

// Set writes through the breaker.
func (b *BreakerCache) Set(ctx context.Context, key string, series entity.CandleSeries, ttl time.Duration) error {
	return b.execute(func() error {
		return b.inner.Set(ctx, key, series, ttl)
	})
}

// DeletePrefix forwards to the wrapped cache when it supports invalidation.
func (b *BreakerCache) DeletePrefix(ctx context.Context, prefix string) error {
	inv, ok := b.inner.(usecase.CacheInvalidator)
	if !ok {
		return nil
	}
	return b.execute(func() error {
		return inv.DeletePrefix(ctx, prefix)
	})
}

// State returns the current breaker state.
func (b *BreakerCache) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *BreakerCache) execute(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.resetTimeout {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.transition(StateHalfOpen)
	case StateHalfOpen:
		// a probe is already in flight
		b.mu.Unlock()
		return ErrCircuitOpen
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.maxFailures {
			b.openedAt = b.now()
			b.transition(StateOpen)
		}
		return err
	}
	if b.state == StateHalfOpen {
		b.transition(StateClosed)
	}
	b.failures = 0
	return nil
}

func (b *BreakerCache) transition(to BreakerState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if to == StateClosed {
		b.failures = 0
	}
	if b.OnStateChange != nil {
		b.OnStateChange(from, to)
	}
}
