package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocky_backend/internal/feature/candles/domain"
	"stocky_backend/internal/feature/candles/domain/entity"
)

// mockCandleCache はテスト用のCandleCacheモック実装です。
type mockCandleCache struct {
	getFn    func(ctx context.Context, key string) (entity.CandleSeries, bool, error)
	setFn    func(ctx context.Context, key string, series entity.CandleSeries, ttl time.Duration) error
	getCalls int
	setCalls int
}

func (m *mockCandleCache) Get(ctx context.Context, key string) (entity.CandleSeries, bool, error) {
	m.getCalls++
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return entity.CandleSeries{}, false, nil
}

func (m *mockCandleCache) Set(ctx context.Context, key string, series entity.CandleSeries, ttl time.Duration) error {
	m.setCalls++
	if m.setFn != nil {
		return m.setFn(ctx, key, series, ttl)
	}
	return nil
}

type breakerClock struct{ t time.Time }

func (c *breakerClock) now() time.Time          { return c.t }
func (c *breakerClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(inner *mockCandleCache, maxFailures int) (*BreakerCache, *breakerClock) {
	clock := &breakerClock{t: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)}
	b := NewBreakerCache(inner, maxFailures, 10*time.Second)
	b.now = clock.now
	b.OnStateChange = nil
	return b, clock
}

func TestBreakerCache_StartsClosed(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(&mockCandleCache{}, 3)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerCache_MissIsNotFailure(t *testing.T) {
	t.Parallel()

	inner := &mockCandleCache{}
	b, _ := newTestBreaker(inner, 1)

	for i := 0; i < 5; i++ {
		_, ok, err := b.Get(context.Background(), testKey)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 5, inner.getCalls)
}

func TestBreakerCache_OpensAfterFailures(t *testing.T) {
	t.Parallel()

	errFail := errors.New("connection refused")
	inner := &mockCandleCache{
		getFn: func(context.Context, string) (entity.CandleSeries, bool, error) {
			return entity.CandleSeries{}, false, errFail
		},
	}
	b, _ := newTestBreaker(inner, 3)

	for i := 0; i < 3; i++ {
		_, _, err := b.Get(context.Background(), testKey)
		assert.ErrorIs(t, err, errFail)
	}
	assert.Equal(t, StateOpen, b.State())

	// Calls should be rejected immediately
	_, _, err := b.Get(context.Background(), testKey)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)
	err = b.Set(context.Background(), testKey, entity.CandleSeries{}, time.Hour)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 3, inner.getCalls)
	assert.Zero(t, inner.setCalls)
}

func TestBreakerCache_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	fail := true
	inner := &mockCandleCache{
		setFn: func(context.Context, string, entity.CandleSeries, time.Duration) error {
			if fail {
				return errors.New("timeout")
			}
			return nil
		},
	}
	b, _ := newTestBreaker(inner, 2)

	_ = b.Set(context.Background(), testKey, entity.CandleSeries{}, time.Hour)
	fail = false
	require.NoError(t, b.Set(context.Background(), testKey, entity.CandleSeries{}, time.Hour))
	fail = true
	_ = b.Set(context.Background(), testKey, entity.CandleSeries{}, time.Hour)

	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerCache_HalfOpenRecovery(t *testing.T) {
	t.Parallel()

	fail := true
	inner := &mockCandleCache{
		getFn: func(context.Context, string) (entity.CandleSeries, bool, error) {
			if fail {
				return entity.CandleSeries{}, false, errors.New("fail")
			}
			return entity.CandleSeries{Candles: sampleCandles(), Source: entity.SourcePolygon}, true, nil
		},
	}
	b, clock := newTestBreaker(inner, 2)
	var transitions []string
	b.OnStateChange = func(from, to BreakerState) { transitions = append(transitions, from.String()+"->"+to.String()) }

	// Trip the breaker
	for i := 0; i < 2; i++ {
		_, _, _ = b.Get(context.Background(), testKey)
	}
	require.Equal(t, StateOpen, b.State())

	clock.advance(9 * time.Second)
	_, _, err := b.Get(context.Background(), testKey)
	assert.ErrorIs(t, err, ErrCircuitOpen, "still within reset timeout")

	clock.advance(2 * time.Second)
	fail = false
	got, ok, err := b.Get(context.Background(), testKey)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, entity.SourcePolygon, got.Source)
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestBreakerCache_HalfOpenFailure(t *testing.T) {
	t.Parallel()

	inner := &mockCandleCache{
		getFn: func(context.Context, string) (entity.CandleSeries, bool, error) {
			return entity.CandleSeries{}, false, errors.New("fail")
		},
	}
	b, clock := newTestBreaker(inner, 2)

	for i := 0; i < 2; i++ {
		_, _, _ = b.Get(context.Background(), testKey)
	}

	// Wait and fail the probe
	clock.advance(11 * time.Second)
	_, _, err := b.Get(context.Background(), testKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCircuitOpen)

	assert.Equal(t, StateOpen, b.State())
	_, _, err = b.Get(context.Background(), testKey)
	assert.ErrorIs(t, err, ErrCircuitOpen, "reopened with a fresh timeout")
}

func TestBreakerCache_DeletePrefix(t *testing.T) {
	t.Parallel()

	mem := NewMemoryCandleCache()
	require.NoError(t, mem.Set(context.Background(), "candles:AAPL:30:1d", entity.CandleSeries{}, time.Hour))
	b := NewBreakerCache(mem, 3, time.Second)

	require.NoError(t, b.DeletePrefix(context.Background(), "candles:AAPL:"))
	assert.Zero(t, mem.Len())

	// inner without invalidation support is a no-op
	assert.NoError(t, NewBreakerCache(&mockCandleCache{}, 3, time.Second).DeletePrefix(context.Background(), "x"))
}

func TestBreakerState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", BreakerState(9).String())
}
