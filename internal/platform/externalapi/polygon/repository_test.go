package polygon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocky_backend/internal/feature/candles/domain"
	"stocky_backend/internal/feature/candles/domain/entity"
)

var (
	from = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to   = time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
)

func newTestMarket(t *testing.T, handler http.HandlerFunc) *PolygonMarket {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewPolygonMarket(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 2 * time.Second}, server.Client())
}

func TestPolygonMarket_Fetch_Success(t *testing.T) {
	t.Parallel()

	market := newTestMarket(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/aggs/ticker/AAPL/range/1/day/1735689600000/1738281600000", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))
		assert.Equal(t, "asc", r.URL.Query().Get("sort"))
		assert.Equal(t, "true", r.URL.Query().Get("adjusted"))
		_, _ = w.Write([]byte(`{
			"status": "OK",
			"ticker": "AAPL",
			"resultsCount": 2,
			"results": [
				{"t": 1735689600000, "o": 150.0, "h": 155.0, "l": 149.0, "c": 154.5, "v": 1000000},
				{"t": 1735776000000, "o": 154.5, "h": 156.0, "l": 153.0, "c": 155.0}
			]
		}`))
	})

	candles, err := market.Fetch(context.Background(), "aapl", from, to, entity.ResolutionDay)

	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(1735689600), candles[0].Timestamp)
	assert.Equal(t, 150.0, candles[0].Open)
	assert.Equal(t, 154.5, candles[0].Close)
	require.NotNil(t, candles[0].Volume)
	assert.Equal(t, 1000000.0, *candles[0].Volume)
	assert.Nil(t, candles[1].Volume, "missing volume stays unknown")
}

func TestPolygonMarket_Fetch_Timespans(t *testing.T) {
	t.Parallel()

	tests := []struct {
		res  entity.Resolution
		want string
	}{
		{entity.ResolutionHour, "hour"},
		{entity.ResolutionDay, "day"},
		{entity.ResolutionWeek, "week"},
		{entity.ResolutionMonth, "month"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.res), func(t *testing.T) {
			t.Parallel()
			market := newTestMarket(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Contains(t, r.URL.Path, "/range/1/"+tt.want+"/")
				_, _ = w.Write([]byte(`{"status":"OK","results":[]}`))
			})
			_, err := market.Fetch(context.Background(), "AAPL", from, to, tt.res)
			require.NoError(t, err)
		})
	}
}

func TestPolygonMarket_Fetch_NoResults(t *testing.T) {
	t.Parallel()

	market := newTestMarket(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"OK","resultsCount":0}`))
	})

	candles, err := market.Fetch(context.Background(), "AAPL", from, to, entity.ResolutionDay)

	require.NoError(t, err)
	assert.Empty(t, candles)
}

func TestPolygonMarket_Fetch_MissingCredential(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()
	market := NewPolygonMarket(Config{BaseURL: server.URL}, server.Client())

	candles, err := market.Fetch(context.Background(), "AAPL", from, to, entity.ResolutionDay)

	assert.Nil(t, candles)
	assert.ErrorIs(t, err, domain.ErrMissingCredential)
	assert.False(t, market.Configured())
	assert.Zero(t, calls.Load(), "no network call without a key")
}

func TestPolygonMarket_Fetch_HTTPError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statusCode int
	}{
		{"unauthorized", http.StatusUnauthorized},
		{"rate limited", http.StatusTooManyRequests},
		{"internal server error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			market := newTestMarket(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(`{"status":"ERROR","error":"nope"}`))
			})

			candles, err := market.Fetch(context.Background(), "AAPL", from, to, entity.ResolutionDay)

			assert.Nil(t, candles)
			var ue *domain.UpstreamError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, tt.statusCode, ue.Status)
			assert.Equal(t, "polygon", ue.Provider)
		})
	}
}

func TestPolygonMarket_Fetch_StatusError(t *testing.T) {
	t.Parallel()

	market := newTestMarket(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ERROR","error":"Unknown API Key"}`))
	})

	candles, err := market.Fetch(context.Background(), "AAPL", from, to, entity.ResolutionDay)

	assert.Nil(t, candles)
	var ue *domain.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Contains(t, ue.Body, "Unknown API Key")
}

func TestPolygonMarket_Fetch_Timeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()
	market := NewPolygonMarket(Config{APIKey: "k", BaseURL: server.URL, Timeout: 50 * time.Millisecond}, server.Client())

	candles, err := market.Fetch(context.Background(), "AAPL", from, to, entity.ResolutionDay)

	assert.Nil(t, candles)
	assert.ErrorIs(t, err, domain.ErrTimeout)
}
