package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocky_backend/internal/feature/candles/domain"
	"stocky_backend/internal/feature/candles/domain/entity"
	"stocky_backend/internal/feature/candles/transport/handler"
)

// mockCandlesUsecase はCandlesUsecaseインターフェースのモック実装です。
type mockCandlesUsecase struct {
	GetCandlesFunc  func(ctx context.Context, symbol string, lookbackDays int, resolution entity.Resolution) entity.CandleSeries
	GetCandlesCalls int
}

func (m *mockCandlesUsecase) GetCandles(ctx context.Context, symbol string, lookbackDays int, resolution entity.Resolution) entity.CandleSeries {
	m.GetCandlesCalls++
	return m.GetCandlesFunc(ctx, symbol, lookbackDays, resolution)
}

type mockObserver struct{ calls int }

func (m *mockObserver) ObserveIndicatorCompute(time.Duration) { m.calls++ }

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(h *handler.CandlesHandler) *gin.Engine {
	router := gin.New()
	router.GET("/market/candles", h.GetCandlesHandler)
	router.POST("/market/indicators", h.PostIndicatorsHandler)
	return router
}

func twoCandles() []entity.Candle {
	return []entity.Candle{
		{Timestamp: 1735689600, Open: 100, High: 110, Low: 90, Close: 105, Volume: entity.Float64Ptr(1000)},
		{Timestamp: 1735776000, Open: 105, High: 112, Low: 101, Close: 110},
	}
}

// TestCandlesHandler_GetCandlesHandler はGetCandlesHandlerのHTTPリクエスト/レスポンス処理をテストします。
func TestCandlesHandler_GetCandlesHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		url            string
		mockGetCandles func(ctx context.Context, symbol string, days int, res entity.Resolution) entity.CandleSeries
		expectedStatus int
		expectedBody   string // JSON文字列として比較
		expectedCalls  int
	}{
		{
			name: "success: all parameters specified",
			url:  "/market/candles?symbol=aapl&days=10&resolution=week&include_indicators=false",
			mockGetCandles: func(ctx context.Context, symbol string, days int, res entity.Resolution) entity.CandleSeries {
				assert.Equal(t, "AAPL", symbol)
				assert.Equal(t, 10, days)
				assert.Equal(t, entity.ResolutionWeek, res)
				return entity.CandleSeries{Candles: twoCandles(), Source: entity.SourcePolygon, Cached: true}
			},
			expectedStatus: http.StatusOK,
			expectedBody: `{"symbol":"AAPL","source":"polygon","cached":true,"indicators":{},"candles":[
				{"t":1735689600,"o":100,"h":110,"l":90,"c":105,"v":1000},
				{"t":1735776000,"o":105,"h":112,"l":101,"c":110,"v":null}]}`,
			expectedCalls: 1,
		},
		{
			name: "success: default parameter values",
			url:  "/market/candles?symbol=MSFT&include_indicators=0",
			mockGetCandles: func(ctx context.Context, symbol string, days int, res entity.Resolution) entity.CandleSeries {
				// デフォルト値
				assert.Equal(t, 30, days)
				assert.Equal(t, entity.ResolutionDay, res)
				return entity.CandleSeries{Candles: []entity.Candle{}, Source: entity.SourceFinnhub}
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"symbol":"MSFT","source":"finnhub","cached":false,"candles":[],"indicators":{}}`,
			expectedCalls:  1,
		},
		{
			name: "edge case: invalid days passes zero to usecase",
			url:  "/market/candles?symbol=MSFT&days=abc&include_indicators=false",
			mockGetCandles: func(ctx context.Context, symbol string, days int, res entity.Resolution) entity.CandleSeries {
				// デフォルト値への変換はusecaseレイヤーで処理される。
				assert.Equal(t, 0, days)
				return entity.CandleSeries{Candles: []entity.Candle{}, Source: entity.SourceSynthetic}
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"symbol":"MSFT","source":"synthetic","cached":false,"candles":[],"indicators":{}}`,
			expectedCalls:  1,
		},
		{
			name:           "error: missing symbol",
			url:            "/market/candles?days=10",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"symbol is required"}`,
		},
		{
			name:           "error: blank symbol",
			url:            "/market/candles?symbol=%20%20",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"symbol is required"}`,
		},
		{
			name:           "error: unsupported resolution",
			url:            "/market/candles?symbol=AAPL&resolution=5min",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"unsupported resolution \"5min\""}`,
		},
		{
			name:           "error: invalid include_indicators",
			url:            "/market/candles?symbol=AAPL&include_indicators=maybe",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"include_indicators must be a boolean"}`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mockUC := &mockCandlesUsecase{GetCandlesFunc: tt.mockGetCandles}
			router := newRouter(handler.NewCandlesHandler(mockUC))

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			assert.Equal(t, tt.expectedCalls, mockUC.GetCandlesCalls)
		})
	}
}

func TestCandlesHandler_GetCandlesHandler_WithIndicators(t *testing.T) {
	t.Parallel()

	candles := make([]entity.Candle, 25)
	for i := range candles {
		p := 100 + float64(i)
		candles[i] = entity.Candle{Timestamp: int64(1735689600 + i*86400), Open: p, High: p + 1, Low: p - 1, Close: p}
	}
	mockUC := &mockCandlesUsecase{
		GetCandlesFunc: func(context.Context, string, int, entity.Resolution) entity.CandleSeries {
			return entity.CandleSeries{Candles: candles, Source: entity.SourceSynthetic}
		},
	}
	obs := &mockObserver{}
	router := newRouter(handler.NewCandlesHandler(mockUC, handler.WithComputeObserver(obs)))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/market/candles?symbol=AAPL", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Source     string                `json:"source"`
		Indicators map[string][]*float64 `json:"indicators"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "synthetic", body.Source)
	for _, name := range entity.IndicatorNames {
		assert.Len(t, body.Indicators[name], 25, name)
	}
	assert.Nil(t, body.Indicators[entity.IndicatorSMA20][18])
	require.NotNil(t, body.Indicators[entity.IndicatorSMA20][19])
	assert.InDelta(t, 109.5, *body.Indicators[entity.IndicatorSMA20][19], 1e-9)
	assert.Equal(t, 1, obs.calls)
}

func TestCandlesHandler_GetCandlesHandler_ComputeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		computeErr     error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "malformed input maps to 422",
			computeErr:     fmt.Errorf("%w: candle 3 has non-numeric close", domain.ErrMalformedInput),
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"error":"malformed candle input: candle 3 has non-numeric close"}`,
		},
		{
			name:           "unexpected error maps to 500",
			computeErr:     errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"internal server error"}`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mockUC := &mockCandlesUsecase{
				GetCandlesFunc: func(context.Context, string, int, entity.Resolution) entity.CandleSeries {
					return entity.CandleSeries{Candles: twoCandles(), Source: entity.SourcePolygon}
				},
			}
			compute := func([]entity.Candle) (entity.IndicatorSet, error) { return nil, tt.computeErr }
			router := newRouter(handler.NewCandlesHandler(mockUC, handler.WithIndicatorFunc(compute)))

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/market/candles?symbol=AAPL", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

// TestCandlesHandler_PostIndicatorsHandler はPOST /market/indicators の入力検証と計算結果をテストします。
func TestCandlesHandler_PostIndicatorsHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		check          func(t *testing.T, body string)
	}{
		{
			name:           "success: indicators aligned with input",
			body:           `{"candles":[{"t":2,"o":2,"h":3,"l":1,"c":2,"v":10},{"t":1,"o":"1.5","h":2,"l":1,"c":"1","v":null}]}`,
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body string) {
				var resp struct {
					Indicators map[string][]*float64 `json:"indicators"`
				}
				require.NoError(t, json.Unmarshal([]byte(body), &resp))
				require.Len(t, resp.Indicators[entity.IndicatorEMA20], 2)
				// 並べ替え後の先頭（t=1）の終値で初期化される
				assert.Equal(t, 1.0, *resp.Indicators[entity.IndicatorEMA20][0])
				assert.Nil(t, resp.Indicators[entity.IndicatorRSI14][0])
				assert.Equal(t, 100.0, *resp.Indicators[entity.IndicatorRSI14][1])
			},
		},
		{
			name:           "success: empty candles yields empty mapping",
			body:           `{"candles":[]}`,
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body string) {
				assert.JSONEq(t, `{"indicators":{}}`, body)
			},
		},
		{
			name:           "error: non-numeric close",
			body:           `{"candles":[{"t":1,"o":1,"h":2,"l":0.5,"c":"abc"}]}`,
			expectedStatus: http.StatusUnprocessableEntity,
			check: func(t *testing.T, body string) {
				assert.Contains(t, body, "non-numeric close")
			},
		},
		{
			name:           "error: missing price field",
			body:           `{"candles":[{"t":1,"o":1,"h":2,"c":1.5}]}`,
			expectedStatus: http.StatusUnprocessableEntity,
			check: func(t *testing.T, body string) {
				assert.Contains(t, body, "non-numeric low")
			},
		},
		{
			name:           "error: candles field missing",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "error: invalid json",
			body:           `{"candles":[`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := newRouter(handler.NewCandlesHandler(&mockCandlesUsecase{}))

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/market/indicators", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.check != nil {
				tt.check(t, w.Body.String())
			}
			if tt.expectedStatus >= 400 {
				assert.True(t, strings.HasPrefix(w.Body.String(), `{"error":`))
			}
		})
	}
}
