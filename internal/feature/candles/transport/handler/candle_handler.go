// Package handler はcandlesフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"stocky_backend/internal/feature/candles/domain"
	"stocky_backend/internal/feature/candles/domain/entity"
	"stocky_backend/internal/feature/candles/transport/http/dto"
	"stocky_backend/internal/feature/candles/usecase"
)

// CandlesUsecase はローソク足データ取得のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type CandlesUsecase interface {
	GetCandles(ctx context.Context, symbol string, lookbackDays int, resolution entity.Resolution) entity.CandleSeries
}

// IndicatorFunc はローソク足から指標セットを計算する関数です。
type IndicatorFunc func(candles []entity.Candle) (entity.IndicatorSet, error)

// ComputeObserver は指標計算の所要時間を受け取ります。
type ComputeObserver interface {
	ObserveIndicatorCompute(elapsed time.Duration)
}

// CandlesHandler はローソク足データのHTTPリクエストを処理します。
type CandlesHandler struct {
	uc       CandlesUsecase
	compute  IndicatorFunc
	observer ComputeObserver
}

// Option は CandlesHandler の設定を変更します。
type Option func(*CandlesHandler)

// WithIndicatorFunc は指標計算関数を差し替えます。
func WithIndicatorFunc(f IndicatorFunc) Option {
	return func(h *CandlesHandler) { h.compute = f }
}

// WithComputeObserver は指標計算時間の送り先を設定します。
func WithComputeObserver(o ComputeObserver) Option {
	return func(h *CandlesHandler) { h.observer = o }
}

// NewCandlesHandler は指定されたusecaseでCandlesHandlerの新しいインスタンスを生成します。
func NewCandlesHandler(uc CandlesUsecase, opts ...Option) *CandlesHandler {
	h := &CandlesHandler{uc: uc, compute: usecase.ComputeIndicators}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GetCandlesHandler は銘柄・期間・時間足を受け取り、ローソク足と指標をJSONで返します。
// 取得自体は失敗しないため、上流の障害時は source=synthetic の系列が返ります。
//
// エンドポイント例:
// GET /market/candles?symbol=AAPL&days=30&resolution=1d&include_indicators=true
func (h *CandlesHandler) GetCandlesHandler(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "symbol is required"})
		return
	}

	resolution, err := entity.ParseResolution(c.DefaultQuery("resolution", string(entity.DefaultResolution)))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	include, err := strconv.ParseBool(c.DefaultQuery("include_indicators", "true"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "include_indicators must be a boolean"})
		return
	}

	// 数値でない場合は0を渡し、usecaseでデフォルト値に変換する
	days, _ := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(usecase.DefaultLookbackDays)))

	series := h.uc.GetCandles(c.Request.Context(), symbol, days, resolution)

	indicators := entity.IndicatorSet{}
	if include {
		indicators, err = h.computeIndicators(series.Candles)
		if err != nil {
			h.writeComputeError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, dto.CandlesResponse{
		Symbol:     symbol,
		Source:     string(series.Source),
		Cached:     series.Cached,
		Candles:    dto.NewCandleResponses(series.Candles),
		Indicators: indicators,
	})
}

// PostIndicatorsHandler はリクエストボディのローソク足から指標を計算して返します。
//
// エンドポイント例:
// POST /market/indicators {"candles":[{"t":1735689600,"o":1,"h":2,"l":0.5,"c":1.5,"v":100}]}
func (h *CandlesHandler) PostIndicatorsHandler(c *gin.Context) {
	var req dto.IndicatorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	indicators, err := h.computeIndicators(req.ToEntities())
	if err != nil {
		h.writeComputeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.IndicatorsResponse{Indicators: indicators})
}

func (h *CandlesHandler) computeIndicators(candles []entity.Candle) (entity.IndicatorSet, error) {
	start := time.Now()
	set, err := h.compute(candles)
	if h.observer != nil && err == nil {
		h.observer.ObserveIndicatorCompute(time.Since(start))
	}
	return set, err
}

// writeComputeError は不正入力を422、それ以外を500に変換します。
func (h *CandlesHandler) writeComputeError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrMalformedInput) {
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Error: err.Error()})
		return
	}
	slog.Error("indicator computation failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
}
