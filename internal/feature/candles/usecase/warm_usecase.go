package usecase

import (
	"context"
	"log/slog"

	"stocky_backend/internal/feature/candles/domain/entity"
	"stocky_backend/internal/shared/ratelimiter"
)

// defaultWarmResolutions はキャッシュを温める対象の時間足です。
var defaultWarmResolutions = []entity.Resolution{entity.ResolutionDay}

// CandlesGetter はローソク足を取得するユースケースのインターフェイスです。
type CandlesGetter interface {
	GetCandles(ctx context.Context, symbol string, lookbackDays int, resolution entity.Resolution) entity.CandleSeries
}

// WarmReport はキャッシュ温めの結果を集計します。
type WarmReport struct {
	Requested int // 取得を試みた (symbol, resolution) の組の数
	Synthetic int // 合成データで埋めた組の数
	Cached    int // 既にキャッシュに存在した組の数
}

// WarmUsecase は指定された銘柄のローソク足を事前に取得し、キャッシュに載せるユースケースです。
type WarmUsecase struct {
	candles      CandlesGetter
	rateLimiter  ratelimiter.RateLimiterInterface
	resolutions  []entity.Resolution
	lookbackDays int
}

// NewWarmUsecase は新しい WarmUsecase を作成します。
// resolutions が空の場合は日足のみ、lookbackDays が0以下の場合は DefaultLookbackDays を使用します。
func NewWarmUsecase(candles CandlesGetter, rateLimiter ratelimiter.RateLimiterInterface, resolutions []entity.Resolution, lookbackDays int) *WarmUsecase {
	if len(resolutions) == 0 {
		resolutions = defaultWarmResolutions
	}
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	return &WarmUsecase{candles: candles, rateLimiter: rateLimiter, resolutions: resolutions, lookbackDays: lookbackDays}
}

// WarmAll は全銘柄 × 全時間足のローソク足を取得してキャッシュに載せます。
// 外部APIのレートリミットを考慮し、リクエスト間で待機します。
// コンテキストが終了した場合はそれまでの集計とエラーを返します。
func (wu *WarmUsecase) WarmAll(ctx context.Context, symbols []string) (WarmReport, error) {
	var report WarmReport
	for _, s := range symbols {
		for _, res := range wu.resolutions {
			if err := wu.rateLimiter.Wait(ctx); err != nil {
				return report, err
			}
			series := wu.candles.GetCandles(ctx, s, wu.lookbackDays, res)
			report.Requested++
			switch {
			case series.Cached:
				report.Cached++
			case series.Source == entity.SourceSynthetic:
				// プロバイダが全滅しても処理は止めず、次の銘柄へ
				report.Synthetic++
				slog.Warn("warm: providers unavailable, synthetic series cached", "symbol", s, "resolution", res)
			}
		}
	}
	slog.Info("warm finished", "requested", report.Requested, "cached", report.Cached, "synthetic", report.Synthetic)
	return report, nil
}
