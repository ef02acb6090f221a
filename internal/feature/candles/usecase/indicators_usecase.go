package usecase

import (
	"fmt"
	"math"

	"stocky_backend/internal/feature/candles/domain"
	"stocky_backend/internal/feature/candles/domain/entity"
	"stocky_backend/internal/shared/indicator"
)

// 指標のパラメータ。
const (
	smaPeriod      = 20
	emaSpan        = 20
	rsiPeriod      = 14
	macdFast       = 12
	macdSlow       = 26
	macdSignal     = 9
	bollingerSpan  = 20
	bollingerWidth = 2.0
)

// ComputeIndicators はローソク足系列から固定の指標セットを計算します。
// 副作用のない純粋関数です。入力は計算前に必ず時刻昇順に並べ替えます（入力スライスは変更しません）。
// 各系列は並べ替え後の入力と同じ長さで、未定義の位置は nil です。
//
// 価格が数値でない（NaN/Inf）場合は domain.ErrMalformedInput を返します。
func ComputeIndicators(candles []entity.Candle) (entity.IndicatorSet, error) {
	if len(candles) == 0 {
		return entity.IndicatorSet{}, nil
	}
	if err := validateCandles(candles); err != nil {
		return nil, err
	}

	sorted := entity.SortCandles(candles)
	closes := make([]float64, len(sorted))
	for i, c := range sorted {
		closes[i] = c.Close
	}

	macdLine, macdSig := indicator.MACD(closes, macdFast, macdSlow, macdSignal)
	bands := indicator.Bollinger(closes, bollingerSpan, bollingerWidth)

	return entity.IndicatorSet{
		entity.IndicatorSMA20:      nullable(indicator.SMA(closes, smaPeriod)),
		entity.IndicatorEMA20:      nullable(indicator.EMA(closes, emaSpan)),
		entity.IndicatorRSI14:      nullable(indicator.RSI(closes, rsiPeriod)),
		entity.IndicatorMACDLine:   nullable(macdLine),
		entity.IndicatorMACDSignal: nullable(macdSig),
		entity.IndicatorBBUpper:    nullable(bands.Upper),
		entity.IndicatorBBMiddle:   nullable(bands.Middle),
		entity.IndicatorBBLower:    nullable(bands.Lower),
	}, nil
}

// validateCandles は価格フィールドが有限の数値であることを確認します。
func validateCandles(candles []entity.Candle) error {
	for i, c := range candles {
		fields := [...]struct {
			name string
			v    float64
		}{
			{"open", c.Open},
			{"high", c.High},
			{"low", c.Low},
			{"close", c.Close},
		}
		for _, f := range fields {
			if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
				return fmt.Errorf("%w: candle %d has non-numeric %s", domain.ErrMalformedInput, i, f.name)
			}
		}
		if c.Volume != nil && (math.IsNaN(*c.Volume) || math.IsInf(*c.Volume, 0)) {
			return fmt.Errorf("%w: candle %d has non-numeric volume", domain.ErrMalformedInput, i)
		}
	}
	return nil
}

// nullable は NaN を nil に変換します。
func nullable(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		if indicator.IsDefined(v) {
			out[i] = entity.Float64Ptr(v)
		}
	}
	return out
}
