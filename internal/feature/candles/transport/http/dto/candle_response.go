// Package dto はcandlesフィーチャーのHTTPリクエスト/レスポンスDTOを定義します。
package dto

import "stocky_backend/internal/feature/candles/domain/entity"

// CandleResponse はロウソク足データのレスポンスDTOです。
type CandleResponse struct {
	T int64    `json:"t"` // 足の開始時刻（UNIX秒, UTC）
	O float64  `json:"o"` // 始値
	H float64  `json:"h"` // 高値
	L float64  `json:"l"` // 安値
	C float64  `json:"c"` // 終値
	V *float64 `json:"v"` // 出来高（不明な場合は null）
}

// CandlesResponse は GET /market/candles のレスポンスDTOです。
type CandlesResponse struct {
	Symbol     string              `json:"symbol"`
	Source     string              `json:"source"` // polygon | finnhub | twelvedata | synthetic | unknown
	Cached     bool                `json:"cached"`
	Candles    []CandleResponse    `json:"candles"`
	Indicators entity.IndicatorSet `json:"indicators"`
}

// IndicatorsResponse は POST /market/indicators のレスポンスDTOです。
type IndicatorsResponse struct {
	Indicators entity.IndicatorSet `json:"indicators"`
}

// ErrorResponse はエラーレスポンスDTOです。
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewCandleResponses はエンティティをレスポンスDTOに変換します。
func NewCandleResponses(candles []entity.Candle) []CandleResponse {
	out := make([]CandleResponse, 0, len(candles))
	for _, x := range candles {
		out = append(out, CandleResponse{T: x.Timestamp, O: x.Open, H: x.High, L: x.Low, C: x.Close, V: x.Volume})
	}
	return out
}
