package usecase

import "stocky_backend/internal/feature/candles/domain/entity"

const (
	secondsPerDay   = 24 * 60 * 60
	syntheticBase   = 100.0
	syntheticVolume = 1000.0
)

// GenerateSynthetic は外部接続がない場合の決定的なプレースホルダ系列を生成します。
// 1日1本、from から始まる days 本で、価格は曜日相当の周期（i%10）と線形ドリフトで上昇します。
// 各足は low <= open, close <= high を満たし、出来高は固定です。
//
// 実データと区別できるよう、呼び出し側は Source を entity.SourceSynthetic にします。
func GenerateSynthetic(from int64, days int) []entity.Candle {
	if days <= 0 {
		return []entity.Candle{}
	}
	out := make([]entity.Candle, 0, days)
	for i := 0; i < days; i++ {
		base := syntheticBase + float64(i%10) + float64(i)*0.1
		out = append(out, entity.Candle{
			Timestamp: from + int64(i)*secondsPerDay,
			Open:      base,
			High:      base + 1,
			Low:       base - 1,
			Close:     base + 0.2,
			Volume:    entity.Float64Ptr(syntheticVolume),
		})
	}
	return out
}
