package dto

import (
	"math"
	"strconv"
	"strings"

	"stocky_backend/internal/feature/candles/domain/entity"
)

// Number は JSON の数値または数値文字列を受け付けます。
// それ以外の値（null, 非数値文字列, オブジェクト）は NaN になり、指標計算で不正入力として扱われます。
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		f = math.NaN()
	}
	*n = Number(f)
	return nil
}

// CandleRequest は入力ロウソク足1本のDTOです。価格が欠けている場合も不正入力です。
type CandleRequest struct {
	T int64   `json:"t"`
	O *Number `json:"o"`
	H *Number `json:"h"`
	L *Number `json:"l"`
	C *Number `json:"c"`
	V *Number `json:"v"`
}

// IndicatorsRequest は POST /market/indicators のリクエストDTOです。
type IndicatorsRequest struct {
	Candles []CandleRequest `json:"candles" binding:"required"`
}

// ToEntities はリクエストをエンティティに変換します。
func (r IndicatorsRequest) ToEntities() []entity.Candle {
	out := make([]entity.Candle, 0, len(r.Candles))
	for _, c := range r.Candles {
		e := entity.Candle{
			Timestamp: c.T,
			Open:      value(c.O),
			High:      value(c.H),
			Low:       value(c.L),
			Close:     value(c.C),
		}
		if c.V != nil {
			e.Volume = entity.Float64Ptr(float64(*c.V))
		}
		out = append(out, e)
	}
	return out
}

func value(n *Number) float64 {
	if n == nil {
		return math.NaN()
	}
	return float64(*n)
}
