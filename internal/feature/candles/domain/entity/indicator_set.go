package entity

// Indicator keys produced by the indicator engine.
const (
	IndicatorSMA20      = "sma_20"
	IndicatorEMA20      = "ema_20"
	IndicatorRSI14      = "rsi_14"
	IndicatorMACDLine   = "macd_line"
	IndicatorMACDSignal = "macd_signal"
	IndicatorBBUpper    = "bb_upper"
	IndicatorBBMiddle   = "bb_middle"
	IndicatorBBLower    = "bb_lower"
)

// IndicatorNames lists every key of a populated IndicatorSet.
var IndicatorNames = []string{
	IndicatorSMA20,
	IndicatorEMA20,
	IndicatorRSI14,
	IndicatorMACDLine,
	IndicatorMACDSignal,
	IndicatorBBUpper,
	IndicatorBBMiddle,
	IndicatorBBLower,
}

// IndicatorSet maps an indicator name to a series aligned 1:1 with the
// input candles. A nil element means the value is not yet defined at that
// position (the window has not filled) and serializes as JSON null.
type IndicatorSet map[string][]*float64
