// Package dto defines data transfer objects for the Finnhub API responses.
package dto

// CandleResponse represents the JSON response from /api/v1/stock/candle.
// The arrays are parallel; S is "ok" or "no_data".
type CandleResponse struct {
	S string    `json:"s"`
	T []int64   `json:"t"`
	O []float64 `json:"o"`
	H []float64 `json:"h"`
	L []float64 `json:"l"`
	C []float64 `json:"c"`
	V []float64 `json:"v"`
}
