// Package entity defines the domain models for the candles feature.
package entity

import (
	"fmt"
	"sort"
	"strings"
)

// Candle represents one OHLCV (Open, High, Low, Close, Volume) bar.
// The JSON field names are the serialized cache format.
type Candle struct {
	Timestamp int64    `json:"t"` // Bar start, seconds since epoch (UTC)
	Open      float64  `json:"o"` // Opening price
	High      float64  `json:"h"` // Highest price during this period
	Low       float64  `json:"l"` // Lowest price during this period
	Close     float64  `json:"c"` // Closing price
	Volume    *float64 `json:"v"` // Trading volume, nil when the provider did not report it
}

// Resolution is the bar interval of a candle series.
type Resolution string

const (
	ResolutionHour  Resolution = "1h"
	ResolutionDay   Resolution = "1d"
	ResolutionWeek  Resolution = "1w"
	ResolutionMonth Resolution = "1M"
)

// DefaultResolution is used when the caller does not specify one.
const DefaultResolution = ResolutionDay

var resolutionAliases = map[string]Resolution{
	"1h":     ResolutionHour,
	"60":     ResolutionHour,
	"hour":   ResolutionHour,
	"1d":     ResolutionDay,
	"d":      ResolutionDay,
	"day":    ResolutionDay,
	"1day":   ResolutionDay,
	"1w":     ResolutionWeek,
	"w":      ResolutionWeek,
	"week":   ResolutionWeek,
	"1week":  ResolutionWeek,
	"1m":     ResolutionMonth,
	"m":      ResolutionMonth,
	"month":  ResolutionMonth,
	"1month": ResolutionMonth,
}

// ParseResolution normalizes user or provider supplied interval names.
// An empty string yields DefaultResolution.
func ParseResolution(s string) (Resolution, error) {
	if s == "" {
		return DefaultResolution, nil
	}
	// "1M" (month) and "1m" are folded together; minute bars are not supported.
	if r, ok := resolutionAliases[strings.ToLower(s)]; ok {
		return r, nil
	}
	return "", fmt.Errorf("unsupported resolution %q", s)
}

// Source identifies where a candle series came from.
type Source string

const (
	SourcePolygon    Source = "polygon"
	SourceFinnhub    Source = "finnhub"
	SourceTwelveData Source = "twelvedata"
	SourceSynthetic  Source = "synthetic"
	SourceUnknown    Source = "unknown"
)

// CandleSeries is an ordered candle sequence together with its provenance.
type CandleSeries struct {
	Candles []Candle
	Source  Source
	Cached  bool // true when served from the cache
}

// Len returns the number of candles.
func (s CandleSeries) Len() int { return len(s.Candles) }

// SortCandles returns a copy of candles sorted ascending by timestamp.
// The input slice is not modified.
func SortCandles(candles []Candle) []Candle {
	out := make([]Candle, len(candles))
	copy(out, candles)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// NormalizeCandles sorts candles ascending and drops duplicate timestamps,
// keeping the last occurrence, so timestamps strictly increase.
func NormalizeCandles(candles []Candle) []Candle {
	sorted := SortCandles(candles)
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:0]
	for _, c := range sorted {
		if n := len(out); n > 0 && out[n-1].Timestamp == c.Timestamp {
			out[n-1] = c
			continue
		}
		out = append(out, c)
	}
	return out
}

// CloneCandles returns a deep copy, including volume pointers.
func CloneCandles(candles []Candle) []Candle {
	if candles == nil {
		return nil
	}
	out := make([]Candle, len(candles))
	for i, c := range candles {
		out[i] = c
		if c.Volume != nil {
			v := *c.Volume
			out[i].Volume = &v
		}
	}
	return out
}

// Float64Ptr is a helper for optional numeric fields.
func Float64Ptr(v float64) *float64 { return &v }
