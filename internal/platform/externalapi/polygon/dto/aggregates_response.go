// Package dto defines data transfer objects for the Polygon API responses.
package dto

// AggregatesResponse represents the JSON response from the /v2/aggs/ticker range endpoint.
type AggregatesResponse struct {
	Status       string `json:"status"`
	Ticker       string `json:"ticker"`
	ResultsCount int    `json:"resultsCount"`
	Error        string `json:"error,omitempty"`
	Message      string `json:"message,omitempty"`
	Results      []Bar  `json:"results"`
}

// Bar is one aggregate window. T is the window start in milliseconds.
type Bar struct {
	T int64    `json:"t"`
	O float64  `json:"o"`
	H float64  `json:"h"`
	L float64  `json:"l"`
	C float64  `json:"c"`
	V *float64 `json:"v"`
}
