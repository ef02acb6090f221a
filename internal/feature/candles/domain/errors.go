// Package domain defines domain-level errors for the candles feature.
package domain

import (
	"errors"
	"fmt"
)

// Domain errors for market data acquisition and indicator computation.
// Provider and cache errors are recovered inside the usecase layer;
// only ErrMalformedInput is expected to reach a handler.
var (
	// ErrMissingCredential indicates that a provider has no API key configured.
	// No network call is attempted.
	ErrMissingCredential = errors.New("missing provider credential")

	// ErrNoData indicates that the provider answered with a logical "no data" sentinel.
	ErrNoData = errors.New("provider returned no data")

	// ErrTimeout indicates that the provider call exceeded its deadline.
	ErrTimeout = errors.New("provider request timed out")

	// ErrCacheUnavailable indicates that the cache backend could not be reached.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrMalformedInput indicates candles with non-numeric (NaN/Inf or undecodable) price fields.
	ErrMalformedInput = errors.New("malformed candle input")
)

// UpstreamError is returned when a provider responds with a non-success status
// or a body that violates its documented schema.
type UpstreamError struct {
	Provider string
	Status   int
	Body     string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: upstream http %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s: upstream http %d: %s", e.Provider, e.Status, e.Body)
}
