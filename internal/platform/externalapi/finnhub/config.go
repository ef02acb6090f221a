// Package finnhub provides a client for the Finnhub stock candle API.
package finnhub

import (
	"os"
	"time"
)

const (
	defaultBaseURL = "https://finnhub.io"
	defaultTimeout = 12 * time.Second
)

// Config holds configuration for the Finnhub API client.
type Config struct {
	APIKey  string        // API token; empty disables the provider
	BaseURL string        // Base URL for the API (e.g., "https://finnhub.io")
	Timeout time.Duration // Per-call deadline
}

// LoadConfig loads Finnhub configuration from environment variables.
func LoadConfig() Config {
	base := os.Getenv("FINNHUB_BASE_URL")
	if base == "" {
		base = defaultBaseURL
	}
	return Config{
		APIKey:  os.Getenv("FINNHUB_API_KEY"),
		BaseURL: base,
		Timeout: defaultTimeout,
	}
}
