// Package twelvedata provides a client for the Twelve Data stock market API.
package twelvedata

import (
	"os"
	"time"
)

const (
	defaultBaseURL = "https://api.twelvedata.com"
	defaultTimeout = 10 * time.Second
)

// Config holds configuration for the Twelve Data API client.
type Config struct {
	APIKey  string        // API key; empty disables the provider
	BaseURL string        // Base URL for the API (e.g., "https://api.twelvedata.com")
	Timeout time.Duration // Per-call deadline
}

// LoadConfig loads Twelve Data configuration from environment variables.
func LoadConfig() Config {
	base := os.Getenv("TWELVE_DATA_BASE_URL")
	if base == "" {
		base = defaultBaseURL
	}
	return Config{
		APIKey:  os.Getenv("TWELVE_DATA_API_KEY"),
		BaseURL: base,
		Timeout: defaultTimeout,
	}
}
