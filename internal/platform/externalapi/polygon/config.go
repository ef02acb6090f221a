// Package polygon provides a client for the Polygon.io aggregates API.
package polygon

import (
	"os"
	"time"
)

const (
	defaultBaseURL = "https://api.polygon.io"
	defaultTimeout = 15 * time.Second
)

// Config holds configuration for the Polygon API client.
type Config struct {
	APIKey  string        // API key; empty disables the provider
	BaseURL string        // Base URL for the API (e.g., "https://api.polygon.io")
	Timeout time.Duration // Per-call deadline
}

// LoadConfig loads Polygon configuration from environment variables.
func LoadConfig() Config {
	base := os.Getenv("POLYGON_BASE_URL")
	if base == "" {
		base = defaultBaseURL
	}
	return Config{
		APIKey:  os.Getenv("POLYGON_API_KEY"),
		BaseURL: base,
		Timeout: defaultTimeout,
	}
}
