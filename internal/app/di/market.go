// Package di provides dependency injection factories for creating application components.
package di

import (
	"fmt"

	"stocky_backend/internal/feature/candles/domain/entity"
	"stocky_backend/internal/feature/candles/usecase"
	"stocky_backend/internal/platform/externalapi/finnhub"
	"stocky_backend/internal/platform/externalapi/polygon"
	"stocky_backend/internal/platform/externalapi/twelvedata"
	infrahttp "stocky_backend/internal/platform/http"
)

// NewPolygonMarket creates a PolygonMarket with its own HTTP client.
func NewPolygonMarket() *polygon.PolygonMarket {
	cfg := polygon.LoadConfig()
	return polygon.NewPolygonMarket(cfg, infrahttp.NewHTTPClient(cfg.Timeout))
}

// NewFinnhubMarket creates a FinnhubMarket with its own HTTP client.
func NewFinnhubMarket() *finnhub.FinnhubMarket {
	cfg := finnhub.LoadConfig()
	return finnhub.NewFinnhubMarket(cfg, infrahttp.NewHTTPClient(cfg.Timeout))
}

// NewTwelveDataMarket creates a TwelveDataMarket with its own HTTP client.
func NewTwelveDataMarket() *twelvedata.TwelveDataMarket {
	cfg := twelvedata.LoadConfig()
	return twelvedata.NewTwelveDataMarket(cfg, infrahttp.NewHTTPClient(cfg.Timeout))
}

// NewMarketProviders builds the provider chain in the given priority order.
// Providers without credentials are still included; the usecase skips them.
func NewMarketProviders(order []string) ([]usecase.MarketProvider, error) {
	providers := make([]usecase.MarketProvider, 0, len(order))
	for _, name := range order {
		switch entity.Source(name) {
		case entity.SourcePolygon:
			providers = append(providers, NewPolygonMarket())
		case entity.SourceFinnhub:
			providers = append(providers, NewFinnhubMarket())
		case entity.SourceTwelveData:
			providers = append(providers, NewTwelveDataMarket())
		default:
			return nil, fmt.Errorf("unknown market provider %q", name)
		}
	}
	return providers, nil
}
