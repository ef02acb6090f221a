package polygon

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stocky_backend/internal/feature/candles/domain"
	"stocky_backend/internal/feature/candles/domain/entity"
	"stocky_backend/internal/feature/candles/usecase"
	"stocky_backend/internal/platform/externalapi"
	"stocky_backend/internal/platform/externalapi/polygon/dto"
)

const providerName = "polygon"

// PolygonMarket はPolygon.ioの集計APIから株価データを取得するMarketProvider実装です。
type PolygonMarket struct {
	cfg    Config
	client *http.Client
}

// PolygonMarketがMarketProviderを実装していることをコンパイル時に検証します。
var _ usecase.MarketProvider = (*PolygonMarket)(nil)

// NewPolygonMarket は指定された設定とHTTPクライアントでPolygonMarketの新しいインスタンスを生成します。
func NewPolygonMarket(cfg Config, client *http.Client) *PolygonMarket {
	return &PolygonMarket{cfg: cfg, client: client}
}

// Name はソース名を返します。
func (p *PolygonMarket) Name() entity.Source { return entity.SourcePolygon }

// Configured はAPIキーが設定されているかを返します。
func (p *PolygonMarket) Configured() bool { return p.cfg.APIKey != "" }

// Fetch は [from, to] の集計足を取得します。
// タイムスタンプはミリ秒で返されるため秒に変換します。
func (p *PolygonMarket) Fetch(ctx context.Context, symbol string, from, to time.Time, resolution entity.Resolution) ([]entity.Candle, error) {
	if !p.Configured() {
		return nil, fmt.Errorf("%s: %w", providerName, domain.ErrMissingCredential)
	}
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	q := url.Values{}
	q.Set("adjusted", "true")
	q.Set("sort", "asc")
	q.Set("limit", "50000")
	q.Set("apiKey", p.cfg.APIKey)

	// URLを生成: /v2/aggs/ticker/{symbol}/range/{multiplier}/{timespan}/{from}/{to}
	u := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/%s/%d/%d?%s",
		strings.TrimRight(p.cfg.BaseURL, "/"),
		url.PathEscape(strings.ToUpper(symbol)),
		timespan(resolution),
		from.UnixMilli(),
		to.UnixMilli(),
		q.Encode(),
	)

	var body dto.AggregatesResponse
	if err := externalapi.GetJSON(ctx, p.client, providerName, u, &body); err != nil {
		return nil, err
	}
	if strings.EqualFold(body.Status, "ERROR") {
		msg := body.Error
		if msg == "" {
			msg = body.Message
		}
		return nil, &domain.UpstreamError{Provider: providerName, Status: http.StatusOK, Body: msg}
	}

	candles := make([]entity.Candle, 0, len(body.Results))
	for _, r := range body.Results {
		candles = append(candles, entity.Candle{
			Timestamp: r.T / 1000,
			Open:      r.O,
			High:      r.H,
			Low:       r.L,
			Close:     r.C,
			Volume:    r.V,
		})
	}
	return candles, nil
}

// timespan は時間足をPolygonのtimespanに変換します。
func timespan(r entity.Resolution) string {
	switch r {
	case entity.ResolutionHour:
		return "hour"
	case entity.ResolutionWeek:
		return "week"
	case entity.ResolutionMonth:
		return "month"
	default:
		return "day"
	}
}
