package finnhub

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stocky_backend/internal/feature/candles/domain"
	"stocky_backend/internal/feature/candles/domain/entity"
	"stocky_backend/internal/feature/candles/usecase"
	"stocky_backend/internal/platform/externalapi"
	"stocky_backend/internal/platform/externalapi/finnhub/dto"
)

const (
	providerName = "finnhub"
	statusOK     = "ok"
	statusNoData = "no_data"
)

// FinnhubMarket はFinnhubのローソク足APIから株価データを取得するMarketProvider実装です。
type FinnhubMarket struct {
	cfg    Config
	client *http.Client
}

// FinnhubMarketがMarketProviderを実装していることをコンパイル時に検証します。
var _ usecase.MarketProvider = (*FinnhubMarket)(nil)

// NewFinnhubMarket は指定された設定とHTTPクライアントでFinnhubMarketの新しいインスタンスを生成します。
func NewFinnhubMarket(cfg Config, client *http.Client) *FinnhubMarket {
	return &FinnhubMarket{cfg: cfg, client: client}
}

// Name はソース名を返します。
func (f *FinnhubMarket) Name() entity.Source { return entity.SourceFinnhub }

// Configured はAPIトークンが設定されているかを返します。
func (f *FinnhubMarket) Configured() bool { return f.cfg.APIKey != "" }

// Fetch は [from, to] のローソク足を取得します。
// レスポンスは並列配列なので、インデックスごとに1本の足へ組み立てます。
func (f *FinnhubMarket) Fetch(ctx context.Context, symbol string, from, to time.Time, resolution entity.Resolution) ([]entity.Candle, error) {
	if !f.Configured() {
		return nil, fmt.Errorf("%s: %w", providerName, domain.ErrMissingCredential)
	}
	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	q := url.Values{}
	q.Set("symbol", strings.ToUpper(symbol))
	q.Set("resolution", finnhubResolution(resolution))
	q.Set("from", strconv.FormatInt(from.Unix(), 10))
	q.Set("to", strconv.FormatInt(to.Unix(), 10))
	q.Set("token", f.cfg.APIKey)

	u := fmt.Sprintf("%s/api/v1/stock/candle?%s", strings.TrimRight(f.cfg.BaseURL, "/"), q.Encode())

	var body dto.CandleResponse
	if err := externalapi.GetJSON(ctx, f.client, providerName, u, &body); err != nil {
		return nil, err
	}

	switch body.S {
	case statusOK:
	case statusNoData:
		return nil, fmt.Errorf("%s: %w", providerName, domain.ErrNoData)
	default:
		return nil, &domain.UpstreamError{Provider: providerName, Status: http.StatusOK, Body: "unexpected status " + strconv.Quote(body.S)}
	}

	n := len(body.T)
	if len(body.O) != n || len(body.H) != n || len(body.L) != n || len(body.C) != n || (body.V != nil && len(body.V) != n) {
		return nil, &domain.UpstreamError{Provider: providerName, Status: http.StatusOK, Body: "ragged candle arrays"}
	}

	candles := make([]entity.Candle, 0, n)
	for i := 0; i < n; i++ {
		c := entity.Candle{
			Timestamp: body.T[i],
			Open:      body.O[i],
			High:      body.H[i],
			Low:       body.L[i],
			Close:     body.C[i],
		}
		// v が無いレスポンスでは出来高は不明のまま
		if body.V != nil {
			c.Volume = entity.Float64Ptr(body.V[i])
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// finnhubResolution は時間足をFinnhubのresolutionに変換します。
func finnhubResolution(r entity.Resolution) string {
	switch r {
	case entity.ResolutionHour:
		return "60"
	case entity.ResolutionWeek:
		return "W"
	case entity.ResolutionMonth:
		return "M"
	default:
		return "D"
	}
}
