package twelvedata

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
	"stocky_backend/internal/platform/externalapi/twelvedata/dto"
)

const (
	providerName = "twelvedata"
	dateLayout   = "2006-01-02"
	timeLayout   = "2006-01-02 15:04:05"
	outputSize   = 5000
)

// TwelveDataMarket はTwelve Data外部APIから株価データを取得するMarketProvider実装です。
type TwelveDataMarket struct {
	cfg    Config
	client *http.Client
}

// TwelveDataMarketがMarketProviderを実装していることをコンパイル時に検証します。
var _ usecase.MarketProvider = (*TwelveDataMarket)(nil)

// NewTwelveDataMarket は指定された設定とHTTPクライアントでTwelveDataMarketの新しいインスタンスを生成します。
func NewTwelveDataMarket(cfg Config, client *http.Client) *TwelveDataMarket {
	return &TwelveDataMarket{cfg: cfg, client: client}
}

// Name はソース名を返します。
func (t *TwelveDataMarket) Name() entity.Source { return entity.SourceTwelveData }

// Configured はAPIキーが設定されているかを返します。
func (t *TwelveDataMarket) Configured() bool { return t.cfg.APIKey != "" }

// Fetch はTwelve Data APIから [from, to] の時系列株価データを取得し、
// entity.Candleのスライスとして返します。
func (t *TwelveDataMarket) Fetch(ctx context.Context, symbol string, from, to time.Time, resolution entity.Resolution) ([]entity.Candle, error) {
	if !t.Configured() {
		return nil, fmt.Errorf("%s: %w", providerName, domain.ErrMissingCredential)
	}
	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	q := url.Values{}
	// クエリパラメータを追加
	q.Set("symbol", strings.ToUpper(symbol))
	q.Set("interval", interval(resolution))
	q.Set("start_date", from.UTC().Format(timeLayout))
	q.Set("end_date", to.UTC().Format(timeLayout))
	q.Set("timezone", "UTC")
	q.Set("order", "ASC")
	q.Set("outputsize", strconv.Itoa(outputSize))
	q.Set("apikey", t.cfg.APIKey)

	// URLを生成
	u := fmt.Sprintf("%s/time_series?%s", strings.TrimRight(t.cfg.BaseURL, "/"), q.Encode())

	// リクエストを実行し、JSONレスポンスをDTOにデコード
	var body dto.TimeSeriesResponse
	if err := externalapi.GetJSON(ctx, t.client, providerName, u, &body); err != nil {
		return nil, err
	}
	if body.Status == "error" {
		// 期間内にデータが無い場合も status=error で返される
		if strings.Contains(strings.ToLower(body.Message), "no data") {
			return nil, fmt.Errorf("%s: %w: %s", providerName, domain.ErrNoData, body.Message)
		}
		status := body.Code
		if status == 0 {
			status = http.StatusOK
		}
		return nil, &domain.UpstreamError{Provider: providerName, Status: status, Body: body.Message}
	}

	candles := make([]entity.Candle, 0, len(body.Values))
	for _, v := range body.Values {
		c, err := toCandle(v)
		if err != nil {
			return nil, &domain.UpstreamError{Provider: providerName, Status: http.StatusOK, Body: err.Error()}
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// toCandle は文字列で表現された1本の足をドメインエンティティに変換します。
func toCandle(v dto.Value) (entity.Candle, error) {
	// タイムスタンプをパース（日中足は時刻付き）
	tm, err := time.ParseInLocation(timeLayout, v.Datetime, time.UTC)
	if err != nil {
		tm, err = time.ParseInLocation(dateLayout, v.Datetime, time.UTC)
		if err != nil {
			return entity.Candle{}, fmt.Errorf("parse time %q: %w", v.Datetime, err)
		}
	}

	var prices [4]float64
	for i, f := range [...]struct{ name, raw string }{
		{"open", v.Open},
		{"high", v.High},
		{"low", v.Low},
		{"close", v.Close},
	} {
		p, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return entity.Candle{}, fmt.Errorf("parse %s %q: %w", f.name, f.raw, err)
		}
		prices[i] = p
	}

	c := entity.Candle{
		Timestamp: tm.Unix(),
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
	}
	// 出来高をパース（空文字は不明として扱う）
	if v.Volume != "" {
		vol, err := strconv.ParseFloat(v.Volume, 64)
		if err != nil {
			return entity.Candle{}, fmt.Errorf("parse volume %q: %w", v.Volume, err)
		}
		c.Volume = entity.Float64Ptr(vol)
	}
	return c, nil
}

// interval は時間足をTwelve Dataのintervalに変換します。
func interval(r entity.Resolution) string {
	switch r {
	case entity.ResolutionHour:
		return "1h"
	case entity.ResolutionWeek:
		return "1week"
	case entity.ResolutionMonth:
		return "1month"
	default:
		return "1day"
	}
}
