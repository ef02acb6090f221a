// Package usecase はローソク足データ取得とテクニカル指標計算のビジネスロジックを実装します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"stocky_backend/internal/feature/candles/domain"
	"stocky_backend/internal/feature/candles/domain/entity"
)

const (
	// DefaultLookbackDays は取得期間（日数）のデフォルト値です。
	DefaultLookbackDays = 30
	// MaxLookbackDays は取得期間の上限です。超えた場合はデフォルト値を使用します。
	MaxLookbackDays = 3650
	// DefaultCacheTTL はキャッシュエントリの有効期間です。
	DefaultCacheTTL = time.Hour
	// cacheNamespace はキャッシュキーの接頭辞です。
	cacheNamespace = "candles"
)

// MarketProvider は外部の株価データプロバイダを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type MarketProvider interface {
	// Name はプロバイダを識別するソース名を返します。
	Name() entity.Source
	// Configured はAPIキーが設定されているかを返します。false の場合は呼び出しをスキップします。
	Configured() bool
	// Fetch は [from, to] の期間のローソク足を取得します。エラー時は必ず nil を返します。
	Fetch(ctx context.Context, symbol string, from, to time.Time, resolution entity.Resolution) ([]entity.Candle, error)
}

// CandleCache はローソク足系列のキャッシュを抽象化します。
type CandleCache interface {
	Get(ctx context.Context, key string) (entity.CandleSeries, bool, error)
	Set(ctx context.Context, key string, series entity.CandleSeries, ttl time.Duration) error
}

// CacheInvalidator はキャッシュエントリを接頭辞で削除できるキャッシュが実装します。
type CacheInvalidator interface {
	DeletePrefix(ctx context.Context, prefix string) error
}

// EmptyResultPolicy はプロバイダが0件（またはNoData）を返した場合の扱いを決めます。
type EmptyResultPolicy string

const (
	// EmptyResultFallback は空の結果を失敗とみなし、次のプロバイダを試します。
	EmptyResultFallback EmptyResultPolicy = "fallback"
	// EmptyResultAccept は空の結果を正しい回答として受け入れます（上場直後の銘柄など）。
	EmptyResultAccept EmptyResultPolicy = "accept"
)

// ParseEmptyResultPolicy は設定値を EmptyResultPolicy に変換します。
func ParseEmptyResultPolicy(s string) (EmptyResultPolicy, error) {
	switch EmptyResultPolicy(strings.ToLower(s)) {
	case "", EmptyResultFallback:
		return EmptyResultFallback, nil
	case EmptyResultAccept:
		return EmptyResultAccept, nil
	}
	return "", fmt.Errorf("unknown empty result policy %q", s)
}

// プロバイダ呼び出し結果のラベル（メトリクス・ログ用）。
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeNoData  = "no_data"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// キャッシュ参照結果のラベル。
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// MetricsRecorder は取得処理の計測値を受け取ります。
type MetricsRecorder interface {
	ObserveProviderRequest(provider, outcome string, elapsed time.Duration)
	ObserveCacheRequest(result string)
	IncSyntheticFallback()
}

type nopRecorder struct{}

func (nopRecorder) ObserveProviderRequest(string, string, time.Duration) {}
func (nopRecorder) ObserveCacheRequest(string)                           {}
func (nopRecorder) IncSyntheticFallback()                                {}

// CandlesUsecase はプロバイダの優先順位に従ってローソク足を取得し、キャッシュを管理します。
type CandlesUsecase struct {
	providers []MarketProvider
	cache     CandleCache
	ttl       time.Duration
	policy    EmptyResultPolicy
	metrics   MetricsRecorder
	now       func() time.Time
}

// Option は CandlesUsecase の設定を変更します。
type Option func(*CandlesUsecase)

// WithCacheTTL はキャッシュの有効期間を設定します。0以下は無視されます。
func WithCacheTTL(ttl time.Duration) Option {
	return func(cu *CandlesUsecase) {
		if ttl > 0 {
			cu.ttl = ttl
		}
	}
}

// WithEmptyResultPolicy は空結果の扱いを設定します。
func WithEmptyResultPolicy(p EmptyResultPolicy) Option {
	return func(cu *CandlesUsecase) { cu.policy = p }
}

// WithMetrics は計測値の送り先を設定します。
func WithMetrics(m MetricsRecorder) Option {
	return func(cu *CandlesUsecase) {
		if m != nil {
			cu.metrics = m
		}
	}
}

// WithClock は現在時刻の取得関数を差し替えます（テスト用）。
func WithClock(now func() time.Time) Option {
	return func(cu *CandlesUsecase) { cu.now = now }
}

// NewCandlesUsecase はCandlesUsecaseの新しいインスタンスを生成します。
// providers は優先順位の高い順に並べます。cache は nil でも動作します（メモ化なし）。
func NewCandlesUsecase(providers []MarketProvider, cache CandleCache, opts ...Option) *CandlesUsecase {
	cu := &CandlesUsecase{
		providers: providers,
		cache:     cache,
		ttl:       DefaultCacheTTL,
		policy:    EmptyResultFallback,
		metrics:   nopRecorder{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(cu)
	}
	return cu
}

// CacheKey はキャッシュキー "candles:{symbol}:{lookbackDays}:{resolution}" を生成します。
func CacheKey(symbol string, lookbackDays int, resolution entity.Resolution) string {
	return fmt.Sprintf("%s:%s:%d:%s", cacheNamespace, safe(symbol), lookbackDays, safe(string(resolution)))
}

// SymbolKeyPrefix は銘柄のすべてのキャッシュキーに共通する接頭辞を返します。
func SymbolKeyPrefix(symbol string) string {
	return fmt.Sprintf("%s:%s:", cacheNamespace, safe(symbol))
}

// safe は銘柄をキーの1セグメントとして可逆にエスケープします。
// 区切り文字 ":" と SCAN パターンの特殊文字は %XX になり、英数字と "." "-" "_" はそのまま残ります。
func safe(s string) string {
	return url.QueryEscape(s)
}

// GetCandles は指定された銘柄のローソク足を取得します。
// キャッシュ → プロバイダ（優先順）→ 合成データ の順に試し、決して失敗しません。
func (cu *CandlesUsecase) GetCandles(ctx context.Context, symbol string, lookbackDays int, resolution entity.Resolution) entity.CandleSeries {
	if lookbackDays <= 0 || lookbackDays > MaxLookbackDays {
		lookbackDays = DefaultLookbackDays
	}
	if resolution == "" {
		resolution = entity.DefaultResolution
	}

	to := time.Unix(cu.now().Unix(), 0).UTC()
	from := to.Add(-time.Duration(lookbackDays) * 24 * time.Hour)
	key := CacheKey(symbol, lookbackDays, resolution)

	// 1) キャッシュを確認
	if series, ok := cu.readCache(ctx, key); ok {
		return series
	}

	// 2) プロバイダを順に試し、全滅なら合成データ
	series, cacheable := cu.acquire(ctx, symbol, from, to, resolution, lookbackDays)

	// 3) キャッシュに保存（ベストエフォート）
	if cacheable {
		cu.writeCache(ctx, key, series)
	}
	return series
}

// Invalidate は銘柄のキャッシュエントリ（全期間・全時間足）を削除します。
// キャッシュが削除に対応していない場合は何もしません。
func (cu *CandlesUsecase) Invalidate(ctx context.Context, symbol string) error {
	inv, ok := cu.cache.(CacheInvalidator)
	if !ok {
		return nil
	}
	if err := inv.DeletePrefix(ctx, SymbolKeyPrefix(symbol)); err != nil {
		return fmt.Errorf("invalidate %s: %w", symbol, err)
	}
	return nil
}

// readCache はキャッシュを参照します。読み取りエラーはミスとして扱います。
func (cu *CandlesUsecase) readCache(ctx context.Context, key string) (entity.CandleSeries, bool) {
	if cu.cache == nil {
		return entity.CandleSeries{}, false
	}
	series, ok, err := cu.cache.Get(ctx, key)
	if err != nil {
		cu.metrics.ObserveCacheRequest(CacheError)
		slog.Warn("cache read failed; fetching from providers", "key", key, "error", err)
		return entity.CandleSeries{}, false
	}
	if !ok {
		cu.metrics.ObserveCacheRequest(CacheMiss)
		return entity.CandleSeries{}, false
	}
	cu.metrics.ObserveCacheRequest(CacheHit)
	series.Cached = true
	return series, true
}

// writeCache はキャッシュに保存します。書き込みエラーはログに出すだけです。
func (cu *CandlesUsecase) writeCache(ctx context.Context, key string, series entity.CandleSeries) {
	if cu.cache == nil {
		return
	}
	if err := cu.cache.Set(ctx, key, series, cu.ttl); err != nil {
		slog.Warn("cache write failed", "key", key, "error", err)
	}
}

// acquire はプロバイダを優先順に試します。
//
//	pending → tried[i] → success | tried[i+1] | exhausted → synthetic
//
// 2番目の戻り値は結果をキャッシュしてよいかを表します。呼び出し元の
// コンテキストが終了した場合の合成データはキャッシュしません。
func (cu *CandlesUsecase) acquire(ctx context.Context, symbol string, from, to time.Time, resolution entity.Resolution, lookbackDays int) (entity.CandleSeries, bool) {
	for _, p := range cu.providers {
		name := string(p.Name())
		if ctx.Err() != nil {
			break
		}
		if !p.Configured() {
			cu.metrics.ObserveProviderRequest(name, OutcomeSkipped, 0)
			continue
		}

		start := time.Now()
		candles, err := p.Fetch(ctx, symbol, from, to, resolution)
		elapsed := time.Since(start)

		if err != nil {
			outcome := classify(err)
			cu.metrics.ObserveProviderRequest(name, outcome, elapsed)
			if outcome == OutcomeNoData && cu.policy == EmptyResultAccept {
				return entity.CandleSeries{Candles: []entity.Candle{}, Source: p.Name()}, true
			}
			slog.Warn("provider failed; trying next", "provider", name, "symbol", symbol, "outcome", outcome, "error", err)
			continue
		}

		if len(candles) == 0 {
			cu.metrics.ObserveProviderRequest(name, OutcomeEmpty, elapsed)
			if cu.policy == EmptyResultAccept {
				return entity.CandleSeries{Candles: []entity.Candle{}, Source: p.Name()}, true
			}
			slog.Warn("provider returned no candles; trying next", "provider", name, "symbol", symbol)
			continue
		}

		cu.metrics.ObserveProviderRequest(name, OutcomeSuccess, elapsed)
		return entity.CandleSeries{Candles: entity.NormalizeCandles(candles), Source: p.Name()}, true
	}

	cu.metrics.IncSyntheticFallback()
	slog.Warn("all providers failed; serving synthetic candles", "symbol", symbol, "days", lookbackDays)
	series := entity.CandleSeries{
		Candles: GenerateSynthetic(from.Unix(), lookbackDays),
		Source:  entity.SourceSynthetic,
	}
	return series, ctx.Err() == nil
}

// classify はプロバイダのエラーをラベルに変換します。
func classify(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingCredential):
		return OutcomeSkipped
	case errors.Is(err, domain.ErrNoData):
		return OutcomeNoData
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}
