// Package router はアプリケーションのHTTPルーティングを定義します。
package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	candleshandler "stocky_backend/internal/feature/candles/transport/handler"
	"stocky_backend/internal/platform/http/handler"
	"stocky_backend/internal/platform/http/middleware"
)

// Options はルーター生成時の依存関係です。
type Options struct {
	Candles     *candleshandler.CandlesHandler
	Metrics     http.Handler // nil の場合 /metrics は登録しない
	CORSOrigins []string     // 空の場合はCORSを無効化
	Logger      *slog.Logger
}

// NewRouter はルートとミドルウェアを登録したginエンジンを返します。
func NewRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(opts.Logger))

	if len(opts.CORSOrigins) > 0 {
		cfg := cors.DefaultConfig()
		cfg.AllowOrigins = opts.CORSOrigins
		cfg.AllowMethods = []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions}
		cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", middleware.HeaderRequestID}
		cfg.ExposeHeaders = []string{middleware.HeaderRequestID}
		r.Use(cors.New(cfg))
	}

	// 導通確認用
	for _, path := range []string{"/", "/healthz"} {
		r.GET(path, handler.Health)
		r.HEAD(path, handler.Health)
	}
	r.GET("/ping", handler.Ping)
	r.HEAD("/ping", handler.Ping)

	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	market := r.Group("/market")
	{
		market.GET("/candles", opts.Candles.GetCandlesHandler)
		market.POST("/indicators", opts.Candles.PostIndicatorsHandler)
	}

	return r
}
