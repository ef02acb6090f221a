package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stocky_backend/internal/app/di"
	"stocky_backend/internal/app/router"
	"stocky_backend/internal/app/scheduler"
	candleshandler "stocky_backend/internal/feature/candles/transport/handler"
	"stocky_backend/internal/platform/config"
	"stocky_backend/internal/platform/logger"
	"stocky_backend/internal/platform/metrics"
)

func main() {
	// .envを読み込む
	if err := godotenv.Load(".env"); err != nil {
		slog.Info(".env not found; using system environment variables")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Usecase（Redisに接続できない場合はキャッシュなしで起動）
	candlesUC, closeCache, err := di.NewCandlesUsecase(ctx, cfg, m)
	if err != nil {
		log.Error("failed to build candles usecase", "error", err)
		os.Exit(1)
	}
	defer closeCache()

	// Handler
	candlesH := candleshandler.NewCandlesHandler(candlesUC, candleshandler.WithComputeObserver(m))

	// ルータ生成
	r := router.NewRouter(router.Options{
		Candles:     candlesH,
		Metrics:     m.Handler(),
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Logger:      log,
	})

	// キャッシュの定期ウォームアップ
	if cfg.Warm.Schedule != "" && len(cfg.Warm.Symbols) > 0 {
		ws := scheduler.NewWarmScheduler(di.NewWarmUsecase(cfg, candlesUC), cfg.Warm.Symbols, 30*time.Minute)
		if err := ws.Register(cfg.Warm.Schedule); err != nil {
			log.Error("invalid warm schedule", "schedule", cfg.Warm.Schedule, "error", err)
			os.Exit(1)
		}
		ws.Start()
		defer ws.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error("http server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
