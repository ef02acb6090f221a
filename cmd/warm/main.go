package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stocky_backend/internal/app/di"
	"stocky_backend/internal/platform/config"
	"stocky_backend/internal/platform/logger"
)

func main() {
	symbolsFlag := flag.String("symbols", "", "comma separated symbols (default: WARM_SYMBOLS)")
	refresh := flag.Bool("refresh", false, "drop cached entries for each symbol before warming")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall deadline")
	flag.Parse()

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

	symbols := cfg.Warm.Symbols
	if *symbolsFlag != "" {
		symbols = nil
		for _, s := range strings.Split(*symbolsFlag, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				symbols = append(symbols, s)
			}
		}
	}
	if len(symbols) == 0 {
		log.Error("no symbols to warm; set WARM_SYMBOLS or -symbols")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	uc, closeCache, err := di.NewCandlesUsecase(ctx, cfg, nil)
	if err != nil {
		log.Error("failed to build candles usecase", "error", err)
		os.Exit(1)
	}
	defer closeCache()

	if *refresh {
		for _, s := range symbols {
			if err := uc.Invalidate(ctx, s); err != nil {
				log.Warn("failed to invalidate cached candles", "symbol", s, "error", err)
			}
		}
	}

	report, err := di.NewWarmUsecase(cfg, uc).WarmAll(ctx, symbols)
	if err != nil {
		log.Error("warm aborted", "requested", report.Requested, "error", err)
		closeCache()
		os.Exit(1)
	}
	log.Info("warm ok", "requested", report.Requested, "cached", report.Cached, "synthetic", report.Synthetic)
}
