// Package scheduler runs cache warming on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"stocky_backend/internal/feature/candles/usecase"
)

// Warmer is the cache warming use case.
type Warmer interface {
	WarmAll(ctx context.Context, symbols []string) (usecase.WarmReport, error)
}

// WarmScheduler triggers Warmer on a six-field (seconds first) cron expression.
type WarmScheduler struct {
	Cron    *cron.Cron
	warmer  Warmer
	symbols []string
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex // one run at a time
}

// NewWarmScheduler creates a WarmScheduler. Each run is bounded by timeout.
func NewWarmScheduler(warmer Warmer, symbols []string, timeout time.Duration) *WarmScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &WarmScheduler{
		Cron:    cron.New(cron.WithSeconds()),
		warmer:  warmer,
		symbols: symbols,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register adds the warm task under spec.
func (s *WarmScheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.RunNow); err != nil {
		return fmt.Errorf("register warm task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *WarmScheduler) Start() {
	s.Cron.Start()
	slog.Info("warm scheduler started", "symbols", len(s.symbols))
}

// Stop cancels a running warm and waits for it to return.
func (s *WarmScheduler) Stop() {
	s.cancel()
	<-s.Cron.Stop().Done()
	slog.Info("warm scheduler stopped")
}

// RunNow executes one warm immediately. Overlapping runs are skipped.
func (s *WarmScheduler) RunNow() {
	if !s.mu.TryLock() {
		slog.Warn("warm already running, skipping")
		return
	}
	defer s.mu.Unlock()

	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if _, err := s.warmer.WarmAll(ctx, s.symbols); err != nil {
		slog.Error("scheduled warm aborted", "error", err)
	}
}
