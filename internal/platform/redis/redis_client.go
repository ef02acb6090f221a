// Package redis builds the go-redis client used by the candle cache.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

// Config describes how to reach Redis. URL takes precedence over Host/Port.
type Config struct {
	URL            string
	Host           string
	Port           string
	Password       string
	DB             int
	ConnectTimeout time.Duration // total time spent retrying the initial PING
}

// Options converts the config to go-redis options.
func (c Config) Options() (*redis.Options, error) {
	if c.URL != "" {
		opt, err := redis.ParseURL(c.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opt, nil
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(c.Host, c.Port),
		Password: c.Password,
		DB:       c.DB,
	}, nil
}

// NewRedisClient connects to Redis and verifies the connection with PING,
// retrying with exponential backoff until ConnectTimeout elapses.
func NewRedisClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	opt, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = cfg.ConnectTimeout
	if b.MaxElapsedTime <= 0 {
		b.MaxElapsedTime = 10 * time.Second
	}

	// 接続確認
	ping := func() error {
		return rdb.Ping(ctx).Err()
	}
	notify := func(err error, wait time.Duration) {
		slog.Warn("Redis ping failed, retrying", "address", opt.Addr, "wait", wait, "error", err)
	}
	if err := backoff.RetryNotify(ping, backoff.WithContext(b, ctx), notify); err != nil {
		slog.Error("Redis connection failed", "address", opt.Addr, "error", err)
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opt.Addr, err)
	}

	slog.Info("Redis connection successful", "address", opt.Addr, "db", opt.DB)
	return rdb, nil
}
