package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/inlethq/inlet/internal/clock"
	"github.com/inlethq/inlet/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewStore builds the window store selected by configuration.
func NewStore(cfg config.Config, log *zap.Logger) (Store, error) {
	switch cfg.RateLimit.Store {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		if cfg.RateLimit.RedisAddr == "" {
			return nil, errors.New("rate limit redis addr is required")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.RedisPassword,
			DB:       cfg.RateLimit.RedisDB,
		})
		log.Named("ratelimit").Info("using redis window store",
			zap.String("addr", cfg.RateLimit.RedisAddr))
		return NewRedisStore(client), nil
	default:
		return nil, errors.New("unknown rate limit store: " + cfg.RateLimit.Store)
	}
}

// registerSweep runs the periodic memory-store sweep for the process lifetime.
// Redis bounds its own keys via PEXPIRE, so only the memory store needs it.
func registerSweep(lc fx.Lifecycle, store Store, cfg config.Config, clk clock.Clock, log *zap.Logger) {
	mem, ok := store.(*MemoryStore)
	if !ok {
		return
	}

	sweepLog := log.Named("ratelimit.sweep")
	done := make(chan struct{})
	var ticker *time.Ticker

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ticker = time.NewTicker(cfg.RateLimit.SweepInterval)
			go func() {
				for {
					select {
					case <-done:
						return
					case <-ticker.C:
						removed := mem.Sweep(cfg.RateLimit.Window, clk.Now())
						if removed > 0 {
							sweepLog.Debug("swept idle rate-limit keys", zap.Int("removed", removed))
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if ticker != nil {
				ticker.Stop()
			}
			close(done)
			return nil
		},
	})
}

var Module = fx.Module("rate.limit",
	fx.Provide(NewStore),
	fx.Invoke(registerSweep),
)
