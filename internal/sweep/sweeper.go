// Package sweep runs the background expiry pass over stale funding requests.
package sweep

import (
	"context"
	"log/slog"
	"time"
)

// Expirer is any store-backed service that can expire its stale requests.
type Expirer interface {
	ExpireStale(ctx context.Context) (int64, error)
}

// Sweeper periodically expires stale pending requests across the registered
// services. Expiry is also enforced lazily at read/transition time; the
// sweeper only keeps the stores tidy and the notifications timely.
type Sweeper struct {
	interval time.Duration
	logger   *slog.Logger
	targets  map[string]Expirer
}

// New builds a sweeper over the named expiry targets. A non-positive interval
// falls back to five minutes.
func New(interval time.Duration, logger *slog.Logger, targets map[string]Expirer) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{interval: interval, logger: logger, targets: targets}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	for name, target := range s.targets {
		expired, err := target.ExpireStale(ctx)
		if err != nil {
			s.logger.Error("expiry sweep failed", slog.String("target", name), slog.Any("error", err))
			continue
		}
		if expired > 0 {
			s.logger.Info("expired stale requests", slog.String("target", name), slog.Int64("count", expired))
		}
	}
}
