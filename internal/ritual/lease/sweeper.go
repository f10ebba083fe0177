package lease

import (
	"context"
	"time"

	"github.com/yungbote/firstflame-backend/internal/platform/logger"
)

type Sweepable interface {
	Sweep(ctx context.Context) (int64, error)
}

// Sweeper periodically removes expired leases.
type Sweeper struct {
	target   Sweepable
	interval time.Duration
	log      *logger.Logger
	onSwept  func(n int64)
}

func NewSweeper(target Sweepable, interval time.Duration, baseLog *logger.Logger, onSwept func(n int64)) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{target: target, interval: interval, log: baseLog.With("service", "LeaseSweeper"), onSwept: onSwept}
}

// Run blocks until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	if s == nil || s.target == nil {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

func (s *Sweeper) SweepOnce(ctx context.Context) int64 {
	n, err := s.target.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn("lease sweep failed", "error", err)
		}
		return 0
	}
	if n > 0 {
		s.log.Info("expired leases swept", "count", n)
		if s.onSwept != nil {
			s.onSwept(n)
		}
	}
	return n
}
