package idempotency

import (
	"context"
	"time"

	"github.com/inkdraft/credits/internal/logger"
	"github.com/inkdraft/credits/internal/repository"
)

const defaultSweepInterval = 1 * time.Hour

// Sweeper removes expired idempotency keys from the store
// Keys live in the database (not in process memory) so every instance
// sees the same dedupe state; the sweeper keeps the table from growing
type Sweeper struct {
	interval time.Duration
	storage  repository.Storage
	logger   logger.Logger
}

func NewSweeper(interval time.Duration, storage repository.Storage, logger logger.Logger) *Sweeper {
	if interval == 0 {
		interval = defaultSweepInterval
	}

	return &Sweeper{
		interval: interval,
		storage:  storage,
		logger:   logger,
	}
}

// Run sweeps periodically until ctx is cancelled
// The returned channel closes when the sweeper fully stopped
func (s *Sweeper) Run(ctx context.Context) <-chan struct{} {
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Debug("Idempotency sweeper stopped")
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()

	return stopped
}

func (s *Sweeper) sweep(ctx context.Context) {
	deleted, err := s.storage.Idempotency().DeleteExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error("Failed to delete expired idempotency keys", "error", err)
		return
	}

	if deleted > 0 {
		s.logger.Info("Removed expired idempotency keys", "count", deleted)
	}
}
