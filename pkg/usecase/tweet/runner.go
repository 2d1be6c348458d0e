package tweet

import (
	"context"
	"time"

	"github.com/marvin-labs/memoria/pkg/utils/logging"
)

// Runner executes the batch processor on a fixed interval. The first run
// happens immediately; cancellation of the context stops the loop.
type Runner struct {
	uc       *UseCase
	interval time.Duration
	opts     ProcessOptions
}

func NewRunner(uc *UseCase, interval time.Duration, opts ProcessOptions) *Runner {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &Runner{uc: uc, interval: interval, opts: opts}
}

// Run blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	logger := logging.From(ctx)
	logger.Info("tweet processor runner started", "interval", r.interval)

	r.runOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.runOnce(ctx)
		case <-ctx.Done():
			logger.Info("tweet processor runner stopped")
			return
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	if _, err := r.uc.Process(ctx, r.opts); err != nil && ctx.Err() == nil {
		logging.From(ctx).Error("scheduled tweet batch failed", "error", err)
	}
}
