package publishrunner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"veritrack/internal/ports"
)

// Run sweeps expired previews on a fixed interval until ctx is cancelled.
// The sweep itself is idempotent, so overlapping invocations (or an external
// admin trigger racing this loop) publish each score exactly once.
func Run(ctx context.Context, scores ports.Scores, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		return
	}
	logger = logger.Named("publishrunner")
	ctx = ports.WithActor(ctx, ports.Actor{System: true})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			published, err := scores.PublishExpiredPreviews(ctx)
			if err != nil {
				logger.Error("publish sweep failed", zap.Error(err))
				continue
			}
			if published > 0 {
				logger.Info("publish sweep completed", zap.Int("published", published))
			}
		}
	}
}
