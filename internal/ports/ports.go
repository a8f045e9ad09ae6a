package ports

import (
	"context"

	"veritrack/internal/domain"
)

// Scores serves cached-or-computed accountability scores and drives the
// preview/published lifecycle.
type Scores interface {
	GetOrCompute(ctx context.Context, personID string) (domain.ScoreRead, error)
	RecalculateAll(ctx context.Context) (domain.BatchResult, error)
	PublishExpiredPreviews(ctx context.Context) (int, error)
}

// ROI recomputes project ROI over a bounded set of funded projects.
type ROI interface {
	RecalculateAll(ctx context.Context, limit int) (domain.BatchResult, error)
}

// Detection runs the fixed detector set over the evidence store.
type Detection interface {
	RunAll(ctx context.Context) (domain.DetectionResult, error)
}

// Connections manages admin evidence edges.
type Connections interface {
	Create(ctx context.Context, conn domain.AdminConnection) (domain.AdminConnection, error)
	List(ctx context.Context) ([]domain.AdminConnection, error)
}
