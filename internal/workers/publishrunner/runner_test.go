package publishrunner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"veritrack/internal/domain"
	"veritrack/internal/ports"
)

type scoresStub struct {
	mu     sync.Mutex
	actors []ports.Actor
	sweeps int
	cancel context.CancelFunc
}

func (s *scoresStub) GetOrCompute(context.Context, string) (domain.ScoreRead, error) {
	return domain.ScoreRead{}, nil
}

func (s *scoresStub) RecalculateAll(context.Context) (domain.BatchResult, error) {
	return domain.BatchResult{}, nil
}

func (s *scoresStub) PublishExpiredPreviews(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	actor, _ := ports.ActorFrom(ctx)
	s.actors = append(s.actors, actor)
	s.sweeps++
	if s.sweeps >= 2 {
		s.cancel()
	}
	return 1, nil
}

func TestRunSweepsAsSystemActor(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	scores := &scoresStub{cancel: cancel}
	Run(ctx, scores, time.Millisecond, zap.NewNop())

	scores.mu.Lock()
	defer scores.mu.Unlock()
	assert.GreaterOrEqual(t, scores.sweeps, 2)
	for _, actor := range scores.actors {
		assert.True(t, actor.System)
	}
}

func TestRunRejectsNonPositiveInterval(t *testing.T) {
	scores := &scoresStub{cancel: func() {}}
	Run(context.Background(), scores, 0, zap.NewNop())
	assert.Zero(t, scores.sweeps)
}
