package scoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"veritrack/internal/apperrors"
	"veritrack/internal/config"
	"veritrack/internal/domain"
	"veritrack/internal/ports"
)

// Service owns the stored score per person: it decides when a cached value
// is fresh enough to serve, recomputes and stages new previews, and promotes
// expired previews to published.
type Service struct {
	evidence ports.EvidenceRepository
	scores   ports.ScoreRepository
	auth     ports.Authorizer
	cfg      config.ScoringConfig
	logger   *zap.Logger
	now      func() time.Time
}

func New(evidence ports.EvidenceRepository, scores ports.ScoreRepository, auth ports.Authorizer, cfg config.ScoringConfig, logger *zap.Logger) *Service {
	return &Service{
		evidence: evidence,
		scores:   scores,
		auth:     auth,
		cfg:      cfg,
		logger:   logger.Named("scoring"),
		now:      time.Now,
	}
}

var _ ports.Scores = (*Service)(nil)

// GetOrCompute serves the cached score when it is inside the freshness
// window, promoting an expired preview on the way out; otherwise it
// recomputes, stages the result as a preview and audits the calculation.
func (s *Service) GetOrCompute(ctx context.Context, personID string) (domain.ScoreRead, error) {
	cached, err := s.scores.Get(ctx, personID)
	switch {
	case err == nil:
		now := s.now()
		if cached.Status == domain.ScoreStatusPreview && cached.PreviewUntil != nil && !cached.PreviewUntil.After(now) {
			published, err := s.scores.PublishOne(ctx, personID, now)
			if err != nil {
				return domain.ScoreRead{}, fmt.Errorf("publish expired preview: %w", err)
			}
			if published {
				cached.Status = domain.ScoreStatusPublished
				cached.PublishedAt = &now
			}
		}
		if now.Sub(cached.CalculatedAt) < s.cfg.FreshnessWindow {
			return readFromStored(cached, true), nil
		}
	case errors.Is(err, apperrors.ErrNotFound):
		// fall through to a fresh computation
	default:
		return domain.ScoreRead{}, err
	}
	return s.computeAndStore(ctx, personID)
}

func (s *Service) computeAndStore(ctx context.Context, personID string) (domain.ScoreRead, error) {
	exists, err := s.evidence.PersonExists(ctx, personID)
	if err != nil {
		return domain.ScoreRead{}, err
	}
	if !exists {
		return domain.ScoreRead{}, fmt.Errorf("person %s: %w", personID, apperrors.ErrNotFound)
	}

	ev, err := s.evidence.PersonEvidence(ctx, personID)
	if err != nil {
		return domain.ScoreRead{}, err
	}

	result := Calculate(personID, ev, s.cfg, s.now())
	previewUntil := result.CalculatedAt.Add(s.cfg.PreviewCooldown)
	score := &domain.AccountabilityScore{
		ID:             uuid.NewString(),
		PersonID:       personID,
		OverallScore:   result.Overall,
		Breakdown:      result.Breakdown,
		FlagPenalty:    result.FlagPenalty,
		ConfirmedFlags: result.ConfirmedFlags,
		Badge:          result.Badge,
		Confidence:     result.Confidence,
		DataPoints:     result.DataPoints,
		Status:         domain.ScoreStatusPreview,
		CalculatedAt:   result.CalculatedAt,
		PreviewUntil:   &previewUntil,
	}
	payload := map[string]any{"score": result.Overall, "badge": result.Badge}
	if err := s.scores.SavePreview(ctx, score, payload); err != nil {
		return domain.ScoreRead{}, fmt.Errorf("store score for %s: %w", personID, err)
	}

	s.logger.Info("score calculated",
		zap.String("person_id", personID),
		zap.Int("score", result.Overall),
		zap.String("badge", result.Badge),
		zap.Int("data_points", result.DataPoints))

	return readFromStored(score, false), nil
}

// RecalculateAll recomputes every person's score with a bounded worker pool.
// A failing person is recorded and the batch continues; errors come back in
// the people's stable id order.
func (s *Service) RecalculateAll(ctx context.Context) (domain.BatchResult, error) {
	if err := s.auth.RequireAdmin(ctx); err != nil {
		return domain.BatchResult{}, err
	}

	people, err := s.evidence.ListPeople(ctx)
	if err != nil {
		return domain.BatchResult{}, err
	}

	type outcome struct {
		idx int
		err error
	}

	workers := s.cfg.BatchWorkers
	if workers > len(people) {
		workers = len(people)
	}
	jobs := make(chan int)
	results := make(chan outcome)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				_, err := s.computeAndStore(ctx, people[idx].ID)
				results <- outcome{idx: idx, err: err}
			}
		}()
	}
	go func() {
		for idx := range people {
			jobs <- idx
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	failures := make(map[int]error)
	processed := 0
	for out := range results {
		if out.err != nil {
			failures[out.idx] = out.err
			continue
		}
		processed++
	}

	result := domain.BatchResult{Processed: processed}
	for idx, p := range people {
		if err, ok := failures[idx]; ok {
			result.Errors = append(result.Errors, domain.BatchError{EntityID: p.ID, Message: err.Error()})
			s.logger.Warn("score recompute failed", zap.String("person_id", p.ID), zap.Error(err))
		}
	}
	s.logger.Info("batch recompute finished",
		zap.Int("processed", result.Processed),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

// PublishExpiredPreviews promotes every preview whose window has passed.
// Promotion and audit happen in one transaction; a concurrent sweep that
// loses the race promotes zero rows.
func (s *Service) PublishExpiredPreviews(ctx context.Context) (int, error) {
	if err := s.auth.RequireAdmin(ctx); err != nil {
		return 0, err
	}
	published, err := s.scores.PublishExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("publish sweep: %w", err)
	}
	if published > 0 {
		s.logger.Info("previews published", zap.Int("count", published))
	}
	return published, nil
}

func readFromStored(score *domain.AccountabilityScore, cached bool) domain.ScoreRead {
	return domain.ScoreRead{
		PersonID:     score.PersonID,
		Score:        score.OverallScore,
		Badge:        score.Badge,
		Breakdown:    score.Breakdown,
		Confidence:   score.Confidence,
		DataPoints:   score.DataPoints,
		Status:       score.Status,
		PreviewUntil: score.PreviewUntil,
		CalculatedAt: score.CalculatedAt,
		Cached:       cached,
	}
}
