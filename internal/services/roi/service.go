package roi

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"veritrack/internal/config"
	"veritrack/internal/domain"
	"veritrack/internal/ports"
)

// Service drives the ROI calculator over a bounded set of funded projects.
type Service struct {
	evidence ports.EvidenceRepository
	rois     ports.ROIRepository
	auth     ports.Authorizer
	cfg      config.ROIConfig
	logger   *zap.Logger
	now      func() time.Time
}

func New(evidence ports.EvidenceRepository, rois ports.ROIRepository, auth ports.Authorizer, cfg config.ROIConfig, logger *zap.Logger) *Service {
	return &Service{
		evidence: evidence,
		rois:     rois,
		auth:     auth,
		cfg:      cfg,
		logger:   logger.Named("roi"),
		now:      time.Now,
	}
}

var _ ports.ROI = (*Service)(nil)

// RecalculateAll recomputes ROI for up to limit funded projects in stable id
// order. A failing project is recorded and the batch continues.
func (s *Service) RecalculateAll(ctx context.Context, limit int) (domain.BatchResult, error) {
	if err := s.auth.RequireAdmin(ctx); err != nil {
		return domain.BatchResult{}, err
	}
	if limit <= 0 || limit > s.cfg.BatchLimit {
		limit = s.cfg.BatchLimit
	}

	projects, err := s.evidence.ListFundedProjects(ctx, limit)
	if err != nil {
		return domain.BatchResult{}, err
	}

	var result domain.BatchResult
	for _, p := range projects {
		if err := s.calculateAndStore(ctx, p.ID); err != nil {
			result.Errors = append(result.Errors, domain.BatchError{EntityID: p.ID, Message: err.Error()})
			s.logger.Warn("roi recompute failed", zap.String("project_id", p.ID), zap.Error(err))
			continue
		}
		result.Processed++
	}
	s.logger.Info("roi batch finished",
		zap.Int("calculated", result.Processed),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

func (s *Service) calculateAndStore(ctx context.Context, projectID string) error {
	ev, err := s.evidence.ProjectEvidence(ctx, projectID)
	if err != nil {
		return err
	}
	res := Calculate(ev, s.cfg, s.now())
	row := &domain.ProjectROI{
		ID:               uuid.NewString(),
		ProjectID:        res.ProjectID,
		GithubScore:      res.GithubScore,
		DeliverableScore: res.DeliverableScore,
		OnchainScore:     res.OnchainScore,
		CommunityScore:   res.CommunityScore,
		OutcomeScore:     res.OutcomeScore,
		FundingAmount:    res.FundingAmount,
		ROIScore:         res.ROIScore,
		Breakdown:        res.Breakdown,
		CalculatedAt:     res.CalculatedAt,
	}
	if err := s.rois.Append(ctx, row); err != nil {
		return fmt.Errorf("store roi: %w", err)
	}
	return nil
}
