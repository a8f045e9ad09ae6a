package roi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"veritrack/internal/apperrors"
	"veritrack/internal/domain"
)

type allowAll struct{}

func (allowAll) RequireAdmin(context.Context) error { return nil }

type denyAll struct{}

func (denyAll) RequireAdmin(context.Context) error { return apperrors.ErrUnauthorized }

type evidenceStub struct {
	projects    []domain.Project
	evidenceErr map[string]error
	limits      []int
}

func (s *evidenceStub) PersonExists(context.Context, string) (bool, error) { return false, nil }

func (s *evidenceStub) ListPeople(context.Context) ([]domain.Person, error) { return nil, nil }

func (s *evidenceStub) PersonEvidence(context.Context, string) (domain.PersonEvidence, error) {
	return domain.PersonEvidence{}, nil
}

func (s *evidenceStub) ListFundedProjects(_ context.Context, limit int) ([]domain.Project, error) {
	s.limits = append(s.limits, limit)
	if limit < len(s.projects) {
		return s.projects[:limit], nil
	}
	return s.projects, nil
}

func (s *evidenceStub) ProjectEvidence(_ context.Context, projectID string) (domain.ProjectEvidence, error) {
	if err := s.evidenceErr[projectID]; err != nil {
		return domain.ProjectEvidence{}, err
	}
	for _, p := range s.projects {
		if p.ID == projectID {
			return domain.ProjectEvidence{Project: p}, nil
		}
	}
	return domain.ProjectEvidence{}, apperrors.ErrNotFound
}

func (s *evidenceStub) ListProjects(context.Context) ([]domain.Project, error)     { return nil, nil }
func (s *evidenceStub) ListMilestones(context.Context) ([]domain.Milestone, error) { return nil, nil }

type roiStoreStub struct {
	rows []*domain.ProjectROI
	err  error
}

func (s *roiStoreStub) Append(_ context.Context, roi *domain.ProjectROI) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, roi)
	return nil
}

func TestRecalculateAllAppendsHistory(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	evidence := &evidenceStub{projects: []domain.Project{
		{ID: "p1", FundingAmount: 10000, GithubActivityScore: 40},
		{ID: "p2", FundingAmount: 20000, GithubActivityScore: 60},
	}}
	store := &roiStoreStub{}
	svc := New(evidence, store, allowAll{}, testROIConfig(), zap.NewNop())
	svc.now = func() time.Time { return now }

	result, err := svc.RecalculateAll(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Empty(t, result.Errors)
	require.Len(t, store.rows, 2)
	assert.Equal(t, "p1", store.rows[0].ProjectID)
	assert.Equal(t, now, store.rows[0].CalculatedAt)
	assert.NotEmpty(t, store.rows[0].ID)

	// History is append-only: a second run adds new rows.
	_, err = svc.RecalculateAll(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, store.rows, 4)
}

func TestRecalculateAllClampsLimit(t *testing.T) {
	evidence := &evidenceStub{projects: []domain.Project{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}}}
	cfg := testROIConfig()
	cfg.BatchLimit = 2
	svc := New(evidence, &roiStoreStub{}, allowAll{}, cfg, zap.NewNop())

	result, err := svc.RecalculateAll(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, []int{2}, evidence.limits)

	_, err = svc.RecalculateAll(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, evidence.limits)
}

func TestRecalculateAllIsolatesFailures(t *testing.T) {
	evidence := &evidenceStub{
		projects:    []domain.Project{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}},
		evidenceErr: map[string]error{"p2": errors.New("snapshot query failed")},
	}
	store := &roiStoreStub{}
	svc := New(evidence, store, allowAll{}, testROIConfig(), zap.NewNop())

	result, err := svc.RecalculateAll(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "p2", result.Errors[0].EntityID)
	assert.Len(t, store.rows, 2)
}

func TestRecalculateAllRequiresAdmin(t *testing.T) {
	evidence := &evidenceStub{projects: []domain.Project{{ID: "p1"}}}
	svc := New(evidence, &roiStoreStub{}, denyAll{}, testROIConfig(), zap.NewNop())

	_, err := svc.RecalculateAll(context.Background(), 0)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Empty(t, evidence.limits)
}
