package connections

import (
	"context"
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

type repoStub struct {
	created    []*domain.AdminConnection
	stored     []domain.AdminConnection
	listLimits []int
	createErr  error
}

func (r *repoStub) Create(_ context.Context, conn *domain.AdminConnection) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, conn)
	return nil
}

func (r *repoStub) ListRecent(_ context.Context, limit int) ([]domain.AdminConnection, error) {
	r.listLimits = append(r.listLimits, limit)
	return r.stored, nil
}

func validConnection() domain.AdminConnection {
	return domain.AdminConnection{
		SourceType:     "person",
		SourceID:       "alice",
		TargetType:     "project",
		TargetID:       "p1",
		ConnectionType: "team_member",
		Evidence:       map[string]any{"url": "https://example.com/thread"},
	}
}

func TestCreate(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	repo := &repoStub{}
	svc := New(repo, allowAll{}, zap.NewNop())
	svc.now = func() time.Time { return now }

	created, err := svc.Create(context.Background(), validConnection())
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, now, created.CreatedAt)
	assert.Equal(t, "system", created.CreatedBy)
	require.Len(t, repo.created, 1)
	assert.Equal(t, created.ID, repo.created[0].ID)
}

func TestCreateKeepsExplicitCreator(t *testing.T) {
	svc := New(&repoStub{}, allowAll{}, zap.NewNop())

	conn := validConnection()
	conn.CreatedBy = "reviewer-7"
	created, err := svc.Create(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, "reviewer-7", created.CreatedBy)
}

func TestCreateValidation(t *testing.T) {
	repo := &repoStub{}
	svc := New(repo, allowAll{}, zap.NewNop())

	for _, clear := range []func(*domain.AdminConnection){
		func(c *domain.AdminConnection) { c.SourceType = "" },
		func(c *domain.AdminConnection) { c.SourceID = "" },
		func(c *domain.AdminConnection) { c.TargetType = "" },
		func(c *domain.AdminConnection) { c.TargetID = "" },
		func(c *domain.AdminConnection) { c.ConnectionType = "" },
	} {
		conn := validConnection()
		clear(&conn)
		_, err := svc.Create(context.Background(), conn)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	}
	assert.Empty(t, repo.created, "nothing may be written on validation failure")
}

func TestCreateDuplicate(t *testing.T) {
	repo := &repoStub{createErr: apperrors.ErrConflict}
	svc := New(repo, allowAll{}, zap.NewNop())

	_, err := svc.Create(context.Background(), validConnection())
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestCreateRequiresAdmin(t *testing.T) {
	repo := &repoStub{}
	svc := New(repo, denyAll{}, zap.NewNop())

	_, err := svc.Create(context.Background(), validConnection())
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Empty(t, repo.created)
}

func TestList(t *testing.T) {
	repo := &repoStub{stored: []domain.AdminConnection{{ID: "c1"}, {ID: "c2"}}}
	svc := New(repo, allowAll{}, zap.NewNop())

	conns, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, conns, 2)
	assert.Equal(t, []int{100}, repo.listLimits)
}

func TestListRequiresAdmin(t *testing.T) {
	svc := New(&repoStub{}, denyAll{}, zap.NewNop())
	_, err := svc.List(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
