package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"veritrack/internal/apperrors"
	"veritrack/internal/domain"
	"veritrack/internal/ports"
)

type scoresStub struct {
	read      domain.ScoreRead
	readErr   error
	batch     domain.BatchResult
	published int
	lastActor ports.Actor
}

func (s *scoresStub) GetOrCompute(_ context.Context, personID string) (domain.ScoreRead, error) {
	if s.readErr != nil {
		return domain.ScoreRead{}, s.readErr
	}
	read := s.read
	read.PersonID = personID
	return read, nil
}

func (s *scoresStub) RecalculateAll(ctx context.Context) (domain.BatchResult, error) {
	s.lastActor, _ = ports.ActorFrom(ctx)
	return s.batch, nil
}

func (s *scoresStub) PublishExpiredPreviews(context.Context) (int, error) {
	return s.published, nil
}

type roiStub struct {
	lastLimit int
}

func (s *roiStub) RecalculateAll(_ context.Context, limit int) (domain.BatchResult, error) {
	s.lastLimit = limit
	return domain.BatchResult{Processed: 3}, nil
}

type detectionStub struct{}

func (detectionStub) RunAll(context.Context) (domain.DetectionResult, error) {
	return domain.DetectionResult{Created: 2, Skipped: 1}, nil
}

type connectionsStub struct {
	err error
}

func (s *connectionsStub) Create(_ context.Context, conn domain.AdminConnection) (domain.AdminConnection, error) {
	if s.err != nil {
		return domain.AdminConnection{}, s.err
	}
	conn.ID = "c1"
	return conn, nil
}

func (s *connectionsStub) List(context.Context) ([]domain.AdminConnection, error) {
	return nil, s.err
}

func newTestServer(scores *scoresStub, conns *connectionsStub) (*Server, *roiStub) {
	roi := &roiStub{}
	srv := New(scores, roi, detectionStub{}, conns, zap.NewNop())
	return srv, roi
}

func TestGetScore(t *testing.T) {
	scores := &scoresStub{read: domain.ScoreRead{Score: 73, Badge: domain.BadgeReliable, Cached: true}}
	srv, _ := newTestServer(scores, &connectionsStub{})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/people/alice/score", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body domain.ScoreRead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alice", body.PersonID)
	assert.Equal(t, 73, body.Score)
	assert.True(t, body.Cached)
}

func TestGetScoreNotFound(t *testing.T) {
	scores := &scoresStub{readErr: fmt.Errorf("person ghost: %w", apperrors.ErrNotFound)}
	srv, _ := newTestServer(scores, &connectionsStub{})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/people/ghost/score", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminRoutesAttachBearerToken(t *testing.T) {
	scores := &scoresStub{}
	srv, _ := newTestServer(scores, &connectionsStub{})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/scores/recalculate", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s3cret", scores.lastActor.Token)
	assert.False(t, scores.lastActor.System)
}

func TestRecalculateROILimit(t *testing.T) {
	srv, roi := newTestServer(&scoresStub{}, &connectionsStub{})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/roi/recalculate?limit=25", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 25, roi.lastLimit)

	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/roi/recalculate?limit=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/roi/recalculate?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateConnection(t *testing.T) {
	srv, _ := newTestServer(&scoresStub{}, &connectionsStub{})

	body := `{"sourceType":"person","sourceId":"alice","targetType":"project","targetId":"p1","connectionType":"team_member"}`
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/connections", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.AdminConnection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "c1", created.ID)
}

func TestCreateConnectionErrors(t *testing.T) {
	t.Run("invalid body", func(t *testing.T) {
		srv, _ := newTestServer(&scoresStub{}, &connectionsStub{})
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/connections", strings.NewReader("{")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate", func(t *testing.T) {
		srv, _ := newTestServer(&scoresStub{}, &connectionsStub{err: apperrors.ErrConflict})
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/connections", strings.NewReader("{}")))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unauthorized", func(t *testing.T) {
		srv, _ := newTestServer(&scoresStub{}, &connectionsStub{err: apperrors.ErrUnauthorized})
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/connections", strings.NewReader("{}")))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestListConnectionsEmptyIsArray(t *testing.T) {
	srv, _ := newTestServer(&scoresStub{}, &connectionsStub{})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/connections", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}
