package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"veritrack/internal/apperrors"
	"veritrack/internal/domain"
	"veritrack/internal/ports"
)

// Server exposes the four core operations plus the connection endpoints.
type Server struct {
	scores      ports.Scores
	roi         ports.ROI
	detection   ports.Detection
	connections ports.Connections
	logger      *zap.Logger
}

func New(scores ports.Scores, roi ports.ROI, detection ports.Detection, connections ports.Connections, logger *zap.Logger) *Server {
	return &Server{
		scores:      scores,
		roi:         roi,
		detection:   detection,
		connections: connections,
		logger:      logger.Named("http"),
	}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.health)
	r.Get("/api/people/{id}/score", s.getScore)
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(withActor)
		r.Post("/scores/recalculate", s.recalculateScores)
		r.Post("/roi/recalculate", s.recalculateROI)
		r.Post("/flags/detect", s.runDetectors)
		r.Post("/accountability/publish", s.publishPreviews)
		r.Get("/connections", s.listConnections)
		r.Post("/connections", s.createConnection)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getScore(w http.ResponseWriter, r *http.Request) {
	read, err := s.scores.GetOrCompute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, read)
}

func (s *Server) recalculateScores(w http.ResponseWriter, r *http.Request) {
	result, err := s.scores.RecalculateAll(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, result)
}

func (s *Server) recalculateROI(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			s.respond(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	result, err := s.roi.RecalculateAll(r.Context(), limit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{
		"calculated": result.Processed,
		"errors":     result.Errors,
	})
}

func (s *Server) runDetectors(w http.ResponseWriter, r *http.Request) {
	result, err := s.detection.RunAll(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, result)
}

func (s *Server) publishPreviews(w http.ResponseWriter, r *http.Request) {
	published, err := s.scores.PublishExpiredPreviews(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]int{"published": published})
}

func (s *Server) listConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := s.connections.List(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	if conns == nil {
		conns = []domain.AdminConnection{}
	}
	s.respond(w, http.StatusOK, conns)
}

func (s *Server) createConnection(w http.ResponseWriter, r *http.Request) {
	var conn domain.AdminConnection
	if err := json.NewDecoder(r.Body).Decode(&conn); err != nil {
		s.respond(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	created, err := s.connections.Create(r.Context(), conn)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, created)
}

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("write response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrUnauthorized):
		s.respond(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	case errors.Is(err, apperrors.ErrNotFound):
		s.respond(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	case errors.Is(err, apperrors.ErrValidation):
		s.respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		s.respond(w, http.StatusConflict, map[string]string{"error": "This connection already exists"})
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.respond(w, http.StatusInternalServerError, map[string]string{"error": "Internal error"})
	}
}
