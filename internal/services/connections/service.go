package connections

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"veritrack/internal/apperrors"
	"veritrack/internal/domain"
	"veritrack/internal/ports"
)

const listLimit = 100

// Service manages admin evidence edges between entities.
type Service struct {
	repo   ports.ConnectionRepository
	auth   ports.Authorizer
	logger *zap.Logger
	now    func() time.Time
}

func New(repo ports.ConnectionRepository, auth ports.Authorizer, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		auth:   auth,
		logger: logger.Named("connections"),
		now:    time.Now,
	}
}

var _ ports.Connections = (*Service)(nil)

// Create validates and stores a new connection. A duplicate 5-tuple yields
// apperrors.ErrConflict; nothing is written on validation failure.
func (s *Service) Create(ctx context.Context, conn domain.AdminConnection) (domain.AdminConnection, error) {
	if err := s.auth.RequireAdmin(ctx); err != nil {
		return domain.AdminConnection{}, err
	}
	if err := validate(conn); err != nil {
		return domain.AdminConnection{}, err
	}

	conn.ID = uuid.NewString()
	conn.CreatedAt = s.now()
	if conn.CreatedBy == "" {
		conn.CreatedBy = "system"
	}
	if err := s.repo.Create(ctx, &conn); err != nil {
		return domain.AdminConnection{}, err
	}

	s.logger.Info("connection created",
		zap.String("source", conn.SourceType+":"+conn.SourceID),
		zap.String("target", conn.TargetType+":"+conn.TargetID),
		zap.String("type", conn.ConnectionType))
	return conn, nil
}

// List returns the most recently created connections.
func (s *Service) List(ctx context.Context) ([]domain.AdminConnection, error) {
	if err := s.auth.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListRecent(ctx, listLimit)
}

func validate(conn domain.AdminConnection) error {
	for field, value := range map[string]string{
		"sourceType":     conn.SourceType,
		"sourceId":       conn.SourceID,
		"targetType":     conn.TargetType,
		"targetId":       conn.TargetID,
		"connectionType": conn.ConnectionType,
	} {
		if value == "" {
			return fmt.Errorf("%w: missing %s", apperrors.ErrValidation, field)
		}
	}
	return nil
}
