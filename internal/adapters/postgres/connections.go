package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"veritrack/internal/apperrors"
	"veritrack/internal/domain"
)

// ConnectionRepository.

const uniqueViolation = "23505"

func (db *DB) Create(ctx context.Context, conn *domain.AdminConnection) error {
	evidenceJSON, err := json.Marshal(conn.Evidence)
	if err != nil {
		return fmt.Errorf("marshal connection evidence: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
        INSERT INTO admin_connections (
            id, source_type, source_id, target_type, target_id,
            connection_type, evidence, notes, created_by, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `,
		conn.ID, conn.SourceType, conn.SourceID, conn.TargetType, conn.TargetID,
		conn.ConnectionType, evidenceJSON, conn.Notes, conn.CreatedBy, conn.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("connection already exists: %w", apperrors.ErrConflict)
	}
	return err
}

func (db *DB) ListRecent(ctx context.Context, limit int) ([]domain.AdminConnection, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT id, source_type, source_id, target_type, target_id,
               connection_type, COALESCE(evidence, '{}'::jsonb), COALESCE(notes, ''), created_by, created_at
        FROM admin_connections
        ORDER BY created_at DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []domain.AdminConnection
	for rows.Next() {
		var c domain.AdminConnection
		var evidenceJSON []byte
		if err := rows.Scan(
			&c.ID, &c.SourceType, &c.SourceID, &c.TargetType, &c.TargetID,
			&c.ConnectionType, &evidenceJSON, &c.Notes, &c.CreatedBy, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(evidenceJSON) > 0 {
			if err := json.Unmarshal(evidenceJSON, &c.Evidence); err != nil {
				return nil, err
			}
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}
