package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"veritrack/internal/apperrors"
	"veritrack/internal/domain"
)

// ScoreRepository. State-changing methods write their audit rows inside the
// same transaction, so a published score always carries an audit entry.

func (db *DB) Get(ctx context.Context, personID string) (*domain.AccountabilityScore, error) {
	var s domain.AccountabilityScore
	err := db.Pool.QueryRow(ctx, `
        SELECT id, person_id, overall_score,
               completion_score, delivery_score, community_score, efficiency_score, communication_score,
               flag_penalty, confirmed_flags, badge, confidence, data_points,
               status, calculated_at, preview_until, published_at
        FROM accountability_scores
        WHERE person_id = $1
    `, personID).Scan(
		&s.ID, &s.PersonID, &s.OverallScore,
		&s.Breakdown.Completion, &s.Breakdown.Delivery, &s.Breakdown.Community,
		&s.Breakdown.Efficiency, &s.Breakdown.Communication,
		&s.FlagPenalty, &s.ConfirmedFlags, &s.Badge, &s.Confidence, &s.DataPoints,
		&s.Status, &s.CalculatedAt, &s.PreviewUntil, &s.PublishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("score for person %s: %w", personID, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (db *DB) SavePreview(ctx context.Context, score *domain.AccountabilityScore, payload map[string]any) (err error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	// Upsert keyed by person id; a recompute always resets the row to
	// preview and restarts the cooldown.
	var scoreID string
	err = tx.QueryRow(ctx, `
        INSERT INTO accountability_scores (
            id, person_id, overall_score,
            completion_score, delivery_score, community_score, efficiency_score, communication_score,
            flag_penalty, confirmed_flags, badge, confidence, data_points,
            status, calculated_at, preview_until, published_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NULL)
        ON CONFLICT (person_id) DO UPDATE SET
            overall_score = EXCLUDED.overall_score,
            completion_score = EXCLUDED.completion_score,
            delivery_score = EXCLUDED.delivery_score,
            community_score = EXCLUDED.community_score,
            efficiency_score = EXCLUDED.efficiency_score,
            communication_score = EXCLUDED.communication_score,
            flag_penalty = EXCLUDED.flag_penalty,
            confirmed_flags = EXCLUDED.confirmed_flags,
            badge = EXCLUDED.badge,
            confidence = EXCLUDED.confidence,
            data_points = EXCLUDED.data_points,
            status = EXCLUDED.status,
            calculated_at = EXCLUDED.calculated_at,
            preview_until = EXCLUDED.preview_until,
            published_at = NULL
        RETURNING id
    `,
		score.ID, score.PersonID, score.OverallScore,
		score.Breakdown.Completion, score.Breakdown.Delivery, score.Breakdown.Community,
		score.Breakdown.Efficiency, score.Breakdown.Communication,
		score.FlagPenalty, score.ConfirmedFlags, score.Badge, score.Confidence, score.DataPoints,
		score.Status, score.CalculatedAt, score.PreviewUntil,
	).Scan(&scoreID)
	if err != nil {
		return err
	}
	score.ID = scoreID

	_, err = tx.Exec(ctx, `
        INSERT INTO accountability_score_audits (id, score_id, action, payload, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, uuid.NewString(), scoreID, domain.AuditScoreCalculated, payloadJSON, score.CalculatedAt)
	return err
}

func (db *DB) PublishExpired(ctx context.Context, now time.Time) (published int, err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	// The status condition makes racing sweeps safe: whoever commits first
	// wins, the loser's update matches zero rows.
	rows, err := tx.Query(ctx, `
        UPDATE accountability_scores
        SET status = 'published', published_at = $1
        WHERE status = 'preview' AND preview_until <= $1
        RETURNING id
    `, now)
	if err != nil {
		return 0, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	payload := []byte(`{"reason": "preview_expired"}`)
	for _, id := range ids {
		if _, err = tx.Exec(ctx, `
            INSERT INTO accountability_score_audits (id, score_id, action, payload, created_at)
            VALUES ($1, $2, $3, $4, $5)
        `, uuid.NewString(), id, domain.AuditScorePublished, payload, now); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

func (db *DB) PublishOne(ctx context.Context, personID string, now time.Time) (published bool, err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	var scoreID string
	err = tx.QueryRow(ctx, `
        UPDATE accountability_scores
        SET status = 'published', published_at = $2
        WHERE person_id = $1 AND status = 'preview' AND preview_until <= $2
        RETURNING id
    `, personID, now).Scan(&scoreID)
	if errors.Is(err, pgx.ErrNoRows) {
		err = nil
		return false, nil
	}
	if err != nil {
		return false, err
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO accountability_score_audits (id, score_id, action, payload, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, uuid.NewString(), scoreID, domain.AuditScorePublished, []byte(`{"reason": "preview_expired"}`), now)
	if err != nil {
		return false, err
	}
	return true, nil
}
