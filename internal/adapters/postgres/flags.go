package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"veritrack/internal/domain"
)

// FlagRepository.

// CreateIfAbsent relies on the unique index over (target_type, target_id,
// category, dedup_signature): a concurrent detector finding the same anomaly
// loses the insert race and is counted as skipped, not failed.
func (db *DB) CreateIfAbsent(ctx context.Context, flag *domain.Flag) (bool, error) {
	evidenceJSON, err := json.Marshal(flag.Evidence)
	if err != nil {
		return false, fmt.Errorf("marshal flag evidence: %w", err)
	}

	tag, err := db.Pool.Exec(ctx, `
        INSERT INTO flags (
            id, target_type, target_id, category, severity,
            status, title, description, evidence, dedup_signature, created_at
        ) VALUES ($1, $2, $3, $4, $5, 'pending', $6, $7, $8, $9, $10)
        ON CONFLICT (target_type, target_id, category, dedup_signature) DO NOTHING
    `,
		flag.ID, flag.TargetType, flag.TargetID, flag.Category, flag.Severity,
		flag.Title, flag.Description, evidenceJSON, flag.Signature, flag.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
