package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"veritrack/internal/domain"
)

// ROIRepository. History rows are append-only; the latest row per project is
// the current ROI.

func (db *DB) Append(ctx context.Context, roi *domain.ProjectROI) error {
	breakdownJSON, err := json.Marshal(roi.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal roi breakdown: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
        INSERT INTO project_roi (
            id, project_id, github_score, deliverable_score, onchain_score, community_score,
            outcome_score, funding_amount, roi_score, breakdown, calculated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `,
		roi.ID, roi.ProjectID, roi.GithubScore, roi.DeliverableScore, roi.OnchainScore,
		roi.CommunityScore, roi.OutcomeScore, roi.FundingAmount, roi.ROIScore,
		breakdownJSON, roi.CalculatedAt,
	)
	return err
}
