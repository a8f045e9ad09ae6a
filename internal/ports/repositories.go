package ports

import (
	"context"
	"time"

	"veritrack/internal/domain"
)

// EvidenceRepository reads contributor and project evidence. The underlying
// tables are written by the ingestion layer, never by this service.
type EvidenceRepository interface {
	PersonExists(ctx context.Context, personID string) (bool, error)
	// ListPeople returns all people in stable id order.
	ListPeople(ctx context.Context) ([]domain.Person, error)
	PersonEvidence(ctx context.Context, personID string) (domain.PersonEvidence, error)

	// ListFundedProjects returns up to limit funded projects in stable id order.
	ListFundedProjects(ctx context.Context, limit int) ([]domain.Project, error)
	ProjectEvidence(ctx context.Context, projectID string) (domain.ProjectEvidence, error)

	// Detection reads: full project and milestone snapshots.
	ListProjects(ctx context.Context) ([]domain.Project, error)
	ListMilestones(ctx context.Context) ([]domain.Milestone, error)
}

// ScoreRepository owns the accountability score rows and their audit trail.
// Methods that change publication state write the matching audit rows in the
// same transaction, so a published score can never lack an audit entry.
type ScoreRepository interface {
	// Get returns the stored score for a person, or apperrors.ErrNotFound.
	Get(ctx context.Context, personID string) (*domain.AccountabilityScore, error)
	// SavePreview upserts the score keyed by person id, resetting it to
	// preview, and appends a score_calculated audit row.
	SavePreview(ctx context.Context, score *domain.AccountabilityScore, payload map[string]any) error
	// PublishExpired promotes every preview whose window has passed and
	// appends one score_published audit row per promoted score. Returns the
	// number promoted; a racing sweep selects zero rows.
	PublishExpired(ctx context.Context, now time.Time) (int, error)
	// PublishOne promotes a single expired preview, if any. Returns whether
	// a promotion happened.
	PublishOne(ctx context.Context, personID string, now time.Time) (bool, error)
}

// FlagRepository owns detector findings.
type FlagRepository interface {
	// CreateIfAbsent inserts the flag unless one with the same
	// (target, category, signature) already exists. Reports whether a row
	// was created.
	CreateIfAbsent(ctx context.Context, flag *domain.Flag) (bool, error)
}

// ConnectionRepository owns admin evidence edges.
type ConnectionRepository interface {
	// Create inserts the connection; a duplicate 5-tuple yields
	// apperrors.ErrConflict.
	Create(ctx context.Context, conn *domain.AdminConnection) error
	ListRecent(ctx context.Context, limit int) ([]domain.AdminConnection, error)
}

// ROIRepository owns the append-only ROI history.
type ROIRepository interface {
	Append(ctx context.Context, roi *domain.ProjectROI) error
}
