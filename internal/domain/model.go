package domain

import "time"

// Core domain models used internally. The evidence tables (people, projects,
// milestones, reports, reviews, concerns) are owned by the ingestion layer;
// this service only reads them. Scores, audits, flags, connections and ROI
// rows are owned here.

// Badge tiers derived from the overall score.
const (
	BadgeTrusted    = "TRUSTED"
	BadgeReliable   = "RELIABLE"
	BadgeUnproven   = "UNPROVEN"
	BadgeConcerning = "CONCERNING"
)

// Score publication states.
const (
	ScoreStatusPreview   = "preview"
	ScoreStatusPublished = "published"
)

// Audit actions.
const (
	AuditScoreCalculated = "score_calculated"
	AuditScorePublished  = "score_published"
)

// Flag severities.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Project lifecycle states, as delivered by the ingestion feeds.
const (
	ProjectPending    = "pending"
	ProjectInProgress = "in_progress"
	ProjectDelayed    = "delayed"
	ProjectAtRisk     = "at_risk"
	ProjectComplete   = "complete"
	ProjectCancelled  = "cancelled"

	FundingFunded = "funded"
)

// Milestone states.
const (
	MilestonePending    = "pending"
	MilestoneInProgress = "in_progress"
	MilestoneComplete   = "complete"

	PoAApproved = "approved"
)

type Person struct {
	ID           string
	Name         string
	Aliases      []string
	ProjectCount int
}

type Project struct {
	ID            string
	Title         string
	Description   string
	Problem       string
	Solution      string
	FundID        string
	FundName      string
	Category      string
	Status        string
	FundingStatus string
	FundingAmount float64
	UpdatedAt     time.Time
	PersonIDs     []string

	// Synced metrics, populated by the GitHub and on-chain ingestion jobs.
	GithubStars            int
	GithubForks            int
	GithubContributors     int
	GithubActivityScore    int
	OnchainTxCount         int
	OnchainUniqueAddresses int
	OnchainTotalReceived   float64
}

type Milestone struct {
	ID         string
	ProjectID  string
	Title      string
	Status     string
	PoAStatus  string
	DueDate    *time.Time
	ApprovedAt *time.Time
}

// PersonEvidence is the snapshot of everything attributable to one person
// that the score calculator consumes.
type PersonEvidence struct {
	Projects         []Project
	Milestones       []Milestone
	ReportCount      int
	Ratings          []int // review ratings, 1-5
	Concerns         int
	ConcernsAnswered int
	// Severities of confirmed flags on the person's projects.
	ConfirmedFlagSeverities []string
}

// ProjectEvidence is the snapshot the ROI calculator consumes for one project.
type ProjectEvidence struct {
	Project    Project
	Milestones []Milestone
	Ratings    []int
}

type ScoreBreakdown struct {
	Completion    int `json:"completion"`
	Delivery      int `json:"delivery"`
	Community     int `json:"community"`
	Efficiency    int `json:"efficiency"`
	Communication int `json:"communication"`
}

// AccountabilityScore is the stored trust signal, unique per person.
type AccountabilityScore struct {
	ID             string
	PersonID       string
	OverallScore   int
	Breakdown      ScoreBreakdown
	FlagPenalty    int
	ConfirmedFlags int
	Badge          string
	Confidence     float64
	DataPoints     int
	Status         string
	CalculatedAt   time.Time
	PreviewUntil   *time.Time
	PublishedAt    *time.Time
}

// ScoreAudit is an append-only record of a scoring or publication event.
type ScoreAudit struct {
	ID        string
	ScoreID   string
	Action    string
	Payload   map[string]any
	CreatedAt time.Time
}

// ScoreRead is what callers of the score read operation receive.
type ScoreRead struct {
	PersonID     string         `json:"personId"`
	Score        int            `json:"score"`
	Badge        string         `json:"badge"`
	Breakdown    ScoreBreakdown `json:"breakdown"`
	Confidence   float64        `json:"confidence"`
	DataPoints   int            `json:"dataPoints"`
	Status       string         `json:"status"`
	PreviewUntil *time.Time     `json:"previewUntil,omitempty"`
	CalculatedAt time.Time      `json:"calculatedAt"`
	Cached       bool           `json:"cached"`
}

// Flag is a persisted detector finding awaiting human review.
type Flag struct {
	ID          string
	TargetType  string
	TargetID    string
	Category    string
	Severity    string
	Title       string
	Description string
	Evidence    map[string]any
	Signature   string
	CreatedAt   time.Time
}

// FlagCandidate is an unpersisted finding emitted by one detector. The
// signature seed distinguishes findings of the same category against the
// same target (e.g. which counterpart a similar-proposal flag points at).
type FlagCandidate struct {
	TargetType    string
	TargetID      string
	Category      string
	Severity      string
	Title         string
	Description   string
	Evidence      map[string]any
	SignatureSeed string
}

// AdminConnection is an evidence edge between two entities. The 5-tuple
// (source type, source id, target type, target id, connection type) is unique.
type AdminConnection struct {
	ID             string         `json:"id"`
	SourceType     string         `json:"sourceType"`
	SourceID       string         `json:"sourceId"`
	TargetType     string         `json:"targetType"`
	TargetID       string         `json:"targetId"`
	ConnectionType string         `json:"connectionType"`
	Evidence       map[string]any `json:"evidence,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	CreatedBy      string         `json:"createdBy"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// ProjectROI is one appended ROI history row for a project.
type ProjectROI struct {
	ID               string
	ProjectID        string
	GithubScore      float64
	DeliverableScore float64
	OnchainScore     float64
	CommunityScore   float64
	OutcomeScore     float64
	FundingAmount    float64
	ROIScore         float64
	Breakdown        map[string]any
	CalculatedAt     time.Time
}

// BatchError records one failed entity within a batch run.
type BatchError struct {
	EntityID string `json:"entityId"`
	Message  string `json:"message"`
}

// BatchResult aggregates a batch recompute. Failures never abort the run.
type BatchResult struct {
	Processed int          `json:"processed"`
	Errors    []BatchError `json:"errors"`
}

// DetectorError records one failed detector within a detection run.
type DetectorError struct {
	Detector string `json:"detector"`
	Message  string `json:"message"`
}

// DetectionResult aggregates a full detector pipeline run.
type DetectionResult struct {
	Created    int             `json:"created"`
	Skipped    int             `json:"skipped"`
	ByCategory map[string]int  `json:"byCategory"`
	Errors     []DetectorError `json:"errors"`
}
