package scoring

import (
	"math"
	"time"

	"veritrack/internal/config"
	"veritrack/internal/domain"
)

// Flag severity penalties deducted from the weighted score.
var flagPenalties = map[string]int{
	domain.SeverityLow:      3,
	domain.SeverityMedium:   7,
	domain.SeverityHigh:     15,
	domain.SeverityCritical: 25,
}

// maxFlagPenalty caps the total deduction so confirmed flags cannot zero out
// an otherwise strong record on their own.
const maxFlagPenalty = 50

// expectedReportsPerProject is the heuristic monthly-report cadence used for
// the communication dimension.
const expectedReportsPerProject = 6

// neutralScore is returned for a dimension with no evidence at all.
const neutralScore = 50

// Result is the outcome of one score calculation. It carries everything the
// cache layer persists plus the inputs that feed confidence.
type Result struct {
	PersonID       string
	Overall        int
	Breakdown      domain.ScoreBreakdown
	Badge          string
	Confidence     float64
	DataPoints     int
	FlagPenalty    int
	ConfirmedFlags int
	CalculatedAt   time.Time
}

// Calculate computes the accountability score from an evidence snapshot.
// It is a pure function: no storage access, no side effects. A person with
// zero evidence still gets a score; the near-zero confidence tells the
// caller how little it means.
func Calculate(personID string, ev domain.PersonEvidence, cfg config.ScoringConfig, now time.Time) Result {
	completion, fundedCount := completionScore(ev.Projects)
	delivery, datedCount := deliveryScore(ev.Milestones)
	efficiency, completedCount := efficiencyScore(ev.Milestones)
	communication := communicationScore(len(ev.Projects), ev.ReportCount)
	community := communityScore(ev.Ratings)

	breakdown := domain.ScoreBreakdown{
		Completion:    completion,
		Delivery:      delivery,
		Community:     community,
		Efficiency:    efficiency,
		Communication: communication,
	}

	weighted := float64(completion)*cfg.WeightCompletion +
		float64(delivery)*cfg.WeightDelivery +
		float64(community)*cfg.WeightCommunity +
		float64(efficiency)*cfg.WeightEfficiency +
		float64(communication)*cfg.WeightCommunication

	penalty := flagPenalty(ev.ConfirmedFlagSeverities)
	overall := clamp(int(math.Round(weighted)) - penalty)

	dataPoints := fundedCount + datedCount + completedCount + len(ev.Ratings) + ev.Concerns

	return Result{
		PersonID:       personID,
		Overall:        overall,
		Breakdown:      breakdown,
		Badge:          badgeFor(overall, cfg),
		Confidence:     confidenceFor(dataPoints),
		DataPoints:     dataPoints,
		FlagPenalty:    penalty,
		ConfirmedFlags: len(ev.ConfirmedFlagSeverities),
		CalculatedAt:   now,
	}
}

// completionScore: completed funded projects over all funded projects.
func completionScore(projects []domain.Project) (score, funded int) {
	completed := 0
	for _, p := range projects {
		if p.FundingStatus != domain.FundingFunded {
			continue
		}
		funded++
		if p.Status == domain.ProjectComplete {
			completed++
		}
	}
	if funded == 0 {
		return neutralScore, 0
	}
	return ratio100(completed, funded), funded
}

// deliveryScore: milestones approved on or before their due date, over all
// completed milestones that carry both dates.
func deliveryScore(milestones []domain.Milestone) (score, dated int) {
	onTime := 0
	for _, m := range milestones {
		if m.Status != domain.MilestoneComplete || m.DueDate == nil || m.ApprovedAt == nil {
			continue
		}
		dated++
		if !m.ApprovedAt.After(*m.DueDate) {
			onTime++
		}
	}
	if dated == 0 {
		return neutralScore, 0
	}
	return ratio100(onTime, dated), dated
}

// efficiencyScore: milestones whose proof-of-achievement passed on first
// submission, over all completed milestones.
func efficiencyScore(milestones []domain.Milestone) (score, completed int) {
	firstPass := 0
	for _, m := range milestones {
		if m.Status != domain.MilestoneComplete {
			continue
		}
		completed++
		if m.PoAStatus == domain.PoAApproved {
			firstPass++
		}
	}
	if completed == 0 {
		return neutralScore, 0
	}
	return ratio100(firstPass, completed), completed
}

// communicationScore: submitted monthly reports against the expected cadence.
func communicationScore(projectCount, reportCount int) int {
	expected := projectCount * expectedReportsPerProject
	if expected == 0 {
		return neutralScore
	}
	score := int(math.Round(float64(reportCount) / float64(expected) * 100))
	if score > 100 {
		return 100
	}
	return score
}

// communityScore maps the average 1-5 review rating onto 0-100.
func communityScore(ratings []int) int {
	if len(ratings) == 0 {
		return neutralScore
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	avg := float64(sum) / float64(len(ratings))
	return int(math.Round((avg - 1) / 4 * 100))
}

func flagPenalty(severities []string) int {
	total := 0
	for _, s := range severities {
		p, ok := flagPenalties[s]
		if !ok {
			p = flagPenalties[domain.SeverityMedium]
		}
		total += p
	}
	if total > maxFlagPenalty {
		return maxFlagPenalty
	}
	return total
}

func badgeFor(score int, cfg config.ScoringConfig) string {
	switch {
	case score >= cfg.BadgeTrustedMin:
		return domain.BadgeTrusted
	case score >= cfg.BadgeReliableMin:
		return domain.BadgeReliable
	case score >= cfg.BadgeUnprovenMin:
		return domain.BadgeUnproven
	default:
		return domain.BadgeConcerning
	}
}

// confidenceFor saturates toward 1 as evidence volume grows: 0 points gives
// 0, 5 points 0.5, 45 points 0.9.
func confidenceFor(dataPoints int) float64 {
	n := float64(dataPoints)
	return n / (n + 5)
}

func ratio100(num, den int) int {
	return int(math.Round(float64(num) / float64(den) * 100))
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
