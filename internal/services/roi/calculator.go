package roi

import (
	"math"
	"time"

	"veritrack/internal/config"
	"veritrack/internal/domain"
)

// Result is the outcome of one project ROI calculation.
type Result struct {
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

// Calculate scores a project's outcome against its funding. Pure function
// over the evidence snapshot.
func Calculate(ev domain.ProjectEvidence, cfg config.ROIConfig, now time.Time) Result {
	p := ev.Project

	github := githubScore(p)
	deliverables, completed, total, onTimeRate := deliverableScore(ev.Milestones)
	onchain := onchainScore(p)
	community, avgRating := communityScore(ev.Ratings)

	outcome := github*cfg.WeightGithub +
		deliverables*cfg.WeightDeliverables +
		onchain*cfg.WeightOnchain +
		community*cfg.WeightCommunity

	roiScore := roiFor(outcome, p.FundingAmount, cfg.FundingBaseline)

	breakdown := map[string]any{
		"github": map[string]any{
			"stars": p.GithubStars, "forks": p.GithubForks,
			"contributors": p.GithubContributors, "activityScore": p.GithubActivityScore,
			"weight": cfg.WeightGithub, "score": github,
		},
		"deliverables": map[string]any{
			"completed": completed, "total": total, "onTimeRate": onTimeRate,
			"weight": cfg.WeightDeliverables, "score": deliverables,
		},
		"onchain": map[string]any{
			"txCount": p.OnchainTxCount, "uniqueAddresses": p.OnchainUniqueAddresses,
			"totalReceived": p.OnchainTotalReceived,
			"weight":        cfg.WeightOnchain, "score": onchain,
		},
		"community": map[string]any{
			"reviewCount": len(ev.Ratings), "avgRating": avgRating,
			"weight": cfg.WeightCommunity, "score": community,
		},
		"outcome": map[string]any{"score": outcome},
		"roi": map[string]any{
			"fundingAmount":     p.FundingAmount,
			"normalizedFunding": p.FundingAmount / cfg.FundingBaseline,
			"score":             roiScore,
		},
	}

	return Result{
		ProjectID:        p.ID,
		GithubScore:      github,
		DeliverableScore: deliverables,
		OnchainScore:     onchain,
		CommunityScore:   community,
		OutcomeScore:     outcome,
		FundingAmount:    p.FundingAmount,
		ROIScore:         roiScore,
		Breakdown:        breakdown,
		CalculatedAt:     now,
	}
}

// githubScore: half the synced activity score plus capped engagement bonuses.
func githubScore(p domain.Project) float64 {
	if p.GithubActivityScore == 0 && p.GithubStars == 0 {
		return 0
	}
	starsBonus := math.Min(float64(p.GithubStars)/100, 20)
	forksBonus := math.Min(float64(p.GithubForks)/20, 15)
	contributorsBonus := math.Min(float64(p.GithubContributors)*2, 15)
	return math.Min(float64(p.GithubActivityScore)*0.5+starsBonus+forksBonus+contributorsBonus, 100)
}

// deliverableScore: 70% completion rate, 30% on-time rate.
func deliverableScore(milestones []domain.Milestone) (score float64, completed, total int, onTimeRate float64) {
	total = len(milestones)
	if total == 0 {
		return 0, 0, 0, 0
	}
	onTime, datable := 0, 0
	for _, m := range milestones {
		if m.Status == domain.MilestoneComplete || m.PoAStatus == domain.PoAApproved {
			completed++
		}
		if m.ApprovedAt != nil && m.DueDate != nil {
			datable++
			if !m.ApprovedAt.After(*m.DueDate) {
				onTime++
			}
		}
	}
	completionRate := float64(completed) / float64(total)
	onTimeRate = 1
	if datable > 0 {
		onTimeRate = float64(onTime) / float64(datable)
	}
	return completionRate*70 + onTimeRate*30, completed, total, onTimeRate
}

// onchainScore: capped transaction, address and volume components.
func onchainScore(p domain.Project) float64 {
	if p.OnchainTxCount == 0 && p.OnchainUniqueAddresses == 0 {
		return 0
	}
	txScore := math.Min(float64(p.OnchainTxCount)/10, 40)
	addressScore := math.Min(float64(p.OnchainUniqueAddresses)/5, 30)
	volumeScore := math.Min(p.OnchainTotalReceived/10000, 30)
	return math.Min(txScore+addressScore+volumeScore, 100)
}

// communityScore: 80% rating score plus a capped review-count bonus.
func communityScore(ratings []int) (score, avgRating float64) {
	if len(ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	avgRating = float64(sum) / float64(len(ratings))
	ratingScore := (avgRating - 1) / 4 * 100
	countBonus := math.Min(float64(len(ratings))*2, 20)
	return math.Min(ratingScore*0.8+countBonus, 100), avgRating
}

// roiFor relates outcome to funding normalized against the baseline; spending
// less for the same outcome raises the score.
func roiFor(outcome, funding, baseline float64) float64 {
	if funding <= 0 {
		return 0
	}
	normalized := funding / baseline
	return math.Min(outcome/math.Max(normalized, 0.1), 100)
}
