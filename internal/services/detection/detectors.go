package detection

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"veritrack/internal/config"
	"veritrack/internal/domain"
	"veritrack/internal/ports"
)

// Detector is one anomaly scanner. Detectors are independent: they share no
// mutable state and each reads its own slice of the evidence store.
type Detector interface {
	Name() string
	Category() string
	Run(ctx context.Context) ([]domain.FlagCandidate, error)
}

const targetProject = "project"

// incompleteStatuses mark a funded project that has not delivered yet.
var incompleteStatuses = map[string]bool{
	domain.ProjectInProgress: true,
	domain.ProjectDelayed:    true,
	domain.ProjectAtRisk:     true,
}

// repeatDelays flags every incomplete funded project of a person who has
// more than two of them.
type repeatDelays struct {
	evidence ports.EvidenceRepository
}

func (repeatDelays) Name() string     { return "repeat_delays" }
func (repeatDelays) Category() string { return "repeat_delays" }

func (d repeatDelays) Run(ctx context.Context) ([]domain.FlagCandidate, error) {
	projects, err := d.evidence.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	people, err := d.evidence.ListPeople(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(people))
	for _, p := range people {
		names[p.ID] = p.Name
	}

	byPerson := make(map[string][]domain.Project)
	for _, p := range projects {
		if p.FundingStatus != domain.FundingFunded || !incompleteStatuses[p.Status] {
			continue
		}
		for _, personID := range p.PersonIDs {
			byPerson[personID] = append(byPerson[personID], p)
		}
	}

	personIDs := make([]string, 0, len(byPerson))
	for id := range byPerson {
		personIDs = append(personIDs, id)
	}
	sort.Strings(personIDs)

	var out []domain.FlagCandidate
	for _, personID := range personIDs {
		incomplete := byPerson[personID]
		if len(incomplete) <= 2 {
			continue
		}
		severity := domain.SeverityMedium
		if len(incomplete) > 4 {
			severity = domain.SeverityHigh
		}
		name := names[personID]
		if name == "" {
			name = "Unknown"
		}
		ids := make([]string, len(incomplete))
		titles := make([]string, len(incomplete))
		for i, p := range incomplete {
			ids[i] = p.ID
			titles[i] = p.Title
		}
		for _, p := range incomplete {
			out = append(out, domain.FlagCandidate{
				TargetType:  targetProject,
				TargetID:    p.ID,
				Category:    d.Category(),
				Severity:    severity,
				Title:       fmt.Sprintf("Proposer has %d incomplete projects", len(incomplete)),
				Description: fmt.Sprintf("%s has %d funded projects that are incomplete or delayed. This may indicate capacity issues.", name, len(incomplete)),
				Evidence: map[string]any{
					"personId":        personID,
					"personName":      name,
					"incompleteCount": len(incomplete),
					"projectIds":      ids,
					"projectTitles":   titles,
				},
			})
		}
	}
	return out, nil
}

// ghostProjects flags funded, unfinished projects with no updates for the
// configured number of days.
type ghostProjects struct {
	evidence ports.EvidenceRepository
	cfg      config.DetectionConfig
	now      func() time.Time
}

func (ghostProjects) Name() string     { return "ghost_project" }
func (ghostProjects) Category() string { return "ghost_project" }

func (d ghostProjects) Run(ctx context.Context) ([]domain.FlagCandidate, error) {
	projects, err := d.evidence.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	now := d.now()
	cutoff := now.AddDate(0, 0, -d.cfg.GhostDays)

	var out []domain.FlagCandidate
	for _, p := range projects {
		if p.FundingStatus != domain.FundingFunded {
			continue
		}
		if p.Status != domain.ProjectInProgress && p.Status != domain.ProjectPending {
			continue
		}
		if !p.UpdatedAt.Before(cutoff) {
			continue
		}
		days := int(now.Sub(p.UpdatedAt).Hours() / 24)
		severity := domain.SeverityMedium
		switch {
		case days > 180:
			severity = domain.SeverityCritical
		case days > 120:
			severity = domain.SeverityHigh
		}
		out = append(out, domain.FlagCandidate{
			TargetType:  targetProject,
			TargetID:    p.ID,
			Category:    d.Category(),
			Severity:    severity,
			Title:       fmt.Sprintf("No updates for %d days", days),
			Description: fmt.Sprintf("Project %q has not been updated in %d days. Funded amount: $%.0f", p.Title, days, p.FundingAmount),
			Evidence: map[string]any{
				"daysSinceUpdate": days,
				"lastUpdate":      p.UpdatedAt.Format(time.RFC3339),
				"fundingAmount":   p.FundingAmount,
				"fundName":        p.FundName,
			},
		})
	}
	return out, nil
}

// overdueMilestones flags projects with open milestones past their due date
// by more than the configured grace period.
type overdueMilestones struct {
	evidence ports.EvidenceRepository
	cfg      config.DetectionConfig
	now      func() time.Time
}

func (overdueMilestones) Name() string     { return "overdue_milestone" }
func (overdueMilestones) Category() string { return "overdue_milestone" }

func (d overdueMilestones) Run(ctx context.Context) ([]domain.FlagCandidate, error) {
	milestones, err := d.evidence.ListMilestones(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := d.evidence.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Project, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
	}

	now := d.now()
	cutoff := now.AddDate(0, 0, -d.cfg.OverdueDays)

	var out []domain.FlagCandidate
	for _, m := range milestones {
		if m.DueDate == nil || !m.DueDate.Before(cutoff) {
			continue
		}
		if m.Status != domain.MilestonePending && m.Status != domain.MilestoneInProgress {
			continue
		}
		p, ok := byID[m.ProjectID]
		if !ok || p.FundingStatus != domain.FundingFunded {
			continue
		}
		if p.Status == domain.ProjectComplete || p.Status == domain.ProjectCancelled {
			continue
		}
		daysOverdue := int(now.Sub(*m.DueDate).Hours() / 24)
		severity := domain.SeverityLow
		switch {
		case daysOverdue > 90:
			severity = domain.SeverityHigh
		case daysOverdue > 60:
			severity = domain.SeverityMedium
		}
		out = append(out, domain.FlagCandidate{
			TargetType:  targetProject,
			TargetID:    p.ID,
			Category:    d.Category(),
			Severity:    severity,
			Title:       fmt.Sprintf("Milestone %q is %d days overdue", m.Title, daysOverdue),
			Description: fmt.Sprintf("Milestone was due on %s but remains incomplete.", m.DueDate.Format("2006-01-02")),
			Evidence: map[string]any{
				"milestoneId":    m.ID,
				"milestoneTitle": m.Title,
				"dueDate":        m.DueDate.Format(time.RFC3339),
				"daysOverdue":    daysOverdue,
				"projectTitle":   p.Title,
				"fundName":       p.FundName,
			},
			SignatureSeed: m.ID,
		})
	}
	return out, nil
}

// fundingClusters flags every funded project of a person who has been funded
// across at least the configured number of distinct funds.
type fundingClusters struct {
	evidence ports.EvidenceRepository
	cfg      config.DetectionConfig
}

func (fundingClusters) Name() string     { return "funding_cluster" }
func (fundingClusters) Category() string { return "funding_cluster" }

func (d fundingClusters) Run(ctx context.Context) ([]domain.FlagCandidate, error) {
	projects, err := d.evidence.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	people, err := d.evidence.ListPeople(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(people))
	for _, p := range people {
		names[p.ID] = p.Name
	}

	type cluster struct {
		funds    map[string]bool
		total    float64
		projects []domain.Project
	}
	byPerson := make(map[string]*cluster)
	for _, p := range projects {
		if p.FundingStatus != domain.FundingFunded {
			continue
		}
		for _, personID := range p.PersonIDs {
			c := byPerson[personID]
			if c == nil {
				c = &cluster{funds: make(map[string]bool)}
				byPerson[personID] = c
			}
			c.funds[p.FundID] = true
			c.total += p.FundingAmount
			c.projects = append(c.projects, p)
		}
	}

	personIDs := make([]string, 0, len(byPerson))
	for id := range byPerson {
		personIDs = append(personIDs, id)
	}
	sort.Strings(personIDs)

	var out []domain.FlagCandidate
	for _, personID := range personIDs {
		c := byPerson[personID]
		if len(c.funds) < d.cfg.ClusterMinFunds {
			continue
		}
		severity := domain.SeverityMedium
		if len(c.funds) > 5 {
			severity = domain.SeverityHigh
		}
		name := names[personID]
		if name == "" {
			name = "Unknown"
		}
		fundNames := make(map[string]bool)
		for _, p := range c.projects {
			fundNames[p.FundName] = true
		}
		funds := make([]string, 0, len(fundNames))
		for f := range fundNames {
			funds = append(funds, f)
		}
		sort.Strings(funds)
		for _, p := range c.projects {
			out = append(out, domain.FlagCandidate{
				TargetType:  targetProject,
				TargetID:    p.ID,
				Category:    d.Category(),
				Severity:    severity,
				Title:       fmt.Sprintf("Part of %d-fund cluster (%s)", len(c.funds), name),
				Description: fmt.Sprintf("This proposer has received funding in %d different funds, totaling $%.0f. Review for capacity and delivery patterns.", len(c.funds), c.total),
				Evidence: map[string]any{
					"personId":     personID,
					"personName":   name,
					"fundCount":    len(c.funds),
					"totalFunding": c.total,
					"projectCount": len(c.projects),
					"funds":        funds,
				},
				SignatureSeed: personID,
			})
		}
	}
	return out, nil
}

// similarProposals flags pairs of proposals in the same fund and category
// whose text overlap crosses the similarity threshold.
type similarProposals struct {
	evidence ports.EvidenceRepository
	cfg      config.DetectionConfig
}

func (similarProposals) Name() string     { return "similar_proposal" }
func (similarProposals) Category() string { return "similar_proposal" }

var nonAlnum = regexp.MustCompile(`[^a-z0-9\s]`)

func tokenize(text string) map[string]bool {
	normalized := nonAlnum.ReplaceAllString(strings.ToLower(text), " ")
	tokens := make(map[string]bool)
	for _, t := range strings.Fields(normalized) {
		if len(t) > 2 {
			tokens[t] = true
		}
	}
	return tokens
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if b[t] {
			intersection++
		}
	}
	return float64(intersection) / float64(len(a)+len(b)-intersection)
}

func (d similarProposals) Run(ctx context.Context) ([]domain.FlagCandidate, error) {
	projects, err := d.evidence.ListProjects(ctx)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]domain.Project)
	for _, p := range projects {
		key := p.FundID + "::" + p.Category
		grouped[key] = append(grouped[key], p)
	}
	keys := make([]string, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []domain.FlagCandidate
	for _, key := range keys {
		group := grouped[key]
		if len(group) > d.cfg.SimilarityGroupCap {
			group = group[:d.cfg.SimilarityGroupCap]
		}
		tokens := make([]map[string]bool, len(group))
		for i, p := range group {
			tokens[i] = tokenize(strings.Join([]string{p.Title, p.Description, p.Problem, p.Solution}, " "))
		}
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				score := jaccard(tokens[i], tokens[j])
				if score < d.cfg.SimilarityThreshold {
					continue
				}
				severity := domain.SeverityMedium
				if score > 0.86 {
					severity = domain.SeverityHigh
				}
				description := fmt.Sprintf("Potentially similar proposals detected (%d%% overlap). Review for duplicate scope or reuse.", int(score*100+0.5))
				out = append(out,
					similarCandidate(group[i], group[j], severity, description, score),
					similarCandidate(group[j], group[i], severity, description, score),
				)
			}
		}
	}
	return out, nil
}

func similarCandidate(base, other domain.Project, severity, description string, score float64) domain.FlagCandidate {
	return domain.FlagCandidate{
		TargetType:  targetProject,
		TargetID:    base.ID,
		Category:    "similar_proposal",
		Severity:    severity,
		Title:       fmt.Sprintf("Similar proposal detected: %s", other.Title),
		Description: description,
		Evidence: map[string]any{
			"similarProjectId":    other.ID,
			"similarProjectTitle": other.Title,
			"similarityScore":     score,
		},
		SignatureSeed: other.ID,
	}
}
