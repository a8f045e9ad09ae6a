package detection

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"veritrack/internal/config"
	"veritrack/internal/domain"
	"veritrack/internal/ports"
)

// Pipeline runs the fixed detector set, deduplicates candidates against
// stored flags and aggregates results. One detector failing does not stop
// the others.
type Pipeline struct {
	detectors []Detector
	flags     ports.FlagRepository
	auth      ports.Authorizer
	logger    *zap.Logger
	now       func() time.Time
}

func NewPipeline(evidence ports.EvidenceRepository, flags ports.FlagRepository, auth ports.Authorizer, cfg config.DetectionConfig, logger *zap.Logger) *Pipeline {
	now := time.Now
	return &Pipeline{
		detectors: []Detector{
			repeatDelays{evidence: evidence},
			ghostProjects{evidence: evidence, cfg: cfg, now: now},
			overdueMilestones{evidence: evidence, cfg: cfg, now: now},
			fundingClusters{evidence: evidence, cfg: cfg},
			similarProposals{evidence: evidence, cfg: cfg},
		},
		flags:  flags,
		auth:   auth,
		logger: logger.Named("detection"),
		now:    now,
	}
}

var _ ports.Detection = (*Pipeline)(nil)

// RunAll executes every detector concurrently. Candidates are persisted with
// insert-if-absent on the dedup signature, so a rerun over unchanged data
// skips everything it created before.
func (p *Pipeline) RunAll(ctx context.Context) (domain.DetectionResult, error) {
	if err := p.auth.RequireAdmin(ctx); err != nil {
		return domain.DetectionResult{}, err
	}

	result := domain.DetectionResult{ByCategory: make(map[string]int)}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, d := range p.detectors {
		result.ByCategory[d.Category()] = 0
	}

	for _, d := range p.detectors {
		wg.Add(1)
		go func(d Detector) {
			defer wg.Done()
			candidates, err := d.Run(ctx)
			if err != nil {
				p.logger.Warn("detector failed", zap.String("detector", d.Name()), zap.Error(err))
				mu.Lock()
				result.Errors = append(result.Errors, domain.DetectorError{Detector: d.Name(), Message: err.Error()})
				mu.Unlock()
				return
			}
			for _, cand := range candidates {
				created, err := p.flags.CreateIfAbsent(ctx, p.toFlag(cand))
				if err != nil {
					mu.Lock()
					result.Errors = append(result.Errors, domain.DetectorError{Detector: d.Name(), Message: err.Error()})
					mu.Unlock()
					continue
				}
				mu.Lock()
				if created {
					result.Created++
					result.ByCategory[cand.Category]++
				} else {
					result.Skipped++
				}
				mu.Unlock()
			}
		}(d)
	}
	wg.Wait()

	p.logger.Info("detection run finished",
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

func (p *Pipeline) toFlag(cand domain.FlagCandidate) *domain.Flag {
	return &domain.Flag{
		ID:          uuid.NewString(),
		TargetType:  cand.TargetType,
		TargetID:    cand.TargetID,
		Category:    cand.Category,
		Severity:    cand.Severity,
		Title:       cand.Title,
		Description: cand.Description,
		Evidence:    cand.Evidence,
		Signature:   Signature(cand),
		CreatedAt:   p.now(),
	}
}

// Signature derives the dedup key for a candidate: two findings with the
// same target, category and seed represent the same underlying anomaly.
func Signature(cand domain.FlagCandidate) string {
	h := sha256.Sum256([]byte(cand.TargetType + "|" + cand.TargetID + "|" + cand.Category + "|" + cand.SignatureSeed))
	return hex.EncodeToString(h[:16])
}
