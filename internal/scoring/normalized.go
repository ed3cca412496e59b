package scoring

import (
	"math"
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
)

// StrategyNormalized is the name of the weighted-sum scorer.
const StrategyNormalized = "normalized-weighted"

// NormalizedStrategy blends the five component scores with the configured
// weights on top of the base risk score, optionally log-scaled, and clamps
// the result to [0, maximum].
type NormalizedStrategy struct{}

// NewNormalizedStrategy returns the weighted-sum strategy.
func NewNormalizedStrategy() *NormalizedStrategy {
	return &NormalizedStrategy{}
}

// Name implements ScoringStrategy.
func (s *NormalizedStrategy) Name() string { return StrategyNormalized }

// Score implements ScoringStrategy.
func (s *NormalizedStrategy) Score(entity *domain.EntityRecord, cfg *domain.ScoringConfiguration, now time.Time) (*Result, error) {
	components := Components(entity, cfg, now)
	w := cfg.ComponentWeights

	score := cfg.BaseRiskScore +
		components.Event*w.Event +
		components.Relationship*w.Relationship +
		components.Geographic*w.Geographic +
		components.Temporal*w.Temporal +
		components.PEP*w.PEP

	if cfg.UseLogScaling {
		score = 100 * (1 - math.Exp(-score/50))
	}

	max := cfg.MaximumScore
	if max <= 0 {
		max = 100
	}
	score = clamp(score, 0, max)

	return &Result{
		Score:      score,
		Components: components,
		Severity:   Classify(score, cfg.SeverityThresholds),
		Strategy:   StrategyNormalized,
	}, nil
}
