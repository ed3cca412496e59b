package scoring

import (
	"strings"
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
)

// StrategyEnsemble is the name of the blended scorer.
const StrategyEnsemble = "ensemble"

// EnsembleStrategy blends the component scores with its own heavier event
// weighting, adds an anomaly term for event bursts, and amplifies entities
// whose high-risk relationships cluster. Used for escalation context, not
// as the primary scorer.
type EnsembleStrategy struct {
	cfg domain.EnsembleConfig
}

// NewEnsembleStrategy returns the blended strategy.
func NewEnsembleStrategy(cfg domain.EnsembleConfig) *EnsembleStrategy {
	return &EnsembleStrategy{cfg: cfg}
}

// Name implements ScoringStrategy.
func (s *EnsembleStrategy) Name() string { return StrategyEnsemble }

// Score implements ScoringStrategy.
func (s *EnsembleStrategy) Score(entity *domain.EntityRecord, cfg *domain.ScoringConfiguration, now time.Time) (*Result, error) {
	components := Components(entity, cfg, now)

	score := components.Event*s.cfg.EventWeight +
		components.PEP*s.cfg.PEPWeight +
		components.Geographic*s.cfg.GeographicWeight +
		components.Relationship*s.cfg.RelationshipWeight +
		components.Temporal*s.cfg.TemporalWeight +
		anomalyScore(entity.Events, now)*s.cfg.AnomalyWeight

	if s.cfg.NetworkAmplification > 1.0 && highRiskRelationshipCount(entity.Relationships) >= 3 {
		score *= s.cfg.NetworkAmplification
	}

	score = clamp(score, 0, 100)

	return &Result{
		Score:      score,
		Components: components,
		Severity:   Classify(score, cfg.SeverityThresholds),
		Strategy:   StrategyEnsemble,
	}, nil
}

// anomalyScore flags event bursts: 10 points per event in the last 90
// days, capped at 100.
func anomalyScore(events []domain.Event, now time.Time) float64 {
	cutoff := now.AddDate(0, 0, -90)
	recent := 0
	for _, ev := range events {
		if t, ok := ParseDate(ev.Date); ok && !t.Before(cutoff) {
			recent++
		}
	}
	return clamp(float64(recent)*10, 0, 100)
}

func highRiskRelationshipCount(rels []domain.Relationship) int {
	n := 0
	for _, r := range rels {
		if highRiskRelationshipTypes[strings.ToUpper(strings.TrimSpace(r.Type))] {
			n++
		}
	}
	return n
}
