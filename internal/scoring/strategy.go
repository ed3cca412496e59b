package scoring

import (
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
)

// ScoringStrategy computes a composite risk score for an entity under a
// configuration snapshot. Implementations must be deterministic and
// side-effect-free: same entity, config, and clock yield the same result.
type ScoringStrategy interface {
	// Name identifies the strategy ("legacy-multiplicative",
	// "normalized-weighted", "ensemble").
	Name() string

	// Score returns the composite score and the component breakdown.
	Score(entity *domain.EntityRecord, cfg *domain.ScoringConfiguration, now time.Time) (*Result, error)
}

// Result is the output of a composite scoring pass.
type Result struct {
	Score      float64
	Components domain.ComponentScores
	Severity   domain.Severity
	Strategy   string
}

// MinimalScore is the last-resort calculation when a strategy fails:
// base score plus the highest matching event severity, capped at 100.
func MinimalScore(entity *domain.EntityRecord, cfg *domain.ScoringConfiguration) float64 {
	score := cfg.BaseRiskScore
	var maxSeverity float64
	for _, ev := range entity.Events {
		if s, ok := cfg.RiskCodeSeverities[ev.CategoryCode]; ok && s > maxSeverity {
			maxSeverity = s
		}
	}
	return clamp(score+maxSeverity, 0, 100)
}
