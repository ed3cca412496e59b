package scoring

import (
	"strings"
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
)

// StrategyLegacy is the name of the multiplicative scorer.
const StrategyLegacy = "legacy-multiplicative"

// legacyMaxScore caps the multiplicative path. The downstream severity
// thresholds were tuned against this range, so it stays above 100.
const legacyMaxScore = 120.0

// Relationship type substrings that raise the legacy multiplier. Matched
// against the uppercased type, +0.08 each, bonus capped at +0.5.
var legacyHighRiskSubstrings = []string{
	"CRIMINAL", "SANCTION", "TERRORIST", "MONEY_LAUNDERING", "CORRUPT",
}

// LegacyStrategy reproduces the original multiplicative scorer: the
// weighted event average scaled by geographic, relationship and PEP
// multipliers, rounded to one decimal and capped at 120.
type LegacyStrategy struct{}

// NewLegacyStrategy returns the multiplicative strategy.
func NewLegacyStrategy() *LegacyStrategy {
	return &LegacyStrategy{}
}

// Name implements ScoringStrategy.
func (s *LegacyStrategy) Name() string { return StrategyLegacy }

// Score implements ScoringStrategy.
func (s *LegacyStrategy) Score(entity *domain.EntityRecord, cfg *domain.ScoringConfiguration, now time.Time) (*Result, error) {
	components := Components(entity, cfg, now)

	score := components.Event
	score *= geographicMultiplier(entity.Addresses, cfg)
	score *= relationshipMultiplier(entity.Relationships)
	score *= pepMultiplier(entity.Attributes, cfg)

	score = round1(clamp(score, 0, legacyMaxScore))

	return &Result{
		Score:      score,
		Components: components,
		Severity:   Classify(score, cfg.SeverityThresholds),
		Strategy:   StrategyLegacy,
	}, nil
}

// geographicMultiplier takes the highest country multiplier across
// addresses; entities with no addresses scale by 1.0.
func geographicMultiplier(addrs []domain.Address, cfg *domain.ScoringConfiguration) float64 {
	if len(addrs) == 0 {
		return 1.0
	}
	max := 0.0
	for _, a := range addrs {
		if m := cfg.GeographicMultiplier(a.Country); m > max {
			max = m
		}
	}
	if max == 0 {
		return 1.0
	}
	return max
}

// relationshipMultiplier adds 0.08 per relationship whose uppercased type
// contains a high-risk substring, bonus capped at 0.5.
func relationshipMultiplier(rels []domain.Relationship) float64 {
	bonus := 0.0
	for _, r := range rels {
		relType := strings.ToUpper(r.Type)
		for _, sub := range legacyHighRiskSubstrings {
			if strings.Contains(relType, sub) {
				bonus += 0.08
				break
			}
		}
	}
	if bonus > 0.5 {
		bonus = 0.5
	}
	return 1.0 + bonus
}

// pepMultiplier uses the first attribute with a configured PEP priority;
// its parsed level selects the multiplier, defaulting to 1.0.
func pepMultiplier(attrs []domain.Attribute, cfg *domain.ScoringConfiguration) float64 {
	for _, a := range attrs {
		if _, ok := cfg.PEPPriorities[strings.ToUpper(strings.TrimSpace(a.CodeType))]; !ok {
			continue
		}
		info := ExtractPEPInfo([]domain.Attribute{a})
		if info.HighestLevel != "" {
			return cfg.PEPMultiplier(info.HighestLevel)
		}
		return 1.0
	}
	return 1.0
}
