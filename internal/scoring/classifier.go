package scoring

import (
	"math"

	"github.com/opensource-finance/shrike/internal/domain"
)

// Classify maps a numeric score to a severity band using inclusive lower
// bounds: >= CriticalMin is Critical, then Valuable, then Investigative,
// everything below InvestigativeMin is Probative.
//
// No clamping happens here; callers bound the score first. A non-finite
// score classifies as Probative, the fail-safe band. Misordered thresholds
// still yield a deterministic answer.
func Classify(score float64, t domain.SeverityThresholds) domain.Severity {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return domain.SeverityProbative
	}
	switch {
	case score >= t.CriticalMin:
		return domain.SeverityCritical
	case score >= t.ValuableMin:
		return domain.SeverityValuable
	case score >= t.InvestigativeMin:
		return domain.SeverityInvestigative
	default:
		return domain.SeverityProbative
	}
}

// ClassifyValue classifies a loosely-typed score, treating non-numeric
// input as Probative rather than raising.
func ClassifyValue(v interface{}, t domain.SeverityThresholds) domain.Severity {
	score, err := ToNumber(v)
	if err != nil {
		return domain.SeverityProbative
	}
	return Classify(score, t)
}
