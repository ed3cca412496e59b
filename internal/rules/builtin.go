package rules

import "github.com/opensource-finance/shrike/internal/domain"

// BuiltinRules returns the stock escalation rules loaded when a tenant has
// none configured.
func BuiltinRules() []*domain.EscalationRule {
	return []*domain.EscalationRule{
		{
			ID:          "builtin-sanctioned-geo-pep",
			Name:        "PEP in high-risk jurisdiction",
			Description: "Politically exposed person with a top geographic component",
			Expression:  `is_pep && scores.geographic >= 30.0`,
			Reason:      "PEP located in a high-risk jurisdiction",
			EscalateTo:  domain.SeverityCritical,
			Enabled:     true,
		},
		{
			ID:          "builtin-senior-pep",
			Name:        "Senior PEP",
			Description: "PEP at level L5 or L6 regardless of composite score",
			Expression:  `pep_level == "L5" || pep_level == "L6"`,
			Reason:      "Senior politically exposed person",
			EscalateTo:  domain.SeverityValuable,
			Enabled:     true,
		},
		{
			ID:          "builtin-dense-network",
			Name:        "Dense high-risk network",
			Description: "Heavily connected entity with elevated event activity",
			Expression:  `relationship_count >= 10 && scores.event >= 50.0`,
			Reason:      "Dense network with elevated event activity",
			Enabled:     true,
		},
	}
}
