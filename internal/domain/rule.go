package domain

// EscalationRule tags scored assessments that match a CEL expression.
// Expressions see the scored entity and its component breakdown, e.g.
// `scores.composite > 90.0 && entity.country == "RU"`.
type EscalationRule struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`

	// CEL expression to evaluate
	Expression string `json:"expression"`

	// Reason attached to the assessment when the rule matches
	Reason string `json:"reason"`

	// Severity floor applied when the rule matches; empty leaves the
	// classified band untouched
	EscalateTo Severity `json:"escalateTo,omitempty"`

	// Whether rule is active
	Enabled bool `json:"enabled"`
}

// EscalationResult is the output of an escalation rule evaluation.
type EscalationResult struct {
	RuleID    string `json:"ruleId"`
	TenantID  string `json:"tenantId"`
	EntityID  string `json:"entityId"`
	Matched   bool   `json:"matched"`
	Reason    string `json:"reason,omitempty"`
	ProcessMs int64  `json:"processMs"`
}
