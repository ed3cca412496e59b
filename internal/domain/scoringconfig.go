package domain

import "strings"

// ScoringConfiguration is the weighting scheme applied during a scoring batch.
// Treat values as read-only: engines hand out one snapshot per batch and
// edits produce a new version rather than mutating a shared instance.
type ScoringConfiguration struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId,omitempty"`
	Version  int64  `json:"version"`

	// RiskCodeSeverities maps event category code to base severity (0-100).
	RiskCodeSeverities map[string]float64 `json:"riskCodeSeverities" yaml:"risk_code_severities"`

	// SubCategoryMultipliers maps event sub-category code to a multiplier.
	SubCategoryMultipliers map[string]float64 `json:"subCategoryMultipliers" yaml:"sub_category_multipliers"`

	// GeographicRiskMultipliers maps country code to a multiplier.
	// Always carries a DEFAULT entry for unmapped countries.
	GeographicRiskMultipliers map[string]float64 `json:"geographicRiskMultipliers" yaml:"geographic_risk_multipliers"`

	// PEPMultipliers maps PEP level code (L1..L6) to a multiplier.
	PEPMultipliers map[string]float64 `json:"pepMultipliers" yaml:"pep_multipliers"`

	// PEPPriorities maps attribute code type to a priority (0-100) for the
	// PEP component score.
	PEPPriorities map[string]float64 `json:"pepPriorities" yaml:"pep_priorities"`

	// ComponentWeights should sum to 1.0; validated on save, not at calc time.
	ComponentWeights ComponentWeights `json:"componentWeights" yaml:"component_weights"`

	// SeverityThresholds must be strictly descending.
	SeverityThresholds SeverityThresholds `json:"severityThresholds" yaml:"severity_thresholds"`

	// TemporalDecay tunes event-age weighting in the ensemble path.
	TemporalDecay TemporalDecay `json:"temporalDecay" yaml:"temporal_decay"`

	// Normalized-path settings
	BaseRiskScore float64 `json:"baseRiskScore" yaml:"base_risk_score"`
	MaximumScore  float64 `json:"maximumScore" yaml:"maximum_score"`
	UseLogScaling bool    `json:"useLogScaling" yaml:"use_log_scaling"`
}

// ComponentWeights are the per-component weights for the normalized path.
type ComponentWeights struct {
	Event        float64 `json:"event" yaml:"event"`
	Relationship float64 `json:"relationship" yaml:"relationship"`
	Geographic   float64 `json:"geographic" yaml:"geographic"`
	Temporal     float64 `json:"temporal" yaml:"temporal"`
	PEP          float64 `json:"pep" yaml:"pep"`
}

// SeverityThresholds are the inclusive lower bounds of the top three bands.
// Probative is everything below InvestigativeMin.
type SeverityThresholds struct {
	CriticalMin      float64 `json:"criticalMin" yaml:"critical_min"`
	ValuableMin      float64 `json:"valuableMin" yaml:"valuable_min"`
	InvestigativeMin float64 `json:"investigativeMin" yaml:"investigative_min"`
}

// Ordered reports whether the thresholds are strictly descending.
// A misordered set is a configuration error, not a runtime one; the
// classifier still produces a deterministic answer.
func (t SeverityThresholds) Ordered() bool {
	return t.CriticalMin > t.ValuableMin && t.ValuableMin > t.InvestigativeMin
}

// TemporalDecay tunes how event age discounts scores in the ensemble path.
type TemporalDecay struct {
	DecayRate         float64 `json:"decayRate" yaml:"decay_rate"`
	MaxAgeYears       float64 `json:"maxAgeYears" yaml:"max_age_years"`
	MinimumWeight     float64 `json:"minimumWeight" yaml:"minimum_weight"`
	RecentBoostMonths int     `json:"recentBoostMonths" yaml:"recent_boost_months"`
	RecentBoostFactor float64 `json:"recentBoostFactor" yaml:"recent_boost_factor"`
}

// GeographicDefaultKey is the fallback entry in GeographicRiskMultipliers.
const GeographicDefaultKey = "DEFAULT"

// UnknownCodeSeverity is the base severity for unmapped event category codes.
const UnknownCodeSeverity = 25.0

// Severity returns the base severity for an event category code.
func (c *ScoringConfiguration) Severity(categoryCode string) float64 {
	if s, ok := c.RiskCodeSeverities[categoryCode]; ok {
		return s
	}
	return UnknownCodeSeverity
}

// SubCategoryMultiplier returns the multiplier for a sub-category code,
// defaulting to 1.0 when unmapped.
func (c *ScoringConfiguration) SubCategoryMultiplier(subCode string) float64 {
	if m, ok := c.SubCategoryMultipliers[subCode]; ok {
		return m
	}
	return 1.0
}

// GeographicMultiplier returns the multiplier for a country, upper-casing
// the lookup and falling back to the DEFAULT entry.
func (c *ScoringConfiguration) GeographicMultiplier(country string) float64 {
	if m, ok := c.GeographicRiskMultipliers[strings.ToUpper(strings.TrimSpace(country))]; ok {
		return m
	}
	if m, ok := c.GeographicRiskMultipliers[GeographicDefaultKey]; ok {
		return m
	}
	return 1.0
}

// PEPMultiplier returns the multiplier for a PEP level, defaulting to 1.0.
func (c *ScoringConfiguration) PEPMultiplier(level string) float64 {
	if m, ok := c.PEPMultipliers[strings.ToUpper(level)]; ok {
		return m
	}
	return 1.0
}

// Clone returns a deep copy so edits never touch a live snapshot.
func (c *ScoringConfiguration) Clone() *ScoringConfiguration {
	out := *c
	out.RiskCodeSeverities = copyFloatMap(c.RiskCodeSeverities)
	out.SubCategoryMultipliers = copyFloatMap(c.SubCategoryMultipliers)
	out.GeographicRiskMultipliers = copyFloatMap(c.GeographicRiskMultipliers)
	out.PEPMultipliers = copyFloatMap(c.PEPMultipliers)
	out.PEPPriorities = copyFloatMap(c.PEPPriorities)
	return &out
}

func copyFloatMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// DefaultScoringConfiguration returns the stock weighting scheme used when a
// tenant has no saved configuration.
func DefaultScoringConfiguration() *ScoringConfiguration {
	return &ScoringConfiguration{
		ID:      "default",
		Version: 1,
		RiskCodeSeverities: map[string]float64{
			// Critical events
			"TER": 95, "SAN": 90, "WLT": 90, "MLA": 85, "DTF": 85, "HUM": 85,
			"BRB": 80, "KID": 80, "COR": 75, "CVT": 75, "FRD": 70, "IND": 70,
			// Valuable events
			"REG": 65, "TAX": 65, "SEC": 65, "EMB": 65, "BUS": 60, "FOR": 60, "MOR": 60,
			// Investigative events
			"ENV": 55, "MUR": 55, "WCC": 50, "ABU": 50, "AST": 50,
			"ARS": 45, "BUR": 45, "CFT": 40, "CON": 40,
			// Probative events
			"CYB": 35, "MIS": 25, "DPS": 25, "NSC": 20, "GAM": 20, "CPR": 20,
			"OBS": 15, "BKY": 15,
		},
		SubCategoryMultipliers: map[string]float64{},
		GeographicRiskMultipliers: map[string]float64{
			"RU": 1.5, "BY": 1.5, "VE": 1.5, "NI": 1.5, "CU": 1.5,
			"IR": 1.4, "SY": 1.4, "AF": 1.4,
			"CN": 1.3,
			"TR": 1.2, "EG": 1.2, "IN": 1.2, "BR": 1.2, "MX": 1.2, "ZA": 1.2, "PK": 1.2,
			"US": 0.95, "CA": 0.95, "GB": 0.95, "DE": 0.95, "FR": 0.95, "AU": 0.95, "JP": 0.95,
			"CH": 0.9, "SE": 0.9, "NO": 0.9, "DK": 0.9,
			GeographicDefaultKey: 1.0,
		},
		PEPMultipliers: map[string]float64{
			"L1": 1.1, "L2": 1.2, "L3": 1.3, "L4": 1.4, "L5": 1.5, "L6": 1.6,
		},
		PEPPriorities: map[string]float64{
			"PTY": 90, "PRT": 75, "PLV": 60,
		},
		ComponentWeights: ComponentWeights{
			Event:        0.35,
			Relationship: 0.20,
			Geographic:   0.15,
			Temporal:     0.10,
			PEP:          0.20,
		},
		SeverityThresholds: SeverityThresholds{
			CriticalMin:      80,
			ValuableMin:      60,
			InvestigativeMin: 40,
		},
		TemporalDecay: TemporalDecay{
			DecayRate:         0.08,
			MaxAgeYears:       10,
			MinimumWeight:     0.1,
			RecentBoostMonths: 6,
			RecentBoostFactor: 1.2,
		},
		BaseRiskScore: 0,
		MaximumScore:  100,
		UseLogScaling: false,
	}
}
