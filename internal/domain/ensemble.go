package domain

// EnsembleConfig blends the component scores with its own weight set for the
// ensemble scoring strategy. Kept separate from ComponentWeights because the
// ensemble path weighs events far heavier and adds an anomaly term.
type EnsembleConfig struct {
	EventWeight        float64 `json:"eventWeight" yaml:"event_weight"`
	PEPWeight          float64 `json:"pepWeight" yaml:"pep_weight"`
	GeographicWeight   float64 `json:"geographicWeight" yaml:"geographic_weight"`
	RelationshipWeight float64 `json:"relationshipWeight" yaml:"relationship_weight"`
	TemporalWeight     float64 `json:"temporalWeight" yaml:"temporal_weight"`
	AnomalyWeight      float64 `json:"anomalyWeight" yaml:"anomaly_weight"`

	// NetworkAmplification scales the blend when high-risk relationships
	// cluster; 1.0 disables it.
	NetworkAmplification float64 `json:"networkAmplification" yaml:"network_amplification"`
}

// DefaultEnsembleConfig returns the stock ensemble weights.
func DefaultEnsembleConfig() EnsembleConfig {
	return EnsembleConfig{
		EventWeight:          0.45,
		PEPWeight:            0.20,
		GeographicWeight:     0.15,
		RelationshipWeight:   0.10,
		TemporalWeight:       0.05,
		AnomalyWeight:        0.05,
		NetworkAmplification: 1.0,
	}
}
