package domain

import (
	"time"
)

// Severity is an ordinal risk band derived from a numeric score.
type Severity string

const (
	SeverityCritical      Severity = "Critical"
	SeverityValuable      Severity = "Valuable"
	SeverityInvestigative Severity = "Investigative"
	SeverityProbative     Severity = "Probative"
)

// ComponentScores holds the five independent sub-scores, each in [0,100].
type ComponentScores struct {
	Event        float64 `json:"event"`
	Relationship float64 `json:"relationship"`
	Geographic   float64 `json:"geographic"`
	Temporal     float64 `json:"temporal"`
	PEP          float64 `json:"pep"`
}

// Assessment represents the complete scoring result for an entity.
type Assessment struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenantId"`
	EntityID   string    `json:"entityId"`
	EntityName string    `json:"entityName"`
	Score      float64   `json:"score"`
	Severity   Severity  `json:"severity"`
	Strategy   string    `json:"strategy"`
	Timestamp  time.Time `json:"timestamp"`

	// Component breakdown
	Components ComponentScores `json:"components"`

	// PEP summary attached to every assessment
	PEPStatus *PEPInfo `json:"pepStatus,omitempty"`

	// Escalation tags (if any rules matched)
	Escalations []EscalationResult `json:"escalations,omitempty"`

	// Processing metadata
	Metadata AssessmentMetadata `json:"metadata"`
}

// PEPInfo summarizes the politically-exposed-person indicators of an entity.
type PEPInfo struct {
	IsPEP        bool     `json:"isPep"`
	Codes        []string `json:"codes,omitempty"`   // HOS, CAB, FAM, ...
	Levels       []string `json:"levels,omitempty"`  // L1..L6
	Ratings      []string `json:"ratings,omitempty"` // A..D
	HighestLevel string   `json:"highestLevel,omitempty"`
}

// AssessmentMetadata contains processing information.
type AssessmentMetadata struct {
	TraceID        string `json:"traceId"`
	BatchID        string `json:"batchId,omitempty"`
	ScoreMs        int64  `json:"scoreMs"`
	RulesMs        int64  `json:"rulesMs"`
	TotalMs        int64  `json:"totalMs"`
	RulesEvaluated int    `json:"rulesEvaluated"`
	ConfigVersion  int64  `json:"configVersion"`
	EngineVersion  string `json:"engineVersion"`
}

// AssessmentResponse is the API response for a scoring request.
type AssessmentResponse struct {
	AssessmentID string             `json:"assessmentId"`
	EntityID     string             `json:"entityId"`
	TenantID     string             `json:"tenantId"`
	Score        float64            `json:"score"`
	Severity     Severity           `json:"severity"`
	Components   ComponentScores    `json:"components"`
	PEPStatus    *PEPInfo           `json:"pepStatus,omitempty"`
	Reasons      []string           `json:"reasons,omitempty"`
	Metadata     AssessmentMetadata `json:"metadata"`
}

// ToResponse converts an Assessment to an API response.
func (a *Assessment) ToResponse() *AssessmentResponse {
	var reasons []string
	for _, e := range a.Escalations {
		if e.Matched {
			reasons = append(reasons, e.Reason)
		}
	}

	return &AssessmentResponse{
		AssessmentID: a.ID,
		EntityID:     a.EntityID,
		TenantID:     a.TenantID,
		Score:        a.Score,
		Severity:     a.Severity,
		Components:   a.Components,
		PEPStatus:    a.PEPStatus,
		Reasons:      reasons,
		Metadata:     a.Metadata,
	}
}
