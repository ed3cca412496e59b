package domain

import (
	"time"
)

// EntityRecord represents a screened entity as read from the warehouse.
type EntityRecord struct {
	// Core identifiers
	EntityID   string `json:"entityId"`
	TenantID   string `json:"tenantId"`
	EntityName string `json:"entityName"`
	RiskID     string `json:"riskId,omitempty"`

	// Entity type: "Individual" or "Organization"
	EntityType string `json:"entityType"`

	// BirthYear is zero when unknown (organizations, sparse records).
	BirthYear int `json:"birthYear,omitempty"`

	// Risk profile data
	Events        []Event        `json:"events,omitempty"`
	Relationships []Relationship `json:"relationships,omitempty"`
	Addresses     []Address      `json:"addresses,omitempty"`
	Attributes    []Attribute    `json:"attributes,omitempty"`

	// Optional metadata
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// Temporal
	CreatedAt time.Time `json:"createdAt"`

	// Reference to the raw warehouse row (for adapters)
	OriginalRow []byte `json:"-"`
}

// Event is a single adverse-media or watchlist event attached to an entity.
type Event struct {
	CategoryCode    string `json:"categoryCode"`
	SubCategoryCode string `json:"subCategoryCode,omitempty"`
	Date            string `json:"date,omitempty"`
	Description     string `json:"description,omitempty"`
	SourcePriority  string `json:"sourcePriority,omitempty"` // HIGH, MEDIUM, LOW
}

// Relationship links an entity to a related party.
type Relationship struct {
	RelatedEntityID string `json:"relatedEntityId"`
	Type            string `json:"type"`
	Direction       string `json:"direction,omitempty"`
}

// Address is a known location for an entity.
type Address struct {
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`
	Street  string `json:"street,omitempty"`
}

// Attribute is a typed key/value pair carried by an entity.
// PEP indicators arrive as attributes: code type "PTY" with values like
// "HOS:L5", "PRT" with "A:01/02/2023", "PLV" with a bare level.
type Attribute struct {
	CodeType string `json:"codeType"`
	Value    string `json:"value"`
}

// ScoreRequest is the API request payload for ad-hoc entity scoring.
type ScoreRequest struct {
	TenantID      string         `json:"tenantId" validate:"required"`
	EntityName    string         `json:"entityName" validate:"required"`
	EntityType    string         `json:"entityType"`
	Events        []Event        `json:"events,omitempty"`
	Relationships []Relationship `json:"relationships,omitempty"`
	Addresses     []Address      `json:"addresses,omitempty"`
	Attributes    []Attribute    `json:"attributes,omitempty"`
}

// ToEntity converts a request to an EntityRecord domain object.
// Missing collections stay nil; calculators treat nil as empty.
func (r *ScoreRequest) ToEntity() *EntityRecord {
	entityType := r.EntityType
	if entityType == "" {
		entityType = EntityTypeIndividual
	}
	return &EntityRecord{
		TenantID:      r.TenantID,
		EntityName:    r.EntityName,
		EntityType:    entityType,
		Events:        r.Events,
		Relationships: r.Relationships,
		Addresses:     r.Addresses,
		Attributes:    r.Attributes,
		CreatedAt:     time.Now().UTC(),
	}
}

// Entity type constants
const (
	EntityTypeIndividual   = "Individual"
	EntityTypeOrganization = "Organization"
)
