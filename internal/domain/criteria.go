package domain

// SearchCriteria is the canonical, backend-agnostic form of a search request.
// Constructed fresh per search, handed once to the query layer, discarded.
type SearchCriteria struct {
	// Params maps canonical field name to value: scalar, list, or 2-element
	// range (year windows, birth-year ranges).
	Params map[string]interface{} `json:"params"`

	EntityType           string `json:"entityType,omitempty"`
	MaxResults           int    `json:"maxResults,omitempty"`
	UseRegex             bool   `json:"useRegex,omitempty"`
	LogicalOperator      string `json:"logicalOperator,omitempty"` // AND, OR
	IncludeRelationships bool   `json:"includeRelationships,omitempty"`

	// Conditions parsed out of a boolean mini-query, if one was supplied.
	Conditions []QueryCondition `json:"conditions,omitempty"`
}

// QueryCondition is a single FIELD OPERATOR VALUE clause from the boolean
// mini-query language, with the backend column it maps to.
type QueryCondition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
	DBField  string `json:"db_field"`
}

// QueryValidation is the structured result of parsing a boolean mini-query.
// Malformed input yields Valid=false with an error and suggestions; the
// parser never panics.
type QueryValidation struct {
	Valid       bool             `json:"valid"`
	Conditions  []QueryCondition `json:"conditions"`
	Error       string           `json:"error,omitempty"`
	Suggestions []string         `json:"suggestions,omitempty"`
}

// SearchRequest is the API request payload for entity search.
type SearchRequest struct {
	TenantID string                 `json:"tenantId"`
	Criteria map[string]interface{} `json:"criteria"`
	Query    string                 `json:"query,omitempty"` // boolean mini-query

	EntityType           string `json:"entityType,omitempty"`
	MaxResults           int    `json:"maxResults,omitempty"`
	UseRegex             bool   `json:"useRegex,omitempty"`
	LogicalOperator      string `json:"logicalOperator,omitempty"`
	IncludeRelationships bool   `json:"includeRelationships,omitempty"`
}

// SearchResponse is the API response for entity search: the matched entities
// with their assessments attached.
type SearchResponse struct {
	TenantID string                `json:"tenantId"`
	Total    int                   `json:"total"`
	Results  []*AssessmentResponse `json:"results"`
}
