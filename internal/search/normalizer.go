// Package search translates raw UI filter values and boolean mini-queries
// into canonical query parameters.
package search

import (
	"strings"

	"github.com/opensource-finance/shrike/internal/domain"
)

// fieldRemap is the exhaustive raw-UI-name to canonical-key table.
// Unknown fields pass through unchanged, so adding a UI filter does not
// require a release here.
var fieldRemap = map[string]string{
	"name":              "name",
	"entity_name":       "name",
	"entityname":        "name",
	"riskid":            "risk_id",
	"risk_id":           "risk_id",
	"entityid":          "entity_id",
	"entity_id":         "entity_id",
	"country":           "country",
	"city":              "city",
	"event_categories":  "event_categories",
	"event_category":    "event_categories",
	"risk_codes":        "risk_codes",
	"risk_code":         "risk_codes",
	"pep_levels":        "pep_levels",
	"pep_level":         "pep_levels",
	"pep_ratings":       "pep_ratings",
	"pep_rating":        "pep_ratings",
	"source_systems":    "source_systems",
	"source_system":     "source_systems",
	"birth_year":        "birth_year",
	"entity_date":       "entity_date",
	"age_range":         "age_range",
	"risk_score_min":    "risk_score_min",
	"risk_score_max":    "risk_score_max",
	"min_relationships": "min_relationships",
}

// listFields are coerced to a list even when a single scalar is supplied.
var listFields = map[string]bool{
	"event_categories": true,
	"risk_codes":       true,
	"pep_levels":       true,
	"pep_ratings":      true,
	"source_systems":   true,
}

// codedValueFields carry "CODE - Description" values from UI pickers; only
// the code survives normalization.
var codedValueFields = map[string]bool{
	"pep_levels":  true,
	"pep_ratings": true,
}

// Options carries the per-search knobs that ride alongside the filters.
type Options struct {
	EntityType           string
	MaxResults           int
	UseRegex             bool
	LogicalOperator      string
	IncludeRelationships bool
}

// Normalize translates a raw filter map into canonical search criteria.
//
// Falsy values (empty string, nil, false) are dropped; explicit false
// boolean flags are dropped too, mirroring long-standing behavior even
// though it loses "filter on false". Range fields pass through as
// 2-element values; the query layer owns the date arithmetic.
// Normalizing an already-normalized map yields the same result.
func Normalize(raw map[string]interface{}, opts Options) *domain.SearchCriteria {
	params := make(map[string]interface{}, len(raw))

	for key, value := range raw {
		if isFalsy(value) {
			continue
		}

		canonical, known := fieldRemap[strings.ToLower(strings.TrimSpace(key))]
		if !known {
			// Forward-compatible: unknown fields pass through unchanged.
			params[key] = value
			continue
		}

		if listFields[canonical] {
			list := toList(value)
			if codedValueFields[canonical] {
				for i, item := range list {
					list[i] = stripDescription(item)
				}
			}
			if len(list) == 0 {
				continue
			}
			params[canonical] = list
			continue
		}

		params[canonical] = value
	}

	logicalOp := strings.ToUpper(strings.TrimSpace(opts.LogicalOperator))
	if logicalOp != "OR" {
		logicalOp = "AND"
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 100
	}

	return &domain.SearchCriteria{
		Params:               params,
		EntityType:           normalizeEntityType(opts.EntityType),
		MaxResults:           maxResults,
		UseRegex:             opts.UseRegex,
		LogicalOperator:      logicalOp,
		IncludeRelationships: opts.IncludeRelationships,
	}
}

// isFalsy reports whether a filter value should be dropped.
func isFalsy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case bool:
		return !val
	case []string:
		return len(val) == 0
	case []interface{}:
		return len(val) == 0
	default:
		return false
	}
}

// toList coerces a scalar or slice value into a string list.
func toList(v interface{}) []string {
	switch val := v.(type) {
	case []string:
		out := make([]string, 0, len(val))
		for _, s := range val {
			if strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.TrimSpace(val) == "" {
			return nil
		}
		return []string{val}
	default:
		return nil
	}
}

// stripDescription keeps the code from "CODE - Description" picker values.
func stripDescription(s string) string {
	if idx := strings.Index(s, " - "); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

func normalizeEntityType(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "organization", "org":
		return domain.EntityTypeOrganization
	case "individual", "":
		return domain.EntityTypeIndividual
	default:
		return strings.TrimSpace(s)
	}
}
