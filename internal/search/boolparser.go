package search

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/opensource-finance/shrike/internal/domain"
)

// The boolean mini-query language accepts flat FIELD OPERATOR VALUE
// clauses joined by AND/OR/NOT. The scanner is a single regex pass:
// parentheses are stripped before matching and grouping/precedence is not
// honored, a known limitation carried over from the UI examples that show
// parenthesized queries.

// queryFields whitelists the searchable fields and their backend columns.
var queryFields = map[string]string{
	"entity_name":        "m.entity_name",
	"entity_id":          "m.entity_id",
	"risk_id":            "m.risk_id",
	"country":            "addr.address_country",
	"city":               "addr.address_city",
	"event_category":     "ev.event_category_code",
	"event_sub_category": "ev.event_sub_category_code",
	"pep_type":           "pep_attr.alias_code_type",
	"pep_rating":         "pep_attr.alias_value",
	"birth_year":         "dob.date_of_birth_year",
	"risk_score":         "m.risk_score",
}

// queryOperators in match order: multi-character operators first so the
// scanner never splits ">=" into ">" plus a stray "=".
var queryOperators = []string{
	"CONTAINS", "EQUALS", "IN", "LIKE", "REGEX", ">=", "<=", "=", ">", "<",
}

var conditionPattern = regexp.MustCompile(
	`(?i)([a-z_][a-z0-9_]*)\s+(CONTAINS|EQUALS|IN|LIKE|REGEX|>=|<=|=|>|<)\s+("[^"]*"|'[^']*'|\([^)]*\)|[^\s()]+)`)

var logicalPattern = regexp.MustCompile(`(?i)\b(AND|OR|NOT)\b`)

// ParseQuery scans a boolean mini-query into structured conditions.
// It never panics: malformed input yields Valid=false with a readable
// error and actionable suggestions.
func ParseQuery(query string) *domain.QueryValidation {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return invalid(query, "empty query")
	}

	matches := conditionPattern.FindAllStringSubmatch(trimmed, -1)
	if len(matches) == 0 {
		return invalid(query, "no valid conditions found; expected FIELD OPERATOR VALUE")
	}

	conditions := make([]domain.QueryCondition, 0, len(matches))
	for _, m := range matches {
		field := strings.ToLower(m[1])
		operator := strings.ToUpper(m[2])
		value := unquote(m[3])

		dbField, ok := queryFields[field]
		if !ok {
			return invalid(query, fmt.Sprintf("unknown field: %s", field))
		}

		conditions = append(conditions, domain.QueryCondition{
			Field:    field,
			Operator: operator,
			Value:    value,
			DBField:  dbField,
		})
	}

	// Leftover tokens that are neither conditions, logical operators nor
	// grouping parentheses signal a malformed clause the scanner skipped.
	// Parentheses are discarded here: grouping is accepted syntax but has
	// no effect on the flat condition list.
	remainder := conditionPattern.ReplaceAllString(trimmed, " ")
	remainder = logicalPattern.ReplaceAllString(remainder, " ")
	remainder = strings.NewReplacer("(", " ", ")", " ", ",", " ").Replace(remainder)
	if strings.TrimSpace(remainder) != "" {
		return invalid(query, fmt.Sprintf("unrecognized input near %q", firstToken(remainder)))
	}

	return &domain.QueryValidation{
		Valid:      true,
		Conditions: conditions,
	}
}

func invalid(query, errMsg string) *domain.QueryValidation {
	return &domain.QueryValidation{
		Valid:       false,
		Conditions:  []domain.QueryCondition{},
		Error:       errMsg,
		Suggestions: querySuggestions(query),
	}
}

// querySuggestions offers actionable examples keyed off what the user
// seems to be searching for, plus general syntax reminders.
func querySuggestions(query string) []string {
	var suggestions []string
	lower := strings.ToLower(query)

	if strings.Contains(lower, "name") {
		suggestions = append(suggestions, `Try: entity_name CONTAINS "value"`)
	}
	if strings.Contains(lower, "pep") {
		suggestions = append(suggestions, `Try: pep_type = "HOS" AND pep_rating = "A"`)
	}
	if strings.Contains(lower, "country") {
		suggestions = append(suggestions, `Try: country = "United States"`)
	}
	if strings.Contains(lower, "event") {
		suggestions = append(suggestions, `Try: event_category = "BRB"`)
	}

	suggestions = append(suggestions,
		`Use quotes around values: field = "value"`,
		"Combine with AND/OR: condition1 AND condition2",
		"Available operators: "+strings.Join(queryOperators, ", "),
	)
	return suggestions
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s
	}
	return fields[0]
}

// QueryFields returns the searchable field names, for UI pickers and help
// text.
func QueryFields() []string {
	out := make([]string, 0, len(queryFields))
	for f := range queryFields {
		out = append(out, f)
	}
	return out
}
