package search

import (
	"strings"
	"testing"
)

func TestParseQuerySingleCondition(t *testing.T) {
	result := ParseQuery(`entity_name CONTAINS "Smith"`)

	if !result.Valid {
		t.Fatalf("expected valid, got error: %s", result.Error)
	}
	if len(result.Conditions) != 1 {
		t.Fatalf("got %d conditions, want 1", len(result.Conditions))
	}

	c := result.Conditions[0]
	if c.Field != "entity_name" {
		t.Errorf("Field = %q, want entity_name", c.Field)
	}
	if c.Operator != "CONTAINS" {
		t.Errorf("Operator = %q, want CONTAINS", c.Operator)
	}
	if c.Value != "Smith" {
		t.Errorf("Value = %q, want Smith (quotes stripped)", c.Value)
	}
	if c.DBField != "m.entity_name" {
		t.Errorf("DBField = %q, want m.entity_name", c.DBField)
	}
}

func TestParseQueryOperators(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		operator string
		value    string
	}{
		{"equals keyword", `country EQUALS "US"`, "EQUALS", "US"},
		{"equals symbol", `country = "US"`, "=", "US"},
		{"greater than", `birth_year > 1980`, ">", "1980"},
		{"less than", `birth_year < 2000`, "<", "2000"},
		{"greater equal", `risk_score >= 80`, ">=", "80"},
		{"less equal", `risk_score <= 60`, "<=", "60"},
		{"like", `city LIKE "New%"`, "LIKE", "New%"},
		{"regex", `entity_name REGEX "^John.*Smith$"`, "REGEX", "^John.*Smith$"},
		{"case-insensitive operator", `country contains "ger"`, "CONTAINS", "ger"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseQuery(tt.query)
			if !result.Valid {
				t.Fatalf("expected valid, got error: %s", result.Error)
			}
			if len(result.Conditions) != 1 {
				t.Fatalf("got %d conditions, want 1", len(result.Conditions))
			}
			if result.Conditions[0].Operator != tt.operator {
				t.Errorf("Operator = %q, want %q", result.Conditions[0].Operator, tt.operator)
			}
			if result.Conditions[0].Value != tt.value {
				t.Errorf("Value = %q, want %q", result.Conditions[0].Value, tt.value)
			}
		})
	}
}

func TestParseQueryMultipleConditions(t *testing.T) {
	result := ParseQuery(`entity_name CONTAINS "John" AND country = "US" OR city = "Boston"`)

	if !result.Valid {
		t.Fatalf("expected valid, got error: %s", result.Error)
	}
	if len(result.Conditions) != 3 {
		t.Fatalf("got %d conditions, want 3", len(result.Conditions))
	}
}

func TestParseQueryParenthesesIgnored(t *testing.T) {
	// Grouping is accepted syntax but the condition extractor stays flat.
	result := ParseQuery(`(entity_name CONTAINS "John" OR entity_name CONTAINS "Jane") AND country = "US"`)

	if !result.Valid {
		t.Fatalf("expected valid, got error: %s", result.Error)
	}
	if len(result.Conditions) != 3 {
		t.Fatalf("got %d conditions, want 3 (flat extraction)", len(result.Conditions))
	}
}

func TestParseQueryInvalid(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"gibberish", "hello world"},
		{"unknown field", `favorite_color = "blue"`},
		{"missing value", "entity_name CONTAINS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseQuery(tt.query)
			if result.Valid {
				t.Fatalf("expected invalid for %q", tt.query)
			}
			if result.Error == "" {
				t.Error("expected a readable error message")
			}
			if len(result.Suggestions) == 0 {
				t.Error("expected suggestions for invalid query")
			}
		})
	}
}

func TestParseQueryUnknownFieldError(t *testing.T) {
	result := ParseQuery(`pep_level = "L3"`)

	if result.Valid {
		t.Fatal("expected invalid for non-whitelisted field")
	}
	if !strings.Contains(result.Error, "pep_level") {
		t.Errorf("error %q should name the unknown field", result.Error)
	}
}

func TestParseQuerySuggestionsAreContextual(t *testing.T) {
	result := ParseQuery("name something broken")

	if result.Valid {
		t.Fatal("expected invalid")
	}
	found := false
	for _, s := range result.Suggestions {
		if strings.Contains(s, "entity_name CONTAINS") {
			found = true
		}
	}
	if !found {
		t.Errorf("suggestions %v should include an entity_name example", result.Suggestions)
	}
}

func TestParseQueryNeverPanics(t *testing.T) {
	inputs := []string{
		`"""`,
		"((((",
		"= = = =",
		"entity_name CONTAINS \"unterminated",
		strings.Repeat("AND ", 1000),
		"entity_name\tCONTAINS\t\"tabs\"",
	}

	for _, q := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("ParseQuery(%q) panicked: %v", q, r)
				}
			}()
			ParseQuery(q)
		}()
	}
}
