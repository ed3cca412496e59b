package scoring

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
)

var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) string {
	return testNow.AddDate(0, 0, -n).Format("2006-01-02")
}

func TestEventScoreEmpty(t *testing.T) {
	cfg := domain.DefaultScoringConfiguration()

	if got := EventScore(nil, cfg, testNow); got != 0 {
		t.Errorf("EventScore(nil) = %v, want 0", got)
	}
	if got := EventScore([]domain.Event{}, cfg, testNow); got != 0 {
		t.Errorf("EventScore(empty) = %v, want 0", got)
	}
}

func TestEventScoreWeightedAverage(t *testing.T) {
	// A single recent SAN event from a HIGH priority source:
	// 90 * 1.5 * 1.0 * 1.0 * 1.0 / 1.5 = 90.
	cfg := domain.DefaultScoringConfiguration()
	events := []domain.Event{
		{CategoryCode: "SAN", Date: daysAgo(40), SourcePriority: "HIGH"},
	}

	got := EventScore(events, cfg, testNow)
	if math.Abs(got-90) > 0.0001 {
		t.Errorf("EventScore = %v, want 90", got)
	}
}

func TestEventScoreUnknownCodeDefault(t *testing.T) {
	cfg := domain.DefaultScoringConfiguration()
	events := []domain.Event{
		{CategoryCode: "ZZZ", Date: daysAgo(10), SourcePriority: "MEDIUM"},
	}

	// Unknown code takes base severity 25.
	got := EventScore(events, cfg, testNow)
	if math.Abs(got-25) > 0.0001 {
		t.Errorf("EventScore(unknown code) = %v, want 25", got)
	}
}

func TestEventScoreAgeBuckets(t *testing.T) {
	cfg := domain.DefaultScoringConfiguration()

	tests := []struct {
		days int
		want float64
	}{
		{100, 90.0},  // <=365d: 1.0
		{400, 72.0},  // <=730d: 0.8
		{800, 54.0},  // <=1095d: 0.6
		{1200, 36.0}, // <=1825d: 0.4
		{2000, 18.0}, // beyond: 0.2
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d days", tt.days), func(t *testing.T) {
			events := []domain.Event{
				{CategoryCode: "SAN", Date: daysAgo(tt.days), SourcePriority: "MEDIUM"},
			}
			got := EventScore(events, cfg, testNow)
			if math.Abs(got-tt.want) > 0.0001 {
				t.Errorf("EventScore(%dd old) = %v, want %v", tt.days, got, tt.want)
			}
		})
	}
}

func TestEventScoreUnparseableDateIsStale(t *testing.T) {
	cfg := domain.DefaultScoringConfiguration()
	events := []domain.Event{
		{CategoryCode: "SAN", Date: "not-a-date", SourcePriority: "MEDIUM"},
	}

	// Unparseable dates take the stale bucket: 90 * 0.2 = 18.
	got := EventScore(events, cfg, testNow)
	if math.Abs(got-18) > 0.0001 {
		t.Errorf("EventScore(unparseable date) = %v, want 18", got)
	}
}

func TestFrequencyMultiplierCap(t *testing.T) {
	tests := []struct {
		count int
		want  float64
	}{
		{1, 1.0},
		{2, 1.2},
		{3, 1.4},
		{6, 2.0},
		{100, 2.0},
	}

	for _, tt := range tests {
		if got := frequencyMultiplier(tt.count); math.Abs(got-tt.want) > 0.0001 {
			t.Errorf("frequencyMultiplier(%d) = %v, want %v", tt.count, got, tt.want)
		}
	}
}

func TestRelationshipScore(t *testing.T) {
	cfg := domain.DefaultScoringConfiguration()

	tests := []struct {
		name string
		rels []domain.Relationship
		want float64
	}{
		{"empty", nil, 0},
		{"single plain", []domain.Relationship{{Type: "EMPLOYEE"}}, 5},
		{"single high-risk", []domain.Relationship{{Type: "BENEFICIAL_OWNER"}}, 15},
		{"count capped at 50", manyRelationships(20, "EMPLOYEE"), 50},
		{"high-risk stacks on cap", manyRelationships(20, "ASSOCIATE"), 100}, // 50 + 20*10 capped
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RelationshipScore(tt.rels, cfg)
			if got != tt.want {
				t.Errorf("RelationshipScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func manyRelationships(n int, relType string) []domain.Relationship {
	rels := make([]domain.Relationship, n)
	for i := range rels {
		rels[i] = domain.Relationship{RelatedEntityID: fmt.Sprintf("rel-%d", i), Type: relType}
	}
	return rels
}

func TestGeographicScoreUsesMax(t *testing.T) {
	cfg := domain.DefaultScoringConfiguration()

	// One default-multiplier address and one high-risk address: the score
	// reflects the 1.5x address only, not the sum.
	addrs := []domain.Address{
		{Country: "XX"}, // DEFAULT 1.0
		{Country: "RU"}, // 1.5
	}

	got := GeographicScore(addrs, cfg)
	want := 25 * 1.5
	if got != want {
		t.Errorf("GeographicScore = %v, want %v (max, not sum)", got, want)
	}
}

func TestGeographicScoreCaseInsensitive(t *testing.T) {
	cfg := domain.DefaultScoringConfiguration()

	upper := GeographicScore([]domain.Address{{Country: "RU"}}, cfg)
	lower := GeographicScore([]domain.Address{{Country: "ru"}}, cfg)
	if upper != lower {
		t.Errorf("country lookup not case-insensitive: %v vs %v", upper, lower)
	}
}

func TestGeographicScoreEmpty(t *testing.T) {
	cfg := domain.DefaultScoringConfiguration()
	if got := GeographicScore(nil, cfg); got != 0 {
		t.Errorf("GeographicScore(nil) = %v, want 0", got)
	}
}

func TestTemporalScore(t *testing.T) {
	cfg := domain.DefaultScoringConfiguration()

	tests := []struct {
		name   string
		events []domain.Event
		want   float64
	}{
		{"empty", nil, 0},
		{"all recent", []domain.Event{
			{CategoryCode: "FRD", Date: daysAgo(100)},
			{CategoryCode: "FRD", Date: daysAgo(200)},
		}, 30},
		{"half recent", []domain.Event{
			{CategoryCode: "FRD", Date: daysAgo(100)},
			{CategoryCode: "FRD", Date: daysAgo(3000)},
		}, 15},
		{"none recent", []domain.Event{
			{CategoryCode: "FRD", Date: daysAgo(3000)},
		}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TemporalScore(tt.events, cfg, testNow)
			if math.Abs(got-tt.want) > 0.0001 {
				t.Errorf("TemporalScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPEPScore(t *testing.T) {
	cfg := domain.DefaultScoringConfiguration()

	tests := []struct {
		name  string
		attrs []domain.Attribute
		want  float64
	}{
		{"empty", nil, 0},
		{"no matching code type", []domain.Attribute{{CodeType: "RMK", Value: "remark"}}, 0},
		{"single PTY", []domain.Attribute{{CodeType: "PTY", Value: "HOS:L5"}}, 45}, // (90/100)*50
		{"max across attributes", []domain.Attribute{
			{CodeType: "PLV", Value: "L3"},      // (60/100)*50 = 30
			{CodeType: "PTY", Value: "CAB:L4"},  // (90/100)*50 = 45
			{CodeType: "PRT", Value: "B:01/05"}, // (75/100)*50 = 37.5
		}, 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PEPScore(tt.attrs, cfg)
			if math.Abs(got-tt.want) > 0.0001 {
				t.Errorf("PEPScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComponentsEmptyEntity(t *testing.T) {
	cfg := domain.DefaultScoringConfiguration()
	entity := &domain.EntityRecord{EntityID: "empty", EntityName: "Empty"}

	c := Components(entity, cfg, testNow)
	if c.Event != 0 || c.Relationship != 0 || c.Geographic != 0 || c.Temporal != 0 || c.PEP != 0 {
		t.Errorf("empty entity components = %+v, want all zero", c)
	}
}
