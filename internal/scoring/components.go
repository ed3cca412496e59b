package scoring

import (
	"strings"
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
)

// The five component calculators are pure functions of (slice, config) and
// always return a finite number in [0, 100]. Empty input scores 0. Missing
// collections are passed as nil and treated as empty; nothing here panics
// on malformed records.

// Source priority multipliers for event weighting.
const (
	priorityHigh   = 1.5
	priorityMedium = 1.0
	priorityLow    = 0.5
)

func priorityMultiplier(sourcePriority string) float64 {
	switch strings.ToUpper(strings.TrimSpace(sourcePriority)) {
	case "HIGH":
		return priorityHigh
	case "MEDIUM":
		return priorityMedium
	case "LOW":
		return priorityLow
	default:
		return 1.0
	}
}

// ageMultiplier buckets event age: a year or newer counts full weight,
// then 0.8, 0.6, 0.4 per additional bucket, and 0.2 beyond five years.
// Unparseable dates take the stale bucket too.
func ageMultiplier(date string, now time.Time) float64 {
	t, ok := ParseDate(date)
	if !ok {
		return 0.2
	}
	days := now.Sub(t).Hours() / 24
	switch {
	case days <= 365:
		return 1.0
	case days <= 730:
		return 0.8
	case days <= 1095:
		return 0.6
	case days <= 1825:
		return 0.4
	default:
		return 0.2
	}
}

// frequencyMultiplier rewards repeated identical category codes within the
// same entity, capped at 2.0.
func frequencyMultiplier(repeatCount int) float64 {
	if repeatCount < 1 {
		repeatCount = 1
	}
	m := 1.0 + 0.2*float64(repeatCount-1)
	if m > 2.0 {
		return 2.0
	}
	return m
}

// EventScore computes the weighted average event severity.
// Each event contributes base severity (25 for unknown codes) scaled by
// source priority, age bucket, code frequency, and sub-category multiplier;
// the sum is divided by the sum of priority multipliers, not the event
// count.
func EventScore(events []domain.Event, cfg *domain.ScoringConfiguration, now time.Time) float64 {
	if len(events) == 0 {
		return 0
	}

	codeCounts := make(map[string]int, len(events))
	for _, ev := range events {
		codeCounts[ev.CategoryCode]++
	}

	var weightedSum, prioritySum float64
	for _, ev := range events {
		base := cfg.Severity(ev.CategoryCode)
		priority := priorityMultiplier(ev.SourcePriority)
		age := ageMultiplier(ev.Date, now)
		freq := frequencyMultiplier(codeCounts[ev.CategoryCode])
		subCat := cfg.SubCategoryMultiplier(ev.SubCategoryCode)

		weightedSum += base * priority * age * freq * subCat
		prioritySum += priority
	}

	if prioritySum == 0 {
		return 0
	}
	return clamp(weightedSum/prioritySum, 0, 100)
}

// highRiskRelationshipTypes add a flat bonus per relationship.
var highRiskRelationshipTypes = map[string]bool{
	"BUSINESS_PARTNER": true,
	"ASSOCIATE":        true,
	"BENEFICIAL_OWNER": true,
}

// RelationshipScore scores network exposure: 5 points per relationship up
// to 50, plus 10 per high-risk relationship type, capped at 100.
func RelationshipScore(rels []domain.Relationship, _ *domain.ScoringConfiguration) float64 {
	if len(rels) == 0 {
		return 0
	}

	score := float64(len(rels)) * 5
	if score > 50 {
		score = 50
	}
	for _, r := range rels {
		if highRiskRelationshipTypes[strings.ToUpper(strings.TrimSpace(r.Type))] {
			score += 10
		}
	}
	return clamp(score, 0, 100)
}

// GeographicScore takes the MAX across addresses of 25 times the country
// multiplier, not the sum: one high-risk address dominates regardless of
// how many benign ones accompany it.
func GeographicScore(addrs []domain.Address, cfg *domain.ScoringConfiguration) float64 {
	if len(addrs) == 0 {
		return 0
	}

	var max float64
	for _, a := range addrs {
		s := 25 * cfg.GeographicMultiplier(a.Country)
		if s > max {
			max = s
		}
	}
	return clamp(max, 0, 100)
}

// TemporalScore scores recency: the fraction of events dated within the
// last two years, scaled to 30.
func TemporalScore(events []domain.Event, _ *domain.ScoringConfiguration, now time.Time) float64 {
	if len(events) == 0 {
		return 0
	}

	cutoff := now.AddDate(-2, 0, 0)
	recent := 0
	for _, ev := range events {
		if t, ok := ParseDate(ev.Date); ok && !t.Before(cutoff) {
			recent++
		}
	}
	return clamp(float64(recent)/float64(len(events))*30, 0, 100)
}

// PEPScore takes the MAX across attributes with a configured PEP priority
// of (priority/100)*50.
func PEPScore(attrs []domain.Attribute, cfg *domain.ScoringConfiguration) float64 {
	if len(attrs) == 0 {
		return 0
	}

	var max float64
	for _, a := range attrs {
		priority, ok := cfg.PEPPriorities[strings.ToUpper(strings.TrimSpace(a.CodeType))]
		if !ok {
			continue
		}
		if s := (priority / 100) * 50; s > max {
			max = s
		}
	}
	return clamp(max, 0, 100)
}

// Components computes all five component scores for an entity.
func Components(e *domain.EntityRecord, cfg *domain.ScoringConfiguration, now time.Time) domain.ComponentScores {
	return domain.ComponentScores{
		Event:        EventScore(e.Events, cfg, now),
		Relationship: RelationshipScore(e.Relationships, cfg),
		Geographic:   GeographicScore(e.Addresses, cfg),
		Temporal:     TemporalScore(e.Events, cfg, now),
		PEP:          PEPScore(e.Attributes, cfg),
	}
}
