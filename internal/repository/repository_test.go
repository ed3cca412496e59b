package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
	"github.com/opensource-finance/shrike/internal/scoring"
	"github.com/opensource-finance/shrike/internal/search"
)

func TestSQLiteRepository(t *testing.T) {
	// Create temp database file
	tmpFile, err := os.CreateTemp("", "shrike-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetEntity", func(t *testing.T) {
		entity := &domain.EntityRecord{
			EntityID:   "ent-001",
			EntityName: "Viktor Petrov",
			RiskID:     "R-9001",
			EntityType: domain.EntityTypeIndividual,
			BirthYear:  1975,
			Events: []domain.Event{
				{CategoryCode: "SAN", Date: "2026-04-01", SourcePriority: "HIGH"},
			},
			Addresses:  []domain.Address{{Country: "ru", City: "Moscow"}},
			Attributes: []domain.Attribute{{CodeType: "PTY", Value: "HOS:L5"}},
			Metadata:   map[string]any{"source": "warehouse"},
			CreatedAt:  time.Now().UTC(),
		}

		if err := repo.SaveEntity(ctx, tenantID, entity); err != nil {
			t.Fatalf("SaveEntity failed: %v", err)
		}

		retrieved, err := repo.GetEntity(ctx, tenantID, entity.EntityID)
		if err != nil {
			t.Fatalf("GetEntity failed: %v", err)
		}

		if retrieved.EntityName != entity.EntityName {
			t.Errorf("expected name %s, got %s", entity.EntityName, retrieved.EntityName)
		}
		if retrieved.TenantID != tenantID {
			t.Errorf("expected TenantID %s, got %s", tenantID, retrieved.TenantID)
		}
		if len(retrieved.Events) != 1 || retrieved.Events[0].CategoryCode != "SAN" {
			t.Errorf("events did not survive round trip: %+v", retrieved.Events)
		}
		if len(retrieved.Attributes) != 1 || retrieved.Attributes[0].Value != "HOS:L5" {
			t.Errorf("attributes did not survive round trip: %+v", retrieved.Attributes)
		}
	})

	t.Run("SaveEntityUpserts", func(t *testing.T) {
		updated := &domain.EntityRecord{
			EntityID:   "ent-001",
			EntityName: "Viktor A. Petrov",
			EntityType: domain.EntityTypeIndividual,
			BirthYear:  1975,
		}

		if err := repo.SaveEntity(ctx, tenantID, updated); err != nil {
			t.Fatalf("SaveEntity failed: %v", err)
		}

		retrieved, err := repo.GetEntity(ctx, tenantID, "ent-001")
		if err != nil {
			t.Fatalf("GetEntity failed: %v", err)
		}
		if retrieved.EntityName != "Viktor A. Petrov" {
			t.Errorf("expected updated name, got %s", retrieved.EntityName)
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		otherTenant := "tenant-002"

		_, err := repo.GetEntity(ctx, otherTenant, "ent-001")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound for different tenant, got: %v", err)
		}
	})

	t.Run("RequiresTenantID", func(t *testing.T) {
		entity := &domain.EntityRecord{EntityID: "ent-test"}

		err := repo.SaveEntity(ctx, "", entity)
		if err == nil {
			t.Error("expected error for empty tenantID")
		}

		_, err = repo.GetEntity(ctx, "", "ent-001")
		if err == nil {
			t.Error("expected error for empty tenantID")
		}
	})

	t.Run("SearchEntities", func(t *testing.T) {
		second := &domain.EntityRecord{
			EntityID:   "ent-002",
			EntityName: "Acme Trading Ltd",
			EntityType: domain.EntityTypeOrganization,
			Events: []domain.Event{
				{CategoryCode: "FRD", Date: "2026-02-10"},
			},
			Addresses: []domain.Address{{Country: "GB", City: "London"}},
		}
		if err := repo.SaveEntity(ctx, tenantID, second); err != nil {
			t.Fatalf("SaveEntity failed: %v", err)
		}

		results, err := repo.SearchEntities(ctx, tenantID, &domain.SearchCriteria{
			Params: map[string]interface{}{"name": "Petrov"},
		})
		if err != nil {
			t.Fatalf("SearchEntities failed: %v", err)
		}
		if len(results) != 1 || results[0].EntityID != "ent-001" {
			t.Errorf("name search returned %d results: %+v", len(results), results)
		}

		results, err = repo.SearchEntities(ctx, tenantID, &domain.SearchCriteria{
			Params:     map[string]interface{}{"event_categories": []string{"FRD"}},
			EntityType: domain.EntityTypeOrganization,
		})
		if err != nil {
			t.Fatalf("SearchEntities failed: %v", err)
		}
		if len(results) != 1 || results[0].EntityID != "ent-002" {
			t.Errorf("category search returned %d results", len(results))
		}
	})

	t.Run("SearchEntitiesConditions", func(t *testing.T) {
		results, err := repo.SearchEntities(ctx, tenantID, &domain.SearchCriteria{
			Params: map[string]interface{}{},
			Conditions: []domain.QueryCondition{
				{Field: "entity_name", Operator: "CONTAINS", Value: "Acme"},
			},
		})
		if err != nil {
			t.Fatalf("SearchEntities failed: %v", err)
		}
		if len(results) != 1 || results[0].EntityID != "ent-002" {
			t.Errorf("condition search returned %d results", len(results))
		}
	})

	t.Run("SearchEntitiesNormalizedFilters", func(t *testing.T) {
		third := &domain.EntityRecord{
			EntityID:   "ent-003",
			EntityName: "Dmitri Volkov",
			RiskID:     "R-9003",
			EntityType: domain.EntityTypeIndividual,
			BirthYear:  1968,
			Events: []domain.Event{
				{CategoryCode: "SAN", Date: "2026-01-15"},
			},
			Addresses:  []domain.Address{{Country: "RU", City: "Moscow"}},
			Attributes: []domain.Attribute{{CodeType: "PTY", Value: "HOS:L5"}},
		}
		if err := repo.SaveEntity(ctx, tenantID, third); err != nil {
			t.Fatalf("SaveEntity failed: %v", err)
		}

		// Normalizer output must translate into SQL clauses, not vanish.
		criteria := search.Normalize(map[string]interface{}{"country": "RU"}, search.Options{})
		clauses, _ := buildSearchClauses(criteria)
		if len(clauses) == 0 {
			t.Fatal("normalized country filter produced no SQL clause")
		}

		results, err := repo.SearchEntities(ctx, tenantID, criteria)
		if err != nil {
			t.Fatalf("SearchEntities failed: %v", err)
		}
		if len(results) != 1 || results[0].EntityID != "ent-003" {
			t.Errorf("country search returned %d results: %+v", len(results), results)
		}

		criteria = search.Normalize(map[string]interface{}{"birth_year": 1968}, search.Options{})
		results, err = repo.SearchEntities(ctx, tenantID, criteria)
		if err != nil {
			t.Fatalf("SearchEntities failed: %v", err)
		}
		if len(results) != 1 || results[0].EntityID != "ent-003" {
			t.Errorf("birth_year search returned %d results", len(results))
		}
	})

	t.Run("SearchEntitiesParsedConditions", func(t *testing.T) {
		parsed := search.ParseQuery(`entity_name CONTAINS "Volkov" AND birth_year >= 1960`)
		if !parsed.Valid {
			t.Fatalf("query did not parse: %s", parsed.Error)
		}

		clauses, _ := buildSearchClauses(&domain.SearchCriteria{Conditions: parsed.Conditions})
		if len(clauses) != 2 {
			t.Fatalf("expected 2 clauses from parsed conditions, got %d", len(clauses))
		}

		results, err := repo.SearchEntities(ctx, tenantID, &domain.SearchCriteria{
			Conditions: parsed.Conditions,
		})
		if err != nil {
			t.Fatalf("SearchEntities failed: %v", err)
		}
		if len(results) != 1 || results[0].EntityID != "ent-003" {
			t.Errorf("parsed condition search returned %d results", len(results))
		}

		parsed = search.ParseQuery(`birth_year >= 1980`)
		if !parsed.Valid {
			t.Fatalf("query did not parse: %s", parsed.Error)
		}
		results, err = repo.SearchEntities(ctx, tenantID, &domain.SearchCriteria{
			Conditions: parsed.Conditions,
		})
		if err != nil {
			t.Fatalf("SearchEntities failed: %v", err)
		}
		for _, e := range results {
			if e.BirthYear < 1980 {
				t.Errorf("birth_year >= 1980 returned entity born %d", e.BirthYear)
			}
		}

		parsed = search.ParseQuery(`event_category = "SAN"`)
		if !parsed.Valid {
			t.Fatalf("query did not parse: %s", parsed.Error)
		}
		results, err = repo.SearchEntities(ctx, tenantID, &domain.SearchCriteria{
			Conditions: parsed.Conditions,
		})
		if err != nil {
			t.Fatalf("SearchEntities failed: %v", err)
		}
		if len(results) != 1 || results[0].EntityID != "ent-003" {
			t.Errorf("event_category search returned %d results", len(results))
		}
	})

	t.Run("SearchEntitiesRegexConditions", func(t *testing.T) {
		results, err := repo.SearchEntities(ctx, tenantID, &domain.SearchCriteria{
			Conditions: []domain.QueryCondition{
				{Field: "entity_name", Operator: "REGEX", Value: "^Dmi"},
			},
		})
		if err != nil {
			t.Fatalf("SearchEntities failed: %v", err)
		}
		if len(results) != 1 || results[0].EntityID != "ent-003" {
			t.Errorf("regex search returned %d results", len(results))
		}

		_, err = repo.SearchEntities(ctx, tenantID, &domain.SearchCriteria{
			Conditions: []domain.QueryCondition{
				{Field: "entity_name", Operator: "REGEX", Value: "(unclosed"},
			},
		})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for bad pattern, got: %v", err)
		}
	})

	t.Run("SaveAndGetScoringConfig", func(t *testing.T) {
		cfg := domain.DefaultScoringConfiguration()
		cfg.ID = "default"
		cfg.TenantID = tenantID
		cfg.Version = 1
		cfg.BaseRiskScore = 12.5

		if err := repo.SaveScoringConfig(ctx, tenantID, cfg); err != nil {
			t.Fatalf("SaveScoringConfig failed: %v", err)
		}

		retrieved, err := repo.GetScoringConfig(ctx, tenantID, "default")
		if err != nil {
			t.Fatalf("GetScoringConfig failed: %v", err)
		}
		if retrieved.BaseRiskScore != 12.5 {
			t.Errorf("expected BaseRiskScore 12.5, got %v", retrieved.BaseRiskScore)
		}
	})

	t.Run("GetScoringConfigLatestVersion", func(t *testing.T) {
		cfg := domain.DefaultScoringConfiguration()
		cfg.ID = "default"
		cfg.Version = 2
		cfg.BaseRiskScore = 20

		if err := repo.SaveScoringConfig(ctx, tenantID, cfg); err != nil {
			t.Fatalf("SaveScoringConfig failed: %v", err)
		}

		retrieved, err := repo.GetScoringConfig(ctx, tenantID, "default")
		if err != nil {
			t.Fatalf("GetScoringConfig failed: %v", err)
		}
		if retrieved.Version != 2 {
			t.Errorf("expected version 2, got %d", retrieved.Version)
		}

		configs, err := repo.ListScoringConfigs(ctx, tenantID)
		if err != nil {
			t.Fatalf("ListScoringConfigs failed: %v", err)
		}
		if len(configs) != 1 {
			t.Fatalf("expected 1 config (latest per id), got %d", len(configs))
		}
		if configs[0].Version != 2 {
			t.Errorf("expected latest version listed, got %d", configs[0].Version)
		}
	})

	t.Run("ListScoringConfigsAcrossTenants", func(t *testing.T) {
		other := "tenant-002"
		cfg := domain.DefaultScoringConfiguration()
		cfg.ID = "default"
		cfg.Version = 1
		cfg.BaseRiskScore = 30

		if err := repo.SaveScoringConfig(ctx, other, cfg); err != nil {
			t.Fatalf("SaveScoringConfig failed: %v", err)
		}

		configs, err := repo.ListScoringConfigs(ctx, domain.GlobalTenantID)
		if err != nil {
			t.Fatalf("ListScoringConfigs failed: %v", err)
		}
		if len(configs) != 2 {
			t.Fatalf("expected configs for both tenants, got %d", len(configs))
		}
		for _, c := range configs {
			if c.TenantID == "" {
				t.Errorf("config %s listed without a tenant", c.ID)
			}
		}

		// A restart replays the listing into a fresh engine; each tenant
		// must get its own stored configuration back.
		engine := scoring.NewEngine(domain.ModeLegacy, nil)
		defer engine.Close()
		for _, c := range configs {
			engine.LoadConfig(c.TenantID, c)
		}
		if got := engine.Snapshot(other).BaseRiskScore; got != 30 {
			t.Errorf("expected tenant-002 BaseRiskScore 30 after reload, got %v", got)
		}
		if got := engine.Snapshot(tenantID).BaseRiskScore; got != 20 {
			t.Errorf("expected tenant-001 BaseRiskScore 20 after reload, got %v", got)
		}
	})

	t.Run("SaveAndGetAssessment", func(t *testing.T) {
		a := &domain.Assessment{
			ID:         "asm-001",
			EntityID:   "ent-001",
			EntityName: "Viktor Petrov",
			Score:      87.5,
			Severity:   domain.SeverityCritical,
			Strategy:   "legacy-multiplicative",
			Timestamp:  time.Now().UTC(),
			Components: domain.ComponentScores{Event: 90, Geographic: 37.5},
			PEPStatus:  &domain.PEPInfo{IsPEP: true, HighestLevel: "L5"},
			Metadata:   domain.AssessmentMetadata{TraceID: "trace-001", EngineVersion: "shrike-1.0"},
		}

		if err := repo.SaveAssessment(ctx, tenantID, a); err != nil {
			t.Fatalf("SaveAssessment failed: %v", err)
		}

		retrieved, err := repo.GetAssessment(ctx, tenantID, a.ID)
		if err != nil {
			t.Fatalf("GetAssessment failed: %v", err)
		}
		if retrieved.Score != a.Score {
			t.Errorf("expected Score %.2f, got %.2f", a.Score, retrieved.Score)
		}
		if retrieved.Severity != domain.SeverityCritical {
			t.Errorf("expected Critical, got %s", retrieved.Severity)
		}
		if retrieved.PEPStatus == nil || retrieved.PEPStatus.HighestLevel != "L5" {
			t.Errorf("PEP status did not survive round trip: %+v", retrieved.PEPStatus)
		}
	})

	t.Run("ListAssessmentsByEntity", func(t *testing.T) {
		since := time.Now().Add(-1 * time.Hour)
		assessments, err := repo.ListAssessmentsByEntity(ctx, tenantID, "ent-001", since)
		if err != nil {
			t.Fatalf("ListAssessmentsByEntity failed: %v", err)
		}
		if len(assessments) != 1 {
			t.Errorf("expected 1 assessment, got %d", len(assessments))
		}
	})

	t.Run("EscalationRuleLifecycle", func(t *testing.T) {
		rule := &domain.EscalationRule{
			ID:         "rule-001",
			Name:       "senior-pep",
			Version:    "1.0",
			Expression: `pep_level == "L6"`,
			Reason:     "senior PEP",
			EscalateTo: domain.SeverityValuable,
			Enabled:    true,
		}

		if err := repo.SaveEscalationRule(ctx, tenantID, rule); err != nil {
			t.Fatalf("SaveEscalationRule failed: %v", err)
		}

		retrieved, err := repo.GetEscalationRule(ctx, tenantID, rule.ID)
		if err != nil {
			t.Fatalf("GetEscalationRule failed: %v", err)
		}
		if retrieved.Expression != rule.Expression {
			t.Errorf("expected expression %q, got %q", rule.Expression, retrieved.Expression)
		}
		if retrieved.EscalateTo != domain.SeverityValuable {
			t.Errorf("expected EscalateTo Valuable, got %s", retrieved.EscalateTo)
		}

		rulesList, err := repo.ListEscalationRules(ctx, tenantID)
		if err != nil {
			t.Fatalf("ListEscalationRules failed: %v", err)
		}
		if len(rulesList) != 1 {
			t.Errorf("expected 1 rule, got %d", len(rulesList))
		}

		if err := repo.DeleteEscalationRule(ctx, tenantID, rule.ID); err != nil {
			t.Fatalf("DeleteEscalationRule failed: %v", err)
		}

		_, err = repo.GetEscalationRule(ctx, tenantID, rule.ID)
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound after delete, got: %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetEntity(ctx, tenantID, "nonexistent")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}

		_, err = repo.GetAssessment(ctx, tenantID, "nonexistent")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}

		_, err = repo.GetScoringConfig(ctx, tenantID, "nonexistent")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}

		err = repo.DeleteEscalationRule(ctx, tenantID, "nonexistent")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := domain.RepositoryConfig{
		Driver: "mysql",
	}

	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	repo := &SQLRepository{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}

	for _, tt := range tests {
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
