package scoring

import (
	"fmt"
	"testing"
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
)

func TestEngineSnapshotIsolation(t *testing.T) {
	engine := NewEngine(domain.ModeLegacy, nil)
	defer engine.Close()

	cfg := domain.DefaultScoringConfiguration()
	engine.LoadConfig("tenant-a", cfg)

	// Mutating the caller's copy after load must not affect the snapshot.
	cfg.RiskCodeSeverities["SAN"] = 1

	snapshot := engine.Snapshot("tenant-a")
	if got := snapshot.Severity("SAN"); got != 90 {
		t.Errorf("snapshot SAN severity = %v, want 90 (caller edit leaked in)", got)
	}
}

func TestEngineSnapshotFallsBackToDefaults(t *testing.T) {
	engine := NewEngine(domain.ModeLegacy, nil)
	defer engine.Close()

	snapshot := engine.Snapshot("unknown-tenant")
	if snapshot == nil {
		t.Fatal("Snapshot returned nil")
	}
	if got := snapshot.SeverityThresholds.CriticalMin; got != 80 {
		t.Errorf("default CriticalMin = %v, want 80", got)
	}
}

func TestEngineScoreEntityLegacyMode(t *testing.T) {
	engine := NewEngine(domain.ModeLegacy, nil)
	defer engine.Close()

	entity := &domain.EntityRecord{
		EntityID: "e-1",
		Events: []domain.Event{
			{CategoryCode: "SAN", Date: testNow.AddDate(0, 0, -40).Format("2006-01-02"), SourcePriority: "HIGH"},
		},
	}

	result := engine.ScoreEntity(entity, engine.Snapshot(""), testNow)
	if result.Score != 90.0 {
		t.Errorf("Score = %v, want 90.0", result.Score)
	}
	if result.Strategy != StrategyLegacy {
		t.Errorf("Strategy = %v, want %v", result.Strategy, StrategyLegacy)
	}
}

// failingStrategy always errors, to exercise the fallback chain.
type failingStrategy struct{ name string }

func (f *failingStrategy) Name() string { return f.name }
func (f *failingStrategy) Score(*domain.EntityRecord, *domain.ScoringConfiguration, time.Time) (*Result, error) {
	return nil, fmt.Errorf("strategy unavailable")
}

func TestEngineFallsBackToMinimal(t *testing.T) {
	engine := NewEngine(domain.ModeLegacy, nil)
	defer engine.Close()
	engine.RegisterStrategy(&failingStrategy{name: StrategyLegacy})

	entity := &domain.EntityRecord{
		EntityID: "e-2",
		Events: []domain.Event{
			{CategoryCode: "TER"},
			{CategoryCode: "FRD"},
		},
	}

	result := engine.ScoreEntity(entity, engine.Snapshot(""), testNow)
	if result.Strategy != "minimal" {
		t.Errorf("Strategy = %v, want minimal fallback", result.Strategy)
	}
	// Minimal calc: max matching severity (TER = 95), capped at 100.
	if result.Score != 95 {
		t.Errorf("Score = %v, want 95", result.Score)
	}
	if result.Severity != domain.SeverityCritical {
		t.Errorf("Severity = %v, want Critical", result.Severity)
	}
}

func TestEngineZeroScoreOnUnscorableEntity(t *testing.T) {
	engine := NewEngine(domain.ModeLegacy, nil)
	defer engine.Close()
	engine.RegisterStrategy(&failingStrategy{name: StrategyLegacy})

	// Entity that cannot be scored at all still comes back Probative with
	// score 0 rather than failing the search.
	entity := &domain.EntityRecord{EntityID: "e-3"}

	result := engine.ScoreEntity(entity, engine.Snapshot(""), testNow)
	if result.Score != 0 {
		t.Errorf("Score = %v, want 0", result.Score)
	}
	if result.Severity != domain.SeverityProbative {
		t.Errorf("Severity = %v, want Probative", result.Severity)
	}
}

func TestEngineModeSelectsStrategy(t *testing.T) {
	engine := NewEngine(domain.ModeNormalized, nil)
	defer engine.Close()

	s, err := engine.Strategy(domain.ModeNormalized)
	if err != nil {
		t.Fatalf("Strategy failed: %v", err)
	}
	if s.Name() != StrategyNormalized {
		t.Errorf("strategy = %v, want %v", s.Name(), StrategyNormalized)
	}

	s, err = engine.Strategy(domain.ModeLegacy)
	if err != nil {
		t.Fatalf("Strategy failed: %v", err)
	}
	if s.Name() != StrategyLegacy {
		t.Errorf("strategy = %v, want %v", s.Name(), StrategyLegacy)
	}
}

func TestEngineConfigCount(t *testing.T) {
	engine := NewEngine(domain.ModeLegacy, nil)
	defer engine.Close()

	if engine.ConfigCount() != 0 {
		t.Errorf("ConfigCount = %d, want 0", engine.ConfigCount())
	}

	engine.LoadConfig("tenant-a", domain.DefaultScoringConfiguration())
	engine.LoadConfig("tenant-b", domain.DefaultScoringConfiguration())

	if engine.ConfigCount() != 2 {
		t.Errorf("ConfigCount = %d, want 2", engine.ConfigCount())
	}
}
