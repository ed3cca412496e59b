package scoring

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
)

// Engine scores entities under per-tenant configuration snapshots.
// Snapshots are immutable: LoadConfig stores a clone and in-flight batches
// keep scoring against the snapshot they started with.
type Engine struct {
	mu         sync.RWMutex
	configs    map[string]*domain.ScoringConfiguration
	strategies map[string]ScoringStrategy
	mode       domain.ScoringMode
	logger     *slog.Logger
}

// NewEngine creates a scoring engine with the standard strategies
// registered.
func NewEngine(mode domain.ScoringMode, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		configs:    make(map[string]*domain.ScoringConfiguration),
		strategies: make(map[string]ScoringStrategy),
		mode:       mode,
		logger:     logger,
	}
	e.RegisterStrategy(NewLegacyStrategy())
	e.RegisterStrategy(NewNormalizedStrategy())
	e.RegisterStrategy(NewEnsembleStrategy(domain.DefaultEnsembleConfig()))
	return e
}

// RegisterStrategy adds or replaces a strategy by name.
func (e *Engine) RegisterStrategy(s ScoringStrategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategies[s.Name()] = s
}

// LoadConfig installs a configuration snapshot for a tenant. The stored
// copy is a clone, so later edits by the caller never leak into scoring.
// Validation problems (bad weights, misordered thresholds) are logged, not
// fatal: scoring must keep working on bad config.
func (e *Engine) LoadConfig(tenantID string, cfg *domain.ScoringConfiguration) {
	if cfg == nil {
		cfg = domain.DefaultScoringConfiguration()
	}

	if sum := cfg.ComponentWeights.Event + cfg.ComponentWeights.Relationship +
		cfg.ComponentWeights.Geographic + cfg.ComponentWeights.Temporal +
		cfg.ComponentWeights.PEP; math.Abs(sum-1.0) > 0.001 {
		e.logger.Warn("component weights do not sum to 1.0",
			"tenant", tenantID, "sum", sum)
	}
	if !cfg.SeverityThresholds.Ordered() {
		e.logger.Warn("severity thresholds are not strictly descending",
			"tenant", tenantID,
			"critical", cfg.SeverityThresholds.CriticalMin,
			"valuable", cfg.SeverityThresholds.ValuableMin,
			"investigative", cfg.SeverityThresholds.InvestigativeMin)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.configs[tenantID] = cfg.Clone()
}

// Snapshot returns the active configuration for a tenant, falling back to
// the built-in defaults. Callers read the snapshot once per batch.
func (e *Engine) Snapshot(tenantID string) *domain.ScoringConfiguration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if cfg, ok := e.configs[tenantID]; ok {
		return cfg
	}
	if cfg, ok := e.configs[""]; ok {
		return cfg
	}
	return domain.DefaultScoringConfiguration()
}

// Strategy returns the registered strategy for a scoring mode.
func (e *Engine) Strategy(mode domain.ScoringMode) (ScoringStrategy, error) {
	name := StrategyLegacy
	if mode == domain.ModeNormalized {
		name = StrategyNormalized
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.strategies[name]
	if !ok {
		return nil, fmt.Errorf("strategy %s not registered", name)
	}
	return s, nil
}

// ScoreEntity scores one entity against the given snapshot.
// Failure never propagates: a broken strategy falls back to the minimal
// calculation, and if even that panics the entity comes back with score 0
// and Probative severity.
func (e *Engine) ScoreEntity(entity *domain.EntityRecord, cfg *domain.ScoringConfiguration, now time.Time) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("scoring panic, returning zero score",
				"entity", entity.EntityID, "panic", r)
			result = &Result{
				Score:    0,
				Severity: domain.SeverityProbative,
				Strategy: "fallback",
			}
		}
	}()

	strategy, err := e.Strategy(e.mode)
	if err == nil {
		result, err = strategy.Score(entity, cfg, now)
		if err == nil {
			return result
		}
		e.logger.Warn("strategy failed, using minimal calculation",
			"entity", entity.EntityID, "strategy", strategy.Name(), "error", err)
	} else {
		e.logger.Warn("no strategy available, using minimal calculation",
			"mode", string(e.mode), "error", err)
	}

	score := MinimalScore(entity, cfg)
	return &Result{
		Score:      score,
		Components: Components(entity, cfg, now),
		Severity:   Classify(score, cfg.SeverityThresholds),
		Strategy:   "minimal",
	}
}

// Mode returns the engine's configured scoring mode.
func (e *Engine) Mode() domain.ScoringMode {
	return e.mode
}

// ConfigCount returns the number of loaded tenant configurations.
func (e *Engine) ConfigCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.configs)
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.configs = make(map[string]*domain.ScoringConfiguration)
	return nil
}
