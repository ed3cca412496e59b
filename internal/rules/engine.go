// Package rules provides the CEL-Go based escalation rule engine.
// Escalation rules run over scored assessments and tag the ones that need
// analyst attention regardless of where the composite score landed.
package rules

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/opensource-finance/shrike/internal/domain"
)

// Engine is the CEL-based escalation rule engine.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
	maxWorkers    int
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  *domain.EscalationRule
	Program cel.Program
}

// NewEngine creates a new escalation rule engine.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	// CEL environment with entity and score variables
	env, err := cel.NewEnv(
		cel.Variable("entity", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("scores", cel.MapType(cel.StringType, cel.DoubleType)),
		cel.Variable("severity", cel.StringType),
		cel.Variable("entity_type", cel.StringType),
		cel.Variable("is_pep", cel.BoolType),
		cel.Variable("pep_level", cel.StringType),
		cel.Variable("event_count", cel.IntType),
		cel.Variable("relationship_count", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
		maxWorkers:    maxWorkers,
	}, nil
}

// ValidateRule compiles and validates a rule without mutating loaded engine rules.
func (e *Engine) ValidateRule(cfg *domain.EscalationRule) error {
	if cfg == nil {
		return fmt.Errorf("escalation rule is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule into the engine.
func (e *Engine) LoadRule(cfg *domain.EscalationRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	e.compiledRules[cfg.ID] = compiled

	return nil
}

// LoadRules compiles and loads multiple rules.
func (e *Engine) LoadRules(configs []*domain.EscalationRule) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// EvaluateInput holds the scored entity data for rule evaluation.
type EvaluateInput struct {
	TenantID   string
	Entity     *domain.EntityRecord
	Score      float64
	Components domain.ComponentScores
	Severity   domain.Severity
	PEPStatus  *domain.PEPInfo
}

// EvaluateAll evaluates all loaded rules in parallel against one scored
// entity. Rules that error are reported unmatched; evaluation never fails
// the assessment.
func (e *Engine) EvaluateAll(input *EvaluateInput) []domain.EscalationResult {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		rules = append(rules, rule)
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return nil
	}

	activation := buildActivation(input)

	results := make([]domain.EscalationResult, len(rules))
	var wg sync.WaitGroup

	// Limit concurrency with semaphore
	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r *CompiledRule) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			results[idx] = e.evaluateRule(r, activation, input)
		}(i, rule)
	}

	wg.Wait()

	return results
}

func buildActivation(input *EvaluateInput) map[string]any {
	country := ""
	if len(input.Entity.Addresses) > 0 {
		country = input.Entity.Addresses[0].Country
	}

	isPEP := false
	pepLevel := ""
	if input.PEPStatus != nil {
		isPEP = input.PEPStatus.IsPEP
		pepLevel = input.PEPStatus.HighestLevel
	}

	return map[string]any{
		"entity": map[string]any{
			"id":      input.Entity.EntityID,
			"name":    input.Entity.EntityName,
			"type":    input.Entity.EntityType,
			"country": country,
		},
		"scores": map[string]any{
			"composite":    input.Score,
			"event":        input.Components.Event,
			"relationship": input.Components.Relationship,
			"geographic":   input.Components.Geographic,
			"temporal":     input.Components.Temporal,
			"pep":          input.Components.PEP,
		},
		"severity":           string(input.Severity),
		"entity_type":        input.Entity.EntityType,
		"is_pep":             isPEP,
		"pep_level":          pepLevel,
		"event_count":        len(input.Entity.Events),
		"relationship_count": len(input.Entity.Relationships),
	}
}

// evaluateRule evaluates a single rule and returns the result.
func (e *Engine) evaluateRule(rule *CompiledRule, activation map[string]any, input *EvaluateInput) domain.EscalationResult {
	start := time.Now()

	result := domain.EscalationResult{
		RuleID:   rule.Config.ID,
		TenantID: input.TenantID,
		EntityID: input.Entity.EntityID,
	}

	out, _, err := rule.Program.Eval(activation)
	if err != nil {
		result.Matched = false
		result.Reason = fmt.Sprintf("evaluation error: %v", err)
		result.ProcessMs = time.Since(start).Milliseconds()
		return result
	}

	result.Matched = toBool(out)
	if result.Matched {
		result.Reason = rule.Config.Reason
	}
	result.ProcessMs = time.Since(start).Milliseconds()

	return result
}

// toBool converts a CEL value to a match decision.
func toBool(val ref.Val) bool {
	switch v := val.(type) {
	case types.Bool:
		return bool(v)
	case types.Double:
		return float64(v) > 0
	case types.Int:
		return int64(v) > 0
	default:
		return false
	}
}

// Escalate applies matched rule outcomes to an assessment: reasons are
// attached and the severity floor of the highest-ranked matched rule wins.
func Escalate(a *domain.Assessment, rules []*domain.EscalationRule, results []domain.EscalationResult) {
	byID := make(map[string]*domain.EscalationRule, len(rules))
	for _, r := range rules {
		byID[r.ID] = r
	}

	for _, res := range results {
		if !res.Matched {
			continue
		}
		a.Escalations = append(a.Escalations, res)
		rule, ok := byID[res.RuleID]
		if !ok || rule.EscalateTo == "" {
			continue
		}
		if severityRank(rule.EscalateTo) > severityRank(a.Severity) {
			a.Severity = rule.EscalateTo
		}
	}
}

func severityRank(s domain.Severity) int {
	switch s {
	case domain.SeverityCritical:
		return 3
	case domain.SeverityValuable:
		return 2
	case domain.SeverityInvestigative:
		return 1
	default:
		return 0
	}
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// ReloadRules clears all existing rules and loads new ones.
// This enables hot-reloading of rules from the database.
func (e *Engine) ReloadRules(configs []*domain.EscalationRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		newRules[cfg.ID] = compiled
	}

	e.compiledRules = newRules

	return nil
}

// GetLoadedRules returns the currently loaded rule configurations.
func (e *Engine) GetLoadedRules() []*domain.EscalationRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.EscalationRule, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Config)
	}
	return rules
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(cfg *domain.EscalationRule) (*CompiledRule, error) {
	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	outputType := ast.OutputType()
	if outputType != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", cfg.ID, outputType)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  cfg,
		Program: program,
	}, nil
}
