// Package screen implements the entity screening pipeline: parse, score,
// classify, escalate, publish.
package screen

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/shrike/internal/domain"
	"github.com/opensource-finance/shrike/internal/rules"
	"github.com/opensource-finance/shrike/internal/scoring"
)

const engineVersion = "shrike-1.0"

// Pipeline turns raw entity records into persisted, published assessments.
type Pipeline struct {
	engine *scoring.Engine
	rules  *rules.Engine
	repo   domain.Repository
	cache  domain.Cache
	bus    domain.EventBus
	logger *slog.Logger
	tracer trace.Tracer
}

// NewPipeline wires the screening pipeline.
func NewPipeline(engine *scoring.Engine, ruleEngine *rules.Engine, repo domain.Repository, cache domain.Cache, bus domain.EventBus, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		engine: engine,
		rules:  ruleEngine,
		repo:   repo,
		cache:  cache,
		bus:    bus,
		logger: logger,
		tracer: otel.Tracer("shrike/screen"),
	}
}

// Screen scores one entity under the tenant's active configuration
// snapshot and returns the assessment. A failed score still yields an
// assessment (zero score, Probative) so a search never loses entities.
func (p *Pipeline) Screen(ctx context.Context, tenantID string, entity *domain.EntityRecord) *domain.Assessment {
	cfg := p.engine.Snapshot(tenantID)
	return p.screenWithConfig(ctx, tenantID, entity, cfg, "")
}

// ScreenBatch scores a set of entities against a single configuration
// snapshot read once at the start, so an admin edit mid-batch cannot mix
// weighting schemes within one result set.
func (p *Pipeline) ScreenBatch(ctx context.Context, tenantID string, entities []*domain.EntityRecord) []*domain.Assessment {
	ctx, span := p.tracer.Start(ctx, "screen.batch")
	defer span.End()

	cfg := p.engine.Snapshot(tenantID)
	batchID := uuid.New().String()

	assessments := make([]*domain.Assessment, 0, len(entities))
	for _, entity := range entities {
		assessments = append(assessments, p.screenWithConfig(ctx, tenantID, entity, cfg, batchID))
	}
	return assessments
}

func (p *Pipeline) screenWithConfig(ctx context.Context, tenantID string, entity *domain.EntityRecord, cfg *domain.ScoringConfiguration, batchID string) *domain.Assessment {
	ctx, span := p.tracer.Start(ctx, "screen.entity")
	defer span.End()

	start := time.Now()
	now := time.Now().UTC()

	// Ad-hoc entities arrive without an ID; assessments still need one.
	if entity.EntityID == "" {
		entity.EntityID = uuid.New().String()
	}

	result := p.engine.ScoreEntity(entity, cfg, now)
	scoreMs := time.Since(start).Milliseconds()

	assessment := &domain.Assessment{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		EntityID:   entity.EntityID,
		EntityName: entity.EntityName,
		Score:      result.Score,
		Severity:   result.Severity,
		Strategy:   result.Strategy,
		Timestamp:  now,
		Components: result.Components,
		PEPStatus:  scoring.ExtractPEPInfo(entity.Attributes),
	}

	rulesStart := time.Now()
	rulesEvaluated := 0
	if p.rules != nil {
		loaded := p.rules.GetLoadedRules()
		results := p.rules.EvaluateAll(&rules.EvaluateInput{
			TenantID:   tenantID,
			Entity:     entity,
			Score:      result.Score,
			Components: result.Components,
			Severity:   result.Severity,
			PEPStatus:  assessment.PEPStatus,
		})
		rules.Escalate(assessment, loaded, results)
		rulesEvaluated = len(results)
	}

	assessment.Metadata = domain.AssessmentMetadata{
		TraceID:        span.SpanContext().TraceID().String(),
		BatchID:        batchID,
		ScoreMs:        scoreMs,
		RulesMs:        time.Since(rulesStart).Milliseconds(),
		TotalMs:        time.Since(start).Milliseconds(),
		RulesEvaluated: rulesEvaluated,
		ConfigVersion:  cfg.Version,
		EngineVersion:  engineVersion,
	}

	p.persist(ctx, tenantID, assessment)
	p.publish(ctx, tenantID, assessment)

	return assessment
}

// persist is best-effort: storage problems are logged, never surfaced to
// the search that produced the assessment.
func (p *Pipeline) persist(ctx context.Context, tenantID string, a *domain.Assessment) {
	if p.repo != nil {
		if err := p.repo.SaveAssessment(ctx, tenantID, a); err != nil {
			p.logger.Error("failed to save assessment",
				"tenant", tenantID, "entity", a.EntityID, "error", err)
		}
	}

	if p.cache != nil {
		summary := &domain.EntitySummary{
			EntityID:     a.EntityID,
			EntityName:   a.EntityName,
			Score:        a.Score,
			Severity:     string(a.Severity),
			LastScoredAt: a.Timestamp.Format(time.RFC3339),
		}
		if a.PEPStatus != nil && a.PEPStatus.IsPEP {
			summary.PEPStatus = a.PEPStatus.HighestLevel
		}
		if err := p.cache.SetEntitySummary(ctx, tenantID, a.EntityID, summary, 5*time.Minute); err != nil {
			p.logger.Warn("failed to cache entity summary",
				"tenant", tenantID, "entity", a.EntityID, "error", err)
		}
	}
}

func (p *Pipeline) publish(ctx context.Context, tenantID string, a *domain.Assessment) {
	if p.bus == nil {
		return
	}

	payload, err := json.Marshal(a)
	if err != nil {
		p.logger.Error("failed to marshal assessment", "entity", a.EntityID, "error", err)
		return
	}

	if err := p.bus.Publish(ctx, tenantID, domain.TopicEntityScored, payload); err != nil {
		p.logger.Warn("failed to publish assessment",
			"tenant", tenantID, "entity", a.EntityID, "error", err)
	}

	if len(a.Escalations) > 0 {
		if err := p.bus.Publish(ctx, tenantID, domain.TopicEscalation, payload); err != nil {
			p.logger.Warn("failed to publish escalation",
				"tenant", tenantID, "entity", a.EntityID, "error", err)
		}
	}
}
