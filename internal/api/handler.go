package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opensource-finance/shrike/internal/domain"
	"github.com/opensource-finance/shrike/internal/rules"
	"github.com/opensource-finance/shrike/internal/scoring"
	"github.com/opensource-finance/shrike/internal/screen"
	"github.com/opensource-finance/shrike/internal/search"
	"github.com/opensource-finance/shrike/internal/velocity"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo       domain.Repository
	cache      domain.Cache
	bus        domain.EventBus
	engine     *scoring.Engine
	ruleEngine *rules.Engine
	pipeline   *screen.Pipeline
	tracker    *velocity.Tracker
	version    string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, engine *scoring.Engine, ruleEngine *rules.Engine, pipeline *screen.Pipeline, tracker *velocity.Tracker, version string) *Handler {
	return &Handler{
		repo:       repo,
		cache:      cache,
		bus:        bus,
		engine:     engine,
		ruleEngine: ruleEngine,
		pipeline:   pipeline,
		tracker:    tracker,
		version:    version,
	}
}

// Score handles POST /api/v1/score requests: ad-hoc scoring of a single
// entity supplied in the request body.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req domain.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.EntityName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "entityName is required",
		})
		return
	}

	entity := req.ToEntity()
	entity.TenantID = tenantID

	assessment := h.pipeline.Screen(ctx, tenantID, entity)
	if h.tracker != nil {
		h.tracker.Record(ctx, tenantID, assessment.Severity)
	}

	writeJSON(w, http.StatusOK, assessment.ToResponse())
}

// ScreenRequest is the request body for POST /api/v1/screen.
type ScreenRequest struct {
	Entities []*domain.EntityRecord `json:"entities"`
	Persist  bool                   `json:"persist,omitempty"`
}

// ScreenResponse is the response for POST /api/v1/screen.
type ScreenResponse struct {
	TenantID string                       `json:"tenantId"`
	BatchID  string                       `json:"batchId,omitempty"`
	Total    int                          `json:"total"`
	Results  []*domain.AssessmentResponse `json:"results"`
}

// Screen handles POST /api/v1/screen requests: batch screening of entity
// records. All entities in one request are scored against the same
// configuration snapshot.
func (h *Handler) Screen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req ScreenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if len(req.Entities) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "at least one entity is required",
		})
		return
	}

	if req.Persist && h.repo != nil {
		for _, entity := range req.Entities {
			if entity.EntityID == "" {
				entity.EntityID = uuid.New().String()
			}
			if err := h.repo.SaveEntity(ctx, tenantID, entity); err != nil {
				slog.Error("failed to save entity", "entity_id", entity.EntityID, "error", err)
			}
		}
	}

	assessments := h.pipeline.ScreenBatch(ctx, tenantID, req.Entities)

	resp := ScreenResponse{
		TenantID: tenantID,
		Total:    len(assessments),
		Results:  make([]*domain.AssessmentResponse, 0, len(assessments)),
	}
	for _, a := range assessments {
		if h.tracker != nil {
			h.tracker.Record(ctx, tenantID, a.Severity)
		}
		resp.Results = append(resp.Results, a.ToResponse())
	}
	if len(assessments) > 0 {
		resp.BatchID = assessments[0].Metadata.BatchID
	}

	writeJSON(w, http.StatusOK, resp)
}

// Search handles POST /api/v1/search requests: criteria-based entity lookup
// with assessments attached to every match.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req domain.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	criteria := search.Normalize(req.Criteria, search.Options{
		EntityType:           req.EntityType,
		MaxResults:           req.MaxResults,
		UseRegex:             req.UseRegex,
		LogicalOperator:      req.LogicalOperator,
		IncludeRelationships: req.IncludeRelationships,
	})

	if req.Query != "" {
		validation := search.ParseQuery(req.Query)
		if !validation.Valid {
			writeJSON(w, http.StatusBadRequest, validation)
			return
		}
		criteria.Conditions = validation.Conditions
	}

	entities, err := h.repo.SearchEntities(ctx, tenantID, criteria)
	if err != nil {
		slog.Error("entity search failed", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "entity search failed",
		})
		return
	}

	// min_relationships and risk_score bounds have no entity column; they
	// apply to the full record and the scored result respectively.
	entities = filterMinRelationships(entities, criteria.Params)

	assessments := h.pipeline.ScreenBatch(ctx, tenantID, entities)
	assessments = filterByScore(assessments, criteria)

	resp := domain.SearchResponse{
		TenantID: tenantID,
		Total:    len(assessments),
		Results:  make([]*domain.AssessmentResponse, 0, len(assessments)),
	}
	for _, a := range assessments {
		resp.Results = append(resp.Results, a.ToResponse())
	}

	writeJSON(w, http.StatusOK, resp)
}

// ValidateQueryRequest is the request body for POST /api/v1/query/validate.
type ValidateQueryRequest struct {
	Query string `json:"query"`
}

// ValidateQuery handles POST /api/v1/query/validate requests. Always
// returns 200 with the structured validation result; malformed queries are
// reported in the body, not as HTTP errors.
func (h *Handler) ValidateQuery(w http.ResponseWriter, r *http.Request) {
	var req ValidateQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	writeJSON(w, http.StatusOK, search.ParseQuery(req.Query))
}

// GetScoringConfig handles GET /api/v1/config/scoring: returns the active
// configuration snapshot for the requesting tenant.
func (h *Handler) GetScoringConfig(w http.ResponseWriter, r *http.Request) {
	tenantID := GetTenantID(r.Context())
	writeJSON(w, http.StatusOK, h.engine.Snapshot(tenantID))
}

// UpdateScoringConfig handles PUT /api/v1/config/scoring: replaces the
// tenant's configuration. In-flight batches keep their snapshot.
func (h *Handler) UpdateScoringConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var cfg domain.ScoringConfiguration
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	cfg.TenantID = tenantID
	if cfg.Version == 0 {
		cfg.Version = time.Now().Unix()
	}

	h.engine.LoadConfig(tenantID, &cfg)

	if h.repo != nil {
		if err := h.repo.SaveScoringConfig(ctx, tenantID, &cfg); err != nil {
			slog.Error("failed to persist scoring config", "tenant_id", tenantID, "error", err)
		}
	}

	if h.bus != nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"tenantId": tenantID,
			"version":  cfg.Version,
		})
		if err := h.bus.Publish(ctx, tenantID, domain.TopicConfigUpdated, payload); err != nil {
			slog.Error("failed to publish config update", "error", err)
		}
	}

	slog.Info("scoring config updated", "tenant_id", tenantID, "version", cfg.Version)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "scoring configuration updated",
		"version": cfg.Version,
	})
}

// GetEntity handles GET /api/v1/entities/{id}.
func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	entityID := chi.URLParam(r, "id")

	if entityID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "entity id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	entity, err := h.repo.GetEntity(ctx, tenantID, entityID)
	if err != nil {
		slog.Error("failed to get entity", "id", entityID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "entity not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, entity)
}

// GetAssessment handles GET /api/v1/assessments/{id}.
func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	assessmentID := chi.URLParam(r, "id")

	if assessmentID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "assessment id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	a, err := h.repo.GetAssessment(ctx, tenantID, assessmentID)
	if err != nil {
		slog.Error("failed to get assessment", "id", assessmentID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "assessment not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// Stats handles GET /api/v1/stats: throughput counters for the requesting
// tenant plus engine status.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	tenantID := GetTenantID(r.Context())

	resp := map[string]interface{}{
		"scoringMode": h.engine.Mode(),
		"configCount": h.engine.ConfigCount(),
		"queryFields": search.QueryFields(),
		"version":     h.version,
	}
	if h.tracker != nil {
		resp["throughput"] = h.tracker.Counts(tenantID)
	}
	if h.ruleEngine != nil {
		resp["rulesLoaded"] = h.ruleEngine.RulesCount()
	}

	writeJSON(w, http.StatusOK, resp)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// ListRules returns all escalation rules loaded in the engine.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	loadedRules := h.ruleEngine.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": loadedRules,
		"count": len(loadedRules),
	})
}

// GetRule retrieves an escalation rule by ID from the loaded engine rules.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	if ruleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	for _, rule := range h.ruleEngine.GetLoadedRules() {
		if rule.ID == ruleID {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "rule not found",
	})
}

// CreateRuleRequest is the request body for creating an escalation rule.
type CreateRuleRequest struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Expression  string          `json:"expression"`
	Reason      string          `json:"reason,omitempty"`
	EscalateTo  domain.Severity `json:"escalateTo,omitempty"`
	Enabled     bool            `json:"enabled"`
}

// CreateRule creates a new escalation rule and saves it to the database.
// Rules are saved globally (tenant_id = "*") so they apply to all tenants.
// After saving, call POST /api/v1/rules/reload to hot-reload the engine.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}

	rule := &domain.EscalationRule{
		ID:          req.ID,
		TenantID:    domain.GlobalTenantID,
		Name:        req.Name,
		Description: req.Description,
		Version:     "1.0.0",
		Expression:  req.Expression,
		Reason:      req.Reason,
		EscalateTo:  req.EscalateTo,
		Enabled:     req.Enabled,
	}

	// Validate CEL expression by attempting to load
	if err := h.ruleEngine.LoadRule(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CEL expression: " + err.Error(),
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveEscalationRule(ctx, domain.GlobalTenantID, rule); err != nil {
			slog.Error("failed to save escalation rule", "id", rule.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save rule",
			})
			return
		}
	}

	slog.Info("escalation rule created", "id", rule.ID, "name", rule.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"rule":    rule,
		"message": "Rule created. Call POST /api/v1/rules/reload to apply changes.",
	})
}

// DeleteRule soft-deletes an escalation rule and reloads the engine.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ruleID := chi.URLParam(r, "id")

	if ruleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	if err := h.repo.DeleteEscalationRule(ctx, domain.GlobalTenantID, ruleID); err != nil {
		slog.Error("failed to delete escalation rule", "id", ruleID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "rule not found",
		})
		return
	}

	dbRules, err := h.repo.ListEscalationRules(ctx, domain.GlobalTenantID)
	if err != nil {
		slog.Error("failed to reload rules after delete", "error", err)
	} else if err := h.ruleEngine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload rules into engine", "error", err)
	}

	slog.Info("escalation rule deleted", "id", ruleID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Rule deleted and engine reloaded.",
	})
}

// ReloadRules reloads all escalation rules from the database into the
// engine. This enables hot-reloading without server restart.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	dbRules, err := h.repo.ListEscalationRules(ctx, domain.GlobalTenantID)
	if err != nil {
		slog.Error("failed to list rules from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	if err := h.ruleEngine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload rules into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("escalation rules reloaded from database", "count", len(dbRules))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rules reloaded successfully",
		"count":   len(dbRules),
	})
}

// filterMinRelationships applies the min_relationships criterion, which is
// resolved against the full record rather than an entity column.
func filterMinRelationships(entities []*domain.EntityRecord, params map[string]interface{}) []*domain.EntityRecord {
	threshold, ok := toFloat(params["min_relationships"])
	if !ok {
		return entities
	}
	out := make([]*domain.EntityRecord, 0, len(entities))
	for _, e := range entities {
		if float64(len(e.Relationships)) >= threshold {
			out = append(out, e)
		}
	}
	return out
}

// filterByScore drops assessments outside the requested score bounds:
// risk_score_min/risk_score_max criteria params and risk_score query
// conditions, which have no entity column to match in SQL.
func filterByScore(assessments []*domain.Assessment, criteria *domain.SearchCriteria) []*domain.Assessment {
	minScore, hasMin := toFloat(criteria.Params["risk_score_min"])
	maxScore, hasMax := toFloat(criteria.Params["risk_score_max"])

	var conditions []domain.QueryCondition
	for _, cond := range criteria.Conditions {
		if cond.Field == "risk_score" {
			conditions = append(conditions, cond)
		}
	}

	if !hasMin && !hasMax && len(conditions) == 0 {
		return assessments
	}

	out := make([]*domain.Assessment, 0, len(assessments))
	for _, a := range assessments {
		if hasMin && a.Score < minScore {
			continue
		}
		if hasMax && a.Score > maxScore {
			continue
		}
		if !matchScoreConditions(a.Score, conditions) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func matchScoreConditions(score float64, conditions []domain.QueryCondition) bool {
	for _, cond := range conditions {
		bound, err := strconv.ParseFloat(strings.TrimSpace(cond.Value), 64)
		if err != nil {
			return false
		}
		var ok bool
		switch strings.ToUpper(cond.Operator) {
		case ">":
			ok = score > bound
		case ">=":
			ok = score >= bound
		case "<":
			ok = score < bound
		case "<=":
			ok = score <= bound
		case "=", "EQUALS":
			ok = score == bound
		default:
			ok = true
		}
		if !ok {
			return false
		}
	}
	return true
}

// toFloat coerces JSON-decoded numbers (float64, int, numeric string).
func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	}
	return 0, false
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
