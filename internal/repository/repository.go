// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveEntity upserts an entity record with tenant isolation.
// Re-ingestion of the same entity replaces the previous row.
func (r *SQLRepository) SaveEntity(ctx context.Context, tenantID string, entity *domain.EntityRecord) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if entity.EntityID == "" {
		return fmt.Errorf("%w: entityID is required", ErrInvalidInput)
	}

	events, _ := json.Marshal(entity.Events)
	relationships, _ := json.Marshal(entity.Relationships)
	addresses, _ := json.Marshal(entity.Addresses)
	attributes, _ := json.Marshal(entity.Attributes)
	metadata, _ := json.Marshal(entity.Metadata)

	// Denormalized columns come from the first address, used by search.
	var country, city string
	if len(entity.Addresses) > 0 {
		country = strings.ToUpper(entity.Addresses[0].Country)
		city = entity.Addresses[0].City
	}

	createdAt := entity.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO entities (
			entity_id, tenant_id, entity_name, risk_id, entity_type,
			birth_year, primary_country, primary_city,
			events, relationships, addresses, attributes, metadata,
			created_at, original_row
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_id, tenant_id) DO UPDATE SET
			entity_name = excluded.entity_name,
			risk_id = excluded.risk_id,
			entity_type = excluded.entity_type,
			birth_year = excluded.birth_year,
			primary_country = excluded.primary_country,
			primary_city = excluded.primary_city,
			events = excluded.events,
			relationships = excluded.relationships,
			addresses = excluded.addresses,
			attributes = excluded.attributes,
			metadata = excluded.metadata,
			original_row = excluded.original_row
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		entity.EntityID, tenantID, entity.EntityName, entity.RiskID, entity.EntityType,
		entity.BirthYear, country, city,
		string(events), string(relationships), string(addresses), string(attributes), string(metadata),
		createdAt, entity.OriginalRow,
	)
	return err
}

// GetEntity retrieves an entity by ID with tenant isolation.
func (r *SQLRepository) GetEntity(ctx context.Context, tenantID string, entityID string) (*domain.EntityRecord, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT entity_id, tenant_id, entity_name, risk_id, entity_type,
			   birth_year, events, relationships, addresses, attributes,
			   metadata, created_at
		FROM entities
		WHERE tenant_id = ? AND entity_id = ?
	`

	row := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, entityID)
	entity, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return entity, err
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntity(row rowScanner) (*domain.EntityRecord, error) {
	var entity domain.EntityRecord
	var riskID sql.NullString
	var events, relationships, addresses, attributes, metadata sql.NullString

	if err := row.Scan(
		&entity.EntityID, &entity.TenantID, &entity.EntityName, &riskID, &entity.EntityType,
		&entity.BirthYear, &events, &relationships, &addresses, &attributes,
		&metadata, &entity.CreatedAt,
	); err != nil {
		return nil, err
	}

	entity.RiskID = riskID.String
	if events.String != "" {
		json.Unmarshal([]byte(events.String), &entity.Events)
	}
	if relationships.String != "" {
		json.Unmarshal([]byte(relationships.String), &entity.Relationships)
	}
	if addresses.String != "" {
		json.Unmarshal([]byte(addresses.String), &entity.Addresses)
	}
	if attributes.String != "" {
		json.Unmarshal([]byte(attributes.String), &entity.Attributes)
	}
	if metadata.String != "" {
		json.Unmarshal([]byte(metadata.String), &entity.Metadata)
	}

	return &entity, nil
}

// SearchEntities retrieves entities matching the given criteria with tenant
// isolation. Criteria params filter on the denormalized columns; collection
// filters (event categories, PEP levels) match against the stored JSON.
func (r *SQLRepository) SearchEntities(ctx context.Context, tenantID string, criteria *domain.SearchCriteria) ([]*domain.EntityRecord, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if criteria == nil {
		return nil, fmt.Errorf("%w: criteria is required", ErrInvalidInput)
	}

	clauses, args := buildSearchClauses(criteria)

	query := `
		SELECT entity_id, tenant_id, entity_name, risk_id, entity_type,
			   birth_year, events, relationships, addresses, attributes,
			   metadata, created_at
		FROM entities
		WHERE tenant_id = ?
	`
	queryArgs := []interface{}{tenantID}

	if criteria.EntityType != "" {
		query += " AND entity_type = ?"
		queryArgs = append(queryArgs, criteria.EntityType)
	}

	if len(clauses) > 0 {
		op := " AND "
		if strings.EqualFold(criteria.LogicalOperator, "OR") {
			op = " OR "
		}
		query += " AND (" + strings.Join(clauses, op) + ")"
		queryArgs = append(queryArgs, args...)
	}

	limit := criteria.MaxResults
	if limit <= 0 {
		limit = 100
	}
	query += " ORDER BY entity_name LIMIT ?"
	queryArgs = append(queryArgs, limit)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), queryArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []*domain.EntityRecord
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// REGEX conditions run in memory: neither driver exposes a portable
	// regexp operator, and the result set is already LIMIT-bounded.
	return applyRegexConditions(entities, criteria.Conditions)
}

// conditionColumns maps boolean-query fields onto local entity columns.
// Keys follow the query language's field names. Fields stored inside JSON
// collections (event_category, pep_type, ...) are matched via
// conditionJSONClause instead, and risk_score has no entity column: the
// caller resolves it against the scored assessments.
var conditionColumns = map[string]string{
	"entity_name": "entity_name",
	"entity_id":   "entity_id",
	"risk_id":     "risk_id",
	"country":     "primary_country",
	"city":        "primary_city",
	"birth_year":  "birth_year",
}

// conditionJSONPatterns maps query fields stored in JSON columns onto the
// column and the key whose value the LIKE pattern anchors on.
var conditionJSONPatterns = map[string]struct{ column, key string }{
	"event_category":     {"events", "categoryCode"},
	"event_sub_category": {"events", "subCategoryCode"},
	"pep_type":           {"attributes", "value"},
	"pep_rating":         {"attributes", "value"},
}

// buildSearchClauses translates canonical criteria params (as emitted by
// the search normalizer) and parsed query conditions into SQL clauses.
// Params with no entity column (risk_score_min, risk_score_max,
// min_relationships) are the caller's to apply after scoring.
func buildSearchClauses(criteria *domain.SearchCriteria) ([]string, []interface{}) {
	var clauses []string
	var args []interface{}

	for field, value := range criteria.Params {
		switch field {
		case "name":
			clauses = append(clauses, "entity_name LIKE ?")
			args = append(args, "%"+fmt.Sprintf("%v", value)+"%")

		case "risk_id":
			clauses = append(clauses, "risk_id = ?")
			args = append(args, fmt.Sprintf("%v", value))

		case "entity_id":
			clauses = append(clauses, "entity_id = ?")
			args = append(args, fmt.Sprintf("%v", value))

		case "city":
			clauses = append(clauses, "primary_city LIKE ?")
			args = append(args, "%"+fmt.Sprintf("%v", value)+"%")

		case "country":
			if list, ok := toStringList(value); ok && len(list) > 0 {
				placeholders := make([]string, len(list))
				for i, c := range list {
					placeholders[i] = "?"
					args = append(args, strings.ToUpper(c))
				}
				clauses = append(clauses, "primary_country IN ("+strings.Join(placeholders, ", ")+")")
			}

		case "birth_year":
			if lo, hi, ok := toRange(value); ok {
				clauses = append(clauses, "birth_year BETWEEN ? AND ?")
				args = append(args, lo, hi)
			} else {
				clauses = append(clauses, "birth_year = ?")
				args = append(args, fmt.Sprintf("%v", value))
			}

		case "entity_date":
			// (year, ±range) pair.
			if lo, hi, ok := toRange(value); ok {
				year, okY := toInt(lo)
				span, okS := toInt(hi)
				if okY && okS {
					clauses = append(clauses, "birth_year BETWEEN ? AND ?")
					args = append(args, year-span, year+span)
				}
			}

		case "age_range":
			// (min age, max age) pair relative to the current year.
			if lo, hi, ok := toRange(value); ok {
				minAge, okMin := toInt(lo)
				maxAge, okMax := toInt(hi)
				if okMin && okMax {
					year := time.Now().UTC().Year()
					clauses = append(clauses, "birth_year BETWEEN ? AND ?")
					args = append(args, year-maxAge, year-minAge)
				}
			}

		case "event_categories", "risk_codes":
			if list, ok := toStringList(value); ok {
				var sub []string
				for _, code := range list {
					sub = append(sub, "events LIKE ?")
					args = append(args, `%"categoryCode":"`+strings.ToUpper(code)+`"%`)
				}
				if len(sub) > 0 {
					clauses = append(clauses, "("+strings.Join(sub, " OR ")+")")
				}
			}

		case "pep_levels":
			if list, ok := toStringList(value); ok {
				var sub []string
				for _, level := range list {
					sub = append(sub, "attributes LIKE ?")
					args = append(args, "%"+strings.ToUpper(level)+`"%`)
				}
				if len(sub) > 0 {
					clauses = append(clauses, "("+strings.Join(sub, " OR ")+")")
				}
			}

		case "pep_ratings":
			if list, ok := toStringList(value); ok {
				var sub []string
				for _, rating := range list {
					sub = append(sub, "attributes LIKE ?")
					args = append(args, `%"value":"`+strings.ToUpper(rating)+"%")
				}
				if len(sub) > 0 {
					clauses = append(clauses, "("+strings.Join(sub, " OR ")+")")
				}
			}

		case "source_systems":
			if list, ok := toStringList(value); ok {
				var sub []string
				for _, sys := range list {
					sub = append(sub, "metadata LIKE ?")
					args = append(args, "%"+sys+"%")
				}
				if len(sub) > 0 {
					clauses = append(clauses, "("+strings.Join(sub, " OR ")+")")
				}
			}

		case "risk_score_min", "risk_score_max", "min_relationships":
			// Post-scoring filters; no entity column to match.
		}
	}

	for _, cond := range criteria.Conditions {
		op := strings.ToUpper(cond.Operator)
		if op == "REGEX" || cond.Field == "risk_score" {
			// REGEX is applied in memory after the scan; risk_score is
			// resolved by the caller against the scored assessments.
			continue
		}

		if jsonClause, jsonArgs, ok := conditionJSONClause(cond, op); ok {
			clauses = append(clauses, jsonClause)
			args = append(args, jsonArgs...)
			continue
		}

		column, ok := conditionColumns[cond.Field]
		if !ok {
			continue
		}
		switch op {
		case "CONTAINS", "LIKE":
			clauses = append(clauses, column+" LIKE ?")
			args = append(args, "%"+cond.Value+"%")
		case "EQUALS", "=":
			clauses = append(clauses, column+" = ?")
			args = append(args, cond.Value)
		case ">", ">=", "<", "<=":
			clauses = append(clauses, column+" "+op+" ?")
			args = append(args, cond.Value)
		case "IN":
			values := splitInList(cond.Value)
			if len(values) == 0 {
				continue
			}
			placeholders := make([]string, len(values))
			for i, v := range values {
				placeholders[i] = "?"
				args = append(args, v)
			}
			clauses = append(clauses, column+" IN ("+strings.Join(placeholders, ", ")+")")
		}
	}

	return clauses, args
}

// conditionJSONClause builds a LIKE clause for conditions on fields stored
// inside JSON columns. Codes are matched by value prefix
// (`"categoryCode":"SAN"`, `"value":"HOS`), so EQUALS and CONTAINS behave
// the same: both select entities carrying the code.
func conditionJSONClause(cond domain.QueryCondition, op string) (string, []interface{}, bool) {
	target, ok := conditionJSONPatterns[cond.Field]
	if !ok {
		return "", nil, false
	}

	pattern := func(v string) string {
		return `%"` + target.key + `":"` + strings.ToUpper(v) + "%"
	}

	switch op {
	case "CONTAINS", "EQUALS", "=", "LIKE":
		return target.column + " LIKE ?", []interface{}{pattern(cond.Value)}, true
	case "IN":
		values := splitInList(cond.Value)
		if len(values) == 0 {
			return "", nil, false
		}
		var sub []string
		var args []interface{}
		for _, v := range values {
			sub = append(sub, target.column+" LIKE ?")
			args = append(args, pattern(v))
		}
		return "(" + strings.Join(sub, " OR ") + ")", args, true
	}
	return "", nil, false
}

// applyRegexConditions filters scanned entities through REGEX query
// conditions. An unparseable pattern is an input error, not a silent
// no-op.
func applyRegexConditions(entities []*domain.EntityRecord, conditions []domain.QueryCondition) ([]*domain.EntityRecord, error) {
	var filters []func(*domain.EntityRecord) bool
	for _, cond := range conditions {
		if strings.ToUpper(cond.Operator) != "REGEX" {
			continue
		}
		re, err := regexp.Compile(cond.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid regex %q", ErrInvalidInput, cond.Value)
		}
		field := cond.Field
		filters = append(filters, func(e *domain.EntityRecord) bool {
			for _, candidate := range regexCandidates(e, field) {
				if re.MatchString(candidate) {
					return true
				}
			}
			return false
		})
	}
	if len(filters) == 0 {
		return entities, nil
	}

	var out []*domain.EntityRecord
	for _, e := range entities {
		keep := true
		for _, match := range filters {
			if !match(e) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, e)
		}
	}
	return out, nil
}

// regexCandidates returns the entity values a REGEX condition on the given
// query field is matched against.
func regexCandidates(e *domain.EntityRecord, field string) []string {
	switch field {
	case "entity_name":
		return []string{e.EntityName}
	case "entity_id":
		return []string{e.EntityID}
	case "risk_id":
		return []string{e.RiskID}
	case "birth_year":
		return []string{strconv.Itoa(e.BirthYear)}
	case "country":
		out := make([]string, 0, len(e.Addresses))
		for _, a := range e.Addresses {
			out = append(out, a.Country)
		}
		return out
	case "city":
		out := make([]string, 0, len(e.Addresses))
		for _, a := range e.Addresses {
			out = append(out, a.City)
		}
		return out
	case "event_category":
		out := make([]string, 0, len(e.Events))
		for _, ev := range e.Events {
			out = append(out, ev.CategoryCode)
		}
		return out
	case "event_sub_category":
		out := make([]string, 0, len(e.Events))
		for _, ev := range e.Events {
			out = append(out, ev.SubCategoryCode)
		}
		return out
	case "pep_type", "pep_rating":
		out := make([]string, 0, len(e.Attributes))
		for _, attr := range e.Attributes {
			out = append(out, attr.Value)
		}
		return out
	}
	return nil
}

func toStringList(value interface{}) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out, true
	case string:
		return []string{v}, true
	}
	return nil, false
}

func toRange(value interface{}) (interface{}, interface{}, bool) {
	if v, ok := value.([]interface{}); ok && len(v) == 2 {
		return v[0], v[1], true
	}
	return nil, nil, false
}

// toInt coerces JSON-decoded numbers (float64, int, numeric string) to int.
func toInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}

func splitInList(value string) []string {
	value = strings.Trim(value, "()")
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.Trim(strings.TrimSpace(part), `"'`)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SaveScoringConfig stores a scoring configuration version with tenant
// isolation. The full configuration is kept as a JSON payload.
func (r *SQLRepository) SaveScoringConfig(ctx context.Context, tenantID string, cfg *domain.ScoringConfiguration) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	id := cfg.ID
	if id == "" {
		id = "default"
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode scoring config: %w", err)
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO scoring_configs (
			id, tenant_id, version, payload, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id, version) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		id, tenantID, cfg.Version, string(payload), now, now,
	)
	return err
}

// GetScoringConfig retrieves the latest version of a scoring configuration
// with tenant isolation.
func (r *SQLRepository) GetScoringConfig(ctx context.Context, tenantID string, configID string) (*domain.ScoringConfiguration, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if configID == "" {
		configID = "default"
	}

	query := `
		SELECT payload
		FROM scoring_configs
		WHERE tenant_id = ? AND id = ?
		ORDER BY version DESC
		LIMIT 1
	`

	var payload string
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, configID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var cfg domain.ScoringConfiguration
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse scoring config: %w", err)
	}

	return &cfg, nil
}

// ListScoringConfigs retrieves the latest version of every scoring
// configuration for a tenant.
func (r *SQLRepository) ListScoringConfigs(ctx context.Context, tenantID string) ([]*domain.ScoringConfiguration, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	// GlobalTenantID lists every tenant's configs, so a restart can
	// restore per-tenant snapshots saved through the API.
	query := `
		SELECT tenant_id, payload
		FROM scoring_configs
	`
	var queryArgs []interface{}
	if tenantID != domain.GlobalTenantID {
		query += " WHERE tenant_id = ?"
		queryArgs = append(queryArgs, tenantID)
	}
	query += " ORDER BY tenant_id, id, version DESC"

	rows, err := r.db.QueryContext(ctx, r.rebind(query), queryArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var configs []*domain.ScoringConfiguration
	for rows.Next() {
		var rowTenant, payload string
		if err := rows.Scan(&rowTenant, &payload); err != nil {
			return nil, err
		}

		var cfg domain.ScoringConfiguration
		if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse scoring config: %w", err)
		}
		cfg.TenantID = rowTenant

		// Rows come back newest version first per tenant and id.
		if seen[rowTenant+"/"+cfg.ID] {
			continue
		}
		seen[rowTenant+"/"+cfg.ID] = true
		configs = append(configs, &cfg)
	}

	return configs, rows.Err()
}

// SaveAssessment stores an assessment result with tenant isolation.
func (r *SQLRepository) SaveAssessment(ctx context.Context, tenantID string, a *domain.Assessment) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	components, _ := json.Marshal(a.Components)
	pepStatus, _ := json.Marshal(a.PEPStatus)
	escalations, _ := json.Marshal(a.Escalations)
	metadata, _ := json.Marshal(a.Metadata)

	query := `
		INSERT INTO assessments (
			id, tenant_id, entity_id, entity_name, score, severity,
			strategy, timestamp, components, pep_status, escalations, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		a.ID, tenantID, a.EntityID, a.EntityName, a.Score, string(a.Severity),
		a.Strategy, a.Timestamp, string(components), string(pepStatus),
		string(escalations), string(metadata),
	)
	return err
}

// GetAssessment retrieves an assessment by ID with tenant isolation.
func (r *SQLRepository) GetAssessment(ctx context.Context, tenantID string, assessmentID string) (*domain.Assessment, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, entity_id, entity_name, score, severity,
			   strategy, timestamp, components, pep_status, escalations, metadata
		FROM assessments
		WHERE tenant_id = ? AND id = ?
	`

	row := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, assessmentID)
	a, err := scanAssessment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// ListAssessmentsByEntity retrieves assessments for an entity since a given
// time, newest first, with tenant isolation.
func (r *SQLRepository) ListAssessmentsByEntity(ctx context.Context, tenantID string, entityID string, since time.Time) ([]*domain.Assessment, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, entity_id, entity_name, score, severity,
			   strategy, timestamp, components, pep_status, escalations, metadata
		FROM assessments
		WHERE tenant_id = ? AND entity_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, entityID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assessments []*domain.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, a)
	}

	return assessments, rows.Err()
}

func scanAssessment(row rowScanner) (*domain.Assessment, error) {
	var a domain.Assessment
	var severity string
	var components, metadata string
	var pepStatus, escalations sql.NullString

	if err := row.Scan(
		&a.ID, &a.TenantID, &a.EntityID, &a.EntityName, &a.Score, &severity,
		&a.Strategy, &a.Timestamp, &components, &pepStatus, &escalations, &metadata,
	); err != nil {
		return nil, err
	}

	a.Severity = domain.Severity(severity)
	json.Unmarshal([]byte(components), &a.Components)
	json.Unmarshal([]byte(metadata), &a.Metadata)
	if pepStatus.String != "" && pepStatus.String != "null" {
		json.Unmarshal([]byte(pepStatus.String), &a.PEPStatus)
	}
	if escalations.String != "" && escalations.String != "null" {
		json.Unmarshal([]byte(escalations.String), &a.Escalations)
	}

	return &a, nil
}

// SaveEscalationRule stores an escalation rule with tenant isolation.
func (r *SQLRepository) SaveEscalationRule(ctx context.Context, tenantID string, rule *domain.EscalationRule) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO escalation_rules (
			id, tenant_id, name, description, version, expression, reason,
			escalate_to, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id, version) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			reason = excluded.reason,
			escalate_to = excluded.escalate_to,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Name, rule.Description,
		rule.Version, rule.Expression, rule.Reason,
		string(rule.EscalateTo), enabled,
		now, now,
	)
	return err
}

// GetEscalationRule retrieves an escalation rule with tenant isolation.
func (r *SQLRepository) GetEscalationRule(ctx context.Context, tenantID string, ruleID string) (*domain.EscalationRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression, reason, escalate_to, enabled
		FROM escalation_rules
		WHERE tenant_id = ? AND id = ? AND enabled = 1
		ORDER BY version DESC
		LIMIT 1
	`

	var rule domain.EscalationRule
	var escalateTo string
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, ruleID).Scan(
		&rule.ID, &rule.TenantID, &rule.Name, &rule.Description,
		&rule.Version, &rule.Expression, &rule.Reason, &escalateTo, &enabled,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rule.EscalateTo = domain.Severity(escalateTo)
	rule.Enabled = enabled == 1

	return &rule, nil
}

// ListEscalationRules retrieves all active escalation rules for a tenant.
func (r *SQLRepository) ListEscalationRules(ctx context.Context, tenantID string) ([]*domain.EscalationRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression, reason, escalate_to, enabled
		FROM escalation_rules
		WHERE tenant_id = ? AND enabled = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rulesList []*domain.EscalationRule
	for rows.Next() {
		var rule domain.EscalationRule
		var escalateTo string
		var enabled int

		if err := rows.Scan(
			&rule.ID, &rule.TenantID, &rule.Name, &rule.Description,
			&rule.Version, &rule.Expression, &rule.Reason, &escalateTo, &enabled,
		); err != nil {
			return nil, err
		}

		rule.EscalateTo = domain.Severity(escalateTo)
		rule.Enabled = enabled == 1
		rulesList = append(rulesList, &rule)
	}

	return rulesList, rows.Err()
}

// DeleteEscalationRule soft-deletes a rule by setting enabled = 0.
func (r *SQLRepository) DeleteEscalationRule(ctx context.Context, tenantID string, ruleID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		UPDATE escalation_rules
		SET enabled = 0, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), time.Now().UTC(), tenantID, ruleID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
