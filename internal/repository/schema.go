package repository

// Schema definitions for the Shrike database.
// Compatible with both SQLite and PostgreSQL.

const schemaEntities = `
CREATE TABLE IF NOT EXISTS entities (
    entity_id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    entity_name TEXT NOT NULL,
    risk_id TEXT,
    entity_type TEXT NOT NULL,
    birth_year INTEGER NOT NULL DEFAULT 0,
    primary_country TEXT,
    primary_city TEXT,
    events TEXT,
    relationships TEXT,
    addresses TEXT,
    attributes TEXT,
    metadata TEXT,
    created_at TIMESTAMP NOT NULL,
    original_row BLOB,
    PRIMARY KEY (entity_id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_entities_tenant ON entities(tenant_id);
CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(tenant_id, entity_name);
CREATE INDEX IF NOT EXISTS idx_entities_risk ON entities(tenant_id, risk_id);
CREATE INDEX IF NOT EXISTS idx_entities_country ON entities(tenant_id, primary_country);
`

const schemaScoringConfigs = `
CREATE TABLE IF NOT EXISTS scoring_configs (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    version INTEGER NOT NULL,
    payload TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_scoring_configs_tenant ON scoring_configs(tenant_id);
`

const schemaAssessments = `
CREATE TABLE IF NOT EXISTS assessments (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    entity_name TEXT NOT NULL,
    score REAL NOT NULL,
    severity TEXT NOT NULL,
    strategy TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    components TEXT NOT NULL,
    pep_status TEXT,
    escalations TEXT,
    metadata TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_tenant ON assessments(tenant_id);
CREATE INDEX IF NOT EXISTS idx_assessments_entity ON assessments(tenant_id, entity_id);
CREATE INDEX IF NOT EXISTS idx_assessments_severity ON assessments(tenant_id, severity);
CREATE INDEX IF NOT EXISTS idx_assessments_timestamp ON assessments(tenant_id, timestamp);
`

const schemaEscalationRules = `
CREATE TABLE IF NOT EXISTS escalation_rules (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    expression TEXT NOT NULL,
    reason TEXT,
    escalate_to TEXT,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_escalation_rules_tenant ON escalation_rules(tenant_id);
CREATE INDEX IF NOT EXISTS idx_escalation_rules_enabled ON escalation_rules(tenant_id, enabled);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaEntities,
		schemaScoringConfigs,
		schemaAssessments,
		schemaEscalationRules,
	}
}
