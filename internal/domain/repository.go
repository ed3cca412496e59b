// Package domain defines the core interfaces and types for Shrike.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Entity operations
	SaveEntity(ctx context.Context, tenantID string, entity *EntityRecord) error
	GetEntity(ctx context.Context, tenantID string, entityID string) (*EntityRecord, error)
	SearchEntities(ctx context.Context, tenantID string, criteria *SearchCriteria) ([]*EntityRecord, error)

	// Scoring configuration operations
	SaveScoringConfig(ctx context.Context, tenantID string, cfg *ScoringConfiguration) error
	GetScoringConfig(ctx context.Context, tenantID string, configID string) (*ScoringConfiguration, error)
	ListScoringConfigs(ctx context.Context, tenantID string) ([]*ScoringConfiguration, error)

	// Assessment results
	SaveAssessment(ctx context.Context, tenantID string, a *Assessment) error
	GetAssessment(ctx context.Context, tenantID string, assessmentID string) (*Assessment, error)
	ListAssessmentsByEntity(ctx context.Context, tenantID string, entityID string, since time.Time) ([]*Assessment, error)

	// Escalation rule operations
	SaveEscalationRule(ctx context.Context, tenantID string, rule *EscalationRule) error
	GetEscalationRule(ctx context.Context, tenantID string, ruleID string) (*EscalationRule, error)
	ListEscalationRules(ctx context.Context, tenantID string) ([]*EscalationRule, error)
	DeleteEscalationRule(ctx context.Context, tenantID string, ruleID string) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
