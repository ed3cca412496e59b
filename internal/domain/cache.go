package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// Supports two-phase caching: local LRU (Community) + Redis (Pro).
// All methods require tenantID for strict multi-tenancy isolation.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, tenantID string, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, tenantID string, key string) error

	// GetEntitySummary retrieves cached entity data.
	GetEntitySummary(ctx context.Context, tenantID string, entityID string) (*EntitySummary, error)

	// SetEntitySummary caches entity data for pipeline processing.
	SetEntitySummary(ctx context.Context, tenantID string, entityID string, data *EntitySummary, ttl time.Duration) error

	// IncrementCounter atomically increments a counter and returns new value.
	// Used for throughput stats (e.g., assessments per time window).
	IncrementCounter(ctx context.Context, tenantID string, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// EntitySummary holds cached entity data passed through the pipeline.
type EntitySummary struct {
	EntityID     string  `json:"entityId"`
	EntityName   string  `json:"entityName"`
	EntityType   string  `json:"entityType"`
	Score        float64 `json:"score"`
	Severity     string  `json:"severity"`
	PEPStatus    string  `json:"pepStatus,omitempty"`
	LastScoredAt string  `json:"lastScoredAt,omitempty"`
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings (Community tier)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (Pro tier)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}
