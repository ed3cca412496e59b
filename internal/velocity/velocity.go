// Package velocity tracks assessment throughput per tenant.
package velocity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
)

// Tracker keeps sliding-window counts of produced assessments, broken down
// by severity. Backs the stats endpoint.
type Tracker struct {
	mu      sync.Mutex
	window  time.Duration
	samples map[string][]sample // tenantID -> samples, oldest first

	repo  domain.Repository
	cache domain.Cache // optional distributed counters
}

type sample struct {
	at       time.Time
	severity domain.Severity
}

// Stats is a point-in-time throughput snapshot for one tenant.
type Stats struct {
	TenantID   string           `json:"tenantId"`
	WindowSecs int              `json:"windowSecs"`
	Total      int64            `json:"total"`
	BySeverity map[string]int64 `json:"bySeverity"`
}

// NewTracker creates a tracker with the given sliding window.
func NewTracker(window time.Duration, repo domain.Repository, cache domain.Cache) *Tracker {
	if window <= 0 {
		window = time.Hour
	}
	return &Tracker{
		window:  window,
		samples: make(map[string][]sample),
		repo:    repo,
		cache:   cache,
	}
}

// Record registers one produced assessment.
func (t *Tracker) Record(ctx context.Context, tenantID string, severity domain.Severity) {
	if tenantID == "" {
		return
	}

	t.mu.Lock()
	t.samples[tenantID] = append(t.prune(tenantID, time.Now()), sample{
		at:       time.Now(),
		severity: severity,
	})
	t.mu.Unlock()

	// Distributed counters keep multi-node deployments in sync.
	if t.cache != nil {
		_, _ = t.cache.IncrementCounter(ctx, tenantID, "assessments", t.window)
		_, _ = t.cache.IncrementCounter(ctx, tenantID, "assessments:"+string(severity), t.window)
	}
}

// Counts returns the current window counts for a tenant.
func (t *Tracker) Counts(tenantID string) Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.prune(tenantID, time.Now())
	t.samples[tenantID] = kept

	bySeverity := make(map[string]int64)
	for _, s := range kept {
		bySeverity[string(s.severity)]++
	}

	return Stats{
		TenantID:   tenantID,
		WindowSecs: int(t.window.Seconds()),
		Total:      int64(len(kept)),
		BySeverity: bySeverity,
	}
}

// prune drops samples older than the window. Caller holds the lock.
func (t *Tracker) prune(tenantID string, now time.Time) []sample {
	cutoff := now.Add(-t.window)
	kept := t.samples[tenantID]
	for len(kept) > 0 && kept[0].at.Before(cutoff) {
		kept = kept[1:]
	}
	return kept
}

// GetAssessmentCount returns the number of stored assessments for an entity
// within a time window.
func (t *Tracker) GetAssessmentCount(ctx context.Context, tenantID, entityID string, windowSecs int) (int64, error) {
	if tenantID == "" || entityID == "" {
		return 0, fmt.Errorf("tenantID and entityID are required")
	}
	if t.repo == nil {
		return 0, fmt.Errorf("no data source available")
	}

	since := time.Now().Add(-time.Duration(windowSecs) * time.Second)
	assessments, err := t.repo.ListAssessmentsByEntity(ctx, tenantID, entityID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to list assessments: %w", err)
	}
	return int64(len(assessments)), nil
}
