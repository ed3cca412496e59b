// Package worker provides async entity processing for the Pro tier.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/shrike/internal/domain"
	"github.com/opensource-finance/shrike/internal/screen"
	"github.com/opensource-finance/shrike/internal/velocity"
)

// Worker screens entities asynchronously from the EventBus.
type Worker struct {
	bus      domain.EventBus
	repo     domain.Repository
	pipeline *screen.Pipeline
	tracker  *velocity.Tracker

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = all via wildcard if supported)
	TenantIDs []string

	// WorkerCount is the number of concurrent workers per tenant
	WorkerCount int
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, pipeline *screen.Pipeline, tracker *velocity.Tracker) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		repo:     repo,
		pipeline: pipeline,
		tracker:  tracker,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing messages for the given tenants.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.TenantIDs) == 0 {
		return w.startGlobalWorker()
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startGlobalWorker starts a worker that processes all tenants (for testing/dev).
func (w *Worker) startGlobalWorker() error {
	// Subscribe using a special "global" tenant ID
	// In production, you'd want to subscribe with wildcards or JetStream
	sub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicEntityIngested, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startTenantWorker starts workers for a specific tenant.
func (w *Worker) startTenantWorker(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicEntityIngested, func(ctx context.Context, msg *domain.Message) error {
		return w.processEntity(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicEntityIngested,
	)

	return nil
}

// handleMessage handles messages from the global subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processEntity(ctx, msg.TenantID, msg)
}

// EntityMessage is the message payload for entity screening.
type EntityMessage struct {
	TenantID string               `json:"tenantId"`
	TraceID  string               `json:"traceId,omitempty"`
	Entity   *domain.EntityRecord `json:"entity"`
}

// processEntity screens an ingested entity through the pipeline.
func (w *Worker) processEntity(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	var entityMsg EntityMessage
	if err := json.Unmarshal(msg.Payload, &entityMsg); err != nil {
		slog.Error("failed to parse entity message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	// Use message tenant if provided
	if entityMsg.TenantID != "" {
		tenantID = entityMsg.TenantID
	}

	entity := entityMsg.Entity
	if entity == nil {
		slog.Error("entity message carries no entity",
			"message_id", msg.ID,
			"tenant_id", tenantID,
		)
		return nil
	}

	slog.Debug("processing entity",
		"entity_id", entity.EntityID,
		"tenant_id", tenantID,
	)

	if entity.EntityID == "" {
		entity.EntityID = uuid.New().String()
	}

	// Persist the entity so later searches and rescoring can find it.
	if w.repo != nil {
		if err := w.repo.SaveEntity(ctx, tenantID, entity); err != nil {
			slog.Error("failed to save entity",
				"entity_id", entity.EntityID,
				"error", err,
			)
		}
	}

	// The pipeline persists the assessment and publishes scored/escalation
	// events itself.
	assessment := w.pipeline.Screen(ctx, tenantID, entity)

	if w.tracker != nil {
		w.tracker.Record(ctx, tenantID, assessment.Severity)
	}

	slog.Info("entity processed",
		"entity_id", entity.EntityID,
		"tenant_id", tenantID,
		"severity", assessment.Severity,
		"score", assessment.Score,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
