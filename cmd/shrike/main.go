// Shrike - Entity screening and risk scoring that deploys in 60 seconds.
// Copyright (c) 2026 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/opensource-finance/shrike/internal/api"
	"github.com/opensource-finance/shrike/internal/bus"
	"github.com/opensource-finance/shrike/internal/cache"
	"github.com/opensource-finance/shrike/internal/domain"
	"github.com/opensource-finance/shrike/internal/repository"
	"github.com/opensource-finance/shrike/internal/rules"
	"github.com/opensource-finance/shrike/internal/scoring"
	"github.com/opensource-finance/shrike/internal/screen"
	"github.com/opensource-finance/shrike/internal/velocity"
	"github.com/opensource-finance/shrike/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Optional .env for local development; missing file is fine.
	_ = godotenv.Load()

	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("SHRIKE_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting shrike",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("SHRIKE_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	if mode := os.Getenv("SHRIKE_MODE"); mode != "" {
		cfg.ScoringMode = domain.ScoringMode(mode)
	}
	if path := os.Getenv("SHRIKE_SCORING_CONFIG"); path != "" {
		cfg.ScoringConfigPath = path
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"scoring_mode", cfg.ScoringMode,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Scoring Engine
	engine := scoring.NewEngine(cfg.ScoringMode, logger)
	defer engine.Close()

	// Load per-tenant scoring configurations from the database
	loadScoringConfigs(ctx, repo, engine)
	slog.Info("scoring engine initialized",
		"mode", engine.Mode(),
		"tenant_configs", engine.ConfigCount(),
	)

	// Optional YAML weighting scheme with hot reload
	if cfg.ScoringConfigPath != "" {
		fileCfg, err := scoring.LoadConfigFile(cfg.ScoringConfigPath)
		if err != nil {
			slog.Error("failed to load scoring config file", "path", cfg.ScoringConfigPath, "error", err)
			os.Exit(1)
		}
		engine.LoadConfig("", fileCfg)

		reloader, err := scoring.NewConfigReloader(engine, busImpl, cfg.ScoringConfigPath, logger)
		if err != nil {
			slog.Error("failed to watch scoring config file", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := reloader.Run(ctx); err != nil {
				slog.Error("config reloader stopped", "error", err)
			}
		}()
		slog.Info("scoring config hot reload enabled", "path", cfg.ScoringConfigPath)
	}

	// Initialize Escalation Rule Engine
	ruleEngine, err := rules.NewEngine(100)
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}
	defer ruleEngine.Close()

	if err := loadRulesFromDatabase(ctx, repo, ruleEngine); err != nil {
		slog.Error("failed to load escalation rules", "error", err)
		os.Exit(1)
	}
	slog.Info("rule engine initialized", "rules_count", ruleEngine.RulesCount())

	// Initialize Velocity Tracker
	tracker := velocity.NewTracker(time.Hour, repo, cacheImpl)
	slog.Info("velocity tracker initialized")

	// Initialize Screening Pipeline
	pipeline := screen.NewPipeline(engine, ruleEngine, repo, cacheImpl, busImpl, logger)
	slog.Info("screening pipeline initialized")

	// Initialize async Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("SHRIKE_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, repo, pipeline, tracker)

		var tenantIDs []string
		if envTenants := os.Getenv("SHRIKE_TENANTS"); envTenants != "" {
			tenantIDs = strings.Split(envTenants, ",")
		}

		workerCfg := worker.Config{
			TenantIDs:   tenantIDs,
			WorkerCount: 5,
		}

		if err := asyncWorker.Start(workerCfg); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started", "tenant_count", len(tenantIDs))
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, engine, ruleEngine, pipeline, tracker, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("shrike is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("shrike shutdown complete")
}

// loadScoringConfigs installs stored per-tenant scoring configurations.
// Tenants without a stored configuration fall back to built-in defaults.
func loadScoringConfigs(ctx context.Context, repo domain.Repository, engine *scoring.Engine) {
	configs, err := repo.ListScoringConfigs(ctx, domain.GlobalTenantID)
	if err != nil {
		slog.Warn("failed to list scoring configs from database", "error", err)
		return
	}
	for _, cfg := range configs {
		engine.LoadConfig(cfg.TenantID, cfg)
	}
}

// loadRulesFromDatabase loads escalation rules from the database.
// Falls back to the builtin rule set when the database has none.
func loadRulesFromDatabase(ctx context.Context, repo domain.Repository, engine *rules.Engine) error {
	dbRules, err := repo.ListEscalationRules(ctx, domain.GlobalTenantID)
	if err != nil {
		slog.Warn("failed to list escalation rules from database", "error", err)
		return engine.LoadRules(rules.BuiltinRules())
	}

	if len(dbRules) > 0 {
		slog.Info("loading escalation rules from database", "count", len(dbRules))
		return engine.LoadRules(dbRules)
	}

	slog.Info("no escalation rules in database - loading builtins")
	return engine.LoadRules(rules.BuiltinRules())
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🪶 SHRIKE                    ║")
	fmt.Println("  ║      Entity Screening & Risk Scoring      ║")
	fmt.Println("  ║        Every name, every list.            ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Mode:     %s\n", cfg.ScoringMode)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /api/v1/score            - Score a single entity")
	fmt.Println("    POST /api/v1/screen           - Screen a batch of entities")
	fmt.Println("    POST /api/v1/search           - Search entities with scoring")
	fmt.Println("    POST /api/v1/query/validate   - Validate a boolean query")
	fmt.Println("    GET  /api/v1/config/scoring   - Get scoring configuration")
	fmt.Println("    PUT  /api/v1/config/scoring   - Update scoring configuration")
	fmt.Println("    GET  /api/v1/entities/{id}    - Get entity by ID")
	fmt.Println("    GET  /api/v1/assessments/{id} - Get assessment by ID")
	fmt.Println("    GET  /api/v1/stats            - Throughput statistics")
	fmt.Println("    GET  /api/v1/rules            - List escalation rules")
	fmt.Println("    POST /api/v1/rules            - Create an escalation rule")
	fmt.Println("    POST /api/v1/rules/reload     - Hot-reload rules from database")
	fmt.Println("    GET  /health                  - Health check")
	fmt.Println()
}
