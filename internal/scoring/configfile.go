package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/opensource-finance/shrike/internal/domain"
)

// LoadConfigFile reads a scoring configuration from a YAML file.
// Absent sections keep the built-in defaults, so a file can override just
// the thresholds or a handful of severities.
func LoadConfigFile(path string) (*domain.ScoringConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scoring config %s: %w", path, err)
	}

	cfg := domain.DefaultScoringConfiguration()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse scoring config %s: %w", path, err)
	}

	if _, ok := cfg.GeographicRiskMultipliers[domain.GeographicDefaultKey]; !ok {
		cfg.GeographicRiskMultipliers[domain.GeographicDefaultKey] = 1.0
	}
	cfg.Version = time.Now().Unix()

	return cfg, nil
}

// ConfigReloader watches a scoring configuration file and installs a fresh
// snapshot on change. In-flight batches keep the snapshot they started
// with; only new batches see the update.
type ConfigReloader struct {
	watcher *fsnotify.Watcher
	engine  *Engine
	bus     domain.EventBus
	path    string
	logger  *slog.Logger
}

// NewConfigReloader creates a file watcher for the given config path.
func NewConfigReloader(engine *Engine, bus domain.EventBus, path string, logger *slog.Logger) (*ConfigReloader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", path, err)
	}

	return &ConfigReloader{
		watcher: watcher,
		engine:  engine,
		bus:     bus,
		path:    path,
		logger:  logger,
	}, nil
}

// Run watches for file changes and reloads the configuration.
// Blocks until ctx is cancelled.
func (r *ConfigReloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	// Debounce: wait 500ms after last write before reloading
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, r.reload)
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Error("config watcher error", "error", err)
		}
	}
}

func (r *ConfigReloader) reload() {
	cfg, err := LoadConfigFile(r.path)
	if err != nil {
		r.logger.Error("scoring config reload failed", "path", r.path, "error", err)
		return
	}

	r.engine.LoadConfig("", cfg)
	r.logger.Info("scoring config reloaded", "path", r.path, "version", cfg.Version)

	if r.bus != nil {
		payload := []byte(fmt.Sprintf(`{"version":%d}`, cfg.Version))
		if err := r.bus.Publish(context.Background(), "", domain.TopicConfigUpdated, payload); err != nil {
			r.logger.Warn("config update publish failed", "error", err)
		}
	}
}
