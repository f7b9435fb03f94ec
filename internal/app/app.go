// Package app wires the configured store, catalog, presets and record
// services into one context shared by the CLI and the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/canari/internal/cache"
	"github.com/ppiankov/canari/internal/catalog"
	"github.com/ppiankov/canari/internal/docstore"
	"github.com/ppiankov/canari/internal/draft"
	"github.com/ppiankov/canari/internal/events"
	"github.com/ppiankov/canari/internal/logging"
	"github.com/ppiankov/canari/internal/model"
	"github.com/ppiankov/canari/internal/presets"
	"github.com/ppiankov/canari/internal/queue"
	"github.com/ppiankov/canari/internal/records"
	"github.com/ppiankov/canari/internal/validate"
	"github.com/ppiankov/canari/internal/wizard"
	"github.com/ppiankov/canari/internal/worker"
)

// App is the application context
type App struct {
	config    *model.Config
	logger    logrus.FieldLogger
	store     docstore.Store
	catalog   *catalog.Catalog
	validator *validate.Validator
	publisher events.Publisher
	records   *records.Service
	presets   *presets.Fetcher

	mu        sync.RWMutex
	varieties []string
}

// New opens the configured store and event publisher and loads the presets once
func New(ctx context.Context, cfg *model.Config, logger logrus.FieldLogger) (*App, error) {
	if err := check(cfg); err != nil {
		return nil, err
	}

	store, err := docstore.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.Events.PubSubProject != "" && cfg.Events.PubSubTopic != "" {
		p, err := events.NewPubSubPublisher(ctx, cfg.Events.PubSubProject, cfg.Events.PubSubTopic)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		publisher = p
	}

	return build(ctx, cfg, store, publisher, logger), nil
}

// NewWithStore builds an application over an already opened store
func NewWithStore(ctx context.Context, cfg *model.Config, store docstore.Store, publisher events.Publisher, logger logrus.FieldLogger) (*App, error) {
	if err := check(cfg); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", model.ErrInvalidConfiguration)
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return build(ctx, cfg, store, publisher, logger), nil
}

func check(cfg *model.Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", model.ErrInvalidConfiguration)
	}
	if cfg.Wizard.SampleCount <= 0 {
		return fmt.Errorf("%w: wizard.sample_count must be positive, got %d", model.ErrInvalidConfiguration, cfg.Wizard.SampleCount)
	}
	return nil
}

func build(ctx context.Context, cfg *model.Config, store docstore.Store, publisher events.Publisher, logger logrus.FieldLogger) *App {
	if logger == nil {
		logger = logging.Discard()
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.WritesPerSecond, cfg.RateLimiting.Burst)
	var memo cache.Cache = cache.NewMemoryCache(cfg.Presets.CacheTTL, 2*cfg.Presets.CacheTTL)
	if dir := cfg.Presets.CacheDir; dir != "" {
		memo = cache.NewLayered(memo, cache.NewDiskCache(dir, cfg.Presets.CacheTTL))
	}

	a := &App{
		config:    cfg,
		logger:    logger,
		store:     store,
		catalog:   catalog.Default(),
		validator: validate.NewValidator(),
		publisher: publisher,
		records: records.NewService(store, cfg.Paths, records.Options{
			Limiter:   limiter,
			Publisher: publisher,
			Logger:    logger,
		}),
		presets: presets.NewFetcher(store, memo, cfg.Presets.CacheTTL,
			cfg.Paths.PresetsCollection, cfg.Paths.PresetsDocument, logger),
	}
	a.varieties = a.presets.Varieties(ctx)
	return a
}

func (a *App) Config() *model.Config { return a.config }

func (a *App) Logger() logrus.FieldLogger { return a.logger }

func (a *App) Catalog() *catalog.Catalog { return a.catalog }

func (a *App) Records() *records.Service { return a.records }

// Varieties returns the variety choices loaded at startup or by the last refresh
func (a *App) Varieties() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.varieties...)
}

// RefreshPresets re-reads the presets document, bypassing the memoised copy
func (a *App) RefreshPresets(ctx context.Context) []string {
	a.presets.Invalidate()
	v := a.presets.Varieties(ctx)

	a.mu.Lock()
	a.varieties = v
	a.mu.Unlock()
	return append([]string(nil), v...)
}

// NewWizard starts a fresh batch entry form
func (a *App) NewWizard() (*wizard.Machine, error) {
	store, err := draft.New(a.catalog, a.config.Wizard.SampleCount)
	if err != nil {
		return nil, err
	}
	return wizard.New(store, a.validator)
}

// NewQueue starts an empty count queue
func (a *App) NewQueue() *queue.Queue {
	return queue.New(a.validator)
}

// Close releases the publisher and the store
func (a *App) Close() error {
	return errors.Join(a.publisher.Close(), a.store.Close())
}
