package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/talisman"
	"github.com/aretw0/talisman/internal/config"
	"github.com/aretw0/talisman/internal/metrics"
	"github.com/aretw0/talisman/pkg/adapters/canned"
	"github.com/aretw0/talisman/pkg/adapters/file"
	"github.com/aretw0/talisman/pkg/adapters/memory"
	redisstore "github.com/aretw0/talisman/pkg/adapters/redis"
	"github.com/aretw0/talisman/pkg/adapters/remote"
	"github.com/aretw0/talisman/pkg/adapters/sqlite"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/aretw0/talisman/pkg/persistence/middleware"
	"github.com/aretw0/talisman/pkg/ports"
	"github.com/aretw0/talisman/pkg/session"
	"github.com/aretw0/talisman/pkg/taxonomy"
	"github.com/redis/go-redis/v9"
)

// App is the fully wired host: engine, session manager and their resources.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Engine   *talisman.Engine
	Sessions *session.Manager
	Metrics  *metrics.Collector

	closers []func() error
}

// AppOption customizes NewApp.
type AppOption func(*appOptions)

type appOptions struct {
	instant     bool
	redisClient *redis.Client
}

// WithInstant disables the typing simulation regardless of the configuration.
// One-shot hosts such as the MCP server use it.
func WithInstant() AppOption {
	return func(o *appOptions) {
		o.instant = true
	}
}

// WithRedisClient reuses an existing client instead of dialing cfg.Redis.
func WithRedisClient(c *redis.Client) AppOption {
	return func(o *appOptions) {
		o.redisClient = c
	}
}

// NewApp builds every component selected by cfg.
func NewApp(cfg *config.Config, logger *slog.Logger, opts ...AppOption) (*App, error) {
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{Config: cfg, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			_ = app.closeResources()
		}
	}()

	var client *redis.Client
	if cfg.UsesRedis() {
		client = o.redisClient
		if client == nil {
			client = redisstore.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
			app.closers = append(app.closers, client.Close)
		}
	}

	engineOpts, err := app.engineOptions(cfg, client, o.instant)
	if err != nil {
		return nil, err
	}
	engine, err := talisman.New(engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	app.Engine = engine

	sessionOpts := []session.Option{session.WithLogger(logger)}
	store, err := newSnapshotStore(cfg, client)
	if err != nil {
		return nil, err
	}
	sessionOpts = append(sessionOpts, session.WithStore(store))
	if cfg.Sessions.Lock {
		sessionOpts = append(sessionOpts, session.WithLocker(redisstore.NewLocker(client, cfg.Redis.Prefix)))
	}
	app.Sessions = session.NewManager(engine, sessionOpts...)

	ok = true
	return app, nil
}

func (a *App) engineOptions(cfg *config.Config, client *redis.Client, instant bool) ([]talisman.Option, error) {
	opts := []talisman.Option{
		talisman.WithLogger(a.Logger),
		talisman.WithInferenceTimeout(cfg.Inference.Timeout),
	}

	if cfg.Taxonomy != "" {
		tx, err := taxonomy.Load(cfg.Taxonomy)
		if err != nil {
			return nil, fmt.Errorf("error loading taxonomy: %w", err)
		}
		opts = append(opts, talisman.WithTaxonomy(tx))
	}

	if cfg.Offline {
		opts = append(opts, talisman.WithInference(canned.NewInference()))
	} else {
		opts = append(opts, talisman.WithInference(remote.NewInference(a.remoteClient(cfg.Inference))))
	}

	if cfg.Artifact.Enabled {
		switch {
		case cfg.Images.URL != "":
			opts = append(opts, talisman.WithArtifacts(remote.NewArtifacts(a.remoteClient(cfg.Images))))
		case cfg.Offline:
			opts = append(opts, talisman.WithArtifacts(canned.NewArtifacts()))
		default:
			a.Logger.Warn("artifact generation disabled: images.url is not set")
		}
		opts = append(opts, talisman.WithPolling(cfg.Artifact.Interval, cfg.Artifact.MaxRetries))
	}

	store, err := a.consultationStore(cfg, client)
	if err != nil {
		return nil, err
	}
	opts = append(opts, talisman.WithConsultationStore(store))

	if instant || cfg.Pacing.Instant {
		opts = append(opts, talisman.WithInstantDelivery())
	} else {
		opts = append(opts,
			talisman.WithPacing(cfg.Pacing.PerRune, cfg.Pacing.MinTyping, cfg.Pacing.MaxTyping),
			talisman.WithReadDelay(cfg.Pacing.ReadDelay),
		)
	}

	hooks := []domain.LifecycleHooks{createDebugHooks(a.Logger)}
	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
		hooks = append(hooks, a.Metrics.Hooks())
	}
	opts = append(opts, talisman.WithLifecycleHooks(metrics.Chain(hooks...)))
	return opts, nil
}

func (a *App) remoteClient(b config.BackendConfig) *remote.Client {
	return remote.NewClient(b.URL,
		remote.WithAPIKey(b.APIKey),
		remote.WithHTTPClient(remote.SharedHTTPClient(b.Timeout)),
		remote.WithRetry(b.MaxRetries, remote.DefaultBackoff),
		remote.WithLogger(a.Logger),
	)
}

func (a *App) consultationStore(cfg *config.Config, client *redis.Client) (ports.ConsultationStore, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		store, err := sqlite.Open(cfg.Store.Path, sqlite.WithLogger(a.Logger))
		if err != nil {
			return nil, fmt.Errorf("error opening consultation store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case "redis":
		return redisstore.NewConsultationStore(client, cfg.Redis.Prefix), nil
	}
	return memory.NewConsultationStore(), nil
}

func newSnapshotStore(cfg *config.Config, client *redis.Client) (ports.SnapshotStore, error) {
	var store ports.SnapshotStore
	switch cfg.Sessions.Driver {
	case "file":
		store = file.New(cfg.Sessions.Path)
	case "redis":
		store = redisstore.NewFromClient(client,
			redisstore.WithPrefix(cfg.Redis.Prefix),
			redisstore.WithTTL(cfg.Sessions.TTL),
		)
	default:
		store = memory.NewStore()
	}

	var mws []middleware.Middleware
	if len(cfg.Sessions.MaskPII) > 0 {
		mw, err := middleware.NewPIIMiddleware(cfg.Sessions.MaskPII)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if cfg.Sessions.EncryptionKey != "" {
		encCfg, err := encryptionConfig(cfg.Sessions)
		if err != nil {
			return nil, err
		}
		mw, err := middleware.NewEncryptionMiddleware(encCfg)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return middleware.Chain(store, mws...), nil
}

func encryptionConfig(c config.SessionsConfig) (middleware.EncryptionConfig, error) {
	active, err := middleware.ParseKey(c.EncryptionKey)
	if err != nil {
		return middleware.EncryptionConfig{}, err
	}
	out := middleware.EncryptionConfig{ActiveKey: active}
	for _, k := range c.FallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return middleware.EncryptionConfig{}, err
		}
		out.FallbackKeys = append(out.FallbackKeys, key)
	}
	return out, nil
}

// Close flushes the live sessions, then releases stores and connections.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Sessions != nil {
		errs = append(errs, a.Sessions.Close(ctx))
	}
	errs = append(errs, a.closeResources())
	return errors.Join(errs...)
}

func (a *App) closeResources() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
