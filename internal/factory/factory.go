package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mcoot/minimarket/internal/dependencies/clock"
	"github.com/mcoot/minimarket/internal/dependencies/random"
	"github.com/mcoot/minimarket/internal/events"
	"github.com/mcoot/minimarket/internal/metrics"
	"github.com/mcoot/minimarket/internal/model"
	"github.com/mcoot/minimarket/internal/retry"
	"github.com/mcoot/minimarket/internal/services/profile"
	"github.com/mcoot/minimarket/internal/storage"
	"github.com/mcoot/minimarket/internal/storage/file"
	"github.com/mcoot/minimarket/internal/storage/memory"
	redisstorage "github.com/mcoot/minimarket/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeFile   = "file"
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// DefaultDataDir is where the file store keeps profiles when none is configured
const DefaultDataDir = "data/profiles"

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Observability
	MetricsRegistry *prometheus.Registry
	Metrics         *metrics.Metrics
	Events          *events.Hub

	// Services
	Retry    *retry.Controller
	Profiles *profile.Registry
	Managers *Managers

	logger *slog.Logger
	closer io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// StorageType selects the storage backend ("file", "memory" or "redis")
	// If empty, defaults to "file"
	StorageType string
	// DataDir is the file store's directory (optional)
	// If empty, defaults to DefaultDataDir
	DataDir string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// Retry holds the save retry policy (optional)
	// Zero fields take their value from retry.DefaultConfig()
	Retry retry.Config
	// MetricsRegistry receives the application's collectors (optional)
	// If nil, a fresh registry with the Go and process collectors is created
	MetricsRegistry *prometheus.Registry
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, closer, err := newStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	reg := cfg.MetricsRegistry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	app, err := newWithDependencies(store, clock.New(), random.New(), retryConfig(cfg.Retry), reg, logger)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	app.closer = closer
	return app, nil
}

// newStorage builds the configured backend. The closer is nil when the
// backend holds no connections.
func newStorage(cfg Config, logger *slog.Logger) (storage.Storage, io.Closer, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeFile
	}

	switch storageType {
	case StorageTypeFile:
		dir := cfg.DataDir
		if dir == "" {
			dir = DefaultDataDir
		}
		store, err := file.New(dir, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case StorageTypeMemory:
		return memory.New(), nil, nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, nil, fmt.Errorf("%w: RedisConfig required when StorageType is redis", model.ErrInvalidArgument)
		}
		store, err := redisstorage.New(*cfg.RedisConfig, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("%w: invalid StorageType %q: must be 'file', 'memory' or 'redis'", model.ErrInvalidArgument, storageType)
	}
}

// retryConfig fills each unset field of cfg from the defaults
func retryConfig(cfg retry.Config) retry.Config {
	defaults := retry.DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.Delay <= 0 {
		cfg.Delay = defaults.Delay
	}
	return cfg
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	retryCfg retry.Config,
	reg *prometheus.Registry,
	logger *slog.Logger,
) (*App, error) {
	m := metrics.New(reg)
	hub := events.NewHub(clk, logger)
	retrier := retry.New(retryCfg, clk, m, logger)
	profiles := profile.NewRegistry(store, retrier, hub, clk, rnd, m, logger)

	managers := NewManagers()
	if err := managers.Register(profile.ManagerKey, profiles); err != nil {
		return nil, err
	}

	return &App{
		Storage:         store,
		Clock:           clk,
		Random:          rnd,
		MetricsRegistry: reg,
		Metrics:         m,
		Events:          hub,
		Retry:           retrier,
		Profiles:        profiles,
		Managers:        managers,
		logger:          logger.With(slog.String("component", "app")),
	}, nil
}

// Start runs the event hub and initializes every registered manager
func (a *App) Start(ctx context.Context) error {
	go a.Events.Run()

	if err := a.Profiles.Initialize(ctx); err != nil {
		a.logger.Error("failed to initialize profiles", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Close shuts the managers down, stops the event hub and releases storage
// connections
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Profiles.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	a.Events.Close()
	if a.closer != nil {
		if err := a.closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
