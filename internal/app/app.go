// Package app manages the missionlens service lifecycle.
package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	httpapi "github.com/missionlens/missionlens/internal/api/http"
	"github.com/missionlens/missionlens/internal/config"
	"github.com/missionlens/missionlens/internal/dataset"
	"github.com/missionlens/missionlens/internal/observability"
	"github.com/missionlens/missionlens/internal/server"
)

// App loads the missions table once and serves it over HTTP.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	// Loaded at Start, read-only afterwards
	table  *dataset.Table
	report *dataset.LoadReport
	stats  *observability.FilterStats

	shutdown   *server.ShutdownManager
	httpServer *http.Server
	listener   net.Listener

	// Lifecycle
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewLogger builds the process logger from the log configuration.
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// New creates a new App with the given configuration. A nil logger disables
// logging.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &App{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Start loads the dataset and starts the HTTP server. A dataset that cannot
// be loaded is fatal: the error is returned and nothing is served.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app is already running")
	}
	a.running = true
	a.mu.Unlock()

	table, report, err := dataset.Load(ctx, a.cfg.DataPath,
		dataset.WithLogger(a.logger),
		dataset.WithMaxRowErrors(a.cfg.MaxRowErrors),
		dataset.WithSQLiteTable(a.cfg.SQLiteTable),
	)
	if err != nil {
		a.setStopped()
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	a.table = table
	a.report = report

	ln, err := net.Listen("tcp", a.cfg.HTTP.Addr)
	if err != nil {
		a.setStopped()
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.HTTP.Addr, err)
	}
	a.listener = ln

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.stats = observability.NewFilterStats(a.cfg.Stats.Window)
	a.shutdown = server.NewShutdownManager(server.ShutdownConfig{
		ShutdownTimeout: a.cfg.HTTP.ShutdownTimeout,
	}, a.logger)
	a.shutdown.RegisterCloser("logger", server.CloserFunc(func() error {
		// Sync returns EINVAL on terminal sinks
		_ = a.logger.Sync()
		return nil
	}))

	middleware := httpapi.ChainMiddleware(
		a.shutdown.Middleware,
		httpapi.DefaultMiddleware(a.logger),
	)
	a.httpServer = &http.Server{
		Handler:      httpapi.NewRouter(a.table, a.stats, a.cfg.Explore, middleware),
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))
		if err := a.shutdown.Serve(a.httpServer, ln); err != nil {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	if a.cfg.Stats.Window > 0 && a.cfg.Stats.PruneInterval > 0 {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.pruneStats(ctx)
		}()
	}

	a.logger.Info("missionlens started",
		zap.String("source", report.Source),
		zap.Int("missions", report.Rows),
		zap.Int("skipped", report.Skipped),
	)
	return nil
}

func (a *App) setStopped() {
	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
}

// pruneStats drops stale filter usage until ctx is cancelled.
func (a *App) pruneStats(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Stats.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.stats.Prune()
		}
	}
}

// Stop shuts the server down gracefully and waits for background work.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	a.mu.Unlock()

	if a.cancel != nil {
		a.cancel()
	}

	err := a.shutdown.Shutdown(ctx, "stop requested")

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("shutdown timeout, some goroutines may not have finished")
	}

	a.logger.Info("missionlens stopped")
	return err
}

// WaitForShutdown blocks until SIGINT, SIGTERM or the end of ctx, then stops
// the app.
func (a *App) WaitForShutdown(ctx context.Context) error {
	a.mu.Lock()
	sm := a.shutdown
	a.mu.Unlock()
	if sm == nil {
		return fmt.Errorf("app is not running")
	}

	// The shutdown result is kept by the manager and returned again by Stop
	_ = sm.ListenForSignals(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout+time.Second)
	defer cancel()
	return a.Stop(stopCtx)
}

// Addr returns the address the HTTP server listens on, empty before Start.
func (a *App) Addr() string {
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Table returns the loaded missions table, nil before Start.
func (a *App) Table() *dataset.Table {
	return a.table
}

// Report returns the load report of the dataset, nil before Start.
func (a *App) Report() *dataset.LoadReport {
	return a.report
}
