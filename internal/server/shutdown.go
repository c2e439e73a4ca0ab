// Package server runs the HTTP listener and stops it cleanly: new requests
// are refused, running ones are drained, then resources are released.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ShutdownConfig bounds how long stopping may take.
type ShutdownConfig struct {
	// ShutdownTimeout bounds the whole shutdown. Default: 10 seconds
	ShutdownTimeout time.Duration

	// DrainTimeout bounds the wait for running requests. Default: 5 seconds
	DrainTimeout time.Duration
}

// DefaultShutdownConfig returns the default shutdown configuration.
func DefaultShutdownConfig() ShutdownConfig {
	return ShutdownConfig{
		ShutdownTimeout: 10 * time.Second,
		DrainTimeout:    5 * time.Second,
	}
}

type resource struct {
	name string
	io.Closer
}

// ShutdownManager owns the stop sequence of the service.
type ShutdownManager struct {
	cfg          ShutdownConfig
	pollInterval time.Duration
	log          *zap.Logger

	stopping atomic.Bool
	active   atomic.Int64
	done     chan struct{}

	once   sync.Once
	result error

	mu        sync.Mutex
	resources []resource
}

// NewShutdownManager creates a manager. Zero timeouts take the defaults and a
// nil logger disables logging.
func NewShutdownManager(cfg ShutdownConfig, log *zap.Logger) *ShutdownManager {
	def := DefaultShutdownConfig()
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = def.DrainTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ShutdownManager{
		cfg:          cfg,
		pollInterval: 50 * time.Millisecond,
		log:          log,
		done:         make(chan struct{}),
	}
}

// RegisterCloser adds a resource released at shutdown. The last registered
// resource is closed first.
func (sm *ShutdownManager) RegisterCloser(name string, c io.Closer) {
	sm.mu.Lock()
	sm.resources = append(sm.resources, resource{name: name, Closer: c})
	sm.mu.Unlock()
}

// ListenForSignals waits for SIGINT, SIGTERM, the end of ctx or a shutdown
// started elsewhere, and returns the shutdown result.
func (sm *ShutdownManager) ListenForSignals(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var reason string
	select {
	case <-sigCtx.Done():
		reason = "signal received"
		if ctx.Err() != nil {
			reason = "context cancelled"
		}
	case <-sm.done:
	}
	return sm.Shutdown(context.Background(), reason)
}

// Shutdown refuses new requests, waits for running ones and closes every
// registered resource. Only the first call does the work; later calls return
// the same error.
func (sm *ShutdownManager) Shutdown(ctx context.Context, reason string) error {
	sm.once.Do(func() {
		sm.stopping.Store(true)
		close(sm.done)
		sm.log.Info("shutting down", zap.String("reason", reason))

		ctx, cancel := context.WithTimeout(ctx, sm.cfg.ShutdownTimeout)
		defer cancel()

		err := sm.drain(ctx)
		err = multierr.Append(err, sm.closeAll())

		sm.result = err
		sm.log.Info("shutdown complete", zap.Error(err))
	})
	return sm.result
}

// drain polls until no request is running or the drain timeout passes.
func (sm *ShutdownManager) drain(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, sm.cfg.DrainTimeout)
	defer cancel()

	ticker := time.NewTicker(sm.pollInterval)
	defer ticker.Stop()

	for sm.active.Load() > 0 {
		select {
		case <-ctx.Done():
			if n := sm.active.Load(); n > 0 {
				return fmt.Errorf("drain: %d in-flight requests still running", n)
			}
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

func (sm *ShutdownManager) closeAll() error {
	sm.mu.Lock()
	resources := append([]resource(nil), sm.resources...)
	sm.mu.Unlock()

	var errs error
	for i := len(resources) - 1; i >= 0; i-- {
		r := resources[i]
		if err := r.Close(); err != nil {
			sm.log.Warn("close failed", zap.String("resource", r.name), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", r.name, err))
		}
	}
	return errs
}

// TrackRequest counts a request as running. It reports false once shutdown
// has started, and the request must then be refused.
func (sm *ShutdownManager) TrackRequest() bool {
	// Count first so drain either sees this request or the request sees
	// stopping
	sm.active.Add(1)
	if sm.stopping.Load() {
		sm.active.Add(-1)
		return false
	}
	return true
}

// UntrackRequest marks a tracked request as finished.
func (sm *ShutdownManager) UntrackRequest() {
	sm.active.Add(-1)
}

// IsShuttingDown reports whether shutdown has started.
func (sm *ShutdownManager) IsShuttingDown() bool {
	return sm.stopping.Load()
}

// InFlightCount returns the number of tracked requests still running.
func (sm *ShutdownManager) InFlightCount() int64 {
	return sm.active.Load()
}

// Done is closed when shutdown begins.
func (sm *ShutdownManager) Done() <-chan struct{} {
	return sm.done
}

// Serve runs srv on ln until shutdown closes it.
func (sm *ShutdownManager) Serve(srv *http.Server, ln net.Listener) error {
	sm.RegisterCloser("http server", CloserFunc(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), sm.cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	}))

	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Middleware answers 503 once shutdown has started and counts every other
// request until its handler returns.
func (sm *ShutdownManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sm.TrackRequest() {
			h := w.Header()
			h.Set("Connection", "close")
			h.Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			io.WriteString(w, `{"error":"server is shutting down","code":"SHUTTING_DOWN"}`)
			return
		}
		defer sm.UntrackRequest()
		next.ServeHTTP(w, r)
	})
}

// CloserFunc adapts a function to io.Closer.
type CloserFunc func() error

func (f CloserFunc) Close() error { return f() }
