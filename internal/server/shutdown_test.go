package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func TestShutdown_ClosersRunInReverseOrder(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{}, zap.NewNop())

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		sm.RegisterCloser(name, CloserFunc(func() error {
			order = append(order, name)
			return nil
		}))
	}

	require.NoError(t, sm.Shutdown(context.Background(), "test"))
	assert.Equal(t, []string{"third", "second", "first"}, order)
	assert.True(t, sm.IsShuttingDown())

	select {
	case <-sm.Done():
	default:
		t.Fatal("Done channel not closed")
	}
}

func TestShutdown_CombinesCloseErrors(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{}, zap.NewNop())
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	sm.RegisterCloser("a", CloserFunc(func() error { return errA }))
	sm.RegisterCloser("ok", CloserFunc(func() error { return nil }))
	sm.RegisterCloser("b", CloserFunc(func() error { return errB }))

	err := sm.Shutdown(context.Background(), "test")
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)

	// Later calls return the first result without closing again
	assert.Equal(t, err, sm.Shutdown(context.Background(), "again"))
}

func TestShutdown_WaitsForInFlight(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{DrainTimeout: time.Second}, zap.NewNop())
	sm.pollInterval = 5 * time.Millisecond

	require.True(t, sm.TrackRequest())
	go func() {
		time.Sleep(30 * time.Millisecond)
		sm.UntrackRequest()
	}()

	require.NoError(t, sm.Shutdown(context.Background(), "test"))
	assert.Zero(t, sm.InFlightCount())
	assert.False(t, sm.TrackRequest(), "requests are rejected after shutdown starts")
}

func TestShutdown_NoRequestRunsAfterClose(t *testing.T) {
	for round := 0; round < 50; round++ {
		sm := NewShutdownManager(ShutdownConfig{DrainTimeout: time.Second}, zap.NewNop())
		sm.pollInterval = time.Millisecond

		var closed, lateRuns atomic.Int64
		sm.RegisterCloser("table", CloserFunc(func() error {
			closed.Store(1)
			return nil
		}))

		h := sm.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if closed.Load() == 1 {
				lateRuns.Add(1)
			}
		}))

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
				}
			}()
		}

		require.NoError(t, sm.Shutdown(context.Background(), "test"))
		wg.Wait()

		assert.Zero(t, lateRuns.Load(), "round %d", round)
		assert.Zero(t, sm.InFlightCount())
	}
}

func TestTrackRequest_RefusalLeavesCountUnchanged(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{}, zap.NewNop())
	require.NoError(t, sm.Shutdown(context.Background(), "test"))

	for i := 0; i < 3; i++ {
		assert.False(t, sm.TrackRequest())
	}
	assert.Zero(t, sm.InFlightCount())
}

func TestShutdown_DrainTimeout(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{DrainTimeout: 20 * time.Millisecond}, zap.NewNop())
	sm.pollInterval = 5 * time.Millisecond
	require.True(t, sm.TrackRequest())

	err := sm.Shutdown(context.Background(), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 in-flight")
}

func TestMiddleware_RejectsDuringShutdown(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{}, zap.NewNop())
	h := sm.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, int64(1), sm.InFlightCount())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, sm.InFlightCount())

	require.NoError(t, sm.Shutdown(context.Background(), "test"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "close", rec.Header().Get("Connection"))
}

func TestServe_StopsOnShutdown(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{}, zap.NewNop())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	})}

	var wg sync.WaitGroup
	var serveErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		serveErr = sm.Serve(srv, ln)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, sm.Shutdown(context.Background(), "test"))
	wg.Wait()
	assert.NoError(t, serveErr)
}

func TestListenForSignals_ContextCancel(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{}, zap.NewNop())
	closed := false
	sm.RegisterCloser("flag", CloserFunc(func() error {
		closed = true
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, sm.ListenForSignals(ctx))
	assert.True(t, closed)
}
