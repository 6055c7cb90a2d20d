package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probe(t *testing.T, fn http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	fn(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec
}

func TestReadiness_GatedBySetReady(t *testing.T) {
	h := New()

	rec := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h.SetReady(true)
	rec = probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	h.SetReady(false)
	rec = probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLiveness_IgnoresReadinessGate(t *testing.T) {
	h := New()

	rec := probe(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheck_FailureThreshold(t *testing.T) {
	h := New()
	h.SetReady(true)

	var failing atomic.Bool
	h.AddReadinessCheck("db", time.Second, func(context.Context) error {
		if failing.Load() {
			return errors.New("connection refused")
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, 10*time.Millisecond)
	defer h.Stop()

	require.Eventually(t, func() bool {
		return probe(t, h.ReadyEndpoint).Code == http.StatusOK
	}, time.Second, 5*time.Millisecond)

	// One failure is absorbed; only a streak flips the probe.
	failing.Store(true)
	time.Sleep(15 * time.Millisecond)
	failing.Store(false)
	assert.Equal(t, http.StatusOK, probe(t, h.ReadyEndpoint).Code)

	failing.Store(true)
	require.Eventually(t, func() bool {
		rec := probe(t, h.ReadyEndpoint)
		return rec.Code == http.StatusServiceUnavailable
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, probe(t, h.ReadyEndpoint).Body.String(), "connection refused")

	// A single success recovers immediately.
	failing.Store(false)
	require.Eventually(t, func() bool {
		return probe(t, h.ReadyEndpoint).Code == http.StatusOK
	}, time.Second, 5*time.Millisecond)
}

func TestCheck_KindsAreIndependent(t *testing.T) {
	h := New()
	h.SetReady(true)
	h.AddLivenessCheck("stuck", time.Second, func(context.Context) error {
		return errors.New("stuck")
	})
	h.AddReadinessCheck("db", time.Second, func(context.Context) error {
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, 10*time.Millisecond)
	defer h.Stop()

	require.Eventually(t, func() bool {
		return probe(t, h.LiveEndpoint).Code == http.StatusServiceUnavailable
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, http.StatusOK, probe(t, h.ReadyEndpoint).Code)
}

func TestStop_WaitsForRunner(t *testing.T) {
	h := New()
	h.AddReadinessCheck("noop", time.Second, func(context.Context) error { return nil })

	h.Start(context.Background(), 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		h.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestGoroutineCountCheck(t *testing.T) {
	require.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
