package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passingCheck() CheckFunc {
	return func(_ context.Context) error {
		return nil
	}
}

func failingCheck(msg string) CheckFunc {
	return func(_ context.Context) error {
		return errors.New(msg)
	}
}

func probeBody(t *testing.T, w *httptest.ResponseRecorder) probeResponse {
	t.Helper()
	var body probeResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestLiveEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(s *Service)
		wantCode   int
		wantStatus string
		wantCheck  string
	}{
		{
			name:       "no probes",
			setup:      func(_ *Service) {},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name: "all passing",
			setup: func(s *Service) {
				s.AddLivenessCheck("goroutines", time.Second, passingCheck())
				s.AddLivenessCheck("gc", time.Second, passingCheck())
				s.runAll(context.Background())
			},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name: "one failing",
			setup: func(s *Service) {
				s.AddLivenessCheck("goroutines", time.Second, failingCheck("leak detected"))
				s.runAll(context.Background())
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
			wantCheck:  "goroutines",
		},
		{
			name: "probe never ran yet",
			setup: func(s *Service) {
				s.AddLivenessCheck("goroutines", time.Second, failingCheck("leak detected"))
			},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			tt.setup(s)

			w := httptest.NewRecorder()
			s.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			body := probeBody(t, w)
			assert.Equal(t, tt.wantStatus, body.Status)
			if tt.wantCheck != "" {
				assert.Contains(t, body.Checks, tt.wantCheck)
			}
		})
	}
}

func TestReadyEndpoint_GateClosed(t *testing.T) {
	s := New()
	s.AddReadinessCheck("postgres", time.Second, passingCheck())

	w := httptest.NewRecorder()
	s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := probeBody(t, w)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Contains(t, body.Checks, "_gate")
}

func TestReadyEndpoint_FailingProbe(t *testing.T) {
	s := New()
	s.AddReadinessCheck("postgres", time.Second, failingCheck("connection refused"))
	s.AddReadinessCheck("cache", time.Second, passingCheck())
	s.SetReady(true)
	s.runAll(context.Background())

	w := httptest.NewRecorder()
	s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := probeBody(t, w)
	assert.Equal(t, "connection refused", body.Checks["postgres"])
	assert.NotContains(t, body.Checks, "cache")
}

func TestReadyEndpoint_Recovery(t *testing.T) {
	failing := true
	s := New()
	s.AddReadinessCheck("postgres", time.Second, func(_ context.Context) error {
		if failing {
			return errors.New("down")
		}
		return nil
	})
	s.SetReady(true)

	s.runAll(context.Background())
	assert.False(t, s.IsReady())

	failing = false
	s.runAll(context.Background())
	assert.True(t, s.IsReady())
}

func TestIsReady(t *testing.T) {
	s := New()
	s.AddReadinessCheck("postgres", time.Second, passingCheck())
	s.runAll(context.Background())

	assert.False(t, s.IsReady())

	s.SetReady(true)
	assert.True(t, s.IsReady())

	s.SetReady(false)
	assert.False(t, s.IsReady())
}

func TestStartStop(t *testing.T) {
	s := New()
	s.AddLivenessCheck("goroutines", time.Second, passingCheck())

	s.Start(context.Background(), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	w := httptest.NewRecorder()
	s.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// Stop is idempotent.
	s.Stop()
	s.Stop()
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	s.AddLivenessCheck("goroutines", time.Second, failingCheck("err"))
	s.AddReadinessCheck("postgres", time.Second, passingCheck())
	s.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx, 5*time.Millisecond)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				s.IsReady()

				w := httptest.NewRecorder()
				s.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

				w = httptest.NewRecorder()
				s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			}
		}()
	}
	wg.Wait()
	s.Stop()
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))

	err := GoroutineCountCheck(0)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds threshold")
}
