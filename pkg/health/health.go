// Package health exposes Kubernetes-style /livez and /readyz probe endpoints.
//
// Checks are registered up front and then executed together on a single
// ticker loop. Probe handlers read the most recent results, they never run
// checks inline, so a slow dependency cannot stall the kubelet.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes a single component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

type probeKind int

const (
	kindLiveness probeKind = iota
	kindReadiness
)

type probe struct {
	name    string
	kind    probeKind
	timeout time.Duration
	check   CheckFunc
}

// Service runs registered probes in the background and serves their results.
type Service struct {
	ready  atomic.Bool
	probes []probe

	mu      sync.RWMutex
	results map[string]error
	cancel  context.CancelFunc
	done    chan struct{}
}

// New returns a Service with no probes registered. The service reports
// not-ready until SetReady(true) is called.
func New() *Service {
	return &Service{results: make(map[string]error)}
}

// AddLivenessCheck registers a probe that gates /livez. Register all probes
// before calling Start.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	s.probes = append(s.probes, probe{name: name, kind: kindLiveness, timeout: timeout, check: check})
}

// AddReadinessCheck registers a probe that gates /readyz.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	s.probes = append(s.probes, probe{name: name, kind: kindReadiness, timeout: timeout, check: check})
}

// Start runs every registered probe once, then again at each interval tick,
// until the context is cancelled or Stop is called.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.runAll(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runAll(ctx)
			}
		}
	}()
}

func (s *Service) runAll(ctx context.Context) {
	for _, p := range s.probes {
		probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.check(probeCtx)
		cancel()

		s.mu.Lock()
		s.results[p.name] = err
		s.mu.Unlock()
	}
}

// SetReady flips the manual readiness gate. Call with false during graceful
// shutdown so load balancers stop routing new traffic.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady reports whether the manual gate is open and every readiness probe
// passed on its last run.
func (s *Service) IsReady() bool {
	if !s.ready.Load() {
		return false
	}
	return len(s.failures(kindReadiness)) == 0
}

// Stop cancels the background loop and waits for it to exit. Safe to call
// multiple times.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (s *Service) failures(kind probeKind) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string)
	for _, p := range s.probes {
		if p.kind != kind {
			continue
		}
		if err, ok := s.results[p.name]; ok && err != nil {
			out[p.name] = err.Error()
		}
	}
	return out
}

type probeResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 when all liveness probes pass, 503 with a
// per-check failure map otherwise.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeProbe(w, s.failures(kindLiveness))
}

// ReadyEndpoint serves /readyz: 200 when the manual gate is open and all
// readiness probes pass, 503 with details otherwise.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := s.failures(kindReadiness)
	if !s.ready.Load() {
		failures["_gate"] = "service is not ready"
	}
	writeProbe(w, failures)
}

func writeProbe(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := probeResponse{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp = probeResponse{Status: "unhealthy", Checks: failures}
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
