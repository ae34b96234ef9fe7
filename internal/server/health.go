// Package server provides the worker's HTTP health and metrics endpoints
// and its graceful shutdown.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"
)

type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// HealthCheck is the result of one named check.
type HealthCheck struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthResponse is the body of every health endpoint.
type HealthResponse struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version,omitempty"`
	Checks    []HealthCheck `json:"checks,omitempty"`
}

// HealthChecker performs one check.
type HealthChecker func(ctx context.Context) HealthCheck

// HealthServer serves /health, /ready and /live (plus the Kubernetes
// aliases) and any extra handlers mounted on it.
type HealthServer struct {
	mu      sync.RWMutex
	checks  map[string]HealthChecker
	extra   map[string]http.Handler
	version string
	ready   bool
	live    bool

	srvMu sync.Mutex
	srv   *http.Server
}

type HealthConfig struct {
	Version string
}

func NewHealthServer(config *HealthConfig) *HealthServer {
	version := ""
	if config != nil {
		version = config.Version
	}
	return &HealthServer{
		checks:  make(map[string]HealthChecker),
		extra:   make(map[string]http.Handler),
		version: version,
		live:    true,
	}
}

func (s *HealthServer) RegisterCheck(name string, checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = checker
}

// Mount serves h at path next to the health endpoints, e.g. /metrics.
func (s *HealthServer) Mount(path string, h http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extra[path] = h
}

func (s *HealthServer) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

func (s *HealthServer) SetLive(live bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = live
}

func (s *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/live", s.handleLive)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/livez", s.handleLive)

	s.mu.RLock()
	for path, h := range s.extra {
		mux.Handle(path, h)
	}
	s.mu.RUnlock()
	return mux
}

// ListenAndServe serves until Shutdown is called. A clean shutdown returns
// nil.
func (s *HealthServer) ListenAndServe(addr string) error {
	if addr == "" {
		addr = ":8081"
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	s.srvMu.Lock()
	s.srv = srv
	s.srvMu.Unlock()

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server, if it is running.
func (s *HealthServer) Shutdown(ctx context.Context) error {
	s.srvMu.Lock()
	srv := s.srv
	s.srvMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Check runs every registered check, in name order.
func (s *HealthServer) Check(ctx context.Context) HealthResponse {
	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	checks := make(map[string]HealthChecker, len(s.checks))
	for k, v := range s.checks {
		checks[k] = v
	}
	version := s.version
	s.mu.RUnlock()
	sort.Strings(names)

	resp := HealthResponse{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   version,
		Checks:    make([]HealthCheck, 0, len(names)),
	}
	for _, name := range names {
		check := checks[name](ctx)
		check.Name = name
		resp.Checks = append(resp.Checks, check)

		switch {
		case check.Status == HealthStatusUnhealthy:
			resp.Status = HealthStatusUnhealthy
		case check.Status == HealthStatusDegraded && resp.Status == HealthStatusHealthy:
			resp.Status = HealthStatusDegraded
		}
	}
	return resp
}

func (s *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := s.Check(ctx)
	code := http.StatusOK
	if resp.Status == HealthStatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func (s *HealthServer) handleReady(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()
	probe(w, ready)
}

func (s *HealthServer) handleLive(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	live := s.live
	s.mu.RUnlock()
	probe(w, live)
}

func probe(w http.ResponseWriter, ok bool) {
	resp := HealthResponse{Status: HealthStatusHealthy, Timestamp: time.Now().UTC()}
	if !ok {
		resp.Status = HealthStatusUnhealthy
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// ConnectivityChecker reports a dependency as unhealthy when checkFn fails.
func ConnectivityChecker(what string, checkFn func(ctx context.Context) error) HealthChecker {
	return func(ctx context.Context) HealthCheck {
		if err := checkFn(ctx); err != nil {
			return HealthCheck{
				Status:  HealthStatusUnhealthy,
				Message: what + " unreachable: " + err.Error(),
			}
		}
		return HealthCheck{Status: HealthStatusHealthy, Message: what + " OK"}
	}
}

// OutputDirChecker verifies that units can be written below dir by creating
// and removing a probe file. A missing directory is created.
func OutputDirChecker(fsys afero.Fs, dir string) HealthChecker {
	return func(ctx context.Context) HealthCheck {
		details := map[string]string{"dir": dir}
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return HealthCheck{Status: HealthStatusUnhealthy, Message: err.Error(), Details: details}
		}
		probe := filepath.Join(dir, fmt.Sprintf(".framebind-probe-%d", time.Now().UnixNano()))
		if err := afero.WriteFile(fsys, probe, nil, 0o644); err != nil {
			return HealthCheck{Status: HealthStatusUnhealthy, Message: "output not writable: " + err.Error(), Details: details}
		}
		if err := fsys.Remove(probe); err != nil {
			return HealthCheck{Status: HealthStatusDegraded, Message: "probe not removed: " + err.Error(), Details: details}
		}
		return HealthCheck{Status: HealthStatusHealthy, Message: "output writable", Details: details}
	}
}

// OptionalChecker reports a dependency that is not configured as degraded
// instead of running check.
func OptionalChecker(configured bool, what string, check HealthChecker) HealthChecker {
	return func(ctx context.Context) HealthCheck {
		if !configured {
			return HealthCheck{Status: HealthStatusDegraded, Message: what + " not configured"}
		}
		return check(ctx)
	}
}
