package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/waduh12345/hrbalife-sub001/internal/platform/httpx"
)

// BuildInfo describes the running binary for health reporting.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// ReadinessChecker probes a backing dependency; a non-nil error marks it unready.
type ReadinessChecker interface {
	Check(ctx context.Context) error
}

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	build   BuildInfo
	checker ReadinessChecker
	clock   func() time.Time
}

// HealthOption customises the health handlers.
type HealthOption func(*HealthHandlers)

// NewHealthHandlers constructs the probe handlers.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{
		build: BuildInfo{StartedAt: time.Now()},
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.clock == nil {
		h.clock = time.Now
	}
	return h
}

// WithHealthBuildInfo sets the build metadata reported by the probes.
func WithHealthBuildInfo(info BuildInfo) HealthOption {
	return func(h *HealthHandlers) {
		h.build = info
	}
}

// WithHealthChecker wires the dependency probe used by /readyz.
func WithHealthChecker(checker ReadinessChecker) HealthOption {
	return func(h *HealthHandlers) {
		h.checker = checker
	}
}

// WithHealthClock overrides the time source, used in tests.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		h.clock = clock
	}
}

// Healthz reports liveness with build metadata. It never consults dependencies.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock()
	payload := map[string]any{
		"status":    "ok",
		"timestamp": now.UTC().Format(time.RFC3339),
	}
	if h.build.Version != "" {
		payload["version"] = h.build.Version
	}
	if h.build.CommitSHA != "" {
		payload["commit_sha"] = h.build.CommitSHA
	}
	if h.build.Environment != "" {
		payload["environment"] = h.build.Environment
	}
	if !h.build.StartedAt.IsZero() {
		payload["uptime"] = now.Sub(h.build.StartedAt).String()
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

// Readyz probes the cart store. A failing probe returns 503 so the instance is
// pulled from rotation before shoppers hit it.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.clock()

	if h.checker == nil {
		httpx.WriteError(ctx, w, httpx.NewError("not_ready", "readiness checker not configured", http.StatusServiceUnavailable))
		return
	}

	started := now
	if err := h.checker.Check(ctx); err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, map[string]any{
			"status": "degraded",
			"checks": map[string]any{
				"redis": map[string]any{"status": "degraded", "error": err.Error()},
			},
			"timestamp": now.UTC().Format(time.RFC3339),
		})
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status": "ok",
		"checks": map[string]any{
			"redis": map[string]any{"status": "ok", "latency": h.clock().Sub(started).String()},
		},
		"timestamp": now.UTC().Format(time.RFC3339),
	})
}
