// Package httpx renders the JSON error envelope shared by every endpoint:
// {"error", "message", "status"} plus request and trace correlation ids when
// the middleware stack provided them.
package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/waduh12345/hrbalife-sub001/internal/platform/requestctx"
)

// Error is one API error: a stable machine code, a human message, and the
// HTTP status it maps to. Details are merged into the envelope top-level, so
// keys must not collide with the reserved envelope fields.
type Error struct {
	Code    string
	Message string
	Status  int
	Details map[string]any
}

// NewError builds an Error, bounding both strings for safe logging and relay.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{
		Code:    trimField(code, 80),
		Message: trimField(message, 512),
		Status:  status,
	}
}

// WithDetails attaches extra envelope fields, for example the missing
// checkout preconditions. The map is copied; later caller mutation is safe.
func (e Error) WithDetails(details map[string]any) Error {
	if len(details) == 0 {
		return e
	}
	merged := make(map[string]any, len(details))
	for k, v := range details {
		merged[k] = v
	}
	e.Details = merged
	return e
}

// WriteError emits the envelope, resolving request and trace ids from the
// context so handlers never thread them manually.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	envelope := map[string]any{
		"error":   err.Code,
		"message": err.Message,
		"status":  status,
	}
	if requestID := trimField(middleware.GetReqID(ctx), 80); requestID != "" {
		envelope["request_id"] = requestID
	}
	if traceID := trimField(requestctx.TraceID(ctx), 64); traceID != "" {
		envelope["trace_id"] = traceID
	}
	for k, v := range err.Details {
		envelope[k] = v
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope)
}

func trimField(value string, limit int) string {
	value = strings.TrimSpace(strings.NewReplacer("\n", " ", "\r", " ").Replace(value))
	if limit > 0 && len(value) > limit {
		value = value[:limit]
	}
	return value
}
