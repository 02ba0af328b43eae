package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/waduh12345/hrbalife-sub001/internal/platform/requestctx"
)

func newTestManager(t *testing.T, now time.Time) *SessionManager {
	t.Helper()
	manager, err := NewSessionManager("test-signing-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewSessionManager returned error: %v", err)
	}
	return manager.WithClock(func() time.Time { return now })
}

func TestSessionManagerIssueAndVerify(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	manager := newTestManager(t, now)

	token, err := manager.Issue(Identity{Email: "  shopper@example.com ", Name: "Dewi", Phone: "+628123456789"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	identity, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if identity.Email != "shopper@example.com" {
		t.Errorf("unexpected email: %s", identity.Email)
	}
	if identity.Name != "Dewi" {
		t.Errorf("unexpected name: %s", identity.Name)
	}
	if identity.Phone != "+628123456789" {
		t.Errorf("unexpected phone: %s", identity.Phone)
	}
}

func TestSessionManagerVerifyExpired(t *testing.T) {
	issuedAt := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	manager := newTestManager(t, issuedAt)

	token, err := manager.Issue(Identity{Email: "shopper@example.com"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	manager.WithClock(func() time.Time { return issuedAt.Add(2 * time.Hour) })
	if _, err := manager.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestSessionManagerVerifyGarbage(t *testing.T) {
	manager := newTestManager(t, time.Now())
	if _, err := manager.Verify("not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestOptionalSessionPassesGuestsThrough(t *testing.T) {
	manager := newTestManager(t, time.Now())

	var sawIdentity bool
	handler := OptionalSession(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawIdentity = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if sawIdentity {
		t.Error("expected no identity for guest request")
	}
}

func TestOptionalSessionAttachesIdentity(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	manager := newTestManager(t, now)
	token, err := manager.Issue(Identity{Email: "shopper@example.com"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	var gotEmail string
	handler := OptionalSession(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity, ok := IdentityFromContext(r.Context()); ok {
			gotEmail = identity.Email
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotEmail != "shopper@example.com" {
		t.Errorf("expected identity email, got %q", gotEmail)
	}
}

func TestOptionalSessionRejectsBadToken(t *testing.T) {
	manager := newTestManager(t, time.Now())

	handler := OptionalSession(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decoding error payload: %v", err)
	}
	if payload["error"] != "unauthenticated" {
		t.Errorf("unexpected error code: %v", payload["error"])
	}
}

func TestRequireSessionRejectsMissingIdentity(t *testing.T) {
	handler := RequireSession()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestSessionKeyMiddleware(t *testing.T) {
	var got string
	handler := SessionKeyMiddleware("X-Session-Key")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = requestctx.SessionKey(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Session-Key", "  sess-01J8ZA  ")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got != "sess-01J8ZA" {
		t.Errorf("expected trimmed session key, got %q", got)
	}
}
