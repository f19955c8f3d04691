package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func okHandler(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func TestIdentity_BearerToken(t *testing.T) {
	auth := NewJWTAuth("test-secret")
	userID := uuid.New()
	token, err := auth.GenerateAccessToken(userID, "ana@example.com", "Ana")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error: %v", err)
	}

	var got bool
	h := auth.Identity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := GetIdentity(r.Context())
		got = ok && identity.IsAuthenticated && identity.ID == userID.String() && identity.DisplayName == "Ana"
		if GetUserID(r.Context()) != userID {
			t.Errorf("expected user id in context")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(DeviceIDHeader, "device-should-be-ignored")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !got {
		t.Fatalf("expected authenticated identity from token")
	}
}

func TestIdentity_GuestFromHeaderAndQuery(t *testing.T) {
	auth := NewJWTAuth("test-secret")

	tests := []struct {
		name     string
		header   string
		query    string
		wantID   string
		wantName string
	}{
		{"header", "a1b2c3d4e5", "", "guest:a1b2c3d4e5", "Guest-a1b2c3"},
		{"query", "", "xyz", "guest:xyz", "Guest-xyz"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := auth.Identity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				identity, ok := GetIdentity(r.Context())
				if !ok || identity.IsAuthenticated || identity.ID != tc.wantID || identity.DisplayName != tc.wantName {
					t.Errorf("unexpected identity %+v", identity)
				}
			}))
			target := "/"
			if tc.query != "" {
				target += "?device_id=" + tc.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tc.header != "" {
				req.Header.Set(DeviceIDHeader, tc.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
		})
	}
}

func TestIdentity_InvalidTokenRejected(t *testing.T) {
	auth := NewJWTAuth("test-secret")
	other := NewJWTAuth("other-secret")
	token, _ := other.GenerateAccessToken(uuid.New(), "x@example.com", "X")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	auth.Identity(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRequireIdentity(t *testing.T) {
	auth := NewJWTAuth("test-secret")
	h := auth.Identity(RequireIdentity(http.HandlerFunc(okHandler)))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected anonymous request to be rejected, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DeviceIDHeader, "abc")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected guest to pass, got %d", rr.Code)
	}
}

func TestMiddleware_RequiresToken(t *testing.T) {
	auth := NewJWTAuth("test-secret")
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DeviceIDHeader, "abc")
	auth.Middleware(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a guest on an account route, got %d", rr.Code)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rr.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected generated request id to be echoed")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if seen != "abc-123" {
		t.Fatalf("expected caller id to be kept, got %q", seen)
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"http://localhost:3000"})(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent || rr.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("unexpected preflight response: %d %v", rr.Code, rr.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected origin allowed")
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("k") || !rl.Allow("k") {
		t.Fatalf("first two hits should pass")
	}
	if rl.Allow("k") {
		t.Fatalf("third hit should be limited")
	}
	if !rl.Allow("other") {
		t.Fatalf("keys are independent")
	}

	now = now.Add(2 * time.Minute)
	if !rl.Allow("k") {
		t.Fatalf("window should reset")
	}
}
