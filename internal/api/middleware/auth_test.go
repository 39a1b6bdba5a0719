package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKey(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		presented  string
		wantStatus int
	}{
		{
			name:       "empty configured key disables auth",
			configured: "",
			presented:  "",
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing key",
			configured: "secret",
			presented:  "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong key",
			configured: "secret",
			presented:  "guess",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "correct key",
			configured: "secret",
			presented:  "secret",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := APIKey(tt.configured)(okHandler())

			req := httptest.NewRequest(http.MethodGet, "/api/v1/providers", nil)
			if tt.presented != "" {
				req.Header.Set(APIKeyHeader, tt.presented)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen == "" {
		t.Error("no request ID in context")
	}
	if got := rec.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("response header %s = %q, want %q", RequestIDHeader, got, seen)
	}

	// A caller-supplied ID is kept
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "req-42" {
		t.Errorf("request ID = %q, want req-42", seen)
	}
}
