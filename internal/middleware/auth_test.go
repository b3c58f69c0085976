package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	tokens := NewTokenStore(time.Hour)
	valid := tokens.Issue()
	revoked := tokens.Issue()
	tokens.Revoke(revoked)
	h := AuthMiddleware(tokens, ok)

	tests := []struct {
		name     string
		path     string
		cookie   string
		expected int
	}{
		{"login page", "/login", "", http.StatusOK},
		{"metrics", "/metrics", "", http.StatusOK},
		{"static", "/static/app.js", "", http.StatusOK},
		{"api without cookie", "/api/pipeline/status", "", http.StatusUnauthorized},
		{"page without cookie", "/", "", http.StatusSeeOther},
		{"api with issued token", "/api/pipeline/status", valid, http.StatusOK},
		{"api with forged token", "/api/alert/test", "true", http.StatusUnauthorized},
		{"api with revoked token", "/api/pipeline/start", revoked, http.StatusUnauthorized},
		{"page with forged token", "/", "true", http.StatusSeeOther},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if tt.cookie != "" {
			req.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.expected {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.expected, rec.Code)
		}
	}
}

func TestTokenStore_Expiry(t *testing.T) {
	now := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	tokens := NewTokenStore(time.Minute)
	tokens.now = func() time.Time { return now }

	token := tokens.Issue()
	if !tokens.Valid(token) {
		t.Fatal("Expected fresh token to be valid")
	}

	now = now.Add(2 * time.Minute)
	if tokens.Valid(token) {
		t.Error("Expected expired token to be rejected")
	}
	if tokens.Valid("") {
		t.Error("Expected empty token to be rejected")
	}
}
