package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := AuthMiddleware(ok)

	tests := []struct {
		name     string
		path     string
		cookie   string
		expected int
	}{
		{"kiosk page is public", "/kiosk", "", http.StatusOK},
		{"kiosk websocket is public", "/api/kiosk", "", http.StatusOK},
		{"static assets are public", "/static/kiosk.js", "", http.StatusOK},
		{"login page is public", "/login", "", http.StatusOK},
		{"camera upload is public", "/api/camera/upload", "", http.StatusOK},
		{"api requires login", "/api/snapshots", "", http.StatusUnauthorized},
		{"pages redirect to login", "/snapshots", "", http.StatusSeeOther},
		{"logs require login", "/logs/info", "", http.StatusSeeOther},
		{"logged in", "/api/snapshots", SessionToken(), http.StatusOK},
		{"forged cookie", "/api/snapshots", "true", http.StatusUnauthorized},
		{"token prefix", "/api/snapshots", SessionToken()[:8], http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AuthCookie, Value: tt.cookie})
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expected {
				t.Errorf("GET %s: expected status %d, got %d", tt.path, tt.expected, rr.Code)
			}
		})
	}
}
