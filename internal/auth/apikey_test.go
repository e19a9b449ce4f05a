package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newEcho(cfg Config) *echo.Echo {
	e := echo.New()
	e.Use(APIKeyMiddleware(cfg))
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.GET("/test", ok)
	e.GET("/health", ok)
	return e
}

func TestAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		path   string
		header map[string]string
		want   int
	}{
		{"no key configured", "", "/test", nil, http.StatusOK},
		{"header", "secret", "/test", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"bearer", "secret", "/test", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
		{"query", "secret", "/test?api_key=secret", nil, http.StatusOK},
		{"missing", "secret", "/test", nil, http.StatusUnauthorized},
		{"wrong", "secret", "/test", map[string]string{"X-API-Key": "nope"}, http.StatusForbidden},
		{"basic auth is not a key", "secret", "/test", map[string]string{"Authorization": "Basic c2VjcmV0"}, http.StatusUnauthorized},
		{"skipped path", "secret", "/health", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEcho(Config{Key: tt.key, Skipper: SkipPaths("/health")})
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d (%s)", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}
