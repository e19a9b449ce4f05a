// Package auth guards the device API with a shared key.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/penosext/pentools/internal/logging"
	"go.uber.org/zap"
)

// Config configures APIKeyMiddleware.
type Config struct {
	// Key is the shared secret. Empty disables authentication.
	Key string
	// Skipper exempts requests, e.g. /health and /metrics.
	Skipper middleware.Skipper
}

// KeyFromRequest extracts the key from X-API-Key, a Bearer Authorization
// header, or the api_key query parameter used by websocket clients.
func KeyFromRequest(c echo.Context) string {
	if k := c.Request().Header.Get("X-API-Key"); k != "" {
		return k
	}
	if h := c.Request().Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.QueryParam("api_key")
}

// APIKeyMiddleware rejects requests without the configured key: 401 when
// missing, 403 when wrong.
func APIKeyMiddleware(cfg Config) echo.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = middleware.DefaultSkipper
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Key == "" || cfg.Skipper(c) {
				return next(c)
			}

			provided := KeyFromRequest(c)
			if provided == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "missing API key",
				})
			}

			if subtle.ConstantTimeCompare([]byte(provided), []byte(cfg.Key)) != 1 {
				logging.Warn("rejected API key",
					zap.String("remote", c.RealIP()),
					zap.String("path", c.Path()))
				return c.JSON(http.StatusForbidden, map[string]string{
					"error": "invalid API key",
				})
			}

			return next(c)
		}
	}
}

// SkipPaths returns a Skipper that exempts the exact request paths given.
func SkipPaths(paths ...string) middleware.Skipper {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return func(c echo.Context) bool {
		_, ok := set[c.Request().URL.Path]
		return ok
	}
}
