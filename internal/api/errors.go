package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/penosext/pentools/internal/chat"
	"github.com/penosext/pentools/internal/devicectl"
	"github.com/penosext/pentools/internal/filemanager"
	"github.com/penosext/pentools/internal/logging"
	"github.com/penosext/pentools/internal/store"
	"github.com/penosext/pentools/internal/terminal"
	"github.com/penosext/pentools/internal/toolshell"
	"github.com/penosext/pentools/internal/update"
	"go.uber.org/zap"
)

var errNotAvailable = map[string]string{"error": "component not configured"}

// statusFor maps component errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, terminal.ErrBusy),
		errors.Is(err, filemanager.ErrBusy),
		errors.Is(err, update.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, filemanager.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, filemanager.ErrNotFound),
		errors.Is(err, toolshell.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, terminal.ErrEmptyInput),
		errors.Is(err, filemanager.ErrInvalidName),
		errors.Is(err, filemanager.ErrUnsupported),
		errors.Is(err, chat.ErrInvalidTitle),
		errors.Is(err, toolshell.ErrInvalidName),
		errors.Is(err, toolshell.ErrEmpty),
		errors.Is(err, update.ErrNoRelease),
		errors.Is(err, update.ErrNoAsset),
		errors.Is(err, update.ErrNoDownload),
		errors.Is(err, devicectl.ErrInvalidBrightness),
		errors.Is(err, devicectl.ErrInvalidTimeout):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func errorJSON(c echo.Context, err error) error {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logging.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.JSON(code, map[string]string{"error": err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}

// requestLogger logs each request through zap.
func requestLogger() echo.MiddlewareFunc {
	log := logging.Named("http")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			log.Debug("request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)))
			return nil
		}
	}
}
