package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) updateState(c echo.Context) error {
	if s.deps.Update == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	return c.JSON(http.StatusOK, s.deps.Update.State())
}

func (s *Server) updateCheck(c echo.Context) error {
	if s.deps.Update == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	state, err := s.deps.Update.Check(c.Request().Context())
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, state)
}

func (s *Server) updateInstall(c echo.Context) error {
	if s.deps.Update == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	state, err := s.deps.Update.DownloadAndInstall(c.Request().Context())
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, state)
}

func (s *Server) updateCleanup(c echo.Context) error {
	if s.deps.Update == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	if err := s.deps.Update.Cleanup(c.Request().Context()); err != nil {
		return errorJSON(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
