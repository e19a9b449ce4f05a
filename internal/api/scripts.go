package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/penosext/pentools/pkg/types"
)

func (s *Server) listScripts(c echo.Context) error {
	if s.deps.Scripts == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	scripts, err := s.deps.Scripts.Scan(c.Request().Context())
	if err != nil {
		return errorJSON(c, err)
	}
	if scripts == nil {
		scripts = []types.Script{}
	}
	return c.JSON(http.StatusOK, scripts)
}

func (s *Server) createScript(c echo.Context) error {
	if s.deps.Scripts == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	var req types.ScriptRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}
	script, err := s.deps.Scripts.Create(c.Request().Context(), req.Name, req.Content)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusCreated, script)
}

func (s *Server) enableScript(c echo.Context) error {
	if s.deps.Scripts == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	if err := s.deps.Scripts.Enable(c.Request().Context(), c.Param("name")); err != nil {
		return errorJSON(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) disableScript(c echo.Context) error {
	if s.deps.Scripts == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	if err := s.deps.Scripts.Disable(c.Request().Context(), c.Param("name")); err != nil {
		return errorJSON(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
