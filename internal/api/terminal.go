package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/penosext/pentools/pkg/types"
)

func (s *Server) submitCommand(c echo.Context) error {
	if s.deps.Terminal == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}

	var req types.CommandRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	result, err := s.deps.Terminal.Submit(c.Request().Context(), req.Input)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) terminalLines(c echo.Context) error {
	if s.deps.Terminal == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"cwd":   s.deps.Terminal.Cwd(),
		"busy":  s.deps.Terminal.Busy(),
		"lines": s.deps.Terminal.Lines(),
	})
}

func (s *Server) terminalHistory(c echo.Context) error {
	if s.deps.Terminal == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	return c.JSON(http.StatusOK, map[string][]string{
		"history": s.deps.Terminal.History(),
	})
}

func (s *Server) cancelCommand(c echo.Context) error {
	if s.deps.Terminal == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	return c.JSON(http.StatusOK, map[string]bool{
		"cancelled": s.deps.Terminal.Cancel(),
	})
}

func (s *Server) commandLog(c echo.Context) error {
	if s.deps.Commands == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}

	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return badRequest(c, "limit must be a positive integer")
		}
		limit = n
	}

	entries, err := s.deps.Commands.RecentCommands(c.Request().Context(), limit)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}
