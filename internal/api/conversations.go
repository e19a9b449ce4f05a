package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/penosext/pentools/pkg/types"
)

func (s *Server) listConversations(c echo.Context) error {
	if s.deps.Chat == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	list, err := s.deps.Chat.List(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) createConversation(c echo.Context) error {
	if s.deps.Chat == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	var req types.ConversationRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}
	conv, err := s.deps.Chat.Create(c.Request().Context(), req.Title)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusCreated, conv)
}

func (s *Server) loadConversation(c echo.Context) error {
	if s.deps.Chat == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	conv, err := s.deps.Chat.Load(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}

func (s *Server) renameConversation(c echo.Context) error {
	if s.deps.Chat == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	var req types.ConversationRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}
	conv, err := s.deps.Chat.Rename(c.Request().Context(), c.Param("id"), req.Title)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}

func (s *Server) deleteConversation(c echo.Context) error {
	if s.deps.Chat == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	if err := s.deps.Chat.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return errorJSON(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
