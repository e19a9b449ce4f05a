// Package api exposes the device tools over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/penosext/pentools/internal/auth"
	"github.com/penosext/pentools/internal/chat"
	"github.com/penosext/pentools/internal/devicectl"
	"github.com/penosext/pentools/internal/deviceinfo"
	"github.com/penosext/pentools/internal/filemanager"
	"github.com/penosext/pentools/internal/metrics"
	"github.com/penosext/pentools/internal/store"
	"github.com/penosext/pentools/internal/terminal"
	"github.com/penosext/pentools/internal/toolshell"
	"github.com/penosext/pentools/internal/update"
)

// CommandLog lists recently executed shell commands.
type CommandLog interface {
	RecentCommands(ctx context.Context, limit int) ([]store.CommandLogEntry, error)
}

// Deps are the components served by the API. Nil components leave their
// routes answering 503.
type Deps struct {
	Terminal *terminal.Terminal
	Files    *filemanager.Manager
	Device   *deviceinfo.Collector
	Controls *devicectl.Controller
	Update   *update.Checker
	Chat     *chat.Service
	Scripts  *toolshell.Manager
	Commands CommandLog
	APIKey   string
}

// Server holds the API server dependencies.
type Server struct {
	echo *echo.Echo
	deps Deps
}

// NewServer creates a new API server with all routes configured.
func NewServer(deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, deps: deps}

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(metrics.EchoMiddleware())
	e.Use(requestLogger())

	// Health check and metrics (no auth)
	e.GET("/health", s.health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := e.Group("")
	api.Use(auth.APIKeyMiddleware(auth.Config{Key: deps.APIKey}))

	// Terminal
	api.POST("/terminal/commands", s.submitCommand)
	api.GET("/terminal/lines", s.terminalLines)
	api.GET("/terminal/history", s.terminalHistory)
	api.POST("/terminal/cancel", s.cancelCommand)
	api.GET("/terminal/stream", s.terminalStream)
	api.GET("/terminal/log", s.commandLog)

	// Files
	api.GET("/files", s.listFiles)
	api.POST("/files/file", s.createFile)
	api.POST("/files/dir", s.createDir)
	api.POST("/files/rename", s.renameEntry)
	api.DELETE("/files", s.deleteEntry)

	// Device
	api.GET("/device", s.deviceInfo)
	api.GET("/device/diagnostics", s.deviceDiagnostics)
	api.GET("/device/controls", s.deviceControls)
	api.PUT("/device/brightness", s.setBrightness)
	api.PUT("/device/screen-timeout", s.setScreenTimeout)
	api.POST("/device/torch", s.setTorch)

	// Update
	api.GET("/update", s.updateState)
	api.POST("/update/check", s.updateCheck)
	api.POST("/update/install", s.updateInstall)
	api.POST("/update/cleanup", s.updateCleanup)

	// Conversations
	api.GET("/conversations", s.listConversations)
	api.POST("/conversations", s.createConversation)
	api.POST("/conversations/:id/load", s.loadConversation)
	api.PATCH("/conversations/:id", s.renameConversation)
	api.DELETE("/conversations/:id", s.deleteConversation)

	// Toolshell scripts
	api.GET("/scripts", s.listScripts)
	api.POST("/scripts", s.createScript)
	api.POST("/scripts/:name/enable", s.enableScript)
	api.POST("/scripts/:name/disable", s.disableScript)

	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server on the given address.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	resp := map[string]interface{}{"status": "ok"}
	if s.deps.Terminal != nil {
		resp["shell"] = s.deps.Terminal.Initialized()
	}
	return c.JSON(http.StatusOK, resp)
}
