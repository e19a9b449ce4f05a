package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/penosext/pentools/internal/logging"
	"github.com/penosext/pentools/pkg/types"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const streamWriteWait = 10 * time.Second

// terminalStream pushes every new terminal line as JSON. Text frames sent by
// the client are submitted as terminal input.
func (s *Server) terminalStream(c echo.Context) error {
	if s.deps.Terminal == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	term := s.deps.Terminal

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	lines := term.Subscribe()
	defer term.Unsubscribe(lines)

	ctx := c.Request().Context()

	// Read from WebSocket -> submit to terminal
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var req types.CommandRequest
			if err := ws.ReadJSON(&req); err != nil {
				return
			}
			// rejections are already reported as terminal lines
			if _, err := term.Submit(ctx, req.Input); err != nil {
				logging.Debug("stream submit rejected", zap.Error(err))
			}
		}
	}()

	// Terminal lines -> WebSocket
	for {
		select {
		case <-done:
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			ws.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := ws.WriteJSON(line); err != nil {
				return nil
			}
		}
	}
}
