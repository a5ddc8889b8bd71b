package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"motion-logger/controller"
	"motion-logger/utils"
)

const writeWait = 5 * time.Second

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16384,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h Handlers) streamStatus(c echo.Context) error {
	return stream(c, h.Sequence.Events(), 16)
}

func (h Handlers) streamSamples(c echo.Context) error {
	if h.Sensors == nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "no sensors configured"})
	}
	return stream(c, h.Sensors.Samples(), 512)
}

// stream forwards every value published on hub to a WebSocket client as a
// JSON text frame until the client goes away. The latest value, if any, is
// sent first.
func stream[T any](c echo.Context, hub *controller.Hub[T], buffer int) error {
	conn, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		utils.L().Warn("ws upgrade %s: %v", c.Path(), err)
		return nil
	}
	defer func() { _ = conn.Close() }()

	values, unsubscribe := hub.Subscribe(buffer)
	defer unsubscribe()

	// The reader only notices the close frame; clients send nothing else.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if v, ok := hub.Latest(); ok {
		if err := writeJSON(conn, v); err != nil {
			return nil
		}
	}
	for {
		select {
		case <-gone:
			return nil
		case v, ok := <-values:
			if !ok {
				return nil
			}
			if err := writeJSON(conn, v); err != nil {
				utils.L().Debug("ws %s: %v", c.Path(), err)
				return nil
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}
