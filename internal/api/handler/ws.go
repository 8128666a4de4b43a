package handler

import (
	"net/http"

	"kiitcms/backend/internal/feedhub"
	"kiitcms/backend/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades to a live list session for the authenticated caller.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	rc := RoleContextFrom(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := feedhub.NewWebSocketClient(conn, h.Hub, rc, h.Engine, h.Stats)
	if !h.Hub.Register(client) {
		client.Close()
		conn.Close()
	}
}
