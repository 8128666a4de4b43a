package feedhub

import (
	"context"
	"encoding/json"
	"time"

	"kiitcms/backend/internal/access"
	"kiitcms/backend/internal/logger"
	"kiitcms/backend/internal/query"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// WebSocketClient serves one Session over a websocket connection.
type WebSocketClient struct {
	*Session
	Conn *websocket.Conn
	Hub  *Manager

	ctx    context.Context
	cancel context.CancelFunc
}

func NewWebSocketClient(conn *websocket.Conn, hub *Manager, rc access.RoleContext, engine *query.Engine, stats StatsSource) *WebSocketClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocketClient{
		Session: NewSession(rc, engine, stats),
		Conn:    conn,
		Hub:     hub,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
	go c.ProcessChanges(c.ctx)
}

// Close stops in-flight fetches and unmounts the list. writePump notices and closes the socket.
func (c *WebSocketClient) Close() {
	c.cancel()
	c.Session.Close()
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn().Err(err).Str("client", c.ID()).Msg("feed read failed")
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			logger.Debug().Err(err).Str("client", c.ID()).Msg("undecodable feed command")
			continue
		}
		c.Handle(c.ctx, cmd)
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case env := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteJSON(env); err != nil {
				return
			}

		case <-c.Done():
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
