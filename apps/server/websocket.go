package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/ridwanf/dmrelay/pkg/auth"
	"github.com/ridwanf/dmrelay/pkg/delivery"
	"github.com/ridwanf/dmrelay/pkg/model"
	"github.com/ridwanf/dmrelay/pkg/presence"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Outbound event buffer per connection.
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced at the HTTP layer
	},
}

// sendRequest is the only client-to-server frame once a connection is
// admitted.
type sendRequest struct {
	To      int64  `json:"to"`
	Content string `json:"content"`
}

// Client is the middleman between one websocket connection and the delivery
// router. It implements presence.Conn.
type Client struct {
	userID int64
	conn   *websocket.Conn
	send   chan model.Event
}

// Deliver queues an event for the write pump. Non-blocking: a slow or stuck
// client loses live pushes, not persisted history.
func (c *Client) Deliver(ev model.Event) bool {
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

type wsHandler struct {
	issuer   *auth.Issuer
	registry *presence.Registry
	mirror   *presence.Mirror // nil when redis is not configured
	router   *delivery.Router
	logger   *slog.Logger
}

// handle is the connection gatekeeper plus upgrade. The credential is
// checked exactly once, before the upgrade; a rejected connection never
// touches the registry.
func (h *wsHandler) handle(c echo.Context) error {
	tokenString, err := auth.TokenFromRequest(c.Request())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "token required")
	}
	claims, err := h.issuer.ValidateToken(tokenString)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the handshake error.
		return nil
	}

	client := &Client{
		userID: claims.UserID,
		conn:   conn,
		send:   make(chan model.Event, sendBuffer),
	}
	h.registry.Register(client.userID, client)
	if h.mirror != nil {
		h.mirror.SetOnline(context.Background(), client.userID)
	}
	h.logger.Info("connection admitted", "user_id", client.userID)

	go h.writePump(client)
	go h.readPump(client)
	return nil
}

// readPump processes inbound send requests strictly in arrival order; there
// is no queue that could reorder two sends from the same connection.
func (h *wsHandler) readPump(c *Client) {
	defer func() {
		if h.registry.Unregister(c.userID, c) {
			if h.mirror != nil {
				h.mirror.SetOffline(context.Background(), c.userID)
			}
		}
		c.conn.Close()
		h.logger.Info("connection closed", "user_id", c.userID)
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn("read error", "user_id", c.userID, "error", err)
			}
			break
		}

		var req sendRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			c.Deliver(model.ErrorEvent(model.CodeValidation, "malformed send request"))
			continue
		}

		// Not the connection's context: a close mid-send must not cancel
		// persistence.
		if _, err := h.router.Send(context.Background(), c.userID, req.To, req.Content); err != nil {
			switch {
			case errors.Is(err, model.ErrValidation):
				c.Deliver(model.ErrorEvent(model.CodeValidation, "empty content or missing recipient"))
			case errors.Is(err, model.ErrStorageUnavailable):
				c.Deliver(model.ErrorEvent(model.CodeStorageUnavailable, "message was not saved, try again"))
				h.logger.Error("send failed", "user_id", c.userID, "error", err)
			default:
				h.logger.Error("send failed", "user_id", c.userID, "error", err)
			}
		}
	}
}

// writePump serializes all writes to the connection, including pings. One
// event per frame.
func (h *wsHandler) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case ev := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
