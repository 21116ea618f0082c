/*
Package ws binds push endpoints to gorilla websocket connections.

Each upgraded socket gets one read loop (the handler goroutine) and one ping
goroutine. Writes from the registry, the ping loop and Close are serialized
by the connection's own mutex.
*/
package ws

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"orderhub/api/response"
	"orderhub/config"
	"orderhub/infrastructure/push"
	"orderhub/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed atomic.Bool
}

func (c *conn) IsOpen() bool { return !c.closed.Load() }

func (c *conn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return push.ErrConnClosed
	}
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return push.ErrConnClosed
	}
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.PingMessage, nil)
}

// Close sends a close frame once and releases the socket.
func (c *conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.mu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(c.writeTimeout))
	c.mu.Unlock()
	return c.ws.Close()
}

type Handler struct {
	endpoint *push.Endpoint
	cfg      config.WebSocketConfig
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewHandler(endpoint *push.Endpoint, cfg config.WebSocketConfig) *Handler {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = 4096
	}
	return &Handler{
		endpoint: endpoint,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin checks belong to the CORS layer in front of the engine.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: logger.Named("ws"),
	}
}

// Serve returns a gin handler that upgrades the request and runs the session
// for the party id found in the named path parameter.
func (h *Handler) Serve(param string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		partyID, err := strconv.ParseInt(ctx.Param(param), 10, 64)
		if err != nil || partyID <= 0 {
			response.HandleError(ctx, err, param+" must be a positive integer", http.StatusBadRequest)
			return
		}

		ws, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
		if err != nil {
			h.log.Warn("websocket upgrade failed", zap.Int64("party_id", partyID), zap.Error(err))
			return
		}
		h.run(partyID, &conn{ws: ws, writeTimeout: h.cfg.WriteTimeout})
	}
}

func (h *Handler) run(partyID int64, c *conn) {
	done := make(chan struct{})
	defer func() {
		close(done)
		h.endpoint.OnClose(partyID, c)
		_ = c.Close()
	}()

	h.endpoint.OnOpen(partyID, c)
	go h.keepAlive(partyID, c, done)

	c.ws.SetReadLimit(h.cfg.ReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.endpoint.OnError(partyID, err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
		h.endpoint.OnMessage(partyID, string(message))
	}
}

func (h *Handler) keepAlive(partyID int64, c *conn, done <-chan struct{}) {
	ticker := time.NewTicker(h.cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				h.log.Debug("ping failed", zap.Int64("party_id", partyID), zap.Error(err))
				return
			}
		}
	}
}
