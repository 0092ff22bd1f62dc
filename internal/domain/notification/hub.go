package notification

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"zetta/internal/pkg/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
	sendBuffer = 64
)

// MessageFunc answers one client message. A nil reply sends nothing.
type MessageFunc func(userID string, msg WSClientMessage) *WSEvent

// connection represents a single browser tab
type connection struct {
	userID string
	role   string
	conn   *websocket.Conn
	send   chan []byte
}

// Hub fans notification events out to connected browsers.
type Hub struct {
	log *zap.Logger

	mu    sync.RWMutex
	conns map[*connection]struct{}
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{log: log, conns: make(map[*connection]struct{})}
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	metrics.HubConnections.Set(float64(n))
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	if _, ok := h.conns[c]; ok {
		delete(h.conns, c)
		close(c.send)
	}
	n := len(h.conns)
	h.mu.Unlock()
	metrics.HubConnections.Set(float64(n))
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast sends ev to every connection and returns how many took it.
func (h *Hub) Broadcast(ev *WSEvent) int {
	return h.sendWhere(ev, func(*connection) bool { return true })
}

// SendToRole sends ev to connections opened by users with role.
func (h *Hub) SendToRole(role string, ev *WSEvent) int {
	return h.sendWhere(ev, func(c *connection) bool { return c.role == role })
}

func (h *Hub) sendWhere(ev *WSEvent, match func(*connection) bool) int {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("encode websocket event", zap.String("type", ev.Type), zap.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for c := range h.conns {
		if !match(c) {
			continue
		}
		select {
		case c.send <- data:
			delivered++
		default:
			// slow client
		}
	}
	return delivered
}

// ServeWS registers conn and blocks until it disconnects. initial events are
// queued before anything else.
func (h *Hub) ServeWS(conn *websocket.Conn, userID, role string, onMessage MessageFunc, initial ...*WSEvent) {
	c := &connection{
		userID: userID,
		role:   role,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
	for _, ev := range initial {
		if data, err := json.Marshal(ev); err == nil {
			c.send <- data
		}
	}

	h.register(c)
	h.log.Info("notification socket connected", zap.String("user_id", userID), zap.String("role", role))

	go h.writePump(c)
	h.readPump(c, onMessage)

	h.log.Info("notification socket closed", zap.String("user_id", userID))
}

func (h *Hub) readPump(c *connection, onMessage MessageFunc) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("notification socket read error", zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}

		var msg WSClientMessage
		var reply *WSEvent
		if err := json.Unmarshal(raw, &msg); err != nil {
			reply = NewErrorEvent("INVALID_JSON", "Failed to parse message")
		} else if onMessage != nil {
			reply = onMessage(c.userID, msg)
		}
		if reply == nil {
			continue
		}

		data, err := json.Marshal(reply)
		if err != nil {
			continue
		}
		// send is closed only by unregister, which runs after this loop.
		select {
		case c.send <- data:
		default:
		}
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
