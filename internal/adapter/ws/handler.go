// Package ws implements the WebSocket adapter that streams round events to
// spectators in real time.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/Strob0t/ClawCouncil/internal/domain/event"
)

const (
	// writeTimeout bounds a single write to a slow client.
	writeTimeout = 5 * time.Second
	// sendBuffer is the number of messages queued per client before it is
	// dropped as too slow.
	sendBuffer = 64
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// conn wraps a single WebSocket connection. roundID 0 follows every round.
type conn struct {
	ws      *websocket.Conn
	cancel  context.CancelFunc
	roundID int64
	send    chan []byte
}

// Hub manages all active WebSocket connections and broadcasts messages.
type Hub struct {
	mu          sync.RWMutex
	conns       map[*conn]struct{}
	allowOrigin []string
}

// NewHub creates a new WebSocket hub. allowOrigin lists the origin patterns
// accepted on upgrade; an empty list only allows same-origin clients.
func NewHub(allowOrigin ...string) *Hub {
	return &Hub{
		conns:       make(map[*conn]struct{}),
		allowOrigin: allowOrigin,
	}
}

// HandleWS upgrades the request to a WebSocket. The optional round_id query
// parameter restricts the stream to one round.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	var roundID int64
	if v := r.URL.Query().Get("round_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "invalid round_id", http.StatusBadRequest)
			return
		}
		roundID = id
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.allowOrigin,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "websocket accept failed", "error", err)
		return
	}

	// The request context ends when the handler returns, so the read loop
	// runs on its own context.
	ctx, cancel := context.WithCancel(context.Background())
	c := &conn{ws: ws, cancel: cancel, roundID: roundID, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	slog.Info("websocket connected", "remote", r.RemoteAddr, "round_id", roundID)

	go h.writeLoop(ctx, c)

	// Read loop (to detect disconnects and consume pings)
	go func() {
		defer func() {
			h.remove(c)
			_ = ws.Close(websocket.StatusNormalClosure, "")
		}()
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}()
}

// writeLoop drains the client's send queue until its context ends.
func (h *Hub) writeLoop(ctx context.Context, c *conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.ws.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				slog.Debug("websocket write failed", "round_id", c.roundID, "error", err)
				h.remove(c)
				return
			}
		}
	}
}

// Broadcast queues a message for every client following roundID. It never
// waits on a client; one whose queue is full is disconnected.
func (h *Hub) Broadcast(ctx context.Context, roundID int64, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.ErrorContext(ctx, "websocket marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		if c.roundID == 0 || c.roundID == roundID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- data:
		default:
			slog.WarnContext(ctx, "websocket client too slow, disconnecting", "round_id", c.roundID)
			h.remove(c)
		}
	}
}

// BroadcastEvent wraps a round event in the message envelope and sends it to
// the round's followers.
func (h *Hub) BroadcastEvent(ctx context.Context, ev *event.RoundEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.ErrorContext(ctx, "marshal ws event", "type", ev.Type, "error", err)
		return
	}
	h.Broadcast(ctx, ev.RoundID, Message{Type: string(ev.Type), Payload: data})
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.ws.Close(websocket.StatusGoingAway, "server shutting down")
		h.remove(c)
	}
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		c.cancel()
		delete(h.conns, c)
		slog.Info("websocket disconnected", "round_id", c.roundID)
	}
}
