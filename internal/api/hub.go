package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"gonum.org/v1/gonum/num/quat"

	"focustrack/pkg/alignment"
	"focustrack/pkg/model"
	"focustrack/pkg/visibility"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

// Message is one frame on the /ws stream.
type Message struct {
	Type       string              `json:"type"` // pose, fade, transition, event
	Pose       *model.Pose         `json:"pose,omitempty"`
	Fade       *FadeMessage        `json:"fade,omitempty"`
	Transition *TransitionMessage  `json:"transition,omitempty"`
	Event      *model.TrackerEvent `json:"event,omitempty"`
}

type FadeMessage struct {
	Direction  visibility.Direction `json:"direction"`
	Opacity    float64              `json:"opacity"`
	DurationMS int64                `json:"duration_ms"`
}

type TransitionMessage struct {
	From       quat.Number     `json:"from"`
	To         quat.Number     `json:"to"`
	Alignment  model.Alignment `json:"alignment"`
	DurationMS int64           `json:"duration_ms"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub streams the marker to websocket clients. It is the tracker's Sink: poses,
// fades and orientation transitions are broadcast as JSON messages. Animations
// are completed after their duration since no client drives them.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	lastPose []byte

	upgrader websocket.Upgrader
	logger   *slog.Logger
	// afterFunc schedules completion; replaced in tests.
	afterFunc func(time.Duration, func())
}

// NewHub creates a hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Local tool; the overlay may be served from another port.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.With("component", "hub"),
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// Publish implements tracker.Sink.
func (h *Hub) Publish(p model.Pose) {
	data := h.encode(&Message{Type: "pose", Pose: &p})
	if data == nil {
		return
	}
	h.mu.Lock()
	h.lastPose = data
	h.mu.Unlock()
	h.broadcast(data)
}

// Animate implements tracker.Sink.
func (h *Hub) Animate(t *alignment.Transition) {
	h.broadcast(h.encode(&Message{Type: "transition", Transition: &TransitionMessage{
		From:       t.From,
		To:         t.To,
		Alignment:  t.Alignment,
		DurationMS: t.Duration.Milliseconds(),
	}}))
	h.afterFunc(t.Duration, t.Complete)
}

// Fade implements tracker.Sink.
func (h *Hub) Fade(f *visibility.Fade) {
	h.broadcast(h.encode(&Message{Type: "fade", Fade: &FadeMessage{
		Direction:  f.Direction,
		Opacity:    f.Opacity(),
		DurationMS: f.Duration.Milliseconds(),
	}}))
	h.afterFunc(f.Duration, f.Complete)
}

// PublishEvent streams a tracker event.
func (h *Hub) PublishEvent(e model.TrackerEvent) {
	h.broadcast(h.encode(&Message{Type: "event", Event: &e}))
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) encode(m *Message) []byte {
	data, err := json.Marshal(m)
	if err != nil {
		h.logger.Error("Failed to encode message", "type", m.Type, "error", err)
		return nil
	}
	return data
}

func (h *Hub) broadcast(data []byte) {
	if data == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		// Slow clients miss frames rather than stall the tick.
		select {
		case c.send <- data:
		default:
		}
	}
}

// ServeWS upgrades the request and streams messages until the client leaves.
// New clients receive the last pose first.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.lastPose != nil {
		c.send <- h.lastPose
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("Client connected", "remote", r.RemoteAddr, "clients", n)

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readPump discards client input; it only exists to notice disconnects and pongs.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
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

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
