// Package realtime is the websocket chat channel. Connections join rooms
// keyed by session id; replies for a session go to that room only.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/conversation"
	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/pipeline"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 32
	inboxBuffer    = 32
)

type Executor interface {
	Execute(ctx context.Context, req pipeline.Request) (pipeline.Reply, error)
}

type HistoryReader interface {
	ListTurns(ctx context.Context, sessionID string) ([]conversation.Turn, error)
}

type Hub struct {
	exec     Executor
	history  HistoryReader
	upgrader websocket.Upgrader
	log      zerolog.Logger
	now      func() time.Time

	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

// NewHub accepts upgrades from allowedOrigins; an empty list or "*"
// allows any origin.
func NewHub(exec Executor, history HistoryReader, allowedOrigins []string, log zerolog.Logger) *Hub {
	return &Hub{
		exec:    exec,
		history: history,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log:   log.With().Str("component", "realtime").Logger(),
		now:   time.Now,
		rooms: make(map[string]map[*client]struct{}),
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return len(set) == 0 || origin == "" || set[origin]
	}
}

// ServeWS upgrades GET /chat/ws.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{
		id:    uuid.NewString(),
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		inbox: make(chan Envelope, inboxBuffer),
		rooms: make(map[string]struct{}),
	}
	h.log.Info().Str("client_id", c.id).Msg("client connected")

	go c.writePump()
	go c.work()
	c.readPump()
}

// join reports false once c has left; a departed client is never added
// back to a room.
func (h *Hub) join(c *client, sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.rooms == nil {
		return false
	}
	if _, ok := c.rooms[sessionID]; ok {
		return true
	}
	room, ok := h.rooms[sessionID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[sessionID] = room
	}
	room[c] = struct{}{}
	c.rooms[sessionID] = struct{}{}

	h.log.Debug().Str("client_id", c.id).Str("session_id", sessionID).Msg("joined")
	return true
}

// leave drops c from every room and closes its send queue.
func (h *Hub) leave(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sessionID := range c.rooms {
		if room, ok := h.rooms[sessionID]; ok {
			delete(room, c)
			if len(room) == 0 {
				delete(h.rooms, sessionID)
			}
		}
	}
	c.rooms = nil
	close(c.send)
}

// broadcast delivers msg to every connection in the session's room.
func (h *Hub) broadcast(sessionID string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[sessionID] {
		c.deliver(msg)
	}
}

// Rooms reports how many connections are in each session room.
func (h *Hub) Rooms() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]int, len(h.rooms))
	for id, room := range h.rooms {
		out[id] = len(room)
	}
	return out
}

func (h *Hub) handle(c *client, env Envelope) {
	switch env.Event {
	case EventJoin:
		var d joinData
		if err := json.Unmarshal(env.Data, &d); err != nil || d.SessionID == "" {
			c.fail("", "join requires sessionId")
			return
		}
		h.join(c, d.SessionID)

	case EventMessage:
		var d messageData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			c.fail("", "invalid message payload")
			return
		}
		h.message(c, d)

	case EventHistory:
		var d historyData
		if err := json.Unmarshal(env.Data, &d); err != nil || d.SessionID == "" {
			c.fail("", "history requires sessionId")
			return
		}
		h.sendHistory(c, d.SessionID)

	default:
		c.fail("", "unknown event "+env.Event)
	}
}

func (h *Hub) message(c *client, d messageData) {
	if d.SessionID == "" || strings.TrimSpace(d.Text) == "" {
		c.fail(d.SessionID, "message requires sessionId and text")
		return
	}
	// a sender always hears its own replies
	if !h.join(c, d.SessionID) {
		h.log.Debug().Str("client_id", c.id).Msg("client gone, queued message dropped")
		return
	}

	log := h.log.With().Str("client_id", c.id).Str("session_id", d.SessionID).Logger()

	reply, err := h.exec.Execute(context.Background(), pipeline.Request{
		SessionID:    d.SessionID,
		Channel:      conversation.ChannelChat,
		RestaurantID: d.RestaurantID,
		Text:         d.Text,
	})
	switch {
	case errors.Is(err, pipeline.ErrInvalidRequest):
		c.fail(d.SessionID, err.Error())
		return
	case err != nil:
		log.Error().Err(err).Msg("chat turn failed")
		h.emit(d.SessionID, EventError, errorData{SessionID: d.SessionID, Message: errReplyFailed})
		return
	}

	h.emit(d.SessionID, EventReply, replyData{
		SessionID: d.SessionID,
		Text:      reply.Text,
		Timestamp: h.now().UTC().Format(time.RFC3339),
		Degraded:  reply.Degraded(),
	})
}

func (h *Hub) sendHistory(c *client, sessionID string) {
	turns, err := h.history.ListTurns(context.Background(), sessionID)
	if err != nil && !errors.Is(err, conversation.ErrNotFound) {
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("load history")
		c.fail(sessionID, errHistoryFailed)
		return
	}
	if turns == nil {
		turns = []conversation.Turn{}
	}
	c.emit(EventHistory, historyReplyData{SessionID: sessionID, Messages: turns})
}

func (h *Hub) emit(sessionID, event string, data any) {
	msg, err := encode(event, data)
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("encode event")
		return
	}
	h.broadcast(sessionID, msg)
}
