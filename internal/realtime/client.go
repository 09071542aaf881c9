package realtime

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

type client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn

	// send is closed by Hub.leave under hub.mu; deliver runs under the
	// same lock, so it never writes to a closed channel.
	send chan []byte

	// inbox keeps a connection's events in arrival order while the read
	// loop keeps answering pings.
	inbox chan Envelope

	// rooms is guarded by hub.mu.
	rooms map[string]struct{}
}

func (c *client) readPump() {
	defer func() {
		close(c.inbox)
		c.hub.leave(c)
		_ = c.conn.Close()
		c.hub.log.Info().Str("client_id", c.id).Msg("client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn().Err(err).Str("client_id", c.id).Msg("read")
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
			c.fail("", "invalid envelope")
			continue
		}
		c.inbox <- env
	}
}

func (c *client) work() {
	for env := range c.inbox {
		c.hub.handle(c, env)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
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

// deliver queues msg without blocking; a client that stops reading loses
// frames rather than stalling the room. Callers hold hub.mu.
func (c *client) deliver(msg []byte) {
	select {
	case c.send <- msg:
	default:
		c.hub.log.Warn().Str("client_id", c.id).Msg("send queue full, frame dropped")
	}
}

func (c *client) emit(event string, data any) {
	msg, err := encode(event, data)
	if err != nil {
		c.hub.log.Error().Err(err).Str("event", event).Msg("encode event")
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if c.rooms != nil {
		c.deliver(msg)
	}
}

// fail reports a protocol error to this connection only.
func (c *client) fail(sessionID, message string) {
	c.emit(EventError, errorData{SessionID: sessionID, Message: message})
}
