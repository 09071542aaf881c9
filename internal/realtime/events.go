package realtime

import "encoding/json"

// Event names on the wire.
const (
	EventJoin    = "join"
	EventMessage = "message"
	EventHistory = "history"
	EventReply   = "reply"
	EventError   = "error"
)

const (
	errReplyFailed   = "Sorry, I encountered an error. Please try again."
	errHistoryFailed = "Failed to load chat history"
)

// Envelope is every frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type joinData struct {
	SessionID string `json:"sessionId"`
}

type messageData struct {
	SessionID    string `json:"sessionId"`
	Text         string `json:"text"`
	RestaurantID string `json:"restaurantId,omitempty"`
}

type historyData struct {
	SessionID string `json:"sessionId"`
}

type replyData struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	Degraded  bool   `json:"degraded,omitempty"`
}

type errorData struct {
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
}

type historyReplyData struct {
	SessionID string `json:"sessionId"`
	Messages  any    `json:"messages"`
}

func encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
