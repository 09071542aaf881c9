package conversation

import (
	"context"
	"errors"
	"time"
)

type Channel string

const (
	ChannelVoice Channel = "voice"
	ChannelChat  Channel = "chat"
)

func (c Channel) Valid() bool {
	return c == ChannelVoice || c == ChannelChat
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Session struct {
	ID            int64     `json:"id"`
	SessionID     string    `json:"session_id"`
	Channel       Channel   `json:"channel"`
	RestaurantID  string    `json:"restaurant_id"`
	CustomerPhone *string   `json:"customer_phone,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type Turn struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	AudioRef   *string   `json:"audio_url,omitempty"`
	Transcript *string   `json:"transcription,omitempty"`
	LatencyMS  int64     `json:"response_time_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

var (
	ErrNotFound = errors.New("conversation: not found")
	ErrExists   = errors.New("conversation: session already exists")
)

// Store is durable persistence of sessions and their turns.
// Turns come back in append order.
type Store interface {
	CreateSession(ctx context.Context, s Session) (Session, error)
	GetSession(ctx context.Context, sessionID string) (Session, error)
	ListSessions(ctx context.Context, restaurantID string) ([]Session, error)
	AppendTurn(ctx context.Context, t Turn) (Turn, error)
	ListTurns(ctx context.Context, sessionID string) ([]Turn, error)
	Ping(ctx context.Context) error
}
