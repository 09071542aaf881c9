// Package voice drives a phone call through greeting, record, reply and
// hangup, one pipeline turn per finished recording.
package voice

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/conversation"
	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/pipeline"
)

const (
	Greeting = "Hello! Welcome to our restaurant. I'm your AI assistant. How can I help you today?"
	Apology  = "I apologize, but I'm having trouble understanding. Please try calling again."
)

type State string

const (
	StateIncoming          State = "incoming"
	StateGreetingPlayed    State = "greeting_played"
	StateAwaitingRecording State = "awaiting_recording"
	StateProcessing        State = "transcribing_generating"
	StateResponsePlayed    State = "response_played"
	StateHangup            State = "hangup"
	StateError             State = "error"
)

func (s State) Terminal() bool {
	return s == StateHangup || s == StateError
}

type CallStart struct {
	CallID       string
	From         string
	RestaurantID string
}

type RecordingReady struct {
	CallID       string
	RecordingURL string
}

type CallEnd struct {
	CallID string
}

type Executor interface {
	Execute(ctx context.Context, req pipeline.Request) (pipeline.Reply, error)
}

type SessionEnsurer interface {
	Ensure(ctx context.Context, want conversation.Session) (conversation.Session, error)
}

type call struct {
	state        State
	restaurantID string
	from         *string
	inflight     int
	updated      time.Time
}

type Config struct {
	RestaurantID string
	// Retention is how long ended calls are remembered, so late webhooks
	// for them still get a hangup.
	Retention time.Duration
	// IdleTimeout forgets live calls that saw no event for this long, for
	// calls whose status callback never arrives.
	IdleTimeout time.Duration
}

type Machine struct {
	exec     Executor
	sessions SessionEnsurer
	cfg      Config
	log      zerolog.Logger
	now      func() time.Time

	mu    sync.Mutex
	calls map[string]*call
}

func NewMachine(exec Executor, sessions SessionEnsurer, cfg Config, log zerolog.Logger) *Machine {
	if cfg.RestaurantID == "" {
		cfg.RestaurantID = pipeline.DefaultRestaurantID
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 10 * time.Minute
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = time.Hour
	}
	return &Machine{
		exec:     exec,
		sessions: sessions,
		cfg:      cfg,
		log:      log.With().Str("component", "voice").Logger(),
		now:      time.Now,
		calls:    make(map[string]*call),
	}
}

// Start handles call-start: it records the session, plays the greeting
// and arms the first recording.
func (m *Machine) Start(ctx context.Context, ev CallStart) Markup {
	restaurantID := ev.RestaurantID
	if restaurantID == "" {
		restaurantID = m.cfg.RestaurantID
	}
	var from *string
	if ev.From != "" {
		f := ev.From
		from = &f
	}

	m.mu.Lock()
	m.pruneLocked()
	c, ok := m.calls[ev.CallID]
	if !ok {
		c = &call{restaurantID: restaurantID, from: from}
		m.calls[ev.CallID] = c
	}
	switch {
	case c.state.Terminal():
		m.mu.Unlock()
		return Markup{Hangup: true}
	case ok:
		// retried call-start; the call is already past the greeting
		m.mu.Unlock()
		return Markup{Say: Greeting, Record: true}
	}
	m.setLocked(ev.CallID, c, StateIncoming)
	m.mu.Unlock()

	if m.sessions != nil {
		if _, err := m.sessions.Ensure(ctx, conversation.Session{
			SessionID:     ev.CallID,
			Channel:       conversation.ChannelVoice,
			RestaurantID:  restaurantID,
			CustomerPhone: from,
		}); err != nil {
			m.log.Warn().Err(err).Str("call_id", ev.CallID).Msg("session bookkeeping skipped")
		}
	}

	m.mu.Lock()
	if !c.state.Terminal() {
		m.setLocked(ev.CallID, c, StateGreetingPlayed)
		m.setLocked(ev.CallID, c, StateAwaitingRecording)
	}
	m.mu.Unlock()

	return Markup{Say: Greeting, Record: true}
}

// Recording handles recording-ready. Recordings for one call are turned
// into pipeline turns in arrival order; the pipeline queues them.
func (m *Machine) Recording(ctx context.Context, ev RecordingReady) Markup {
	m.mu.Lock()
	m.pruneLocked()
	c, ok := m.calls[ev.CallID]
	if !ok {
		// no call-start seen by this process; the pipeline creates the session lazily
		c = &call{restaurantID: m.cfg.RestaurantID, state: StateAwaitingRecording}
		m.calls[ev.CallID] = c
	}
	if c.state.Terminal() {
		m.mu.Unlock()
		m.log.Info().Str("call_id", ev.CallID).Msg("recording after call ended, ignored")
		return Markup{Hangup: true}
	}
	c.inflight++
	m.setLocked(ev.CallID, c, StateProcessing)
	req := pipeline.Request{
		SessionID:     ev.CallID,
		Channel:       conversation.ChannelVoice,
		RestaurantID:  c.restaurantID,
		CustomerPhone: c.from,
		AudioRef:      ev.RecordingURL,
	}
	m.mu.Unlock()

	reply, err := m.exec.Execute(ctx, req)

	m.mu.Lock()
	defer m.mu.Unlock()
	c.inflight--

	if err != nil {
		m.log.Error().Err(err).Str("call_id", ev.CallID).Msg("turn failed, hanging up")
		if !c.state.Terminal() {
			m.setLocked(ev.CallID, c, StateError)
		}
		return Markup{Say: Apology, Hangup: true}
	}

	if c.state.Terminal() {
		return Markup{Hangup: true}
	}

	m.setLocked(ev.CallID, c, StateResponsePlayed)
	if c.inflight == 0 {
		m.setLocked(ev.CallID, c, StateAwaitingRecording)
	} else {
		m.setLocked(ev.CallID, c, StateProcessing)
	}
	return Markup{Say: reply.Text, Record: true}
}

// End handles call-end from any state.
func (m *Machine) End(ev CallEnd) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()

	c, ok := m.calls[ev.CallID]
	if !ok {
		c = &call{}
		m.calls[ev.CallID] = c
	}
	if c.state != StateHangup {
		m.setLocked(ev.CallID, c, StateHangup)
	}
}

func (m *Machine) State(callID string) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.calls[callID]
	if !ok {
		return "", false
	}
	return c.state, true
}

func (m *Machine) setLocked(callID string, c *call, next State) {
	m.log.Debug().
		Str("call_id", callID).
		Str("from", string(c.state)).
		Str("to", string(next)).
		Msg("transition")
	c.state = next
	c.updated = m.now()
}

// pruneLocked drops ended calls past retention and live calls idle past
// the idle timeout. Calls with a turn in flight are kept.
func (m *Machine) pruneLocked() {
	now := m.now()
	for id, c := range m.calls {
		if c.inflight > 0 {
			continue
		}
		limit := m.cfg.IdleTimeout
		if c.state.Terminal() {
			limit = m.cfg.Retention
		}
		if now.Sub(c.updated) > limit {
			delete(m.calls, id)
		}
	}
}

// Len is the number of calls currently tracked.
func (m *Machine) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
