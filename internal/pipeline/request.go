package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/conversation"
	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/fallback"
)

const DefaultRestaurantID = "default"

var (
	// ErrInvalidRequest marks malformed adapter input. Such requests are
	// rejected before any session state is touched.
	ErrInvalidRequest = errors.New("pipeline: invalid request")

	// ErrInternal marks an unexpected failure inside the pipeline itself.
	ErrInternal = errors.New("pipeline: internal error")
)

// Request is one turn submitted by a channel adapter. Exactly one of Text
// and audio (Audio bytes or an AudioRef to download) is set.
type Request struct {
	SessionID     string
	Channel       conversation.Channel
	RestaurantID  string
	CustomerPhone *string

	Text     string
	Audio    []byte
	AudioRef string
}

func (r Request) hasAudio() bool {
	return len(r.Audio) > 0 || r.AudioRef != ""
}

func (r Request) validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return fmt.Errorf("%w: missing session id", ErrInvalidRequest)
	}
	if !r.Channel.Valid() {
		return fmt.Errorf("%w: unknown channel %q", ErrInvalidRequest, r.Channel)
	}

	hasText := strings.TrimSpace(r.Text) != ""
	if hasText == r.hasAudio() {
		return fmt.Errorf("%w: exactly one of text or audio is required", ErrInvalidRequest)
	}
	return nil
}

// Reply is what the adapter renders back to its channel.
type Reply struct {
	Text string
	// Transcript is set only for audio input.
	Transcript string

	Transcription *fallback.Outcome
	Generation    fallback.Outcome
}

// Degraded reports whether any provider step fell back to a local value.
func (r Reply) Degraded() bool {
	return r.Generation.Degraded || (r.Transcription != nil && r.Transcription.Degraded)
}
