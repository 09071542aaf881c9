// Package pipeline runs one conversational turn: transcribe if needed,
// generate a reply, and record both sides of the exchange.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"

	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/ai"
	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/conversation"
	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/fallback"
	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/session"
)

// SessionEnsurer is the slice of the session registry the pipeline needs.
type SessionEnsurer interface {
	Ensure(ctx context.Context, want conversation.Session) (conversation.Session, error)
}

// TurnAppender records turns durably.
type TurnAppender interface {
	AppendTurn(ctx context.Context, t conversation.Turn) (conversation.Turn, error)
}

// AudioLoader fetches audio by reference, e.g. a telephony recording URL.
type AudioLoader interface {
	Load(ctx context.Context, ref string) ([]byte, error)
}

type Deps struct {
	Sessions    SessionEnsurer
	Turns       TurnAppender
	Transcriber ai.Transcriber
	Generator   ai.Generator
	Replier     *ai.KeywordReplier
	Audio       AudioLoader
	Ladder      *fallback.Ladder
	Log         zerolog.Logger
}

type Pipeline struct {
	sessions SessionEnsurer
	turns    TurnAppender
	stt      ai.Transcriber
	gen      ai.Generator
	replier  *ai.KeywordReplier
	audio    AudioLoader
	ladder   *fallback.Ladder
	locks    *session.KeyedMutex
	log      zerolog.Logger
	now      func() time.Time
}

func New(d Deps) *Pipeline {
	if d.Replier == nil {
		d.Replier = ai.NewKeywordReplier(nil, "")
	}
	if d.Ladder == nil {
		d.Ladder = fallback.New(fallback.DefaultTimeout, d.Log)
	}
	if d.Transcriber == nil {
		d.Transcriber = ai.Unconfigured{}
	}
	if d.Generator == nil {
		d.Generator = ai.Unconfigured{}
	}

	return &Pipeline{
		sessions: d.Sessions,
		turns:    d.Turns,
		stt:      d.Transcriber,
		gen:      d.Generator,
		replier:  d.Replier,
		audio:    d.Audio,
		ladder:   d.Ladder,
		locks:    session.NewKeyedMutex(),
		log:      d.Log.With().Str("component", "pipeline").Logger(),
		now:      time.Now,
	}
}

// Execute runs one turn. At most one Execute per session is in flight;
// later calls for the same session wait their turn in arrival order.
// Provider and storage failures never surface here: the only errors are
// ErrInvalidRequest and ErrInternal.
func (p *Pipeline) Execute(ctx context.Context, req Request) (Reply, error) {
	if err := req.validate(); err != nil {
		return Reply{}, err
	}
	if req.RestaurantID == "" {
		req.RestaurantID = DefaultRestaurantID
	}

	// a turn, once accepted, runs to completion even if the caller goes away
	ctx = context.WithoutCancel(ctx)

	unlock, err := p.locks.Lock(ctx, req.SessionID)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	defer unlock()

	log := p.log.With().
		Str("session_id", req.SessionID).
		Str("channel", string(req.Channel)).
		Logger()

	ctx = log.WithContext(ctx)

	var reply Reply
	if r := panics.Try(func() { reply = p.run(ctx, req, log) }); r != nil {
		log.Error().Str("panic", r.String()).Msg("turn aborted")
		return Reply{}, fmt.Errorf("%w: %v", ErrInternal, r.AsError())
	}
	return reply, nil
}

func (p *Pipeline) run(ctx context.Context, req Request, log zerolog.Logger) Reply {
	started := p.now()

	// --- session bookkeeping, best effort ---
	if p.sessions != nil {
		if _, err := p.sessions.Ensure(ctx, conversation.Session{
			SessionID:     req.SessionID,
			Channel:       req.Channel,
			RestaurantID:  req.RestaurantID,
			CustomerPhone: req.CustomerPhone,
		}); err != nil {
			log.Warn().Err(err).Msg("session bookkeeping skipped")
		}
	}

	var reply Reply

	// --- user text ---
	userText := req.Text
	userTurn := conversation.Turn{
		SessionID: req.SessionID,
		Role:      conversation.RoleUser,
	}
	if req.hasAudio() {
		out := fallback.Invoke(ctx, p.ladder, "transcribe", p.transcribe, transcriptionPlaceholder, req)
		userText = out.Value
		reply.Transcript = out.Value
		reply.Transcription = &out

		userTurn.Transcript = &out.Value
		if req.AudioRef != "" {
			ref := req.AudioRef
			userTurn.AudioRef = &ref
		}
	}
	userTurn.Content = userText

	// the user turn is attempted before generation starts
	p.appendTurn(ctx, log, userTurn)

	// --- reply ---
	prompt := ai.SystemPrompt(string(req.Channel))
	gen := fallback.Invoke(ctx, p.ladder, "generate",
		func(ctx context.Context, text string) (string, error) {
			return p.gen.Generate(ctx, prompt, text)
		},
		p.replier.Reply,
		userText,
	)
	reply.Text = gen.Value
	reply.Generation = gen

	latency := p.now().Sub(started)
	p.appendTurn(ctx, log, conversation.Turn{
		SessionID: req.SessionID,
		Role:      conversation.RoleAssistant,
		Content:   gen.Value,
		LatencyMS: latency.Milliseconds(),
	})

	log.Info().
		Bool("degraded", reply.Degraded()).
		Dur("latency", latency).
		Msg("turn completed")

	return reply
}

func (p *Pipeline) transcribe(ctx context.Context, req Request) (string, error) {
	audio := req.Audio
	if len(audio) == 0 {
		if p.audio == nil {
			return "", fallback.Fail(fallback.CauseUnavailable, errors.New("no audio loader configured"))
		}
		data, err := p.audio.Load(ctx, req.AudioRef)
		if err != nil {
			return "", err
		}
		audio = data
	}
	return p.stt.Transcribe(ctx, audio)
}

func transcriptionPlaceholder(Request) string {
	return ai.TranscriptionUnavailable
}

func (p *Pipeline) appendTurn(ctx context.Context, log zerolog.Logger, t conversation.Turn) {
	if p.turns == nil {
		return
	}
	if _, err := p.turns.AppendTurn(ctx, t); err != nil {
		log.Warn().Err(err).Str("role", string(t.Role)).Msg("turn not saved")
	}
}
