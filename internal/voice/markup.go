package voice

import (
	"strconv"

	"github.com/twilio/twilio-go/twiml"
)

const (
	DefaultVoice         = "alice"
	DefaultActionPath    = "/twilio/voice/process"
	DefaultRecordTimeout = 10
)

// Markup is the channel-neutral instruction set for one webhook response.
type Markup struct {
	Say    string
	Record bool
	Hangup bool
}

type RendererConfig struct {
	Voice string
	// ActionPath is where the platform posts the finished recording.
	ActionPath string
	// RecordTimeout is the silence, in seconds, after which the platform
	// ends a recording segment.
	RecordTimeout int
}

// Renderer turns Markup into TwiML.
type Renderer struct {
	cfg RendererConfig
}

func NewRenderer(cfg RendererConfig) Renderer {
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	if cfg.ActionPath == "" {
		cfg.ActionPath = DefaultActionPath
	}
	if cfg.RecordTimeout <= 0 {
		cfg.RecordTimeout = DefaultRecordTimeout
	}
	return Renderer{cfg: cfg}
}

func (r Renderer) Render(m Markup) (string, error) {
	verbs := make([]twiml.Element, 0, 3)

	if m.Say != "" {
		verbs = append(verbs, &twiml.VoiceSay{
			Voice:   r.cfg.Voice,
			Message: m.Say,
		})
	}

	switch {
	case m.Hangup:
		verbs = append(verbs, &twiml.VoiceHangup{})
	case m.Record:
		verbs = append(verbs, &twiml.VoiceRecord{
			Action:     r.cfg.ActionPath,
			Method:     "POST",
			Timeout:    strconv.Itoa(r.cfg.RecordTimeout),
			Transcribe: "false",
		})
	}

	return twiml.Voice(verbs)
}
