package ai

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/fallback"
)

// Models used when none is configured.
const (
	DefaultModel              = openai.GPT4
	DefaultTranscriptionModel = openai.Whisper1
)

type Options struct {
	Mock               bool
	APIKey             string
	BaseURL            string
	Model              string
	TranscriptionModel string
}

// New returns the OpenAI-backed provider, or the unconfigured one when the
// key is missing, a placeholder, or mock mode is on.
func New(opts Options, log zerolog.Logger) Provider {
	log = log.With().Str("component", "ai").Logger()

	if opts.Mock {
		log.Warn().Msg("mock provider selected, every call degrades to local replies")
		return Unconfigured{}
	}
	if !Configured(opts.APIKey) {
		log.Warn().Msg("OpenAI API key not configured, every call degrades to local replies")
		return Unconfigured{}
	}
	return NewOpenAIClient(opts, log)
}

// Configured reports whether key looks like a real API key.
func Configured(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && !strings.Contains(key, "your-openai")
}

type OpenAIClient struct {
	client             *openai.Client
	model              string
	transcriptionModel string
	log                zerolog.Logger
}

func NewOpenAIClient(opts Options, log zerolog.Logger) *OpenAIClient {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	transcriptionModel := opts.TranscriptionModel
	if transcriptionModel == "" {
		transcriptionModel = DefaultTranscriptionModel
	}

	return &OpenAIClient{
		client:             openai.NewClientWithConfig(cfg),
		model:              model,
		transcriptionModel: transcriptionModel,
		log:                log,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string, userText string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: userText},
		},
		MaxTokens:   150,
		Temperature: 0.7,
	})
	if err != nil {
		return "", providerError(err)
	}

	if len(resp.Choices) == 0 {
		c.log.Warn().Msg("empty choices")
		return "", nil
	}

	raw := resp.Choices[0].Message.Content
	c.log.Debug().Str("reply", short(raw)).Msg("chat completion")
	return raw, nil
}

func (c *OpenAIClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", fallback.Fail(fallback.CauseInvalidFormat, errors.New("empty audio buffer"))
	}

	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcriptionModel,
		FilePath: "audio.wav",
		Reader:   bytes.NewReader(audio),
		Language: "en",
	})
	if err != nil {
		return "", providerError(err)
	}

	c.log.Debug().Int("bytes", len(audio)).Str("text", short(resp.Text)).Msg("transcription")
	return resp.Text, nil
}

// Ping lists models; it is the cheapest authenticated call.
func (c *OpenAIClient) Ping(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return providerError(err)
	}
	return nil
}

// providerError tags OpenAI HTTP failures with a ladder cause. Transport and
// deadline errors pass through untouched, the ladder classifies those itself.
func providerError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fallback.Fail(causeForStatus(apiErr.HTTPStatusCode), err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fallback.Fail(causeForStatus(reqErr.HTTPStatusCode), err)
	}
	return err
}

func causeForStatus(status int) fallback.Cause {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fallback.CauseUnauthorized
	case status == http.StatusTooManyRequests:
		return fallback.CauseRateLimited
	case status >= http.StatusInternalServerError:
		return fallback.CauseServiceError
	case status == http.StatusBadRequest,
		status == http.StatusRequestEntityTooLarge,
		status == http.StatusUnsupportedMediaType:
		return fallback.CauseInvalidFormat
	default:
		return fallback.CauseUnknown
	}
}

func short(s string) string {
	if len(s) > 180 {
		return s[:180] + "..."
	}
	return s
}
