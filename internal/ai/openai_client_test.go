package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/fallback"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return NewOpenAIClient(Options{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, zerolog.Nop())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestGenerateSendsPromptAndUserText(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "We have tiramisu."}},
			},
		})
	})

	reply, err := c.Generate(context.Background(), SystemPrompt("chat"), "dessert?")
	require.NoError(t, err)
	assert.Equal(t, "We have tiramisu.", reply)

	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, "gpt-4", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "dessert?", got.Messages[1].Content)
}

func TestGenerateMapsStatusToCause(t *testing.T) {
	cases := map[int]fallback.Cause{
		http.StatusUnauthorized:        fallback.CauseUnauthorized,
		http.StatusTooManyRequests:     fallback.CauseRateLimited,
		http.StatusInternalServerError: fallback.CauseServiceError,
		http.StatusBadGateway:          fallback.CauseServiceError,
	}

	for status, want := range cases {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, status, map[string]any{
				"error": map[string]any{"message": "nope", "type": "test"},
			})
		})

		_, err := c.Generate(context.Background(), "p", "u")
		require.Error(t, err)
		assert.Equal(t, want, fallback.Classify(err), "status %d", status)
	}
}

func TestTranscribeReturnsText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"text": "one pizza please"})
	})

	text, err := c.Transcribe(context.Background(), []byte("RIFF....WAVE"))
	require.NoError(t, err)
	assert.Equal(t, "one pizza please", text)
}

func TestTranscribeRejectsEmptyAudio(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("provider must not be called")
	})

	_, err := c.Transcribe(context.Background(), nil)
	assert.Equal(t, fallback.CauseInvalidFormat, fallback.Classify(err))
}

func TestNewSelectsUnconfiguredProvider(t *testing.T) {
	assert.IsType(t, Unconfigured{}, New(Options{Mock: true, APIKey: "sk-real"}, zerolog.Nop()))
	assert.IsType(t, Unconfigured{}, New(Options{APIKey: "your-openai-api-key"}, zerolog.Nop()))
	assert.IsType(t, &OpenAIClient{}, New(Options{APIKey: "sk-real"}, zerolog.Nop()))

	_, err := Unconfigured{}.Generate(context.Background(), "p", "u")
	assert.Equal(t, fallback.CauseUnavailable, fallback.Classify(err))
}
