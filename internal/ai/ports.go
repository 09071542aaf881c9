package ai

import "context"

// Transcriber turns an audio buffer into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Generator answers a user utterance under a system prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, userText string) (string, error)
}

// Provider is the external intelligence; it knows nothing about channels or storage.
type Provider interface {
	Transcriber
	Generator
	Ping(ctx context.Context) error
}
