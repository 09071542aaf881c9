package ai

import (
	"context"
	"errors"

	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/fallback"
)

// ErrNotConfigured is returned by every call of the unconfigured provider.
var ErrNotConfigured = fallback.Fail(fallback.CauseUnavailable, errors.New("ai provider not configured"))

// Unconfigured stands in when no provider credentials exist. It always fails
// with cause unavailable, so callers land on their local fallbacks.
type Unconfigured struct{}

func (Unconfigured) Transcribe(context.Context, []byte) (string, error) {
	return "", ErrNotConfigured
}

func (Unconfigured) Generate(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}

func (Unconfigured) Ping(context.Context) error {
	return ErrNotConfigured
}
