package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelIsApplied(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, "warn", false)

	log.Info().Msg("hidden")
	log.Warn().Str("op", "generate").Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "generate", entry["op"])
	assert.Equal(t, "restaurant-assistant", entry["service"])
	assert.Contains(t, entry, "time")
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	for _, lvl := range []string{"", "loud", "  DEBUG "} {
		log := newWithWriter(&bytes.Buffer{}, lvl, false)
		if lvl == "  DEBUG " {
			assert.Equal(t, zerolog.DebugLevel, log.GetLevel())
			continue
		}
		assert.Equal(t, zerolog.InfoLevel, log.GetLevel(), lvl)
	}
}

func TestPrettyWriterIsNotJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, "info", true)
	logger.Info().Msg("hello")

	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}
