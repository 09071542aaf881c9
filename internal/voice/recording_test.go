package voice

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/fallback"
)

func TestRecordingFetcherSendsBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC1" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("RIFF"))
	}))
	defer srv.Close()

	data, err := NewRecordingFetcher("AC1", "secret", time.Second).Load(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF"), data)

	_, err = NewRecordingFetcher("AC1", "wrong", time.Second).Load(context.Background(), srv.URL)
	assert.Equal(t, fallback.CauseUnauthorized, fallback.Classify(err))
}

func TestRecordingFetcherClassifiesFailures(t *testing.T) {
	status := http.StatusNotFound
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	f := NewRecordingFetcher("", "", time.Second)

	_, err := f.Load(context.Background(), srv.URL)
	assert.Equal(t, fallback.CauseTransport, fallback.Classify(err))

	status = http.StatusOK
	_, err = f.Load(context.Background(), srv.URL)
	assert.Equal(t, fallback.CauseInvalidFormat, fallback.Classify(err))

	_, err = f.Load(context.Background(), "")
	assert.Equal(t, fallback.CauseInvalidFormat, fallback.Classify(err))
}

func TestRecordingFetcherHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewRecordingFetcher("", "", time.Second).Load(ctx, srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRecordingFetcherRejectsOversizedRecording(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("12345"))
	}))
	defer srv.Close()

	f := NewRecordingFetcher("", "", time.Second)

	f.maxBytes = 5
	data, err := f.Load(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("12345"), data)

	f.maxBytes = 4
	data, err = f.Load(context.Background(), srv.URL)
	assert.Nil(t, data)
	assert.Equal(t, fallback.CauseInvalidFormat, fallback.Classify(err))
}
