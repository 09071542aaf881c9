package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/fallback"
)

const maxRecordingBytes = 25 << 20

// RecordingFetcher downloads call recordings from the telephony platform.
type RecordingFetcher struct {
	accountSID string
	authToken  string
	client     *http.Client
	maxBytes   int64
}

// NewRecordingFetcher authenticates with basic auth when accountSID is set.
func NewRecordingFetcher(accountSID, authToken string, timeout time.Duration) *RecordingFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RecordingFetcher{
		accountSID: accountSID,
		authToken:  authToken,
		client:     &http.Client{Timeout: timeout},
		maxBytes:   maxRecordingBytes,
	}
}

func (f *RecordingFetcher) Load(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fallback.Fail(fallback.CauseInvalidFormat, errors.New("empty recording url"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fallback.Fail(fallback.CauseInvalidFormat, err)
	}
	if f.accountSID != "" {
		req.SetBasicAuth(f.accountSID, f.authToken)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		cause := fallback.CauseTransport
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			cause = fallback.CauseUnauthorized
		}
		return nil, fallback.Fail(cause, fmt.Errorf("download recording: %s", resp.Status))
	}

	// one byte past the limit tells a full recording from a truncated one
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fallback.Fail(fallback.CauseTransport, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fallback.Fail(fallback.CauseInvalidFormat,
			fmt.Errorf("recording exceeds %d bytes", f.maxBytes))
	}
	if len(data) == 0 {
		return nil, fallback.Fail(fallback.CauseInvalidFormat, errors.New("empty recording"))
	}
	return data, nil
}
