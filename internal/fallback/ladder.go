// Package fallback wraps external provider calls so that a caller always
// gets a usable value: either the provider's answer (tier 0) or a
// deterministic local substitute (tier 1).
package fallback

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"
)

const DefaultTimeout = 15 * time.Second

type Tier int

const (
	TierProvider Tier = 0
	TierLocal    Tier = 1
)

// Outcome is what every wrapped call returns.
type Outcome struct {
	Tier     Tier          `json:"tier"`
	Value    string        `json:"value"`
	Degraded bool          `json:"degraded"`
	Cause    Cause         `json:"cause,omitempty"`
	Elapsed  time.Duration `json:"-"`
}

// Ladder holds the per-call time bound and the logger degradations go to.
// It keeps no state between calls.
type Ladder struct {
	timeout time.Duration
	log     zerolog.Logger
}

func New(timeout time.Duration, log zerolog.Logger) *Ladder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Ladder{
		timeout: timeout,
		log:     log.With().Str("component", "fallback").Logger(),
	}
}

func (l *Ladder) Timeout() time.Duration {
	return l.timeout
}

var errEmptyResult = errors.New("provider returned an empty result")

type callResult struct {
	value string
	err   error
}

// Invoke runs primary with the ladder's timeout and returns its value on
// success. On any failure it calls degrade, which must be total and must
// not do network I/O. A primary that outlives the timeout keeps running
// in the background and its result is dropped.
func Invoke[I any](
	ctx context.Context,
	l *Ladder,
	op string,
	primary func(context.Context, I) (string, error),
	degrade func(I) string,
	in I,
) Outcome {
	started := time.Now()

	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	// buffered so a late primary never blocks on send
	done := make(chan callResult, 1)
	go func() {
		var res callResult
		var pc panics.Catcher
		pc.Try(func() {
			res.value, res.err = primary(callCtx, in)
		})
		if r := pc.Recovered(); r != nil {
			res = callResult{err: Fail(CausePanic, r.AsError())}
		}
		done <- res
	}()

	var res callResult
	select {
	case res = <-done:
	case <-callCtx.Done():
		res.err = callCtx.Err()
	}

	if res.err == nil && strings.TrimSpace(res.value) == "" {
		res.err = Fail(CauseEmptyResult, errEmptyResult)
	}

	if res.err == nil {
		return Outcome{
			Tier:    TierProvider,
			Value:   res.value,
			Elapsed: time.Since(started),
		}
	}

	cause := Classify(res.err)
	l.logger(ctx).Warn().
		Err(res.err).
		Str("op", op).
		Str("cause", string(cause)).
		Int("tier", int(TierLocal)).
		Dur("elapsed", time.Since(started)).
		Msg("provider call degraded")

	return Outcome{
		Tier:     TierLocal,
		Value:    degrade(in),
		Degraded: true,
		Cause:    cause,
		Elapsed:  time.Since(started),
	}
}

// logger prefers a request logger carried in ctx, which holds fields like
// the session id, over the ladder's own.
func (l *Ladder) logger(ctx context.Context) *zerolog.Logger {
	if cl := zerolog.Ctx(ctx); cl.GetLevel() != zerolog.Disabled {
		return cl
	}
	return &l.log
}
