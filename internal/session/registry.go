// Package session owns session records: it creates each one exactly once
// per session id and serves lookups.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/conversation"
)

// DefaultIdleTTL is how long an untouched session stays cached. An evicted
// session is reloaded from the store on its next use.
const DefaultIdleTTL = 30 * time.Minute

type entry struct {
	session   conversation.Session
	persisted bool
	touched   time.Time
}

// Registry caches sessions in memory and mirrors them into the store.
// A session whose durable create failed stays usable and is retried on
// the next Ensure for the same id.
type Registry struct {
	store conversation.Store
	locks *KeyedMutex
	log   zerolog.Logger
	now   func() time.Time
	ttl   time.Duration

	mu        sync.RWMutex
	sessions  map[string]*entry
	lastSweep time.Time
}

func NewRegistry(store conversation.Store, log zerolog.Logger) *Registry {
	return &Registry{
		store:    store,
		locks:    NewKeyedMutex(),
		log:      log.With().Str("component", "session").Logger(),
		now:      time.Now,
		ttl:      DefaultIdleTTL,
		sessions: make(map[string]*entry),
	}
}

// Ensure returns the session for want.SessionID, creating it if absent.
// Fields of an existing session are never overwritten. The returned error
// only reports a failed durable write; the session itself is still valid.
func (r *Registry) Ensure(ctx context.Context, want conversation.Session) (conversation.Session, error) {
	if want.SessionID == "" {
		return conversation.Session{}, errors.New("session: empty session id")
	}

	unlock, err := r.locks.Lock(ctx, want.SessionID)
	if err != nil {
		return conversation.Session{}, err
	}
	defer unlock()

	e, ok := r.lookup(want.SessionID)
	if ok {
		if e.persisted {
			return e.session, nil
		}
	} else {
		if stored, err := r.store.GetSession(ctx, want.SessionID); err == nil {
			r.put(want.SessionID, &entry{session: stored, persisted: true})
			return stored, nil
		} else if !errors.Is(err, conversation.ErrNotFound) {
			r.log.Warn().Err(err).Str("session_id", want.SessionID).Msg("session lookup failed")
		}

		want.ID = 0
		want.CreatedAt = r.now()
		if e = r.put(want.SessionID, &entry{session: want}); e.persisted {
			return e.session, nil
		}
	}

	created, err := r.store.CreateSession(ctx, e.session)
	switch {
	case err == nil:
		r.markPersisted(e, created)
	case errors.Is(err, conversation.ErrExists):
		// created by another process or a webhook retry; the stored copy wins
		if stored, gerr := r.store.GetSession(ctx, e.session.SessionID); gerr == nil {
			r.markPersisted(e, stored)
		} else {
			r.markPersisted(e, e.session)
		}
	default:
		return e.session, fmt.Errorf("session: persist %s: %w", e.session.SessionID, err)
	}

	r.log.Debug().
		Str("session_id", e.session.SessionID).
		Str("channel", string(e.session.Channel)).
		Str("restaurant_id", e.session.RestaurantID).
		Msg("session created")

	return e.session, nil
}

// Get returns a known session or conversation.ErrNotFound.
func (r *Registry) Get(ctx context.Context, sessionID string) (conversation.Session, error) {
	if e, ok := r.lookup(sessionID); ok {
		r.mu.RLock()
		defer r.mu.RUnlock()
		return e.session, nil
	}

	stored, err := r.store.GetSession(ctx, sessionID)
	if err != nil {
		return conversation.Session{}, err
	}
	r.put(sessionID, &entry{session: stored, persisted: true})
	return stored, nil
}

// put stores e unless id is already cached, and returns the cached entry.
func (r *Registry) put(id string, e *entry) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[id]; ok {
		cur.touched = r.now()
		return cur
	}
	e.touched = r.now()
	r.sessions[id] = e
	return e
}

// lookup returns the cached entry for id and marks it used. It also
// evicts idle entries, at most twice per ttl.
func (r *Registry) lookup(id string) (*entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.lastSweep) >= r.ttl/2 {
		r.lastSweep = now
		for key, cached := range r.sessions {
			if now.Sub(cached.touched) > r.ttl {
				delete(r.sessions, key)
			}
		}
	}

	e, ok := r.sessions[id]
	if ok {
		e.touched = now
	}
	return e, ok
}

// Len is the number of cached sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) markPersisted(e *entry, stored conversation.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.session = stored
	e.persisted = true
}
