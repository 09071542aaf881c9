package conversation

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps sessions and turns in process memory. It backs
// development runs without a database and the tests.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]Session
	turns     map[string][]Turn
	sessionID int64
	turnID    int64
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		turns:    make(map[string][]Turn),
		now:      time.Now,
	}
}

func (s *MemoryStore) CreateSession(_ context.Context, in Session) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[in.SessionID]; ok {
		return Session{}, ErrExists
	}

	s.sessionID++
	in.ID = s.sessionID
	in.CreatedAt = s.now()
	s.sessions[in.SessionID] = in
	return in, nil
}

func (s *MemoryStore) GetSession(_ context.Context, sessionID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *MemoryStore) ListSessions(_ context.Context, restaurantID string) ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if restaurantID == "" || sess.RestaurantID == restaurantID {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// AppendTurn stamps CreatedAt strictly after the session's previous turn,
// even when the clock does not advance between calls.
func (s *MemoryStore) AppendTurn(_ context.Context, in Turn) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[in.SessionID]; !ok {
		return Turn{}, ErrNotFound
	}

	created := s.now()
	if prev := s.turns[in.SessionID]; len(prev) > 0 {
		if last := prev[len(prev)-1].CreatedAt; !created.After(last) {
			created = last.Add(time.Microsecond)
		}
	}

	s.turnID++
	in.ID = s.turnID
	in.CreatedAt = created
	s.turns[in.SessionID] = append(s.turns[in.SessionID], in)
	return in, nil
}

func (s *MemoryStore) ListTurns(_ context.Context, sessionID string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return nil, ErrNotFound
	}
	out := make([]Turn, len(s.turns[sessionID]))
	copy(out, s.turns[sessionID])
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}
