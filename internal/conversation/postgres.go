package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateSession(ctx context.Context, in Session) (Session, error) {
	out := in
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sessions (session_id, channel, restaurant_id, customer_phone)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`,
		in.SessionID,
		string(in.Channel),
		in.RestaurantID,
		in.CustomerPhone,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return Session{}, mapError(err)
	}
	return out, nil
}

func (s *PostgresStore) GetSession(ctx context.Context, sessionID string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, channel, restaurant_id, customer_phone, created_at
		FROM sessions
		WHERE session_id = $1
	`, sessionID)

	sess, err := scanSession(row)
	if err != nil {
		return Session{}, mapError(err)
	}
	return sess, nil
}

func (s *PostgresStore) ListSessions(ctx context.Context, restaurantID string) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, channel, restaurant_id, customer_phone, created_at
		FROM sessions
		WHERE $1 = '' OR restaurant_id = $1
		ORDER BY created_at DESC, id DESC
	`, restaurantID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, mapError(err)
		}
		out = append(out, sess)
	}
	return out, mapError(rows.Err())
}

func (s *PostgresStore) AppendTurn(ctx context.Context, in Turn) (Turn, error) {
	out := in
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO turns (session_id, role, content, audio_url, transcription, response_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`,
		in.SessionID,
		string(in.Role),
		in.Content,
		in.AudioRef,
		in.Transcript,
		in.LatencyMS,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return Turn{}, mapError(err)
	}
	return out, nil
}

func (s *PostgresStore) ListTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, audio_url, transcription, response_time_ms, created_at
		FROM turns
		WHERE session_id = $1
		ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []Turn
	for rows.Next() {
		var t Turn
		var role string
		if err := rows.Scan(
			&t.ID,
			&t.SessionID,
			&role,
			&t.Content,
			&t.AudioRef,
			&t.Transcript,
			&t.LatencyMS,
			&t.CreatedAt,
		); err != nil {
			return nil, mapError(err)
		}
		t.Role = Role(role)
		out = append(out, t)
	}
	return out, mapError(rows.Err())
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var sess Session
	var channel string
	if err := row.Scan(
		&sess.ID,
		&sess.SessionID,
		&channel,
		&sess.RestaurantID,
		&sess.CustomerPhone,
		&sess.CreatedAt,
	); err != nil {
		return Session{}, err
	}
	sess.Channel = Channel(channel)
	return sess, nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%w: %s", ErrExists, pqErr.Message)
		case pqForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrNotFound, pqErr.Message)
		}
	}
	return fmt.Errorf("conversation store: %w", err)
}
