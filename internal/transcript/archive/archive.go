// Package archive provides an optional PostgreSQL transcript archive that
// runs alongside the file log. The file log stays authoritative for
// durability; the archive exists so test runs can be queried and compared
// across sessions.
package archive

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ravigajul/voice-ai-test/pkg/types"
)

// Store is a PostgreSQL-backed session archive. All operations are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// schema creates the sessions and turns tables when missing.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	persona     TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	ended_at    TIMESTAMPTZ,
	outcome     TEXT,
	turn_count  INT NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS turns (
	session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	seq         INT NOT NULL,
	role        TEXT NOT NULL,
	text        TEXT NOT NULL,
	spoken_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (session_id, seq)
);
`

// NewStore connects to the database at dsn and ensures the schema exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

// BeginSession registers a new session row.
func (s *Store) BeginSession(ctx context.Context, sessionID, personaSummary string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, persona) VALUES ($1, $2)`,
		sessionID, personaSummary,
	)
	if err != nil {
		return fmt.Errorf("archive: begin session: %w", err)
	}
	return nil
}

// AppendTurn inserts one turn with its position in the conversation.
func (s *Store) AppendTurn(ctx context.Context, sessionID string, seq int, turn types.Turn) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO turns (session_id, seq, role, text, spoken_at) VALUES ($1, $2, $3, $4, $5)`,
		sessionID, seq, string(turn.Role), turn.Text, turn.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("archive: append turn: %w", err)
	}
	return nil
}

// FinishSession records the outcome and final turn count.
func (s *Store) FinishSession(ctx context.Context, sessionID, outcome string, turns int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE sessions SET ended_at = now(), outcome = $2, turn_count = $3 WHERE id = $1`,
		sessionID, outcome, turns,
	)
	if err != nil {
		return fmt.Errorf("archive: finish session: %w", err)
	}
	return nil
}

// Ping verifies database connectivity. Used by readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("archive: ping: %w", err)
	}
	return nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}
