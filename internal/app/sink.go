package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ravigajul/voice-ai-test/internal/persona"
	"github.com/ravigajul/voice-ai-test/internal/session"
	"github.com/ravigajul/voice-ai-test/internal/transcript"
	"github.com/ravigajul/voice-ai-test/internal/transcript/archive"
	"github.com/ravigajul/voice-ai-test/pkg/types"
)

// sessionSink fans each turn out to the transcript file and, when
// configured, the Postgres archive. The file log is authoritative: its
// failures abort the session, while archive failures only log a warning.
type sessionSink struct {
	log   *transcript.Log
	store *archive.Store

	// ctx outlives session cancellation so the archive still receives the
	// final rows of a cancelled session.
	ctx       context.Context
	sessionID string

	mu  sync.Mutex
	seq int
}

var _ session.Sink = (*sessionSink)(nil)

// newSink creates the transcript file and registers the session in the
// archive when one is connected.
func (a *App) newSink(ctx context.Context, sessionID string, p persona.Persona) (*sessionSink, error) {
	log, err := transcript.NewLog(a.cfg.Transcript.Dir, sessionID, p.Summary(), time.Now())
	if err != nil {
		return nil, err
	}

	s := &sessionSink{
		log:       log,
		store:     a.store,
		ctx:       context.WithoutCancel(ctx),
		sessionID: sessionID,
	}
	if s.store != nil {
		if err := s.store.BeginSession(s.ctx, sessionID, p.Summary()); err != nil {
			slog.Warn("archive unavailable for this session", "err", err)
			s.store = nil
		}
	}

	slog.Info("transcript log created", "path", log.Path())
	return s, nil
}

func (s *sessionSink) AppendTurn(turn types.Turn) error {
	if err := s.log.AppendTurn(turn); err != nil {
		return err
	}
	if s.store == nil {
		return nil
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	if err := s.store.AppendTurn(s.ctx, s.sessionID, seq, turn); err != nil {
		slog.Warn("archive append failed", "seq", seq, "err", err)
	}
	return nil
}

func (s *sessionSink) Finalize(outcome string, turns int) error {
	if s.store != nil {
		if err := s.store.FinishSession(s.ctx, s.sessionID, outcome, turns); err != nil {
			slog.Warn("archive finalize failed", "err", err)
		}
	}
	return s.log.Finalize(outcome, turns)
}

// Path returns the transcript file location for operator-facing output.
func (s *sessionSink) Path() string { return s.log.Path() }
