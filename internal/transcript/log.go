// Package transcript persists conversation transcripts: a human-readable
// file log written incrementally per turn, a phonetic corrector for misheard
// domain vocabulary, and an optional Postgres archive.
package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ravigajul/voice-ai-test/pkg/types"
)

// filenameLayout names one log file per session by its start timestamp,
// e.g. test_run_20260830_142501.txt.
const filenameLayout = "test_run_20060102_150405.txt"

// Log is a file-backed transcript sink. Each appended turn is synced to
// disk before AppendTurn returns, so a crash after turn N never loses turns
// 1..N. Writes are serialised by a mutex in case sessions ever share a log
// destination.
type Log struct {
	mu   sync.Mutex
	f    *os.File
	path string
	done bool
}

// NewLog creates the transcript file for one session under dir (created if
// missing) and writes the header.
func NewLog(dir, sessionID, personaSummary string, start time.Time) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("transcript: create log dir: %w", err)
	}

	path := filepath.Join(dir, start.Format(filenameLayout))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("transcript: create log file: %w", err)
	}

	l := &Log{f: f, path: path}
	header := fmt.Sprintf("Session: %s\nPersona: %s\nStarted: %s\n%s\n\n",
		sessionID, personaSummary, start.Format(time.RFC3339), divider)
	if err := l.write(header); err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

const divider = "--------------------"

// Path returns the log file location.
func (l *Log) Path() string { return l.path }

// AppendTurn writes one role-labelled turn line and syncs it to disk.
func (l *Log) AppendTurn(turn types.Turn) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done {
		return fmt.Errorf("transcript: log already finalized")
	}
	return l.write(turn.String() + "\n")
}

// Finalize writes the outcome footer, syncs, and closes the file. Safe to
// call once; the Log is unusable afterwards.
func (l *Log) Finalize(outcome string, turns int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done {
		return nil
	}
	l.done = true

	footer := fmt.Sprintf("\n%s\nOutcome: %s\nTurns: %d\nEnded: %s\n",
		divider, outcome, turns, time.Now().Format(time.RFC3339))
	werr := l.write(footer)
	cerr := l.f.Close()
	if werr != nil {
		return werr
	}
	if cerr != nil {
		return fmt.Errorf("transcript: close log: %w", cerr)
	}
	return nil
}

// write appends and syncs. Callers hold l.mu.
func (l *Log) write(s string) error {
	if _, err := l.f.WriteString(s); err != nil {
		return fmt.Errorf("transcript: write log: %w", err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("transcript: sync log: %w", err)
	}
	return nil
}
