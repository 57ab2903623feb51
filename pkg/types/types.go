// Package types defines the shared conversation types used across all
// voice-ai-test packages.
//
// These types form the lingua franca between the capture/transcription
// providers, the persona engine, and the session orchestrator. Each package
// defines its own domain types; cross-cutting data structures live here to
// avoid circular imports.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies which party produced a conversation turn.
type Role string

const (
	// RoleAgent is the human operator playing the ordering agent.
	RoleAgent Role = "agent"

	// RoleCustomer is the synthetic LLM-driven customer persona.
	RoleCustomer Role = "customer"
)

// IsValid reports whether r is a recognised role.
func (r Role) IsValid() bool {
	return r == RoleAgent || r == RoleCustomer
}

// Turn is a single utterance by either party, with the wall-clock time it
// was committed to the transcript.
type Turn struct {
	Role      Role
	Text      string
	Timestamp time.Time
}

// Label returns the display label used in logs and prompts ("Agent" or
// "Customer").
func (t Turn) Label() string {
	switch t.Role {
	case RoleAgent:
		return "Agent"
	case RoleCustomer:
		return "Customer"
	}
	return string(t.Role)
}

// String renders the turn as a single role-labelled line.
func (t Turn) String() string {
	return fmt.Sprintf("%s: %s", t.Label(), t.Text)
}

// Transcript is the ordered, append-only sequence of turns for one session.
// Insertion order is conversation order; turns are never reordered or mutated
// after append. The session orchestrator owns the transcript exclusively for
// the duration of one session, so Transcript performs no locking of its own.
type Transcript struct {
	turns []Turn
}

// Append adds a turn with the current time and returns it. Timestamps are
// monotone non-decreasing because appends only happen from the single
// session loop.
func (tr *Transcript) Append(role Role, text string) Turn {
	t := Turn{Role: role, Text: text, Timestamp: time.Now()}
	tr.turns = append(tr.turns, t)
	return t
}

// AppendTurn adds a pre-built turn verbatim. Used by tests and by replay
// tooling; normal session flow goes through Append.
func (tr *Transcript) AppendTurn(t Turn) {
	tr.turns = append(tr.turns, t)
}

// Len returns the number of turns recorded so far.
func (tr *Transcript) Len() int { return len(tr.turns) }

// Last returns the most recent turn and true, or a zero Turn and false when
// the transcript is empty.
func (tr *Transcript) Last() (Turn, bool) {
	if len(tr.turns) == 0 {
		return Turn{}, false
	}
	return tr.turns[len(tr.turns)-1], true
}

// Turns returns a copy of the recorded turns. The copy protects the
// append-only invariant: callers cannot reorder or mutate the transcript
// through the returned slice.
func (tr *Transcript) Turns() []Turn {
	out := make([]Turn, len(tr.turns))
	copy(out, tr.turns)
	return out
}

// Render returns the transcript as role-labelled lines, one turn per line,
// in conversation order. This is the exact form embedded in persona prompts.
func (tr *Transcript) Render() string {
	var b strings.Builder
	for i, t := range tr.turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(t.String())
	}
	return b.String()
}

// TerminationSignal is the tri-state outcome of classifying the latest turns
// against the handoff lexicon.
type TerminationSignal int

const (
	// SignalContinue means no handoff condition is active.
	SignalContinue TerminationSignal = iota

	// SignalHandoffPending means the agent's turn contained a handoff
	// keyword. The session must NOT end on this alone — a customer
	// acknowledgment is still required.
	SignalHandoffPending

	// SignalHandoffAcknowledged means a pending handoff was followed by a
	// customer turn that acknowledges it. The session ends as completed.
	SignalHandoffAcknowledged
)

// String implements fmt.Stringer for log output.
func (s TerminationSignal) String() string {
	switch s {
	case SignalContinue:
		return "continue"
	case SignalHandoffPending:
		return "handoff-pending"
	case SignalHandoffAcknowledged:
		return "handoff-acknowledged"
	}
	return fmt.Sprintf("TerminationSignal(%d)", int(s))
}
