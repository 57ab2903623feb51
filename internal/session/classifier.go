package session

import (
	"strings"
	"unicode"

	"github.com/ravigajul/voice-ai-test/pkg/types"
)

// Default lexicons. Matching is case-insensitive SUBSTRING matching, not
// whole-word: "overpayment" triggers the handoff keyword "payment". That
// looseness is carried intentionally from the source design and is pinned
// by tests.
var (
	// DefaultHandoffKeywords in an agent turn mark a pending handoff.
	DefaultHandoffKeywords = []string{"transfer", "payment"}

	// DefaultAckPhrases in a customer turn complete a pending handoff.
	DefaultAckPhrases = []string{"thank you", "okay", "sure", "great", "perfect", "sounds good"}

	// DefaultOperatorExitPhrases let the operator end the session early.
	// Unlike the lexicons above these are matched as whole words, so
	// "excited" does not end the session.
	DefaultOperatorExitPhrases = []string{"exit", "goodbye"}

	// DefaultCustomerEndPhrases close the session from the customer side.
	DefaultCustomerEndPhrases = []string{"goodbye", "that's all", "thanks, bye"}
)

// HandoffClassifier turns raw utterance text into termination signals. The
// lexicons are explicit and overridable rather than hardcoded in the loop,
// so tests and configs can pin the exact matching policy.
//
// A HandoffClassifier is immutable after construction and safe for
// concurrent use.
type HandoffClassifier struct {
	keywords     []string
	acks         []string
	operatorExit []string
	customerEnd  []string
}

// ClassifierOption is a functional option for [NewHandoffClassifier].
type ClassifierOption func(*HandoffClassifier)

// WithHandoffKeywords replaces the agent handoff keyword set.
func WithHandoffKeywords(keywords []string) ClassifierOption {
	return func(c *HandoffClassifier) {
		if len(keywords) > 0 {
			c.keywords = lowerAll(keywords)
		}
	}
}

// WithAckPhrases replaces the customer acknowledgment lexicon.
func WithAckPhrases(phrases []string) ClassifierOption {
	return func(c *HandoffClassifier) {
		if len(phrases) > 0 {
			c.acks = lowerAll(phrases)
		}
	}
}

// NewHandoffClassifier creates a classifier with the default lexicons,
// optionally overridden.
func NewHandoffClassifier(opts ...ClassifierOption) *HandoffClassifier {
	c := &HandoffClassifier{
		keywords:     lowerAll(DefaultHandoffKeywords),
		acks:         lowerAll(DefaultAckPhrases),
		operatorExit: lowerAll(DefaultOperatorExitPhrases),
		customerEnd:  lowerAll(DefaultCustomerEndPhrases),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Classify advances the termination signal given the current signal and one
// new turn:
//
//   - an agent turn containing a handoff keyword yields SignalHandoffPending;
//   - a customer turn containing an acknowledgment while a handoff is
//     pending yields SignalHandoffAcknowledged;
//   - anything else leaves the signal unchanged.
//
// A keyword match on the agent turn alone never yields the acknowledged
// signal: the session can only end after the customer confirms.
func (c *HandoffClassifier) Classify(current types.TerminationSignal, turn types.Turn) types.TerminationSignal {
	lower := strings.ToLower(turn.Text)
	switch turn.Role {
	case types.RoleAgent:
		if matchAny(lower, c.keywords) {
			return types.SignalHandoffPending
		}
	case types.RoleCustomer:
		if current == types.SignalHandoffPending && matchAny(lower, c.acks) {
			return types.SignalHandoffAcknowledged
		}
	}
	return current
}

// IsOperatorExit reports whether an agent utterance is an explicit request
// to end the session early ("exit", "goodbye"). Exit words are matched as
// whole words, not substrings: ending the session is a deliberate command,
// and the substring looseness of the handoff lexicons would fire it from
// words like "excited".
func (c *HandoffClassifier) IsOperatorExit(text string) bool {
	return matchAnyWord(strings.ToLower(text), c.operatorExit)
}

// IsCustomerEnd reports whether a customer utterance closes the
// conversation on its own ("goodbye", "that's all", "thanks, bye").
func (c *HandoffClassifier) IsCustomerEnd(text string) bool {
	return matchAny(strings.ToLower(text), c.customerEnd)
}

func matchAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func matchAnyWord(lower string, words []string) bool {
	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, tok := range tokens {
		for _, w := range words {
			if tok == w {
				return true
			}
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
