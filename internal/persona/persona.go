// Package persona holds the synthetic customer's identity, order goal, and
// conversation phase, and generates persona-consistent utterances through an
// LLM backend.
//
// The persona is an explicit value: every Engine call takes the current
// Persona and returns the updated one. There is no hidden session state, so
// a deterministic backend yields identical persona state across runs given
// the same agent utterances.
package persona

import (
	"fmt"
	"strings"
)

// Phase marks how far the conversation has progressed. Transitions move
// forward monotonically except for explicit backtracking utterances
// ("actually, change my order"), which return the phase to PhaseOrdering.
type Phase int

const (
	// PhaseGreeting covers the opening exchange before any item is discussed.
	PhaseGreeting Phase = iota

	// PhaseOrdering covers item selection and customisation.
	PhaseOrdering

	// PhaseConfirming covers the agent reading back or totalling the order.
	PhaseConfirming

	// PhasePayment covers the payment handoff at the end of the call.
	PhasePayment

	// PhaseEnded is terminal.
	PhaseEnded
)

// String implements fmt.Stringer for log output and transcript headers.
func (p Phase) String() string {
	switch p {
	case PhaseGreeting:
		return "greeting"
	case PhaseOrdering:
		return "ordering"
	case PhaseConfirming:
		return "confirming"
	case PhasePayment:
		return "payment"
	case PhaseEnded:
		return "ended"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Fulfillment is how the customer wants to receive the order.
type Fulfillment string

const (
	FulfillmentDelivery Fulfillment = "delivery"
	FulfillmentPickup   Fulfillment = "pickup"
)

// OrderItem is one item the persona intends to order.
type OrderItem struct {
	Name      string   `yaml:"name"`
	Quantity  int      `yaml:"quantity"`
	Modifiers []string `yaml:"modifiers"`

	// Committed is set once the conversation has covered this item, so the
	// persona does not re-ask for it. Not read from preset files.
	Committed bool `yaml:"-"`
}

// OrderState is the persona's order-in-progress snapshot.
type OrderState struct {
	Items       []OrderItem `yaml:"items"`
	Fulfillment Fulfillment `yaml:"fulfillment"`
}

// Persona is the synthetic customer: identity, behavioural directives, order
// goal, and conversation phase. Created once at session start from a preset
// or an expanded scenario, then mutated only by the Engine.
type Persona struct {
	Name        string     `yaml:"name"`
	Disposition []string   `yaml:"disposition"`
	Directives  string     `yaml:"directives"`
	Order       OrderState `yaml:"order"`
	Phase       Phase      `yaml:"-"`
}

// Summary returns a one-line description for transcript headers and the
// startup banner.
func (p Persona) Summary() string {
	var b strings.Builder
	b.WriteString(p.Name)
	if len(p.Disposition) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(p.Disposition, ", "))
		b.WriteString(")")
	}
	if n := len(p.Order.Items); n > 0 {
		fmt.Fprintf(&b, ", %d item(s), %s", n, p.Order.Fulfillment)
	}
	return b.String()
}

// GenerationError reports a failed or unusable generation call. It carries
// the last-known-good persona so the caller can preserve consistent state
// when aborting the session.
type GenerationError struct {
	LastGood Persona
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("persona: generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// backtrackPhrases are customer utterances that revise the order and pull
// the phase back to ordering.
var backtrackPhrases = []string{
	"actually",
	"change my order",
	"instead",
	"wait,",
	"on second thought",
}

// confirmingCues in an agent utterance advance the phase to confirming.
var confirmingCues = []string{
	"is that correct",
	"is that everything",
	"is that all",
	"to confirm",
	"your total",
	"that comes to",
	"let me read",
	"read that back",
}

// paymentCues in an agent utterance advance the phase from confirming to
// payment. They deliberately do not fire from earlier phases: an agent
// mentioning payment methods during greeting or ordering has not started
// the handoff, and a phase that jumps ahead would keep a stale pending
// handoff alive in the session loop.
var paymentCues = []string{
	"payment",
	"transfer",
	"card",
	"pay ",
}

// endCues in a customer utterance advance the phase to ended.
var endCues = []string{
	"goodbye",
	"that's all",
	"thanks, bye",
}

// AdvanceAgent returns the persona state after observing one agent
// utterance. Pure function of its inputs.
func AdvanceAgent(p Persona, text string) Persona {
	if p.Phase == PhaseEnded {
		return p
	}
	lower := strings.ToLower(text)

	if p.Phase == PhaseGreeting {
		p.Phase = PhaseOrdering
	}
	if p.Phase == PhaseOrdering && containsAny(lower, confirmingCues) {
		p.Phase = PhaseConfirming
	}
	if p.Phase == PhaseConfirming && containsAny(lower, paymentCues) {
		p.Phase = PhasePayment
	}
	return p
}

// AdvanceCustomer returns the persona state after one customer utterance:
// items mentioned by the customer are marked committed, backtracking
// utterances return the phase to ordering, and end phrases (or an
// acknowledgment during payment) close the conversation. Pure function of
// its inputs.
func AdvanceCustomer(p Persona, text string) Persona {
	if p.Phase == PhaseEnded {
		return p
	}
	lower := strings.ToLower(text)

	items := make([]OrderItem, len(p.Order.Items))
	copy(items, p.Order.Items)
	for i := range items {
		if !items[i].Committed && strings.Contains(lower, strings.ToLower(items[i].Name)) {
			items[i].Committed = true
		}
	}
	p.Order.Items = items

	switch {
	case containsAny(lower, endCues):
		p.Phase = PhaseEnded
	case p.Phase == PhasePayment && containsAny(lower, []string{"thank you", "great", "perfect"}):
		p.Phase = PhaseEnded
	case containsAny(lower, backtrackPhrases):
		p.Phase = PhaseOrdering
	case p.Phase == PhaseGreeting:
		p.Phase = PhaseOrdering
	}
	return p
}

func containsAny(lower string, phrases []string) bool {
	for _, ph := range phrases {
		if strings.Contains(lower, ph) {
			return true
		}
	}
	return false
}
