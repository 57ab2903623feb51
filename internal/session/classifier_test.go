package session

import (
	"testing"

	"github.com/ravigajul/voice-ai-test/pkg/types"
)

func TestClassifyAgentKeywords(t *testing.T) {
	c := NewHandoffClassifier()

	tests := []struct {
		name string
		text string
		want types.TerminationSignal
	}{
		{"transfer keyword", "I will transfer you now", types.SignalHandoffPending},
		{"payment keyword", "Let me take your payment", types.SignalHandoffPending},
		{"case-insensitive", "TRANSFERRING you to PAYMENT", types.SignalHandoffPending},
		{"substring looseness", "let's discuss overpayment", types.SignalHandoffPending},
		{"no keyword", "What toppings would you like?", types.SignalContinue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(types.SignalContinue, types.Turn{Role: types.RoleAgent, Text: tt.text})
			if got != tt.want {
				t.Fatalf("Classify(agent %q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassifyNeverEndsOnAgentTurnAlone(t *testing.T) {
	c := NewHandoffClassifier()
	got := c.Classify(types.SignalContinue, types.Turn{Role: types.RoleAgent, Text: "payment payment payment"})
	if got == types.SignalHandoffAcknowledged {
		t.Fatal("agent turn alone produced the acknowledged signal")
	}
}

func TestClassifyAcknowledgment(t *testing.T) {
	c := NewHandoffClassifier()

	// Without a pending handoff, an ack changes nothing.
	got := c.Classify(types.SignalContinue, types.Turn{Role: types.RoleCustomer, Text: "Thank you."})
	if got != types.SignalContinue {
		t.Fatalf("ack without pending handoff = %v, want %v", got, types.SignalContinue)
	}

	// With a pending handoff, the same ack completes it.
	got = c.Classify(types.SignalHandoffPending, types.Turn{Role: types.RoleCustomer, Text: "Thank you."})
	if got != types.SignalHandoffAcknowledged {
		t.Fatalf("ack with pending handoff = %v, want %v", got, types.SignalHandoffAcknowledged)
	}

	// A non-ack customer turn leaves the pending signal in place.
	got = c.Classify(types.SignalHandoffPending, types.Turn{Role: types.RoleCustomer, Text: "Wait, I want to add wings."})
	if got != types.SignalHandoffPending {
		t.Fatalf("non-ack customer turn = %v, want %v", got, types.SignalHandoffPending)
	}
}

func TestClassifierOverrides(t *testing.T) {
	c := NewHandoffClassifier(
		WithHandoffKeywords([]string{"checkout"}),
		WithAckPhrases([]string{"roger"}),
	)

	got := c.Classify(types.SignalContinue, types.Turn{Role: types.RoleAgent, Text: "I will transfer you"})
	if got != types.SignalContinue {
		t.Fatal("default keyword still active after override")
	}
	got = c.Classify(types.SignalContinue, types.Turn{Role: types.RoleAgent, Text: "proceeding to checkout"})
	if got != types.SignalHandoffPending {
		t.Fatal("override keyword not matched")
	}
	got = c.Classify(types.SignalHandoffPending, types.Turn{Role: types.RoleCustomer, Text: "Roger that."})
	if got != types.SignalHandoffAcknowledged {
		t.Fatal("override ack not matched")
	}
}

func TestOperatorExitAndCustomerEnd(t *testing.T) {
	c := NewHandoffClassifier()

	if !c.IsOperatorExit("Okay, exit.") {
		t.Fatal("exit not detected")
	}
	if !c.IsOperatorExit("Goodbye then") {
		t.Fatal("goodbye not detected")
	}
	if c.IsOperatorExit("What would you like?") {
		t.Fatal("false positive operator exit")
	}
	// Exit words match whole words only; the handoff lexicons' substring
	// looseness does not apply here.
	if c.IsOperatorExit("I'm excited about this order") {
		t.Fatal("\"excited\" must not end the session")
	}
	if c.IsOperatorExit("say goodbyes to the chef") {
		t.Fatal("\"goodbyes\" must not end the session")
	}

	if !c.IsCustomerEnd("That's all, thanks, bye!") {
		t.Fatal("customer end not detected")
	}
	if c.IsCustomerEnd("I'd like a pizza") {
		t.Fatal("false positive customer end")
	}
}
