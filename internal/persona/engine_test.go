package persona

import (
	"context"
	"errors"
	"strings"
	"testing"

	llmmock "github.com/ravigajul/voice-ai-test/pkg/provider/llm/mock"
	"github.com/ravigajul/voice-ai-test/pkg/types"
)

func testPersona() Persona {
	return Persona{
		Name:       "Ravi",
		Directives: "You are Ravi, a busy customer ordering pizza.",
		Order: OrderState{
			Items:       []OrderItem{{Name: "large pepperoni pizza", Quantity: 1}},
			Fulfillment: FulfillmentDelivery,
		},
		Phase: PhaseGreeting,
	}
}

func TestRespondEmbedsFullTranscript(t *testing.T) {
	backend := &llmmock.Provider{Responses: []string{"I'd like a large pepperoni pizza."}}
	eng, err := NewEngine(backend)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	var tr types.Transcript
	tr.Append(types.RoleAgent, "Thanks for calling, what can I get you?")
	tr.Append(types.RoleCustomer, "Hi, one second.")
	tr.Append(types.RoleAgent, "Take your time.")

	utterance, _, err := eng.Respond(context.Background(), &tr, testPersona())
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if utterance != "I'd like a large pepperoni pizza." {
		t.Fatalf("utterance = %q", utterance)
	}

	req := backend.Requests[0]
	if req.SystemPrompt != "You are Ravi, a busy customer ordering pizza." {
		t.Fatalf("system prompt = %q", req.SystemPrompt)
	}
	prompt := req.Messages[0].Content
	for _, line := range []string{
		"Agent: Thanks for calling, what can I get you?",
		"Customer: Hi, one second.",
		"Agent: Take your time.",
	} {
		if !strings.Contains(prompt, line) {
			t.Fatalf("prompt missing transcript line %q:\n%s", line, prompt)
		}
	}
	if !strings.Contains(prompt, "You are Ravi.") {
		t.Fatalf("prompt missing persona instruction:\n%s", prompt)
	}
}

func TestRespondRulesPrecedeHistory(t *testing.T) {
	backend := &llmmock.Provider{Responses: []string{"Okay, just the pizza then."}}
	eng, _ := NewEngine(backend)

	var tr types.Transcript
	tr.Append(types.RoleCustomer, "Can I get a mango lassi?")
	tr.Append(types.RoleAgent, "I'm sorry, we don't have mango lassi.")

	if _, _, err := eng.Respond(context.Background(), &tr, testPersona()); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	prompt := backend.Requests[0].Messages[0].Content
	rules := strings.Index(prompt, "RULES FOR THIS RESPONSE")
	history := strings.Index(prompt, "Conversation History:")
	if rules < 0 {
		t.Fatalf("prompt missing rules block:\n%s", prompt)
	}
	if rules > history {
		t.Fatalf("rules block at %d after history at %d", rules, history)
	}
	if !strings.Contains(prompt, "NOT AVAILABLE") {
		t.Fatalf("prompt missing rejection constraint:\n%s", prompt)
	}
}

func TestRespondPendingOfferOnlyFromLastAgentTurn(t *testing.T) {
	turns := []types.Turn{
		{Role: types.RoleAgent, Text: "We have Pepsi and Sprite. Which would you like?"},
		{Role: types.RoleCustomer, Text: "Pepsi please."},
		{Role: types.RoleAgent, Text: "Got it, anything else?"},
	}
	c := deriveConstraints(turns)
	if c.lastOffer != "" {
		t.Fatalf("answered offer still pending: %q", c.lastOffer)
	}

	turns = append(turns,
		types.Turn{Role: types.RoleCustomer, Text: "What desserts are there?"},
		types.Turn{Role: types.RoleAgent, Text: "We have brownies and cookies. Which would you like?"},
	)
	c = deriveConstraints(turns)
	if c.lastOffer != "We have brownies and cookies. Which would you like?" {
		t.Fatalf("pending offer = %q", c.lastOffer)
	}
}

func TestRespondGenerationErrorPreservesPersona(t *testing.T) {
	backend := &llmmock.Provider{Err: errors.New("connection refused")}
	eng, _ := NewEngine(backend)

	p := testPersona()
	p.Phase = PhaseConfirming

	var tr types.Transcript
	tr.Append(types.RoleAgent, "Is that everything?")

	_, returned, err := eng.Respond(context.Background(), &tr, p)
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("err = %v, want *GenerationError", err)
	}
	if genErr.LastGood.Phase != PhaseConfirming {
		t.Fatalf("LastGood.Phase = %v, want %v", genErr.LastGood.Phase, PhaseConfirming)
	}
	if returned.Phase != PhaseConfirming {
		t.Fatalf("returned persona advanced despite failure: %v", returned.Phase)
	}
}

func TestRespondEmptyGenerationIsError(t *testing.T) {
	backend := &llmmock.Provider{Responses: []string{"  \"\"  "}}
	eng, _ := NewEngine(backend)

	var tr types.Transcript
	tr.Append(types.RoleAgent, "What would you like?")

	_, _, err := eng.Respond(context.Background(), &tr, testPersona())
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("err = %v, want *GenerationError", err)
	}
}

func TestCleanUtterance(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"Yes, that's correct."`, "Yes, that's correct."},
		{"Customer: One large pizza please.", "One large pizza please."},
		{"Ravi: Thank you.", "Thank you."},
		{"Me: Sounds good.", "Sounds good."},
		{"  plain text  ", "plain text"},
	}
	for _, tt := range tests {
		if got := CleanUtterance(tt.in, "Ravi"); got != tt.want {
			t.Fatalf("CleanUtterance(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRespondAdvancesPersona(t *testing.T) {
	backend := &llmmock.Provider{Responses: []string{"Thank you."}}
	eng, _ := NewEngine(backend)

	p := testPersona()
	p.Phase = PhaseConfirming

	var tr types.Transcript
	tr.Append(types.RoleAgent, "I'll transfer you to our payment system now.")

	_, updated, err := eng.Respond(context.Background(), &tr, p)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if updated.Phase != PhaseEnded {
		t.Fatalf("Phase = %v, want %v", updated.Phase, PhaseEnded)
	}
}
