package persona

import (
	"reflect"
	"testing"
)

func TestAdvanceAgentPhases(t *testing.T) {
	tests := []struct {
		name string
		from Phase
		text string
		want Phase
	}{
		{"greeting to ordering on any turn", PhaseGreeting, "Welcome, what can I get you?", PhaseOrdering},
		{"ordering stays on plain turn", PhaseOrdering, "One large pepperoni, got it.", PhaseOrdering},
		{"ordering to confirming on readback", PhaseOrdering, "So is that everything for today?", PhaseConfirming},
		{"ordering to confirming on total", PhaseOrdering, "Your total comes to $24.50.", PhaseConfirming},
		{"confirming to payment", PhaseConfirming, "I'll transfer you to payment now.", PhasePayment},
		{"payment mention during ordering stays put", PhaseOrdering, "Let me take your payment.", PhaseOrdering},
		{"payment mention during greeting stays put", PhaseGreeting, "We accept many payment methods.", PhaseOrdering},
		{"readback plus total reaches payment in one turn", PhaseOrdering, "Your total comes to $24.50, transferring you to payment.", PhasePayment},
		{"ended is terminal", PhaseEnded, "Anything else?", PhaseEnded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdvanceAgent(Persona{Phase: tt.from}, tt.text)
			if got.Phase != tt.want {
				t.Fatalf("AdvanceAgent(%v, %q).Phase = %v, want %v", tt.from, tt.text, got.Phase, tt.want)
			}
		})
	}
}

func TestAdvanceCustomerBacktracking(t *testing.T) {
	p := Persona{Phase: PhaseConfirming}
	got := AdvanceCustomer(p, "Actually, can I change my order? Swap the wings for knots.")
	if got.Phase != PhaseOrdering {
		t.Fatalf("Phase after backtrack = %v, want %v", got.Phase, PhaseOrdering)
	}
}

func TestAdvanceCustomerEndsDuringPayment(t *testing.T) {
	p := Persona{Phase: PhasePayment}
	got := AdvanceCustomer(p, "Thank you.")
	if got.Phase != PhaseEnded {
		t.Fatalf("Phase after acknowledgment = %v, want %v", got.Phase, PhaseEnded)
	}
}

func TestAdvanceCustomerDoesNotEndEarly(t *testing.T) {
	// "thank you" outside the payment phase is just politeness.
	p := Persona{Phase: PhaseOrdering}
	got := AdvanceCustomer(p, "Thank you, and a garlic knots too please.")
	if got.Phase != PhaseOrdering {
		t.Fatalf("Phase = %v, want %v", got.Phase, PhaseOrdering)
	}
}

func TestAdvanceCustomerCommitsItems(t *testing.T) {
	p := Persona{
		Phase: PhaseOrdering,
		Order: OrderState{
			Items: []OrderItem{
				{Name: "large pepperoni pizza", Quantity: 1},
				{Name: "garlic knots", Quantity: 2},
			},
		},
	}

	got := AdvanceCustomer(p, "I'd like a large pepperoni pizza please.")
	if !got.Order.Items[0].Committed {
		t.Fatal("mentioned item not committed")
	}
	if got.Order.Items[1].Committed {
		t.Fatal("unmentioned item committed")
	}
	// Input persona must be untouched.
	if p.Order.Items[0].Committed {
		t.Fatal("AdvanceCustomer mutated its input")
	}
}

func TestAdvanceCustomerDeterminism(t *testing.T) {
	p := Persona{
		Phase: PhaseGreeting,
		Order: OrderState{Items: []OrderItem{{Name: "wings", Quantity: 1}}},
	}
	script := []string{
		"Hi, I'd like some wings.",
		"Yes, that's correct.",
		"Thank you.",
	}

	run := func() Persona {
		out := p
		for _, text := range script {
			out = AdvanceCustomer(out, text)
		}
		return out
	}

	a, b := run(), run()
	if a.Phase != b.Phase {
		t.Fatalf("phase diverged: %v vs %v", a.Phase, b.Phase)
	}
	if !reflect.DeepEqual(a.Order.Items, b.Order.Items) {
		t.Fatalf("items diverged: %+v vs %+v", a.Order.Items, b.Order.Items)
	}
}

func TestPersonaSummary(t *testing.T) {
	p := Persona{
		Name:        "Ravi",
		Disposition: []string{"direct", "impatient"},
		Order: OrderState{
			Items:       []OrderItem{{Name: "pizza", Quantity: 1}},
			Fulfillment: FulfillmentDelivery,
		},
	}
	got := p.Summary()
	want := "Ravi (direct, impatient), 1 item(s), delivery"
	if got != want {
		t.Fatalf("Summary() = %q, want %q", got, want)
	}
}

func TestPhaseString(t *testing.T) {
	if got := PhaseConfirming.String(); got != "confirming" {
		t.Fatalf("PhaseConfirming.String() = %q, want %q", got, "confirming")
	}
	if got := Phase(99).String(); got != "Phase(99)" {
		t.Fatalf("Phase(99).String() = %q, want %q", got, "Phase(99)")
	}
}
