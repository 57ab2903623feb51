package persona

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	llmmock "github.com/ravigajul/voice-ai-test/pkg/provider/llm/mock"
)

const defaultPresetYAML = `name: Ravi
disposition:
  - direct
  - impatient but not rude
directives: |
  You are Ravi, a busy customer calling to order pizza.
order:
  fulfillment: delivery
  items:
    - name: large pepperoni pizza
      quantity: 1
    - name: garlic knots
      quantity: 1
`

func writePreset(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}
}

func TestLoadPreset(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "default", defaultPresetYAML)

	p, err := LoadPreset(dir, "default")
	if err != nil {
		t.Fatalf("LoadPreset: %v", err)
	}
	if p.Name != "Ravi" {
		t.Fatalf("Name = %q, want %q", p.Name, "Ravi")
	}
	if len(p.Order.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(p.Order.Items))
	}
	if p.Order.Fulfillment != FulfillmentDelivery {
		t.Fatalf("Fulfillment = %q, want %q", p.Order.Fulfillment, FulfillmentDelivery)
	}
	if p.Phase != PhaseGreeting {
		t.Fatalf("Phase = %v, want %v", p.Phase, PhaseGreeting)
	}
}

func TestLoadPresetUnknownNameFallsBack(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "default", defaultPresetYAML)

	p, err := LoadPreset(dir, "no-such-preset")
	if err != nil {
		t.Fatalf("LoadPreset fallback: %v", err)
	}
	if p.Name != "Ravi" {
		t.Fatalf("fallback Name = %q, want default preset", p.Name)
	}
}

func TestLoadPresetMissingDefault(t *testing.T) {
	if _, err := LoadPreset(t.TempDir(), "anything"); err == nil {
		t.Fatal("expected error when default preset is missing")
	}
}

func TestLoadPresetRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "default", defaultPresetYAML+"surprise: field\n")

	if _, err := LoadPreset(dir, "default"); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadPresetValidation(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "default", `name: ""
directives: ""
order:
  fulfillment: teleport
  items:
    - name: ""
      quantity: -1
`)

	_, err := LoadPreset(dir, "default")
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"name must not be empty", "fulfillment", "quantity"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err, want)
		}
	}
}

func TestListPresets(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "rushed", defaultPresetYAML)
	writePreset(t, dir, "default", defaultPresetYAML)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	names, err := ListPresets(dir)
	if err != nil {
		t.Fatalf("ListPresets: %v", err)
	}
	if len(names) != 2 || names[0] != "default" || names[1] != "rushed" {
		t.Fatalf("names = %v, want [default rushed]", names)
	}
}

func TestExpandScenario(t *testing.T) {
	backend := &llmmock.Provider{
		Responses: []string{"You are Ravi, a hard-of-hearing customer who asks the agent to repeat things."},
	}

	example := testPersona()
	p, err := ExpandScenario(context.Background(), backend, "hard of hearing customer", example)
	if err != nil {
		t.Fatalf("ExpandScenario: %v", err)
	}
	if !strings.Contains(p.Directives, "hard-of-hearing") {
		t.Fatalf("Directives = %q", p.Directives)
	}
	if p.Name != example.Name {
		t.Fatalf("Name = %q, want example identity carried over", p.Name)
	}
	if len(p.Order.Items) != len(example.Order.Items) {
		t.Fatal("order goal not carried over from example")
	}

	// The expansion prompt must include the example directives as a template.
	prompt := backend.Requests[0].Messages[0].Content
	if !strings.Contains(prompt, example.Directives) {
		t.Fatalf("prompt missing example directives:\n%s", prompt)
	}
	if !strings.Contains(prompt, "hard of hearing customer") {
		t.Fatalf("prompt missing scenario text:\n%s", prompt)
	}
}

func TestExpandScenarioFailure(t *testing.T) {
	backend := &llmmock.Provider{Err: errors.New("model unavailable")}

	_, err := ExpandScenario(context.Background(), backend, "angry customer", testPersona())
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("err = %v, want *GenerationError", err)
	}

	if _, err := ExpandScenario(context.Background(), backend, "  ", testPersona()); err == nil {
		t.Fatal("expected error for empty scenario")
	}
}
