package persona

import (
	"context"
	"fmt"
	"strings"

	"github.com/ravigajul/voice-ai-test/pkg/provider/llm"
)

// generatorSystem instructs the model to act as a test-scenario designer and
// emit only directive text, never commentary or markdown fences.
const generatorSystem = `You are a test scenario designer for a pizza ordering voice AI system.
Given a user's test scenario description, generate a detailed customer persona prompt.
The persona is calling a pizza restaurant to order food.

You MUST output ONLY the persona prompt text — no commentary, no markdown fences, no preamble.`

// ExpandScenario expands a freeform scenario description into a full Persona
// with one generation call, using the example persona's directives as a
// structural template. The identity, order goal, and fulfillment mode of the
// example carry over; only the behavioural directives are replaced.
//
// The caller surfaces the result to the operator before the session starts,
// so an unsuitable expansion can be aborted.
func ExpandScenario(ctx context.Context, provider llm.Provider, scenario string, example Persona) (Persona, error) {
	if strings.TrimSpace(scenario) == "" {
		return Persona{}, fmt.Errorf("persona: scenario must not be empty")
	}

	prompt := fmt.Sprintf(`Here is an example persona for reference:

---
%s
---

Now generate a NEW persona for this test scenario:

"%s"

Output only the persona text, matching the structure of the example above.`,
		example.Directives, scenario)

	resp, err := provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: generatorSystem,
		Messages:     []llm.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return Persona{}, &GenerationError{LastGood: example, Err: fmt.Errorf("expand scenario: %w", err)}
	}

	directives := strings.TrimSpace(resp.Content)
	if directives == "" {
		return Persona{}, &GenerationError{LastGood: example, Err: fmt.Errorf("expand scenario: empty generation")}
	}

	p := example
	p.Directives = directives
	p.Disposition = []string{"scenario: " + scenario}
	p.Phase = PhaseGreeting
	return p, nil
}
