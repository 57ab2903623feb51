package persona

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ravigajul/voice-ai-test/pkg/provider/llm"
	"github.com/ravigajul/voice-ai-test/pkg/types"
)

// Rejection, confirmation, and offer cues in agent utterances. Matched
// case-insensitively as substrings; the matched utterance is injected
// verbatim into the constraint block.
var (
	rejectionPhrases = []string{
		"don't have", "do not have", "we don't", "we do not",
		"not available", "unfortunately", "i'm sorry, we",
		"sorry, we don't", "sorry, we do not", "i'm sorry,",
		"can't add", "cannot add",
	}

	confirmationPhrases = []string{
		"i've already", "i have already", "already updated",
		"already added", "already removed", "already swapped",
		"already changed", "already included", "already have the",
		"you already have", "i've updated your order",
		"i've added", "i've removed", "i've swapped",
	}

	offerTriggerPhrases = []string{
		"we have", "you can choose", "you can pick",
		"would you like", "which would you", "what size",
		"what kind", "what flavor", "which size", "which flavor",
	}
)

// rolePrefixes are stripped from generated utterances when the model leaks
// a speaker label despite the directives.
var rolePrefixes = []string{"Customer:", "Me:", "Customer Agent:", "User:"}

// Engine generates customer utterances from the persona and the full
// transcript. It is stateless: all conversation state lives in the Persona
// value and the Transcript.
type Engine struct {
	provider    llm.Provider
	temperature float64
	maxTokens   int
}

// EngineOption is a functional option for [NewEngine].
type EngineOption func(*Engine)

// WithTemperature sets the sampling temperature for generation calls.
func WithTemperature(t float64) EngineOption {
	return func(e *Engine) { e.temperature = t }
}

// WithMaxTokens caps the length of generated utterances.
func WithMaxTokens(n int) EngineOption {
	return func(e *Engine) { e.maxTokens = n }
}

// NewEngine creates an Engine backed by the given LLM provider.
func NewEngine(provider llm.Provider, opts ...EngineOption) (*Engine, error) {
	if provider == nil {
		return nil, errors.New("persona: provider must not be nil")
	}
	e := &Engine{provider: provider}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Respond generates the next customer utterance from the full transcript and
// the current persona, and returns the updated persona.
//
// The prompt embeds the persona directives (system), the running order
// state, derived conversation constraints, and the ENTIRE prior transcript
// so responses stay consistent with earlier commitments. On backend failure
// or an empty generation it returns a *GenerationError carrying the
// pre-call persona; the caller treats that as session-fatal.
func (e *Engine) Respond(ctx context.Context, transcript *types.Transcript, p Persona) (string, Persona, error) {
	updated := p
	if last, ok := transcript.Last(); ok && last.Role == types.RoleAgent {
		updated = AdvanceAgent(updated, last.Text)
	}

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: p.Directives,
		Messages: []llm.Message{{
			Role:    "user",
			Content: buildPrompt(updated, transcript),
		}},
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	})
	if err != nil {
		return "", p, &GenerationError{LastGood: p, Err: err}
	}

	utterance := CleanUtterance(resp.Content, p.Name)
	if utterance == "" {
		return "", p, &GenerationError{LastGood: p, Err: errors.New("empty utterance")}
	}

	updated = AdvanceCustomer(updated, utterance)
	return utterance, updated, nil
}

// buildPrompt assembles the generation prompt. Derived constraints go FIRST
// so the model reads them before the conversation history; placed after the
// history the model anchors on prior dialogue and ignores them.
func buildPrompt(p Persona, transcript *types.Transcript) string {
	var b strings.Builder

	c := deriveConstraints(transcript.Turns())
	hasRules := len(c.rejections) > 0 || len(c.confirmations) > 0 || c.lastOffer != ""
	if hasRules {
		b.WriteString("RULES FOR THIS RESPONSE — read these BEFORE the conversation:\n")
	}

	if len(c.rejections) > 0 {
		b.WriteString("The agent has confirmed these items are NOT AVAILABLE.\n")
		b.WriteString("You MUST NOT mention, request, or reference any of them again in any form (including size variants):\n")
		for _, r := range c.rejections {
			b.WriteString("  ✗ " + r + "\n")
		}
		b.WriteString("If the agent offered alternatives, pick one of those instead.\n")
	}

	if len(c.confirmations) > 0 {
		b.WriteString("The agent has ALREADY CONFIRMED these actions are done. ")
		b.WriteString("Do NOT ask for them again, do NOT reference these items as missing or unresolved. ")
		b.WriteString("Treat them as complete:\n")
		for _, conf := range c.confirmations {
			b.WriteString("  ✓ " + conf + "\n")
		}
		if len(c.confirmations) >= 2 {
			b.WriteString("WARNING: You have been repeating yourself. ")
			b.WriteString("The agent has confirmed the same thing multiple times. ")
			b.WriteString("Stop asking about it and move the conversation forward. ")
			b.WriteString("If your order is complete, say so and wrap up the call.\n")
		}
	}

	if c.lastOffer != "" {
		b.WriteString("The agent just asked you to choose. ")
		b.WriteString("You MUST pick a specific option from what they listed. ")
		b.WriteString("Do NOT give a vague answer.\n")
		b.WriteString("Agent's question/offer: \"" + c.lastOffer + "\"\n")
	}

	if hasRules {
		b.WriteByte('\n')
	}

	if remaining := uncommittedItems(p.Order); len(remaining) > 0 {
		b.WriteString("Your order so far still needs: " + strings.Join(remaining, ", ") + ".\n\n")
	}

	b.WriteString("Conversation History:\n")
	b.WriteString(transcript.Render())
	fmt.Fprintf(&b, "\n\nYou are %s. Respond with ONLY your spoken words. What do you say next?", p.Name)
	return b.String()
}

// constraints are the facts derived from agent turns that must override the
// conversation history.
type constraints struct {
	rejections    []string
	confirmations []string
	lastOffer     string
}

// deriveConstraints recomputes the constraint set from the whole transcript.
// Only an offer in the final agent turn is still pending; earlier offers
// already received a customer response.
func deriveConstraints(turns []types.Turn) constraints {
	var c constraints
	for i, t := range turns {
		if t.Role != types.RoleAgent {
			continue
		}
		lower := strings.ToLower(t.Text)
		text := strings.TrimSpace(t.Text)

		if containsAny(lower, rejectionPhrases) && !containsString(c.rejections, text) {
			c.rejections = append(c.rejections, text)
		}
		if containsAny(lower, confirmationPhrases) && !containsString(c.confirmations, text) {
			c.confirmations = append(c.confirmations, text)
		}
		if i == len(turns)-1 && strings.Contains(t.Text, "?") && containsAny(lower, offerTriggerPhrases) {
			c.lastOffer = text
		}
	}
	return c
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func uncommittedItems(o OrderState) []string {
	var out []string
	for _, item := range o.Items {
		if item.Committed {
			continue
		}
		name := item.Name
		if item.Quantity > 1 {
			name = fmt.Sprintf("%d x %s", item.Quantity, name)
		}
		out = append(out, name)
	}
	return out
}

// CleanUtterance strips surrounding quotes and leaked role prefixes from a
// generated utterance.
func CleanUtterance(raw, personaName string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'")

	prefixes := rolePrefixes
	if personaName != "" {
		prefixes = append([]string{personaName + ":"}, prefixes...)
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimSpace(s[len(prefix):])
		}
	}
	return strings.TrimSpace(s)
}
