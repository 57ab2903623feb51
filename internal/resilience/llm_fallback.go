package resilience

import (
	"context"

	"github.com/ravigajul/voice-ai-test/pkg/provider/llm"
)

// LLMFallback implements [llm.Provider] across multiple language-model
// backends. The persona keeps talking on a fallback model when the primary
// goes down, at the cost of a possible mid-session style shift.
type LLMFallback struct {
	group *FallbackGroup[llm.Provider]
}

var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback creates an [LLMFallback] with primary as the preferred
// backend.
func NewLLMFallback(primaryName string, primary llm.Provider, cfg FallbackConfig) *LLMFallback {
	return &LLMFallback{group: NewFallbackGroup(primaryName, primary, cfg)}
}

// Add registers an additional backend, tried after all earlier entries.
func (f *LLMFallback) Add(name string, p llm.Provider) {
	f.group.Add(name, p)
}

// Complete sends the request to the first healthy backend.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return Do(f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}
