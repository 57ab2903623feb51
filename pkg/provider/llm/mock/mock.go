// Package mock provides a deterministic in-memory [llm.Provider] for unit
// tests. The same scripted responses in the same order produce identical
// conversations, which the persona determinism tests rely on.
package mock

import (
	"context"
	"sync"

	"github.com/ravigajul/voice-ai-test/pkg/provider/llm"
)

// Compile-time interface check.
var _ llm.Provider = (*Provider)(nil)

// Provider is a scriptable mock. Each Complete call returns the next entry
// from Responses; when exhausted it repeats the last entry. CompleteFunc,
// when set, overrides the scripted behaviour entirely.
type Provider struct {
	mu sync.Mutex

	// Responses are consumed in order by successive Complete calls.
	Responses []string

	// Err, when non-nil, is returned by every Complete call.
	Err error

	// CompleteFunc, when non-nil, replaces the scripted behaviour.
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)

	// Calls counts Complete invocations; Requests collects every request
	// for prompt-content assertions.
	Calls    int
	Requests []llm.CompletionRequest

	next int
}

// Complete implements [llm.Provider].
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls++
	p.Requests = append(p.Requests, req)

	if p.CompleteFunc != nil {
		return p.CompleteFunc(ctx, req)
	}
	if p.Err != nil {
		return nil, p.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(p.Responses) == 0 {
		return &llm.CompletionResponse{}, nil
	}
	idx := p.next
	if idx >= len(p.Responses) {
		idx = len(p.Responses) - 1
	} else {
		p.next++
	}
	return &llm.CompletionResponse{Content: p.Responses[idx]}, nil
}
