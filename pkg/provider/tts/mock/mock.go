// Package mock provides an in-memory [tts.Synthesizer] for unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/ravigajul/voice-ai-test/pkg/audio"
	"github.com/ravigajul/voice-ai-test/pkg/provider/tts"
)

// Compile-time interface check.
var _ tts.Synthesizer = (*Synthesizer)(nil)

// Synthesizer is a scriptable mock. By default every Synthesize call returns
// Result (or a short silent buffer when Result is zero).
type Synthesizer struct {
	mu sync.Mutex

	// Result is returned by every Synthesize call unless Err is set.
	Result tts.Result

	// Err, when non-nil, is returned by every Synthesize call.
	Err error

	// VoicesResult is returned by ListVoices.
	VoicesResult []tts.Voice

	// Calls counts Synthesize invocations; Texts collects the synthesised
	// text in call order.
	Calls int
	Texts []string
}

// Synthesize implements [tts.Synthesizer].
func (s *Synthesizer) Synthesize(ctx context.Context, text string, voice tts.Voice) (tts.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	s.Texts = append(s.Texts, text)

	if s.Err != nil {
		return tts.Result{}, s.Err
	}
	if err := ctx.Err(); err != nil {
		return tts.Result{}, err
	}
	if s.Result.PCM == nil {
		return tts.Result{
			PCM:    make([]byte, 320),
			Format: audio.Format{SampleRate: 16000, Channels: 1},
		}, nil
	}
	return s.Result, nil
}

// ListVoices implements [tts.Synthesizer].
func (s *Synthesizer) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.VoicesResult, nil
}
