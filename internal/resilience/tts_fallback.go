package resilience

import (
	"context"

	"github.com/ravigajul/voice-ai-test/pkg/provider/tts"
)

// TTSFallback implements [tts.Synthesizer] across multiple text-to-speech
// backends. Synthesis failures are already non-fatal to a session, so the
// group mostly buys a consistent voice instead of silent text-only turns.
type TTSFallback struct {
	group *FallbackGroup[tts.Synthesizer]
}

var _ tts.Synthesizer = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred
// backend.
func NewTTSFallback(primaryName string, primary tts.Synthesizer, cfg FallbackConfig) *TTSFallback {
	return &TTSFallback{group: NewFallbackGroup(primaryName, primary, cfg)}
}

// Add registers an additional backend, tried after all earlier entries.
func (f *TTSFallback) Add(name string, s tts.Synthesizer) {
	f.group.Add(name, s)
}

// Synthesize renders text with the first healthy backend.
func (f *TTSFallback) Synthesize(ctx context.Context, text string, voice tts.Voice) (tts.Result, error) {
	return Do(f.group, func(s tts.Synthesizer) (tts.Result, error) {
		return s.Synthesize(ctx, text, voice)
	})
}

// ListVoices lists voices from the primary backend. Voice inventories are
// backend-specific, so mixing them across fallbacks would mislead callers.
func (f *TTSFallback) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	return f.group.Primary().ListVoices(ctx)
}
