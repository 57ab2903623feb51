package resilience

import (
	"context"

	"github.com/ravigajul/voice-ai-test/pkg/provider/stt"
)

// STTFallback implements [stt.Transcriber] across multiple speech-to-text
// backends.
type STTFallback struct {
	group *FallbackGroup[stt.Transcriber]
}

var _ stt.Transcriber = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred
// backend.
func NewSTTFallback(primaryName string, primary stt.Transcriber, cfg FallbackConfig) *STTFallback {
	return &STTFallback{group: NewFallbackGroup(primaryName, primary, cfg)}
}

// Add registers an additional backend, tried after all earlier entries.
func (f *STTFallback) Add(name string, t stt.Transcriber) {
	f.group.Add(name, t)
}

// Transcribe runs the audio through the first healthy backend.
func (f *STTFallback) Transcribe(ctx context.Context, pcm []byte, cfg stt.AudioConfig) (stt.Result, error) {
	return Do(f.group, func(t stt.Transcriber) (stt.Result, error) {
		return t.Transcribe(ctx, pcm, cfg)
	})
}
