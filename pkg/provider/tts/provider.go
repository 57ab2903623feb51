// Package tts defines the Synthesizer interface for text-to-speech backends.
//
// The harness speaks one whole customer utterance at a time, so Synthesizer
// is a one-shot batch interface: text in, PCM out. The orchestrator plays
// the result through an [audio.Player] and only then begins the next
// capture.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"

	"github.com/ravigajul/voice-ai-test/pkg/audio"
)

// Voice describes a synthesis voice configuration.
type Voice struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is the human-readable voice name.
	Name string

	// Provider identifies which TTS backend this voice belongs to.
	Provider string
}

// Result is one synthesised utterance.
type Result struct {
	// PCM is raw 16-bit signed little-endian audio.
	PCM []byte

	// Format describes the PCM layout (provider-dependent).
	Format audio.Format
}

// Synthesizer converts one text utterance into playable audio.
//
// Synthesis failures are non-fatal to a session: the orchestrator logs them
// and continues, since the customer turn is already captured in text.
type Synthesizer interface {
	// Synthesize renders text with the given voice. An empty voice uses
	// the provider default where one exists.
	Synthesize(ctx context.Context, text string, voice Voice) (Result, error)

	// ListVoices returns the provider's current voice catalogue.
	ListVoices(ctx context.Context) ([]Voice, error)
}
