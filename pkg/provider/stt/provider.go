// Package stt defines the Transcriber interface for speech-to-text backends.
//
// The harness is strictly turn-based: one utterance is captured, then
// transcribed as a whole. Transcriber is therefore a one-shot batch
// interface rather than a streaming session — implementations that wrap
// streaming services (see the deepgram sub-package) open a short-lived
// stream per call and collect the final results internally.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"
	"time"
)

// ErrNoSpeech is returned (possibly wrapped) when the audio contained no
// intelligible speech. The orchestrator treats this as retryable: the
// operator is prompted to repeat the turn rather than aborting the session.
var ErrNoSpeech = errors.New("stt: no speech recognised")

// AudioConfig describes the PCM layout of the audio passed to Transcribe.
type AudioConfig struct {
	// SampleRate is the audio sample rate in Hz. Zero falls back to the
	// provider default (16000).
	SampleRate int

	// Channels is the number of audio channels. Zero falls back to 1.
	Channels int

	// Language is the BCP-47 language tag for recognition (e.g., "en").
	// Empty lets the provider auto-detect, if supported.
	Language string
}

// Result is the outcome of transcribing one utterance.
type Result struct {
	// Text is the transcribed speech content, whitespace-trimmed.
	Text string

	// Confidence is the overall confidence score (0.0–1.0). Zero when the
	// provider does not report confidence.
	Confidence float64

	// Duration is the audio length that was processed.
	Duration time.Duration
}

// Transcriber converts one recorded utterance into text.
type Transcriber interface {
	// Transcribe submits raw 16-bit signed little-endian PCM audio and
	// returns the recognised text. Returns an error wrapping [ErrNoSpeech]
	// when the audio is empty or unintelligible, and ctx.Err() when
	// cancelled mid-request.
	Transcribe(ctx context.Context, pcm []byte, cfg AudioConfig) (Result, error)
}
