// Package audio defines the capture and playback interfaces used by the
// session orchestrator.
//
// The two primary abstractions are:
//
//   - [Recorder] — records one voice-activity-terminated utterance from an
//     input device and returns raw PCM bytes.
//   - [Player] — plays a synthesised utterance to completion.
//
// Implementations are provided by adapter packages (e.g., audio/exec for
// OS-level capture/playback binaries, audio/mock for tests). The interfaces
// are intentionally narrow to keep the orchestrator decoupled from device
// details.
package audio

import (
	"context"
	"errors"
	"fmt"
)

// ErrDeviceNotFound is returned by [Recorder.Record] when the configured
// device selector matches no available input device. Callers should list
// devices via [Recorder.ListDevices] and prompt for manual selection.
var ErrDeviceNotFound = errors.New("audio: no input device matches selector")

// Format describes the PCM layout of captured or synthesised audio.
// All audio in this harness is 16-bit signed little-endian.
type Format struct {
	// SampleRate in Hz (e.g., 16000 for STT input, 22050 for TTS output).
	SampleRate int

	// Channels: 1 for mono (STT input), 2 for stereo.
	Channels int
}

// String returns a short description like "16000Hz/1ch".
func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch", f.SampleRate, f.Channels)
}

// BytesPerSecond returns the PCM byte rate for this format.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * 2
}

// Device describes an audio input device known to the host.
type Device struct {
	// ID is the platform-specific device identifier passed to the capture
	// backend (e.g., an ALSA PCM name).
	ID string

	// Name is the human-readable device description.
	Name string
}

// RecordConfig controls a single utterance capture.
type RecordConfig struct {
	// DeviceSelector is a case-insensitive substring matched against device
	// IDs and names. Empty selects the default device.
	DeviceSelector string

	// Format is the desired PCM layout. Zero values fall back to the
	// recorder's defaults (16 kHz mono).
	Format Format

	// SilenceThresholdMs is the trailing-silence duration that ends the
	// utterance once speech has been heard. Zero uses the recorder default.
	SilenceThresholdMs int

	// MaxUtteranceMs bounds a single utterance once speech has begun, to
	// keep the buffer finite during continuous speech. Zero uses the
	// recorder default. Note that the wait FOR speech is unbounded by
	// design: the human operator controls pacing.
	MaxUtteranceMs int
}

// Recorder captures one utterance at a time from an input device.
//
// Record blocks until the speaker has finished (voice-activity endpointing)
// or ctx is cancelled. There is deliberately no timeout while waiting for
// speech to begin; callers needing bounded capture should wrap ctx.
type Recorder interface {
	// Record captures a single utterance and returns raw 16-bit PCM bytes
	// in cfg.Format. Returns [ErrDeviceNotFound] (possibly wrapped) when
	// cfg.DeviceSelector matches nothing, and ctx.Err() when cancelled
	// before speech completes.
	Record(ctx context.Context, cfg RecordConfig) ([]byte, error)

	// ListDevices enumerates the available input devices.
	ListDevices(ctx context.Context) ([]Device, error)
}

// Player plays PCM audio to the default output device.
//
// Play must not return until playback has fully completed: the orchestrator
// relies on this to avoid the next capture picking up the system's own
// speech output.
type Player interface {
	Play(ctx context.Context, pcm []byte, format Format) error
}
