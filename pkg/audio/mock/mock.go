// Package mock provides in-memory implementations of [audio.Recorder] and
// [audio.Player] for unit tests.
//
// All mocks record their calls so tests can assert on call counts and
// arguments, and expose exported fields to control return values.
package mock

import (
	"context"
	"sync"

	"github.com/ravigajul/voice-ai-test/pkg/audio"
)

// Compile-time interface checks.
var (
	_ audio.Recorder = (*Recorder)(nil)
	_ audio.Player   = (*Player)(nil)
)

// Recorder is a mock [audio.Recorder]. Each Record call returns the next
// entry from RecordResults (or RecordErr when set).
type Recorder struct {
	mu sync.Mutex

	// RecordResults are returned in order by successive Record calls.
	// When exhausted, Record returns an empty buffer.
	RecordResults [][]byte

	// RecordErr, when non-nil, is returned by every Record call.
	RecordErr error

	// ListDevicesResult is returned by ListDevices.
	ListDevicesResult []audio.Device

	// ListDevicesErr, when non-nil, is returned by ListDevices.
	ListDevicesErr error

	// RecordCalls counts Record invocations; RecordConfigs collects the
	// configs passed in.
	RecordCalls   int
	RecordConfigs []audio.RecordConfig
}

// Record implements [audio.Recorder].
func (r *Recorder) Record(ctx context.Context, cfg audio.RecordConfig) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.RecordCalls++
	r.RecordConfigs = append(r.RecordConfigs, cfg)
	if r.RecordErr != nil {
		return nil, r.RecordErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(r.RecordResults) == 0 {
		return []byte{}, nil
	}
	out := r.RecordResults[0]
	r.RecordResults = r.RecordResults[1:]
	return out, nil
}

// ListDevices implements [audio.Recorder].
func (r *Recorder) ListDevices(ctx context.Context) ([]audio.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListDevicesErr != nil {
		return nil, r.ListDevicesErr
	}
	return r.ListDevicesResult, nil
}

// Player is a mock [audio.Player] that records every buffer played.
type Player struct {
	mu sync.Mutex

	// PlayErr, when non-nil, is returned by every Play call.
	PlayErr error

	// Played collects the PCM buffers passed to Play.
	Played [][]byte

	// PlayCalls counts Play invocations.
	PlayCalls int
}

// Play implements [audio.Player].
func (p *Player) Play(ctx context.Context, pcm []byte, format audio.Format) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PlayCalls++
	p.Played = append(p.Played, pcm)
	return p.PlayErr
}
