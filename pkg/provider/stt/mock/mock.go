// Package mock provides an in-memory [stt.Transcriber] for unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/ravigajul/voice-ai-test/pkg/provider/stt"
)

// Compile-time interface check.
var _ stt.Transcriber = (*Transcriber)(nil)

// Transcriber is a scriptable mock. Each Transcribe call returns the next
// entry from Results; when a Result's Err is non-nil it is returned instead.
type Transcriber struct {
	mu sync.Mutex

	// Results are consumed in order by successive Transcribe calls.
	Results []Scripted

	// Calls counts Transcribe invocations; Audio collects the PCM buffers
	// passed in.
	Calls int
	Audio [][]byte
}

// Scripted is one scripted Transcribe outcome.
type Scripted struct {
	Text string
	Err  error
}

// Transcribe implements [stt.Transcriber].
func (t *Transcriber) Transcribe(ctx context.Context, pcm []byte, cfg stt.AudioConfig) (stt.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls++
	t.Audio = append(t.Audio, pcm)
	if err := ctx.Err(); err != nil {
		return stt.Result{}, err
	}
	if len(t.Results) == 0 {
		return stt.Result{}, stt.ErrNoSpeech
	}
	next := t.Results[0]
	t.Results = t.Results[1:]
	if next.Err != nil {
		return stt.Result{}, next.Err
	}
	return stt.Result{Text: next.Text, Confidence: 1}, nil
}
