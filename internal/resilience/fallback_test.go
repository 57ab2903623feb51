package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ravigajul/voice-ai-test/pkg/provider/llm"
	llmmock "github.com/ravigajul/voice-ai-test/pkg/provider/llm/mock"
	"github.com/ravigajul/voice-ai-test/pkg/provider/stt"
	sttmock "github.com/ravigajul/voice-ai-test/pkg/provider/stt/mock"
)

func TestFallbackGroupUsesPrimaryWhenHealthy(t *testing.T) {
	g := NewFallbackGroup("a", 1, FallbackConfig{})
	g.Add("b", 2)

	got, err := Do(g, func(v int) (int, error) { return v * 10, nil })
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != 10 {
		t.Fatalf("got %d, want 10 (primary result)", got)
	}
}

func TestFallbackGroupFailsOver(t *testing.T) {
	g := NewFallbackGroup("a", 1, FallbackConfig{})
	g.Add("b", 2)

	got, err := Do(g, func(v int) (int, error) {
		if v == 1 {
			return 0, errBoom
		}
		return v, nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != 2 {
		t.Fatalf("got %d, want fallback result 2", got)
	}
}

func TestFallbackGroupAllFail(t *testing.T) {
	g := NewFallbackGroup("a", 1, FallbackConfig{})

	_, err := Do(g, func(int) (int, error) { return 0, errBoom })
	if !errors.Is(err, ErrAllBackendsFailed) {
		t.Fatalf("err = %v, want ErrAllBackendsFailed", err)
	}
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want wrapped errBoom", err)
	}
}

func TestFallbackGroupSkipsOpenBreaker(t *testing.T) {
	g := NewFallbackGroup("a", 1, FallbackConfig{
		Breaker: BreakerConfig{Threshold: 1, Cooldown: time.Hour},
	})
	g.Add("b", 2)

	// Trip the primary's breaker.
	Do(g, func(v int) (int, error) {
		if v == 1 {
			return 0, errBoom
		}
		return v, nil
	})

	calls := 0
	got, err := Do(g, func(v int) (int, error) {
		calls++
		return v, nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != 2 || calls != 1 {
		t.Fatalf("got %d after %d calls, want 2 after 1 (primary skipped)", got, calls)
	}
}

func TestLLMFallbackCompletes(t *testing.T) {
	primary := &llmmock.Provider{Err: errBoom}
	backup := &llmmock.Provider{Responses: []string{"hi there"}}

	f := NewLLMFallback("primary", primary, FallbackConfig{})
	f.Add("backup", backup)

	resp, err := f.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "hi there" {
		t.Fatalf("Content = %q, want backup response", resp.Content)
	}
}

func TestSTTFallbackTranscribes(t *testing.T) {
	primary := &sttmock.Transcriber{Results: []sttmock.Scripted{{Err: errBoom}}}
	backup := &sttmock.Transcriber{Results: []sttmock.Scripted{{Text: "one pizza"}}}

	f := NewSTTFallback("primary", primary, FallbackConfig{})
	f.Add("backup", backup)

	res, err := f.Transcribe(context.Background(), []byte{0, 0}, stt.AudioConfig{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "one pizza" {
		t.Fatalf("Text = %q, want backup transcription", res.Text)
	}
}

func TestRetryStopsAfterAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{Attempts: 3, Backoff: time.Millisecond},
		func(context.Context) error {
			calls++
			return errBoom
		})
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want wrapped errBoom", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetrySucceedsMidway(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{Attempts: 5, Backoff: time.Millisecond},
		func(context.Context) error {
			calls++
			if calls < 2 {
				return errBoom
			}
			return nil
		})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, RetryConfig{Attempts: 3, Backoff: time.Hour},
		func(context.Context) error { return errBoom })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
