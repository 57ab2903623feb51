package elevenlabs

import (
	"context"
	"testing"

	"github.com/ravigajul/voice-ai-test/pkg/provider/tts"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("New(\"\") should fail")
	}
}

func TestNewRejectsNonPCMOutput(t *testing.T) {
	if _, err := New("key", WithOutputFormat("mp3_44100_128")); err == nil {
		t.Fatal("mp3 output should be rejected")
	}
	if _, err := New("key", WithOutputFormat("pcm_22050")); err != nil {
		t.Fatalf("pcm_22050 should be accepted: %v", err)
	}
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	s, err := New("key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Synthesize(context.Background(), " \t", tts.Voice{}); err == nil {
		t.Fatal("blank text should fail before any network call")
	}
}
