package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/ravigajul/voice-ai-test/pkg/provider/llm"
	llmmock "github.com/ravigajul/voice-ai-test/pkg/provider/llm/mock"
)

const validYAML = `
server:
  listen_addr: ":8080"
  log_level: debug
providers:
  llm:
    name: ollama
    model: llama3.2
  stt:
    name: whisper
    base_url: http://localhost:8178
  tts:
    name: elevenlabs
    api_key: xi-test
  voice:
    voice_id: abc123
    name: Rachel
audio:
  device: yeti
  silence_threshold_ms: 1500
  max_utterance_ms: 30000
session:
  handoff_keywords: [transfer, payment]
  temperature: 0.7
personas:
  dir: ./personas
  default: default
transcript:
  dir: ./transcripts
`

func TestLoadFromReader(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.LogLevel != LogDebug {
		t.Errorf("LogLevel = %q, want debug", cfg.Server.LogLevel)
	}
	if cfg.Providers.LLM.Name != "ollama" || cfg.Providers.LLM.Model != "llama3.2" {
		t.Errorf("LLM entry = %+v", cfg.Providers.LLM)
	}
	if cfg.Providers.Voice.VoiceID != "abc123" {
		t.Errorf("VoiceID = %q", cfg.Providers.Voice.VoiceID)
	}
	if cfg.Audio.Device != "yeti" || cfg.Audio.SilenceThresholdMs != 1500 {
		t.Errorf("Audio = %+v", cfg.Audio)
	}
	if len(cfg.Session.HandoffKeywords) != 2 {
		t.Errorf("HandoffKeywords = %v", cfg.Session.HandoffKeywords)
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("serverr:\n  listen_addr: \":1\"\n"))
	if err == nil {
		t.Fatal("unknown top-level key should fail")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			"bad log level",
			"server:\n  log_level: loud\nproviders:\n  llm: {name: ollama}\n  stt: {name: whisper}\n",
			"server.log_level",
		},
		{
			"missing llm",
			"providers:\n  stt: {name: whisper}\n",
			"providers.llm.name is required",
		},
		{
			"missing stt",
			"providers:\n  llm: {name: ollama}\n",
			"providers.stt.name is required",
		},
		{
			"negative silence threshold",
			"providers:\n  llm: {name: ollama}\n  stt: {name: whisper}\naudio:\n  silence_threshold_ms: -1\n",
			"silence_threshold_ms",
		},
		{
			"temperature out of range",
			"providers:\n  llm: {name: ollama}\n  stt: {name: whisper}\nsession:\n  temperature: 3.5\n",
			"session.temperature",
		},
		{
			"empty handoff keyword",
			"providers:\n  llm: {name: ollama}\n  stt: {name: whisper}\nsession:\n  handoff_keywords: [\"transfer\", \"\"]\n",
			"handoff_keywords[1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromReader(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	in := "session:\n  temperature: 5\n"
	_, err := LoadFromReader(strings.NewReader(in))
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, want := range []string{"providers.llm.name", "providers.stt.name", "session.temperature"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error missing %q: %v", want, err)
		}
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader("providers:\n  llm: {name: ollama}\n  stt: {name: whisper}\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Personas.Dir != "personas" || cfg.Personas.Default != "default" {
		t.Errorf("Personas defaults = %+v", cfg.Personas)
	}
	if cfg.Transcript.Dir != "transcripts" {
		t.Errorf("Transcript.Dir = %q", cfg.Transcript.Dir)
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("Default() does not validate: %v", err)
	}
}

func TestRegistryCreateLLM(t *testing.T) {
	r := NewRegistry()
	r.RegisterLLM("mock", func(e ProviderEntry) (llm.Provider, error) {
		return &llmmock.Provider{}, nil
	})

	if _, err := r.CreateLLM(ProviderEntry{Name: "mock"}); err != nil {
		t.Fatalf("CreateLLM: %v", err)
	}
	if _, err := r.CreateLLM(ProviderEntry{Name: "nope"}); !errors.Is(err, ErrProviderNotRegistered) {
		t.Fatalf("err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestLogLevelMapping(t *testing.T) {
	if LogLevel("weird").IsValid() {
		t.Error("weird should not be valid")
	}
	if got := LogWarn.Level().String(); got != "WARN" {
		t.Errorf("LogWarn.Level() = %s", got)
	}
}
