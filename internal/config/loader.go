package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "openai-native", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt": {"deepgram", "whisper", "whisper-native"},
	"tts": {"elevenlabs", "coqui", "coqui-xtts"},
}

// Default returns the configuration used when no config file is supplied:
// a local-first stack that works without any API keys.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   LogInfo,
		},
		Providers: ProvidersConfig{
			LLM: ProviderEntry{Name: "ollama", Model: "llama3.2"},
			STT: ProviderEntry{Name: "whisper", BaseURL: "http://localhost:8178"},
		},
		Personas: PersonasConfig{
			Dir:     "personas",
			Default: "default",
		},
		Transcript: TranscriptConfig{
			Dir: "transcripts",
		},
	}
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, fills defaulted fields, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills fields whose zero value is not a usable setting.
func applyDefaults(cfg *Config) {
	if cfg.Personas.Dir == "" {
		cfg.Personas.Dir = "personas"
	}
	if cfg.Personas.Default == "" {
		cfg.Personas.Default = "default"
	}
	if cfg.Transcript.Dir == "" {
		cfg.Transcript.Dir = "transcripts"
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	validateProviderName("llm", cfg.Providers.LLM)
	validateProviderName("stt", cfg.Providers.STT)
	validateProviderName("tts", cfg.Providers.TTS)

	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required; the customer persona cannot respond without a language model"))
	}
	if cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name is required; operator speech cannot be transcribed without one"))
	}
	if cfg.Providers.TTS.Name == "" {
		slog.Warn("providers.tts is not configured; customer responses will be text-only")
	}

	if cfg.Audio.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must not be negative", cfg.Audio.SampleRate))
	}
	if cfg.Audio.SilenceThresholdMs < 0 {
		errs = append(errs, fmt.Errorf("audio.silence_threshold_ms %d must not be negative", cfg.Audio.SilenceThresholdMs))
	}
	if cfg.Audio.MaxUtteranceMs < 0 {
		errs = append(errs, fmt.Errorf("audio.max_utterance_ms %d must not be negative", cfg.Audio.MaxUtteranceMs))
	}

	if cfg.Session.Temperature < 0 || cfg.Session.Temperature > 2 {
		errs = append(errs, fmt.Errorf("session.temperature %.2f is out of range [0, 2]", cfg.Session.Temperature))
	}
	for i, kw := range cfg.Session.HandoffKeywords {
		if kw == "" {
			errs = append(errs, fmt.Errorf("session.handoff_keywords[%d] is empty", i))
		}
	}
	for i, p := range cfg.Session.AckPhrases {
		if p == "" {
			errs = append(errs, fmt.Errorf("session.ack_phrases[%d] is empty", i))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if the entry names a provider not
// found in the [ValidProviderNames] list for the given kind. Fallback
// entries are checked the same way.
func validateProviderName(kind string, entry ProviderEntry) {
	check := func(name string) {
		if name == "" {
			return
		}
		known := ValidProviderNames[kind]
		if slices.Contains(known, name) {
			return
		}
		slog.Warn("unknown provider name, may be a typo",
			"kind", kind,
			"name", name,
			"known", known,
		)
	}
	check(entry.Name)
	for _, fb := range entry.Fallbacks {
		check(fb.Name)
	}
}
