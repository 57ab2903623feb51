// Command voicetest runs a manual end-to-end voice test: a human operator
// plays the restaurant agent while a synthetic customer persona answers
// through the STT → LLM → TTS pipeline.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"github.com/ravigajul/voice-ai-test/internal/app"
	"github.com/ravigajul/voice-ai-test/internal/config"
	"github.com/ravigajul/voice-ai-test/internal/observe"
	"github.com/ravigajul/voice-ai-test/internal/persona"
	"github.com/ravigajul/voice-ai-test/internal/resilience"
	"github.com/ravigajul/voice-ai-test/internal/session"
	audioexec "github.com/ravigajul/voice-ai-test/pkg/audio/exec"
	"github.com/ravigajul/voice-ai-test/pkg/provider/llm"
	"github.com/ravigajul/voice-ai-test/pkg/provider/llm/anyllm"
	"github.com/ravigajul/voice-ai-test/pkg/provider/llm/openai"
	"github.com/ravigajul/voice-ai-test/pkg/provider/stt"
	"github.com/ravigajul/voice-ai-test/pkg/provider/stt/deepgram"
	"github.com/ravigajul/voice-ai-test/pkg/provider/stt/whisper"
	"github.com/ravigajul/voice-ai-test/pkg/provider/tts"
	"github.com/ravigajul/voice-ai-test/pkg/provider/tts/coqui"
	"github.com/ravigajul/voice-ai-test/pkg/provider/tts/elevenlabs"
)

// version is stamped into telemetry; bump on release.
const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	personaName := flag.String("persona", "", "persona preset to run (default: the configured default preset)")
	scenario := flag.String("scenario", "", "free-text scenario expanded into a persona (overrides -persona)")
	device := flag.String("device", "", "input device selector (overrides audio.device)")
	listPersonas := flag.Bool("list-personas", false, "list available persona presets and exit")
	listDevices := flag.Bool("list-devices", false, "list available input devices and exit")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Info("no config file found, using the local-first defaults", "path", *configPath)
			cfg = config.Default()
		} else {
			fmt.Fprintf(os.Stderr, "voicetest: %v\n", err)
			return 1
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Server.LogLevel.Level(),
	}))
	slog.SetDefault(logger)

	// ── One-shot listing modes ────────────────────────────────────────────────
	if *listPersonas {
		return printPersonas(cfg.Personas.Dir)
	}
	if *listDevices {
		return printDevices()
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.Setup(ctx, version)
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	defer application.Shutdown()

	// ── Run the session alongside the diagnostics endpoint ────────────────────
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return application.Serve(gctx)
	})

	var result session.Result
	g.Go(func() error {
		defer cancel()
		var runErr error
		result, runErr = application.RunSession(gctx, *personaName, *scenario, *device)
		return runErr
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, app.ErrPersonaRejected) {
			fmt.Println("Session aborted before it started.")
			return 0
		}
		slog.Error("session error", "err", err)
		return 1
	}

	fmt.Printf("\nSession %s finished: %s after %d turns (%s).\n",
		result.SessionID, result.Outcome, result.Turns, result.Elapsed.Round(100*time.Millisecond))
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the provider
// from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	// The any-llm backends share one pattern: optional APIKey + BaseURL.
	for _, providerName := range []string{
		"openai", "anthropic", "gemini",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; BaseURL is the address, no API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// openai-native talks through the official SDK instead of any-llm.
	reg.RegisterLLM("openai-native", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		if kws := optStrings(entry.Options, "keywords"); len(kws) > 0 {
			opts = append(opts, deepgram.WithKeywords(kws...))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("whisper-native", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.NativeOption
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Synthesizer, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if format := optString(entry.Options, "output_format"); format != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(format))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	})

	for name, mode := range map[string]coqui.APIMode{
		"coqui":      coqui.APIModeStandard,
		"coqui-xtts": coqui.APIModeXTTS,
	} {
		reg.RegisterTTS(name, func(entry config.ProviderEntry) (tts.Synthesizer, error) {
			opts := []coqui.Option{coqui.WithAPIMode(mode)}
			if lang := optString(entry.Options, "language"); lang != "" {
				opts = append(opts, coqui.WithLanguage(lang))
			}
			return coqui.New(entry.BaseURL, opts...)
		})
	}
}

// buildProviders instantiates the providers named in cfg, wrapping each one
// that declares fallbacks in a failover group.
func buildProviders(cfg *config.Config, reg *config.Registry) (app.Providers, error) {
	var ps app.Providers
	breaker := resilience.BreakerConfig{Cooldown: cfg.Session.BreakerCooldown}

	llmProvider, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return ps, fmt.Errorf("create llm provider %q: %w", cfg.Providers.LLM.Name, err)
	}
	if fbs := cfg.Providers.LLM.Fallbacks; len(fbs) > 0 {
		group := resilience.NewLLMFallback(cfg.Providers.LLM.Name, llmProvider,
			resilience.FallbackConfig{Breaker: breaker})
		for _, fb := range fbs {
			p, err := reg.CreateLLM(fb)
			if err != nil {
				return ps, fmt.Errorf("create llm fallback %q: %w", fb.Name, err)
			}
			group.Add(fb.Name, p)
		}
		ps.LLM = group
	} else {
		ps.LLM = llmProvider
	}
	slog.Info("provider created", "kind", "llm", "name", cfg.Providers.LLM.Name, "fallbacks", len(cfg.Providers.LLM.Fallbacks))

	sttProvider, err := reg.CreateSTT(cfg.Providers.STT)
	if err != nil {
		return ps, fmt.Errorf("create stt provider %q: %w", cfg.Providers.STT.Name, err)
	}
	if fbs := cfg.Providers.STT.Fallbacks; len(fbs) > 0 {
		group := resilience.NewSTTFallback(cfg.Providers.STT.Name, sttProvider,
			resilience.FallbackConfig{Breaker: breaker})
		for _, fb := range fbs {
			p, err := reg.CreateSTT(fb)
			if err != nil {
				return ps, fmt.Errorf("create stt fallback %q: %w", fb.Name, err)
			}
			group.Add(fb.Name, p)
		}
		ps.STT = group
	} else {
		ps.STT = sttProvider
	}
	slog.Info("provider created", "kind", "stt", "name", cfg.Providers.STT.Name, "fallbacks", len(cfg.Providers.STT.Fallbacks))

	if name := cfg.Providers.TTS.Name; name != "" {
		ttsProvider, err := reg.CreateTTS(cfg.Providers.TTS)
		if err != nil {
			return ps, fmt.Errorf("create tts provider %q: %w", name, err)
		}
		if fbs := cfg.Providers.TTS.Fallbacks; len(fbs) > 0 {
			group := resilience.NewTTSFallback(name, ttsProvider,
				resilience.FallbackConfig{Breaker: breaker})
			for _, fb := range fbs {
				p, err := reg.CreateTTS(fb)
				if err != nil {
					return ps, fmt.Errorf("create tts fallback %q: %w", fb.Name, err)
				}
				group.Add(fb.Name, p)
			}
			ps.TTS = group
		} else {
			ps.TTS = ttsProvider
		}
		slog.Info("provider created", "kind", "tts", "name", name, "fallbacks", len(cfg.Providers.TTS.Fallbacks))
	}

	return ps, nil
}

// ── Listing modes ─────────────────────────────────────────────────────────────

func printPersonas(dir string) int {
	names, err := persona.ListPresets(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voicetest: list personas: %v\n", err)
		return 1
	}
	if len(names) == 0 {
		fmt.Printf("No persona presets found in %s.\n", dir)
		return 0
	}
	fmt.Println("Available personas:")
	for _, n := range names {
		fmt.Printf("  %s\n", n)
	}
	return 0
}

func printDevices() int {
	devices, err := audioexec.NewRecorder().ListDevices(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "voicetest: list devices: %v\n", err)
		return 1
	}
	fmt.Println("Available input devices:")
	for _, d := range devices {
		fmt.Printf("  %-24s %s\n", d.ID, d.Name)
	}
	return 0
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║      voicetest — startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	printRow("Personas", cfg.Personas.Dir)
	printRow("Transcripts", cfg.Transcript.Dir)
	if cfg.Transcript.PostgresDSN != "" {
		printRow("Archive", "postgres")
	} else {
		printRow("Archive", "(disabled)")
	}
	if cfg.Server.ListenAddr != "" {
		printRow("Diagnostics", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	printRow(kind, value)
}

func printRow(label, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", label, value)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string from a provider Options map. Returns "" if the
// map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}

// optStrings extracts a string list from a provider Options map. YAML
// sequences decode as []any, so each element is converted individually.
func optStrings(opts map[string]any, key string) []string {
	if opts == nil {
		return nil
	}
	raw, ok := opts[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
