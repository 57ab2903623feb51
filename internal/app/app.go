// Package app wires the harness subsystems into a runnable test session.
//
// The App struct owns the full lifecycle: New connects providers, audio, and
// the optional archive; RunSession executes one conversation; Shutdown tears
// everything down in order. For testing, inject doubles via functional
// options (WithRecorder, WithResponder, etc.); when an option is not
// provided, New creates real implementations from the config.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ravigajul/voice-ai-test/internal/config"
	"github.com/ravigajul/voice-ai-test/internal/health"
	"github.com/ravigajul/voice-ai-test/internal/observe"
	"github.com/ravigajul/voice-ai-test/internal/persona"
	"github.com/ravigajul/voice-ai-test/internal/resilience"
	"github.com/ravigajul/voice-ai-test/internal/session"
	"github.com/ravigajul/voice-ai-test/internal/transcript"
	"github.com/ravigajul/voice-ai-test/internal/transcript/archive"
	"github.com/ravigajul/voice-ai-test/pkg/audio"
	audioexec "github.com/ravigajul/voice-ai-test/pkg/audio/exec"
	"github.com/ravigajul/voice-ai-test/pkg/provider/llm"
	"github.com/ravigajul/voice-ai-test/pkg/provider/stt"
	"github.com/ravigajul/voice-ai-test/pkg/provider/tts"
)

// ErrPersonaRejected is returned by RunSession when the operator declines a
// scenario-generated persona at the confirmation prompt.
var ErrPersonaRejected = errors.New("app: persona rejected by operator")

// Providers holds one interface value per pipeline stage. LLM and STT are
// required; a nil TTS makes customer turns text-only. Populated by main.go
// via the config registry.
type Providers struct {
	LLM llm.Provider
	STT stt.Transcriber
	TTS tts.Synthesizer
}

// App owns all subsystem lifetimes for the harness.
type App struct {
	cfg       *config.Config
	providers Providers

	recorder  audio.Recorder
	player    audio.Player
	responder session.Responder
	store     *archive.Store
	metrics   *observe.Metrics

	// in/out carry the operator dialogue: persona confirmation and device
	// selection prompts.
	in   io.Reader
	out  io.Writer
	scan *bufio.Scanner

	closers  []func() error
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithRecorder injects a capture backend instead of the exec recorder.
func WithRecorder(r audio.Recorder) Option {
	return func(a *App) { a.recorder = r }
}

// WithPlayer injects a playback backend instead of the exec player.
func WithPlayer(p audio.Player) Option {
	return func(a *App) { a.player = p }
}

// WithResponder injects a customer-response generator instead of the
// persona engine built from the LLM provider.
func WithResponder(r session.Responder) Option {
	return func(a *App) { a.responder = r }
}

// WithIO redirects the operator prompts, e.g. to scripted buffers in tests.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *App) { a.in = in; a.out = out }
}

// New creates an App by wiring all subsystems together. The providers
// struct comes from main.go (populated via the config registry).
func New(ctx context.Context, cfg *config.Config, providers Providers, opts ...Option) (*App, error) {
	if providers.LLM == nil {
		return nil, errors.New("app: LLM provider must not be nil")
	}
	if providers.STT == nil {
		return nil, errors.New("app: STT provider must not be nil")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
		in:        os.Stdin,
		out:       os.Stdout,
		metrics:   observe.DefaultMetrics(),
	}
	for _, o := range opts {
		o(a)
	}
	a.scan = bufio.NewScanner(a.in)

	if a.recorder == nil {
		a.recorder = audioexec.NewRecorder()
	}
	if a.player == nil {
		a.player = audioexec.NewPlayer()
	}
	if a.responder == nil {
		var engineOpts []persona.EngineOption
		if cfg.Session.Temperature > 0 {
			engineOpts = append(engineOpts, persona.WithTemperature(float64(cfg.Session.Temperature)))
		}
		eng, err := persona.NewEngine(providers.LLM, engineOpts...)
		if err != nil {
			return nil, fmt.Errorf("app: create persona engine: %w", err)
		}
		a.responder = eng
	}

	if dsn := cfg.Transcript.PostgresDSN; dsn != "" {
		if err := a.initArchive(ctx, dsn); err != nil {
			return nil, fmt.Errorf("app: init archive: %w", err)
		}
	}

	return a, nil
}

// initArchive connects the Postgres archive. The database may still be
// starting alongside the harness, so connection attempts are retried.
func (a *App) initArchive(ctx context.Context, dsn string) error {
	var store *archive.Store
	err := resilience.Retry(ctx, resilience.RetryConfig{Attempts: 3, Backoff: time.Second},
		func(ctx context.Context) error {
			var connErr error
			store, connErr = archive.NewStore(ctx, dsn)
			return connErr
		})
	if err != nil {
		return err
	}
	a.store = store
	a.closers = append(a.closers, func() error {
		store.Close()
		return nil
	})
	return nil
}

// RunSession prepares the persona, resolves the capture device, and drives
// one full conversation. The returned Result is valid even when err is
// non-nil; its transcript holds everything captured before the failure.
func (a *App) RunSession(ctx context.Context, presetName, scenario, deviceOverride string) (session.Result, error) {
	p, err := a.buildPersona(ctx, presetName, scenario)
	if err != nil {
		return session.Result{}, err
	}

	device := a.cfg.Audio.Device
	if deviceOverride != "" {
		device = deviceOverride
	}
	device, err = a.resolveDevice(ctx, device)
	if err != nil {
		return session.Result{}, err
	}

	sessionID := uuid.NewString()
	sink, err := a.newSink(ctx, sessionID, p)
	if err != nil {
		return session.Result{}, err
	}

	orch, err := session.New(a.sessionConfig(sessionID, device, sink))
	if err != nil {
		return session.Result{}, err
	}

	fmt.Fprintf(a.out, "Session %s with persona %s — speak when ready.\n", sessionID, p.Summary())
	return orch.Run(ctx, p)
}

// sessionConfig assembles the orchestrator configuration from the loaded
// config and wired subsystems.
func (a *App) sessionConfig(sessionID, device string, sink session.Sink) session.Config {
	sampleRate := a.cfg.Audio.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}

	var classifierOpts []session.ClassifierOption
	if len(a.cfg.Session.HandoffKeywords) > 0 {
		classifierOpts = append(classifierOpts, session.WithHandoffKeywords(a.cfg.Session.HandoffKeywords))
	}
	if len(a.cfg.Session.AckPhrases) > 0 {
		classifierOpts = append(classifierOpts, session.WithAckPhrases(a.cfg.Session.AckPhrases))
	}

	corrector := transcript.NewCorrector(a.cfg.Session.Vocabulary)

	return session.Config{
		SessionID: sessionID,
		Recorder:  a.recorder,
		RecordConfig: audio.RecordConfig{
			DeviceSelector:     device,
			Format:             audio.Format{SampleRate: sampleRate, Channels: 1},
			SilenceThresholdMs: a.cfg.Audio.SilenceThresholdMs,
			MaxUtteranceMs:     a.cfg.Audio.MaxUtteranceMs,
		},
		Transcriber: a.providers.STT,
		STTConfig:   stt.AudioConfig{SampleRate: sampleRate, Channels: 1},
		Responder:   a.responder,
		Synthesizer: a.providers.TTS,
		Voice: tts.Voice{
			ID:   a.cfg.Providers.Voice.VoiceID,
			Name: a.cfg.Providers.Voice.Name,
		},
		Player:     a.player,
		Sink:       sink,
		Classifier: session.NewHandoffClassifier(classifierOpts...),
		Corrector:  corrector.Correct,
		Metrics:    a.metrics,
	}
}

// buildPersona loads the requested preset, or expands a free-text scenario
// into a persona and asks the operator to approve it before any audio runs.
func (a *App) buildPersona(ctx context.Context, presetName, scenario string) (persona.Persona, error) {
	dir := a.cfg.Personas.Dir

	if scenario == "" {
		name := presetName
		if name == "" {
			name = a.cfg.Personas.Default
		}
		return persona.LoadPreset(dir, name)
	}

	example, err := persona.LoadPreset(dir, a.cfg.Personas.Default)
	if err != nil {
		return persona.Persona{}, fmt.Errorf("app: load example preset: %w", err)
	}

	fmt.Fprintln(a.out, "Generating persona from scenario…")
	p, err := persona.ExpandScenario(ctx, a.providers.LLM, scenario, example)
	if err != nil {
		return persona.Persona{}, fmt.Errorf("app: expand scenario: %w", err)
	}

	fmt.Fprintf(a.out, "\nGenerated persona:\n  %s\n\nDirectives:\n%s\n\n", p.Summary(), indent(p.Directives))
	if !a.confirm("Proceed with this persona? [y/N]: ") {
		return persona.Persona{}, ErrPersonaRejected
	}
	return p, nil
}

// resolveDevice checks the selector against the enumerated input devices.
// When nothing matches, the operator picks from the list instead of the
// session failing mid-capture.
func (a *App) resolveDevice(ctx context.Context, selector string) (string, error) {
	if selector == "" {
		return "", nil
	}

	devices, err := a.recorder.ListDevices(ctx)
	if err != nil {
		slog.Warn("device enumeration failed, using selector as-is", "selector", selector, "err", err)
		return selector, nil
	}

	needle := strings.ToLower(selector)
	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.ID), needle) || strings.Contains(strings.ToLower(d.Name), needle) {
			return d.ID, nil
		}
	}

	fmt.Fprintf(a.out, "No input device matches %q. Available devices:\n", selector)
	for i, d := range devices {
		fmt.Fprintf(a.out, "  [%d] %s — %s\n", i, d.ID, d.Name)
	}
	idx, ok := a.promptIndex("Select device number: ", len(devices))
	if !ok {
		return "", fmt.Errorf("app: %w: %q", audio.ErrDeviceNotFound, selector)
	}
	return devices[idx].ID, nil
}

// HealthChecks returns the readiness probes for this App's dependencies.
func (a *App) HealthChecks() []health.Check {
	checks := []health.Check{
		{
			Name: "personas",
			Probe: func(context.Context) error {
				_, err := os.Stat(a.cfg.Personas.Dir)
				return err
			},
		},
	}
	if a.store != nil {
		checks = append(checks, health.Check{Name: "archive", Probe: a.store.Ping})
	}
	return checks
}

// Serve runs the metrics and health endpoint until ctx is cancelled.
// Returns nil immediately when no listen address is configured.
func (a *App) Serve(ctx context.Context) error {
	addr := a.cfg.Server.ListenAddr
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(a.HealthChecks()...).Register(mux)

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	slog.Info("diagnostics endpoint listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: diagnostics endpoint: %w", err)
	}
}

// Shutdown tears down subsystems in order. Safe to call more than once.
func (a *App) Shutdown() {
	a.stopOnce.Do(func() {
		for i, closer := range a.closers {
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
	})
}

// confirm prints prompt and reads one line; only "y"/"yes" count as assent.
func (a *App) confirm(prompt string) bool {
	fmt.Fprint(a.out, prompt)
	if !a.scan.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(a.scan.Text()))
	return answer == "y" || answer == "yes"
}

// promptIndex reads a number in [0, n) from the operator.
func (a *App) promptIndex(prompt string, n int) (int, bool) {
	fmt.Fprint(a.out, prompt)
	if !a.scan.Scan() {
		return 0, false
	}
	idx, err := strconv.Atoi(strings.TrimSpace(a.scan.Text()))
	if err != nil || idx < 0 || idx >= n {
		return 0, false
	}
	return idx, true
}

func indent(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
