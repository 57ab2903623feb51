// Package session drives the alternating turn loop between the human agent
// and the synthetic customer: capture, transcription, persona generation,
// playback, and termination detection.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ravigajul/voice-ai-test/internal/observe"
	"github.com/ravigajul/voice-ai-test/internal/persona"
	"github.com/ravigajul/voice-ai-test/pkg/audio"
	"github.com/ravigajul/voice-ai-test/pkg/provider/stt"
	"github.com/ravigajul/voice-ai-test/pkg/provider/tts"
	"github.com/ravigajul/voice-ai-test/pkg/types"
)

// Outcome is how a session finished.
type Outcome string

const (
	// OutcomeCompleted means the handoff condition was observed, or the
	// customer closed the conversation naturally.
	OutcomeCompleted Outcome = "completed"

	// OutcomeCancelled means the operator ended the session early, either
	// by interrupt or by saying "exit"/"goodbye".
	OutcomeCancelled Outcome = "cancelled"

	// OutcomeError means a session-fatal failure aborted the loop. The
	// transcript accumulated so far is preserved.
	OutcomeError Outcome = "error"
)

// Result is the final state of one session.
type Result struct {
	Outcome    Outcome
	SessionID  string
	Transcript *types.Transcript
	Persona    persona.Persona
	Turns      int
	Elapsed    time.Duration
}

// Sink durably records turns as they occur. Each turn must be persisted
// before the next turn begins: a crash after turn N must not lose turns
// 1..N.
type Sink interface {
	AppendTurn(turn types.Turn) error
	Finalize(outcome string, turns int) error
}

// Responder generates the next customer utterance. Implemented by
// [persona.Engine]; declared here so tests can script responses directly.
type Responder interface {
	Respond(ctx context.Context, transcript *types.Transcript, p persona.Persona) (string, persona.Persona, error)
}

// Config holds all dependencies needed to create an [Orchestrator].
//
// Recorder, Transcriber, Responder, and Sink are required. Synthesizer and
// Player are optional together — when either is nil, customer turns are
// text-only. Classifier, Corrector, Metrics, and Logger default sensibly
// when nil.
type Config struct {
	// SessionID identifies the session in logs and results. Generated when
	// empty. Callers that persist turns under a session key should set this
	// so the sink and the Result agree on the ID.
	SessionID string

	// Recorder captures agent speech. Must not be nil.
	Recorder audio.Recorder

	// RecordConfig is passed to every capture call.
	RecordConfig audio.RecordConfig

	// Transcriber converts captured audio to text. Must not be nil.
	Transcriber stt.Transcriber

	// STTConfig describes the captured audio for the transcriber.
	STTConfig stt.AudioConfig

	// Responder generates customer utterances. Must not be nil.
	Responder Responder

	// Synthesizer and Voice render customer utterances as speech.
	// Optional; playback is best-effort and never fatal.
	Synthesizer tts.Synthesizer
	Voice       tts.Voice

	// Player plays synthesised speech. Playback blocks until complete so
	// the next capture never picks up the harness's own output.
	Player audio.Player

	// Sink durably records each turn. Must not be nil.
	Sink Sink

	// Classifier detects the handoff termination condition. Defaults to
	// [NewHandoffClassifier] with the standard lexicons.
	Classifier *HandoffClassifier

	// Corrector optionally repairs misheard transcription text before
	// classification and prompt building.
	Corrector func(string) string

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Orchestrator owns the turn loop for one or more sequential sessions. Each
// Run call owns its own Persona and Transcript; the orchestrator itself
// holds only immutable collaborators.
type Orchestrator struct {
	sessionID   string
	recorder    audio.Recorder
	recordCfg   audio.RecordConfig
	transcriber stt.Transcriber
	sttCfg      stt.AudioConfig
	responder   Responder
	synth       tts.Synthesizer
	voice       tts.Voice
	player      audio.Player
	sink        Sink
	classifier  *HandoffClassifier
	correct     func(string) string
	metrics     *observe.Metrics
	log         *slog.Logger
}

// New creates an [Orchestrator] from the given configuration.
//
// Errors are prefixed with "session: ".
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Recorder == nil {
		return nil, errors.New("session: Recorder must not be nil")
	}
	if cfg.Transcriber == nil {
		return nil, errors.New("session: Transcriber must not be nil")
	}
	if cfg.Responder == nil {
		return nil, errors.New("session: Responder must not be nil")
	}
	if cfg.Sink == nil {
		return nil, errors.New("session: Sink must not be nil")
	}
	if cfg.Classifier == nil {
		cfg.Classifier = NewHandoffClassifier()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Orchestrator{
		sessionID:   cfg.SessionID,
		recorder:    cfg.Recorder,
		recordCfg:   cfg.RecordConfig,
		transcriber: cfg.Transcriber,
		sttCfg:      cfg.STTConfig,
		responder:   cfg.Responder,
		synth:       cfg.Synthesizer,
		voice:       cfg.Voice,
		player:      cfg.Player,
		sink:        cfg.Sink,
		classifier:  cfg.Classifier,
		correct:     cfg.Corrector,
		metrics:     cfg.Metrics,
		log:         cfg.Logger,
	}, nil
}

// Run drives the full conversation loop until termination or cancellation.
//
// The persona must be fully initialised (identity and order goal known).
// Every appended turn is handed to the Sink before the next turn begins.
// Cancellation is cooperative: it is honoured between pipeline steps, never
// mid-capture, and any in-flight generation call completes or is cancelled
// by its own context before the loop exits.
//
// A non-nil error is returned only together with Outcome == OutcomeError;
// the partial transcript is always present in the Result.
func (o *Orchestrator) Run(ctx context.Context, p persona.Persona) (Result, error) {
	start := time.Now()
	tr := &types.Transcript{}
	sessionID := o.sessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	res := Result{
		SessionID:  sessionID,
		Transcript: tr,
	}

	o.metrics.ActiveSessions.Add(ctx, 1)
	defer o.metrics.ActiveSessions.Add(context.WithoutCancel(ctx), -1)

	o.log.Info("session started",
		slog.String("session_id", res.SessionID),
		slog.String("persona", p.Name),
	)

	outcome, finalPersona, err := o.loop(ctx, tr, p)

	res.Outcome = outcome
	res.Persona = finalPersona
	res.Turns = tr.Len()
	res.Elapsed = time.Since(start)

	// Finalize even on error so the partial transcript survives every
	// abort path.
	if ferr := o.sink.Finalize(string(outcome), res.Turns); ferr != nil {
		o.log.Error("finalize transcript", slog.String("error", ferr.Error()))
		if err == nil {
			err = fmt.Errorf("session: finalize transcript: %w", ferr)
			res.Outcome = OutcomeError
		}
	}
	o.metrics.RecordOutcome(context.WithoutCancel(ctx), string(res.Outcome))

	o.log.Info("session finished",
		slog.String("session_id", res.SessionID),
		slog.String("outcome", string(res.Outcome)),
		slog.Int("turns", res.Turns),
		slog.Duration("elapsed", res.Elapsed),
	)
	return res, err
}

// loop runs the alternating turn state machine: AWAITING_AGENT →
// AWAITING_CUSTOMER → AWAITING_AGENT …, with terminal ENDED (handoff
// acknowledged or customer end phrase) and CANCELLED (interrupt or operator
// exit).
func (o *Orchestrator) loop(ctx context.Context, tr *types.Transcript, p persona.Persona) (Outcome, persona.Persona, error) {
	signal := types.SignalContinue

	for turnNo := 1; ; turnNo++ {
		if ctx.Err() != nil {
			return OutcomeCancelled, p, nil
		}

		var (
			outcome Outcome
			done    bool
			err     error
		)
		signal, p, outcome, done, err = o.runTurn(ctx, turnNo, tr, p, signal)
		if done || err != nil {
			return outcome, p, err
		}
	}
}

// runTurn executes one full turn: agent capture, classification, persona
// response, playback, and termination checks. done is true when the session
// reached a terminal state.
func (o *Orchestrator) runTurn(ctx context.Context, turnNo int, tr *types.Transcript, p persona.Persona, signal types.TerminationSignal) (types.TerminationSignal, persona.Persona, Outcome, bool, error) {
	ctx, span := observe.StartTurnSpan(ctx, turnNo)
	defer span.End()
	log := observe.Logger(ctx, o.log)
	turnStart := time.Now()

	// --- AWAITING_AGENT: capture one agent utterance. Blocks until the
	// operator speaks; the operator's pacing is authoritative, so no
	// timeout is imposed here.
	agentText, err := o.captureAgentTurn(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return signal, p, OutcomeCancelled, true, nil
		}
		return signal, p, OutcomeError, true, fmt.Errorf("session: capture agent turn: %w", err)
	}

	turn := tr.Append(types.RoleAgent, agentText)
	if err := o.sink.AppendTurn(turn); err != nil {
		return signal, p, OutcomeError, true, fmt.Errorf("session: log agent turn: %w", err)
	}
	o.metrics.RecordTurn(ctx, string(types.RoleAgent))
	log.Info("agent turn", slog.String("text", agentText))

	if o.classifier.IsOperatorExit(agentText) {
		log.Info("operator ended the session")
		return signal, p, OutcomeCancelled, true, nil
	}

	signal = o.classifier.Classify(signal, turn)

	// --- AWAITING_CUSTOMER: single in-flight generation per session.
	llmStart := time.Now()
	utterance, updated, err := o.responder.Respond(ctx, tr, p)
	o.metrics.LLMDuration.Record(ctx, time.Since(llmStart).Seconds())
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return signal, p, OutcomeCancelled, true, nil
		}
		var genErr *persona.GenerationError
		if errors.As(err, &genErr) {
			p = genErr.LastGood
		}
		o.metrics.RecordProviderError(context.WithoutCancel(ctx), "persona", "llm")
		return signal, p, OutcomeError, true, fmt.Errorf("session: persona response: %w", err)
	}
	p = updated

	turn = tr.Append(types.RoleCustomer, utterance)
	if err := o.sink.AppendTurn(turn); err != nil {
		return signal, p, OutcomeError, true, fmt.Errorf("session: log customer turn: %w", err)
	}
	o.metrics.RecordTurn(ctx, string(types.RoleCustomer))
	log.Info("customer turn", slog.String("text", utterance))

	// Best-effort speech: the turn is already captured in text, so a
	// synthesis or playback failure never aborts the session.
	o.speak(ctx, utterance)

	o.metrics.TurnDuration.Record(ctx, time.Since(turnStart).Seconds())

	signal = o.classifier.Classify(signal, turn)
	switch {
	case signal == types.SignalHandoffAcknowledged:
		log.Info("handoff acknowledged, ending session")
		return signal, p, OutcomeCompleted, true, nil
	case signal == types.SignalHandoffPending && p.Phase < persona.PhaseConfirming:
		// The agent mentioned a handoff keyword early, outside the
		// confirming/payment phase. Clear it so the session does not end
		// much later on an unrelated acknowledgment.
		signal = types.SignalContinue
	}

	if o.classifier.IsCustomerEnd(utterance) {
		log.Info("customer ended the conversation")
		return signal, p, OutcomeCompleted, true, nil
	}

	return signal, p, "", false, nil
}

// captureAgentTurn records and transcribes one agent utterance. Unusable
// audio (no speech, transcription backend hiccups) prompts the operator to
// repeat the turn; only cancellation and capture-device failures escape.
func (o *Orchestrator) captureAgentTurn(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		captureStart := time.Now()
		pcm, err := o.recorder.Record(ctx, o.recordCfg)
		o.metrics.CaptureDuration.Record(ctx, time.Since(captureStart).Seconds())
		if err != nil {
			return "", fmt.Errorf("record: %w", err)
		}

		sttStart := time.Now()
		result, err := o.transcriber.Transcribe(ctx, pcm, o.sttCfg)
		o.metrics.STTDuration.Record(ctx, time.Since(sttStart).Seconds())
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return "", err
			}
			if errors.Is(err, stt.ErrNoSpeech) {
				o.log.Warn("could not understand audio, please repeat")
			} else {
				o.log.Warn("transcription failed, please repeat", slog.String("error", err.Error()))
				o.metrics.RecordProviderError(ctx, "stt", "transcribe")
			}
			o.metrics.TranscriptionRetries.Add(ctx, 1)
			continue
		}

		text := strings.TrimSpace(result.Text)
		if text == "" {
			o.metrics.TranscriptionRetries.Add(ctx, 1)
			continue
		}
		if o.correct != nil {
			text = o.correct(text)
		}
		return text, nil
	}
}

// speak synthesises and plays one customer utterance, blocking until
// playback completes so capture of the next turn cannot pick up the
// harness's own output.
func (o *Orchestrator) speak(ctx context.Context, text string) {
	if o.synth == nil || o.player == nil {
		return
	}

	ttsStart := time.Now()
	result, err := o.synth.Synthesize(ctx, text, o.voice)
	o.metrics.TTSDuration.Record(ctx, time.Since(ttsStart).Seconds())
	if err != nil {
		o.log.Warn("synthesis failed, continuing text-only", slog.String("error", err.Error()))
		o.metrics.RecordProviderError(ctx, "tts", "synthesize")
		return
	}

	if err := o.player.Play(ctx, result.PCM, result.Format); err != nil {
		o.log.Warn("playback failed", slog.String("error", err.Error()))
	}
}
