// Package exec provides [audio.Recorder] and [audio.Player] implementations
// backed by the host's command-line audio tools (arecord/aplay on Linux,
// sox/afplay on macOS). It exists because this harness talks to the local
// microphone and speakers rather than a networked voice platform.
//
// Capture works by streaming raw PCM from the recorder binary's stdout
// through an [audio.Endpointer]; the process is terminated once the
// endpointer declares the utterance complete. Playback writes a WAV file to
// a temp path and blocks until the player binary exits, which guarantees
// playback is finished before the orchestrator starts the next capture.
package exec

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	osexec "os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/ravigajul/voice-ai-test/pkg/audio"
)

// frameMs is the capture read granularity. 20 ms frames give the endpointer
// enough resolution without burning CPU on tiny reads.
const frameMs = 20

// Compile-time interface checks.
var (
	_ audio.Recorder = (*Recorder)(nil)
	_ audio.Player   = (*Player)(nil)
)

// ─── Recorder ─────────────────────────────────────────────────────────────────

// RecorderOption is a functional option for configuring a [Recorder].
type RecorderOption func(*Recorder)

// WithCaptureCommand overrides the capture command template. The tokens
// {device}, {rate}, and {channels} are substituted before execution. The
// command must write raw 16-bit signed little-endian PCM to stdout until
// killed.
func WithCaptureCommand(argv ...string) RecorderOption {
	return func(r *Recorder) { r.captureArgv = argv }
}

// WithListCommand overrides the device enumeration command. Its stdout is
// parsed as one device per unindented line (ID), with an optional indented
// description line following (name) — the `arecord -L` layout.
func WithListCommand(argv ...string) RecorderOption {
	return func(r *Recorder) { r.listArgv = argv }
}

// Recorder captures utterances by running the host's recorder binary and
// endpointing its raw PCM output. Safe for sequential use; the session loop
// never overlaps captures.
type Recorder struct {
	captureArgv []string
	listArgv    []string
}

// NewRecorder creates a Recorder with platform-default commands.
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{}
	switch runtime.GOOS {
	case "darwin":
		// sox reads the default input device; -t raw emits headerless PCM.
		r.captureArgv = []string{"sox", "-q", "-d", "-t", "raw", "-b", "16", "-e", "signed-integer", "-L", "-r", "{rate}", "-c", "{channels}", "-"}
		r.listArgv = []string{"system_profiler", "SPAudioDataType"}
	default:
		r.captureArgv = []string{"arecord", "-q", "-f", "S16_LE", "-r", "{rate}", "-c", "{channels}", "-D", "{device}", "-t", "raw"}
		r.listArgv = []string{"arecord", "-L"}
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// ListDevices implements [audio.Recorder].
func (r *Recorder) ListDevices(ctx context.Context) ([]audio.Device, error) {
	cmd := osexec.CommandContext(ctx, r.listArgv[0], r.listArgv[1:]...)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("audio/exec: list devices via %s: %w", r.listArgv[0], err)
	}

	var devices []audio.Device
	sc := bufio.NewScanner(strings.NewReader(string(out)))
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			// Indented description belongs to the previous device.
			if len(devices) > 0 && devices[len(devices)-1].Name == "" {
				devices[len(devices)-1].Name = strings.TrimSpace(line)
			}
			continue
		}
		devices = append(devices, audio.Device{ID: strings.TrimSpace(line)})
	}
	for i := range devices {
		if devices[i].Name == "" {
			devices[i].Name = devices[i].ID
		}
	}
	return devices, nil
}

// resolveDevice matches selector against the enumerated devices. An empty
// selector resolves to "default" without enumeration.
func (r *Recorder) resolveDevice(ctx context.Context, selector string) (string, error) {
	if selector == "" {
		return "default", nil
	}
	devices, err := r.ListDevices(ctx)
	if err != nil {
		// Enumeration failure should not block capture on an explicit ID.
		slog.Warn("device enumeration failed, using selector verbatim", "selector", selector, "err", err)
		return selector, nil
	}
	needle := strings.ToLower(selector)
	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.ID), needle) || strings.Contains(strings.ToLower(d.Name), needle) {
			return d.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %q (have %d devices)", audio.ErrDeviceNotFound, selector, len(devices))
}

// Record implements [audio.Recorder].
func (r *Recorder) Record(ctx context.Context, cfg audio.RecordConfig) ([]byte, error) {
	format := cfg.Format
	if format.SampleRate <= 0 {
		format.SampleRate = 16000
	}
	if format.Channels <= 0 {
		format.Channels = 1
	}

	device, err := r.resolveDevice(ctx, cfg.DeviceSelector)
	if err != nil {
		return nil, err
	}

	argv := expand(r.captureArgv, map[string]string{
		"{device}":   device,
		"{rate}":     strconv.Itoa(format.SampleRate),
		"{channels}": strconv.Itoa(format.Channels),
	})

	cmd := osexec.CommandContext(ctx, argv[0], argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("audio/exec: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("audio/exec: start %s: %w", argv[0], err)
	}
	slog.Debug("capture started", "device", device, "format", format.String())

	ep := audio.NewEndpointer(format, cfg.SilenceThresholdMs, cfg.MaxUtteranceMs)
	frame := make([]byte, format.BytesPerSecond()*frameMs/1000)

	for {
		n, readErr := io.ReadFull(stdout, frame)
		if n > 0 && ep.Feed(frame[:n]) {
			break
		}
		if readErr != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("audio/exec: capture stream ended: %w", readErr)
		}
	}

	// Utterance complete; stop the recorder process.
	_ = cmd.Process.Kill()
	_ = cmd.Wait()

	pcm := ep.Utterance()
	slog.Debug("capture finished", "bytes", len(pcm),
		"duration", time.Duration(len(pcm)/(format.BytesPerSecond()/1000))*time.Millisecond)
	return pcm, nil
}

// ─── Player ───────────────────────────────────────────────────────────────────

// PlayerOption is a functional option for configuring a [Player].
type PlayerOption func(*Player)

// WithPlayCommand overrides the playback command template. The token {file}
// is substituted with the WAV path before execution.
func WithPlayCommand(argv ...string) PlayerOption {
	return func(p *Player) { p.playArgv = argv }
}

// Player plays PCM by writing a temporary WAV file and invoking the host's
// playback binary, blocking until it exits.
type Player struct {
	playArgv []string
	tmpDir   string
}

// NewPlayer creates a Player with platform-default commands.
func NewPlayer(opts ...PlayerOption) *Player {
	p := &Player{tmpDir: os.TempDir()}
	switch runtime.GOOS {
	case "darwin":
		p.playArgv = []string{"afplay", "{file}"}
	default:
		p.playArgv = []string{"aplay", "-q", "{file}"}
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Play implements [audio.Player]. It returns only after the playback binary
// has exited, so callers can safely begin the next capture.
func (p *Player) Play(ctx context.Context, pcm []byte, format audio.Format) error {
	if len(pcm) == 0 {
		return errors.New("audio/exec: empty pcm buffer")
	}
	wav := audio.EncodeWAV(pcm, format)

	path := filepath.Join(p.tmpDir, fmt.Sprintf("utterance_%d.wav", time.Now().UnixMilli()))
	if err := os.WriteFile(path, wav, 0o600); err != nil {
		return fmt.Errorf("audio/exec: write wav: %w", err)
	}
	defer os.Remove(path)

	argv := expand(p.playArgv, map[string]string{"{file}": path})
	cmd := osexec.CommandContext(ctx, argv[0], argv[1:]...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("audio/exec: %s: %w", argv[0], err)
	}
	return nil
}

// expand substitutes placeholder tokens in an argv template.
func expand(argv []string, repl map[string]string) []string {
	out := make([]string, len(argv))
	for i, a := range argv {
		for token, v := range repl {
			a = strings.ReplaceAll(a, token, v)
		}
		out[i] = a
	}
	return out
}
