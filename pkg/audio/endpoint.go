package audio

const (
	// defaultRMSThreshold is the RMS energy level (in 16-bit PCM units)
	// below which a frame is considered silent. The maximum possible value
	// for 16-bit audio is 32767; 300 corresponds to near-silence.
	defaultRMSThreshold = 300.0

	// DefaultSilenceThresholdMs is the trailing-silence duration that ends
	// an utterance once speech has been heard.
	DefaultSilenceThresholdMs = 1200

	// DefaultMaxUtteranceMs bounds a single utterance once speech has
	// begun. The wait FOR speech is unbounded; this only caps continuous
	// speech so buffers stay finite.
	DefaultMaxUtteranceMs = 30_000
)

// Endpointer segments a stream of PCM frames into a single utterance using
// energy-based voice activity detection: it ignores leading silence, starts
// buffering at the first speech frame, and declares the utterance complete
// after a configured run of trailing silence or when the utterance reaches
// its maximum length.
//
// Endpointer is not safe for concurrent use; each capture owns its own.
type Endpointer struct {
	format             Format
	rmsThreshold       float64
	silenceThresholdMs int
	maxUtteranceMs     int

	buf             []byte
	speechSeen      bool
	trailingSilence int // ms of consecutive silence since last speech frame
}

// NewEndpointer creates an Endpointer for PCM frames in the given format.
// silenceThresholdMs and maxUtteranceMs fall back to the package defaults
// when zero or negative.
func NewEndpointer(format Format, silenceThresholdMs, maxUtteranceMs int) *Endpointer {
	if silenceThresholdMs <= 0 {
		silenceThresholdMs = DefaultSilenceThresholdMs
	}
	if maxUtteranceMs <= 0 {
		maxUtteranceMs = DefaultMaxUtteranceMs
	}
	return &Endpointer{
		format:             format,
		rmsThreshold:       defaultRMSThreshold,
		silenceThresholdMs: silenceThresholdMs,
		maxUtteranceMs:     maxUtteranceMs,
	}
}

// Feed consumes the next captured PCM frame and reports whether the
// utterance is complete. Once Feed returns true, the buffered utterance is
// available via [Endpointer.Utterance] and further frames are ignored.
func (e *Endpointer) Feed(frame []byte) (done bool) {
	if len(frame) == 0 {
		return false
	}
	frameMs := len(frame) * 1000 / e.format.BytesPerSecond()
	silent := ComputeRMS(frame) < e.rmsThreshold

	if !e.speechSeen {
		if silent {
			return false // still waiting for the operator to start speaking
		}
		e.speechSeen = true
	}

	e.buf = append(e.buf, frame...)

	if silent {
		e.trailingSilence += frameMs
		if e.trailingSilence >= e.silenceThresholdMs {
			return true
		}
	} else {
		e.trailingSilence = 0
	}

	bufMs := len(e.buf) * 1000 / e.format.BytesPerSecond()
	return bufMs >= e.maxUtteranceMs
}

// SpeechSeen reports whether any speech frame has been observed yet.
func (e *Endpointer) SpeechSeen() bool { return e.speechSeen }

// Utterance returns the buffered PCM with trailing silence trimmed off.
func (e *Endpointer) Utterance() []byte {
	trimBytes := e.trailingSilence * e.format.BytesPerSecond() / 1000
	if trimBytes > len(e.buf) {
		trimBytes = len(e.buf)
	}
	return e.buf[:len(e.buf)-trimBytes]
}
