// Package deepgram provides a Deepgram-backed stt.Transcriber using the
// Deepgram streaming WebSocket API.
//
// The harness is turn-based, so each Transcribe call opens a short-lived
// streaming session: the utterance PCM is written in chunks, a CloseStream
// message flushes the recogniser, and the final results are concatenated
// into one text.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/ravigajul/voice-ai-test/pkg/provider/stt"
)

const (
	deepgramEndpoint  = "wss://api.deepgram.com/v1/listen"
	defaultModel      = "nova-3"
	defaultLanguage   = "en"
	defaultSampleRate = 16000

	// chunkBytes is the binary message size used when streaming the
	// utterance to Deepgram. 8 KiB ≈ 256 ms of 16 kHz mono PCM.
	chunkBytes = 8192
)

// Compile-time assertion that Transcriber implements stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

// Option is a functional option for configuring the Deepgram Transcriber.
type Option func(*Transcriber)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(t *Transcriber) { t.model = model }
}

// WithLanguage sets the BCP-47 language code for recognition (e.g., "en").
func WithLanguage(language string) Option {
	return func(t *Transcriber) { t.language = language }
}

// WithKeywords sets vocabulary boost hints sent with every request
// (Deepgram "word:boost" format is built from these).
func WithKeywords(keywords ...string) Option {
	return func(t *Transcriber) { t.keywords = keywords }
}

// Transcriber implements stt.Transcriber backed by the Deepgram streaming
// API. Safe for concurrent use; each call owns its own connection.
type Transcriber struct {
	apiKey   string
	model    string
	language string
	keywords []string
}

// New creates a new Deepgram Transcriber. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Transcriber, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	t := &Transcriber{
		apiKey:   apiKey,
		model:    defaultModel,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// deepgramResponse is the JSON structure returned by Deepgram for a Results
// event.
type deepgramResponse struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// Transcribe implements stt.Transcriber.
func (t *Transcriber) Transcribe(ctx context.Context, pcm []byte, cfg stt.AudioConfig) (stt.Result, error) {
	if len(pcm) == 0 {
		return stt.Result{}, fmt.Errorf("deepgram: empty audio: %w", stt.ErrNoSpeech)
	}

	wsURL, err := t.buildURL(cfg)
	if err != nil {
		return stt.Result{}, fmt.Errorf("deepgram: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+t.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		return stt.Result{}, fmt.Errorf("deepgram: dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "transcription done")

	// Stream the utterance, then ask Deepgram to flush.
	for off := 0; off < len(pcm); off += chunkBytes {
		end := off + chunkBytes
		if end > len(pcm) {
			end = len(pcm)
		}
		if err := conn.Write(ctx, websocket.MessageBinary, pcm[off:end]); err != nil {
			return stt.Result{}, fmt.Errorf("deepgram: write audio: %w", err)
		}
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"CloseStream"}`)); err != nil {
		return stt.Result{}, fmt.Errorf("deepgram: close stream: %w", err)
	}

	// Collect finals until the server closes the connection.
	var (
		parts      []string
		confidence float64
		nFinals    int
	)
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			var closeErr websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.StatusNormalClosure {
				break
			}
			if ctx.Err() != nil {
				return stt.Result{}, ctx.Err()
			}
			// Deepgram closes the socket after the final Results event;
			// treat any post-flush EOF as end of stream.
			break
		}

		var resp deepgramResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			continue // ignore non-Results frames (Metadata etc.)
		}
		if !resp.IsFinal || len(resp.Channel.Alternatives) == 0 {
			continue
		}
		alt := resp.Channel.Alternatives[0]
		if txt := strings.TrimSpace(alt.Transcript); txt != "" {
			parts = append(parts, txt)
			confidence += alt.Confidence
			nFinals++
		}
		if resp.Type == "Metadata" {
			break
		}
	}

	text := strings.Join(parts, " ")
	if text == "" {
		return stt.Result{}, fmt.Errorf("deepgram: %w", stt.ErrNoSpeech)
	}
	if nFinals > 0 {
		confidence /= float64(nFinals)
	}

	sr := cfg.SampleRate
	if sr <= 0 {
		sr = defaultSampleRate
	}
	ch := cfg.Channels
	if ch <= 0 {
		ch = 1
	}
	return stt.Result{
		Text:       text,
		Confidence: confidence,
		Duration:   time.Duration(len(pcm)) * time.Second / time.Duration(sr*ch*2),
	}, nil
}

// buildURL constructs the Deepgram streaming endpoint URL for the given
// audio config.
func (t *Transcriber) buildURL(cfg stt.AudioConfig) (string, error) {
	u, err := url.Parse(deepgramEndpoint)
	if err != nil {
		return "", err
	}

	lang := cfg.Language
	if lang == "" {
		lang = t.language
	}
	sr := cfg.SampleRate
	if sr == 0 {
		sr = defaultSampleRate
	}

	q := u.Query()
	q.Set("model", t.model)
	q.Set("language", lang)
	q.Set("punctuate", "true")
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(sr))
	if cfg.Channels > 0 {
		q.Set("channels", strconv.Itoa(cfg.Channels))
	}
	for _, kw := range t.keywords {
		q.Add("keywords", kw)
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}
