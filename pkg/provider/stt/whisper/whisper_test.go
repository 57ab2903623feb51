package whisper

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ravigajul/voice-ai-test/pkg/audio"
	"github.com/ravigajul/voice-ai-test/pkg/provider/stt"
)

func TestNewRequiresServerURL(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("New(\"\") should fail")
	}
}

func TestTranscribe(t *testing.T) {
	var gotLanguage, gotModel string
	var gotWAV []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" {
			t.Errorf("path = %q, want /inference", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotLanguage = r.FormValue("language")
		gotModel = r.FormValue("model")

		f, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		gotWAV, _ = io.ReadAll(f)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text": " One large pepperoni, please. "}`)
	}))
	defer srv.Close()

	tr, err := New(srv.URL, WithModel("base.en"), WithLanguage("en"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	pcm := make([]byte, 32000) // one second at 16 kHz mono
	res, err := tr.Transcribe(context.Background(), pcm, stt.AudioConfig{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "One large pepperoni, please." {
		t.Fatalf("Text = %q, want trimmed server text", res.Text)
	}
	if res.Duration.Seconds() != 1 {
		t.Fatalf("Duration = %v, want 1s", res.Duration)
	}
	if gotLanguage != "en" || gotModel != "base.en" {
		t.Fatalf("language = %q, model = %q", gotLanguage, gotModel)
	}

	// The upload must be a decodable WAV carrying the original PCM.
	decoded, format, err := audio.DecodeWAV(gotWAV)
	if err != nil {
		t.Fatalf("uploaded WAV invalid: %v", err)
	}
	if format.SampleRate != 16000 || len(decoded) != len(pcm) {
		t.Fatalf("uploaded format = %v, %d bytes", format, len(decoded))
	}
}

func TestTranscribeEmptyAudioIsNoSpeech(t *testing.T) {
	tr, err := New("http://localhost:1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = tr.Transcribe(context.Background(), nil, stt.AudioConfig{})
	if !errors.Is(err, stt.ErrNoSpeech) {
		t.Fatalf("err = %v, want ErrNoSpeech", err)
	}
}

func TestTranscribeBlankTextIsNoSpeech(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"text": "  "}`)
	}))
	defer srv.Close()

	tr, _ := New(srv.URL)
	_, err := tr.Transcribe(context.Background(), make([]byte, 640), stt.AudioConfig{SampleRate: 16000})
	if !errors.Is(err, stt.ErrNoSpeech) {
		t.Fatalf("err = %v, want ErrNoSpeech", err)
	}
}

func TestTranscribeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr, _ := New(srv.URL)
	if _, err := tr.Transcribe(context.Background(), make([]byte, 640), stt.AudioConfig{SampleRate: 16000}); err == nil {
		t.Fatal("HTTP 500 should surface as an error")
	}
}
