package audio

import (
	"bytes"
	"testing"
)

var testFormat = Format{SampleRate: 16000, Channels: 1}

func TestEndpointerIgnoresLeadingSilence(t *testing.T) {
	ep := NewEndpointer(testFormat, 100, 0)

	for i := 0; i < 50; i++ {
		if ep.Feed(tone(testFormat, 20, 0)) {
			t.Fatal("endpointer completed during leading silence")
		}
	}
	if ep.SpeechSeen() {
		t.Fatal("SpeechSeen = true before any speech")
	}
	if len(ep.Utterance()) != 0 {
		t.Fatal("leading silence was buffered")
	}
}

func TestEndpointerCompletesOnTrailingSilence(t *testing.T) {
	ep := NewEndpointer(testFormat, 100, 0)

	speech := tone(testFormat, 20, 5000)
	silence := tone(testFormat, 20, 0)

	for i := 0; i < 5; i++ {
		if ep.Feed(speech) {
			t.Fatal("completed mid-speech")
		}
	}
	if !ep.SpeechSeen() {
		t.Fatal("SpeechSeen = false after speech frames")
	}

	done := false
	for i := 0; i < 5 && !done; i++ {
		done = ep.Feed(silence)
	}
	if !done {
		t.Fatal("did not complete after 100ms of trailing silence")
	}

	// Trailing silence is trimmed; only the 100ms of speech remains.
	want := 5 * len(speech)
	if got := len(ep.Utterance()); got != want {
		t.Fatalf("len(Utterance()) = %d, want %d", got, want)
	}
}

func TestEndpointerSilenceResetBySpeech(t *testing.T) {
	ep := NewEndpointer(testFormat, 100, 0)

	speech := tone(testFormat, 20, 5000)
	silence := tone(testFormat, 20, 0)

	ep.Feed(speech)
	// 80ms of silence, below the threshold, then speech again.
	for i := 0; i < 4; i++ {
		if ep.Feed(silence) {
			t.Fatal("completed before silence threshold")
		}
	}
	if ep.Feed(speech) {
		t.Fatal("completed on a speech frame")
	}

	// The pause is part of the utterance, not trimmed.
	want := 2*len(speech) + 4*len(silence)
	if got := len(ep.Utterance()); got != want {
		t.Fatalf("len(Utterance()) = %d, want %d (mid-utterance pause kept)", got, want)
	}
}

func TestEndpointerMaxUtteranceCap(t *testing.T) {
	ep := NewEndpointer(testFormat, 10_000, 100)

	speech := tone(testFormat, 20, 5000)
	done := false
	frames := 0
	for !done && frames < 100 {
		done = ep.Feed(speech)
		frames++
	}
	if !done {
		t.Fatal("continuous speech never hit the max-utterance cap")
	}
	if frames != 5 {
		t.Fatalf("completed after %d frames, want 5 (100ms cap / 20ms frames)", frames)
	}
}

func TestEndpointerUtteranceContent(t *testing.T) {
	ep := NewEndpointer(testFormat, 40, 0)

	speech := tone(testFormat, 20, 3000)
	silence := tone(testFormat, 20, 0)

	ep.Feed(speech)
	ep.Feed(speech)
	if done := ep.Feed(silence); done {
		t.Fatal("completed after 20ms silence with 40ms threshold")
	}
	if done := ep.Feed(silence); !done {
		t.Fatal("not complete after 40ms silence")
	}

	want := append(append([]byte{}, speech...), speech...)
	if !bytes.Equal(ep.Utterance(), want) {
		t.Fatal("utterance content mismatch")
	}
}
