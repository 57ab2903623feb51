package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

// tone generates 16-bit PCM of the given amplitude, one sample per byte
// pair, long enough for ms milliseconds at the format's rate.
func tone(f Format, ms int, amplitude int16) []byte {
	n := f.SampleRate * f.Channels * ms / 1000
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(amplitude))
	}
	return pcm
}

func TestEncodeDecodeWAV(t *testing.T) {
	f := Format{SampleRate: 16000, Channels: 1}
	pcm := tone(f, 10, 1000)

	wav := EncodeWAV(pcm, f)
	if len(wav) != 44+len(pcm) {
		t.Fatalf("len(wav) = %d, want %d", len(wav), 44+len(pcm))
	}

	got, gotFormat, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if gotFormat != f {
		t.Fatalf("format = %v, want %v", gotFormat, f)
	}
	if !bytes.Equal(got, pcm) {
		t.Fatal("payload mismatch after round trip")
	}
}

func TestDecodeWAVSkipsListChunk(t *testing.T) {
	f := Format{SampleRate: 22050, Channels: 2}
	pcm := tone(f, 5, 42)
	wav := EncodeWAV(pcm, f)

	// Splice a LIST chunk between fmt and data, as some encoders do.
	list := make([]byte, 12)
	copy(list[0:4], "LIST")
	binary.LittleEndian.PutUint32(list[4:8], 4)
	copy(list[8:12], "INFO")

	spliced := append(append(append([]byte{}, wav[:36]...), list...), wav[36:]...)
	binary.LittleEndian.PutUint32(spliced[4:8], uint32(len(spliced)-8))

	got, gotFormat, err := DecodeWAV(spliced)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if gotFormat != f || !bytes.Equal(got, pcm) {
		t.Fatal("LIST chunk not skipped correctly")
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	for _, in := range [][]byte{
		nil,
		[]byte("not audio at all, just text padding!!"),
		bytes.Repeat([]byte{0}, 44),
	} {
		if _, _, err := DecodeWAV(in); err == nil {
			t.Fatalf("DecodeWAV(%d bytes) should fail", len(in))
		}
	}
}

func TestPCMToFloat32MonoDownmix(t *testing.T) {
	// Two stereo frames: (16384, -16384) averages to 0, (8192, 8192) to 0.25.
	samples := []int16{16384, -16384, 8192, 8192}
	pcm := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(s))
	}

	mono := PCMToFloat32Mono(pcm, 2)
	if len(mono) != 2 {
		t.Fatalf("len(mono) = %d, want 2", len(mono))
	}
	if math.Abs(float64(mono[0])) > 1e-6 {
		t.Errorf("mono[0] = %f, want 0", mono[0])
	}
	if math.Abs(float64(mono[1])-0.25) > 1e-6 {
		t.Errorf("mono[1] = %f, want 0.25", mono[1])
	}
}

func TestComputeRMS(t *testing.T) {
	if got := ComputeRMS(nil); got != 0 {
		t.Errorf("ComputeRMS(nil) = %f, want 0", got)
	}

	f := Format{SampleRate: 16000, Channels: 1}
	if got := ComputeRMS(tone(f, 10, 0)); got != 0 {
		t.Errorf("silent buffer RMS = %f, want 0", got)
	}
	if got := ComputeRMS(tone(f, 10, 1000)); math.Abs(got-1000) > 1 {
		t.Errorf("constant-amplitude RMS = %f, want 1000", got)
	}
}
