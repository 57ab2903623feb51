package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// bitsPerSample is fixed at 16 for the 16-bit signed little-endian PCM audio
// used throughout the harness.
const bitsPerSample = 16

// EncodeWAV wraps raw 16-bit PCM bytes in a minimal RIFF/WAVE container.
// The whisper.cpp server and the OS playback binaries both consume this form.
func EncodeWAV(pcm []byte, f Format) []byte {
	byteRate := f.SampleRate * f.Channels * bitsPerSample / 8
	blockAlign := f.Channels * bitsPerSample / 8
	dataSize := len(pcm)

	buf := make([]byte, 44+dataSize)

	// RIFF chunk descriptor
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize)) // file size − 8
	copy(buf[8:12], "WAVE")

	// fmt sub-chunk
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)                 // sub-chunk size (PCM)
	binary.LittleEndian.PutUint16(buf[20:22], 1)                  // audio format: PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(f.Channels)) // num channels
	binary.LittleEndian.PutUint32(buf[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bitsPerSample))

	// data sub-chunk
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm)

	return buf
}

// DecodeWAV extracts the PCM payload and format from a minimal RIFF/WAVE
// buffer as produced by [EncodeWAV] or by TTS backends that return WAV.
// Only 16-bit PCM is supported.
func DecodeWAV(wav []byte) ([]byte, Format, error) {
	if len(wav) < 44 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, Format{}, fmt.Errorf("audio: not a RIFF/WAVE buffer")
	}
	if binary.LittleEndian.Uint16(wav[20:22]) != 1 {
		return nil, Format{}, fmt.Errorf("audio: only PCM WAV is supported")
	}
	if bps := binary.LittleEndian.Uint16(wav[34:36]); bps != bitsPerSample {
		return nil, Format{}, fmt.Errorf("audio: unsupported bit depth %d", bps)
	}
	f := Format{
		Channels:   int(binary.LittleEndian.Uint16(wav[22:24])),
		SampleRate: int(binary.LittleEndian.Uint32(wav[24:28])),
	}

	// Walk sub-chunks to find "data"; some encoders insert LIST chunks
	// between fmt and data.
	off := 12
	for off+8 <= len(wav) {
		id := string(wav[off : off+4])
		size := int(binary.LittleEndian.Uint32(wav[off+4 : off+8]))
		body := off + 8
		if body+size > len(wav) {
			size = len(wav) - body
		}
		if id == "data" {
			return wav[body : body+size], f, nil
		}
		off = body + size
		if size%2 == 1 {
			off++ // chunk bodies are word-aligned
		}
	}
	return nil, Format{}, fmt.Errorf("audio: no data chunk found")
}

// PCMToFloat32Mono converts 16-bit signed little-endian PCM bytes into
// normalised float32 samples in [-1, 1], downmixing to mono by averaging all
// channels per frame. The whisper.cpp bindings consume this form.
func PCMToFloat32Mono(pcm []byte, channels int) []float32 {
	if channels < 1 {
		channels = 1
	}
	samplesPerFrame := len(pcm) / (2 * channels)
	mono := make([]float32, samplesPerFrame)
	for i := range samplesPerFrame {
		var sum float32
		for ch := range channels {
			idx := (i*channels + ch) * 2
			sample := int16(binary.LittleEndian.Uint16(pcm[idx : idx+2]))
			sum += float32(sample) / 32768.0
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// ComputeRMS returns the root-mean-square energy of a 16-bit signed
// little-endian PCM buffer, expressed in PCM sample units (0–32767).
// Returns 0 for buffers shorter than one sample.
func ComputeRMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[2*i : 2*i+2])))
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}
