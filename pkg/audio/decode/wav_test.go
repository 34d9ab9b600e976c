// ABOUTME: Tests for WAV decoder
// ABOUTME: Tests integer, float and extensible WAV decoding plus malformed input
package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/harperreed/mixfix/pkg/audio"
	"github.com/harperreed/mixfix/pkg/loudness"
)

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

// pcmSubFormat and floatSubFormat are the KSDATAFORMAT GUIDs
var (
	pcmSubFormat   = []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xaa, 0x00, 0x38, 0x9b, 0x71}
	floatSubFormat = []byte{0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xaa, 0x00, 0x38, 0x9b, 0x71}
)

// buildWAV assembles a canonical RIFF/WAVE file around payload.
// declaredSize overrides the data chunk size when >= 0.
func buildWAV(format uint16, channels, sampleRate, bits int, payload []byte, declaredSize int) []byte {
	if declaredSize < 0 {
		declaredSize = len(payload)
	}
	blockAlign := channels * bits / 8

	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+len(payload)))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, format)
	binary.Write(&b, binary.LittleEndian, uint16(channels))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate*blockAlign))
	binary.Write(&b, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&b, binary.LittleEndian, uint16(bits))
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(declaredSize))
	b.Write(payload)
	return b.Bytes()
}

// buildExtensibleWAV writes a WAVE_FORMAT_EXTENSIBLE file with a LIST chunk
// ahead of the data chunk.
func buildExtensibleWAV(subFormat []byte, channels, sampleRate, bits int, payload []byte) []byte {
	blockAlign := channels * bits / 8

	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(4+8+40+8+4+8+len(payload)))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(40))
	binary.Write(&b, binary.LittleEndian, uint16(0xFFFE))
	binary.Write(&b, binary.LittleEndian, uint16(channels))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate*blockAlign))
	binary.Write(&b, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&b, binary.LittleEndian, uint16(bits))
	binary.Write(&b, binary.LittleEndian, uint16(22))
	binary.Write(&b, binary.LittleEndian, uint16(bits))
	binary.Write(&b, binary.LittleEndian, uint32(3)) // front left, front right
	b.Write(subFormat)
	b.WriteString("LIST")
	binary.Write(&b, binary.LittleEndian, uint32(4))
	b.WriteString("INFO")
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(len(payload)))
	b.Write(payload)
	return b.Bytes()
}

// int24Payload packs samples as 3-byte little-endian words
func int24Payload(samples ...int32) []byte {
	out := make([]byte, 0, len(samples)*3)
	for _, v := range samples {
		out = append(out, byte(v), byte(v>>8), byte(v>>16))
	}
	return out
}

func int16Payload(samples ...int16) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, samples)
	return b.Bytes()
}

func TestNewWAV(t *testing.T) {
	decoder, err := NewWAV(audio.Format{Codec: "wav"})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	if decoder == nil {
		t.Fatal("expected decoder to be created")
	}
}

func TestNewWAV_InvalidCodec(t *testing.T) {
	decoder, err := NewWAV(audio.Format{Codec: "mp3"})
	if err == nil {
		t.Fatal("expected error for invalid codec, got nil")
	}

	if decoder != nil {
		t.Fatal("expected decoder to be nil for invalid codec")
	}

	expectedError := "invalid codec for WAV decoder: mp3"
	if err.Error() != expectedError {
		t.Errorf("expected error %q, got %q", expectedError, err.Error())
	}
}

func TestWAVDecode16BitStereo(t *testing.T) {
	data := buildWAV(wavFormatPCM, 2, 44100, 16, int16Payload(100, -100, 32767, -32768), -1)

	decoder, _ := NewWAV(audio.Format{Codec: "wav"})
	buf, err := decoder.Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if buf.Format.SampleRate != 44100 {
		t.Errorf("expected sample rate 44100, got %d", buf.Format.SampleRate)
	}
	if buf.Format.Channels != 2 {
		t.Errorf("expected 2 channels, got %d", buf.Format.Channels)
	}
	if buf.Format.BitDepth != 16 {
		t.Errorf("expected bit depth 16, got %d", buf.Format.BitDepth)
	}

	expected := []int32{100, -100, 32767, -32768}
	if len(buf.Samples) != len(expected) {
		t.Fatalf("expected %d samples, got %d", len(expected), len(buf.Samples))
	}
	for i := range expected {
		if buf.Samples[i] != expected[i] {
			t.Errorf("sample %d: expected %d, got %d", i, expected[i], buf.Samples[i])
		}
	}
}

func TestWAVDecode8Bit(t *testing.T) {
	data := buildWAV(wavFormatPCM, 1, 8000, 8, []byte{128, 255, 0, 64}, -1)

	decoder, _ := NewWAV(audio.Format{Codec: "wav"})
	buf, err := decoder.Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if buf.Format.BitDepth != 8 {
		t.Errorf("expected bit depth 8, got %d", buf.Format.BitDepth)
	}

	expected := []int32{0, 127, -128, -64}
	for i := range expected {
		if buf.Samples[i] != expected[i] {
			t.Errorf("sample %d: expected %d, got %d", i, expected[i], buf.Samples[i])
		}
	}
}

func TestWAVDecodeFloat(t *testing.T) {
	var payload bytes.Buffer
	binary.Write(&payload, binary.LittleEndian, []float32{0, 0.5, -1, 2})
	data := buildWAV(wavFormatFloat, 1, 48000, 32, payload.Bytes(), -1)

	decoder, _ := NewWAV(audio.Format{Codec: "wav"})
	buf, err := decoder.Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if buf.Format.BitDepth != 16 {
		t.Errorf("expected float input quantized to 16-bit, got %d", buf.Format.BitDepth)
	}

	expected := []int32{0, 16384, -32768, math.MaxInt16}
	for i := range expected {
		if buf.Samples[i] != expected[i] {
			t.Errorf("sample %d: expected %d, got %d", i, expected[i], buf.Samples[i])
		}
	}
}

func TestWAVDecodeHighBitDepth(t *testing.T) {
	var int32Data bytes.Buffer
	binary.Write(&int32Data, binary.LittleEndian, []int32{math.MaxInt32, math.MinInt32, 1 << 16, -1})

	tests := []struct {
		name     string
		data     []byte
		channels int
		bitDepth int
		expected []int32
	}{
		{
			name:     "24-bit mono",
			data:     buildWAV(wavFormatPCM, 1, 48000, 24, int24Payload(0x7FFFFF, -0x800000, 1, -1), -1),
			channels: 1,
			bitDepth: 24,
			expected: []int32{0x7FFFFF, -0x800000, 1, -1},
		},
		{
			name:     "32-bit stereo",
			data:     buildWAV(wavFormatPCM, 2, 44100, 32, int32Data.Bytes(), -1),
			channels: 2,
			bitDepth: 32,
			expected: []int32{math.MaxInt32, math.MinInt32, 1 << 16, -1},
		},
		{
			name:     "extensible 24-bit stereo",
			data:     buildExtensibleWAV(pcmSubFormat, 2, 48000, 24, int24Payload(1000, -1000, 0x400000, -0x400000)),
			channels: 2,
			bitDepth: 24,
			expected: []int32{1000, -1000, 0x400000, -0x400000},
		},
		{
			name:     "extensible 16-bit stereo",
			data:     buildExtensibleWAV(pcmSubFormat, 2, 44100, 16, int16Payload(100, -100, 200, -200)),
			channels: 2,
			bitDepth: 16,
			expected: []int32{100, -100, 200, -200},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoder, _ := NewWAV(audio.Format{Codec: "wav"})
			buf, err := decoder.Decode(tt.data)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if err := buf.Validate(); err != nil {
				t.Fatalf("invalid buffer: %v", err)
			}

			if buf.Format.Channels != tt.channels {
				t.Errorf("expected %d channels, got %d", tt.channels, buf.Format.Channels)
			}
			if buf.Format.BitDepth != tt.bitDepth {
				t.Errorf("expected bit depth %d, got %d", tt.bitDepth, buf.Format.BitDepth)
			}
			if len(buf.Samples) != len(tt.expected) {
				t.Fatalf("expected %d samples, got %d", len(tt.expected), len(buf.Samples))
			}
			for i := range tt.expected {
				if buf.Samples[i] != tt.expected[i] {
					t.Errorf("sample %d: expected %d, got %d", i, tt.expected[i], buf.Samples[i])
				}
			}
		})
	}
}

func TestWAVDecodeFloat64(t *testing.T) {
	var payload bytes.Buffer
	binary.Write(&payload, binary.LittleEndian, []float64{0, 0.5, -1, 2})
	data := buildWAV(wavFormatFloat, 1, 48000, 64, payload.Bytes(), -1)

	decoder, _ := NewWAV(audio.Format{Codec: "wav"})
	buf, err := decoder.Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	expected := []int32{0, 16384, -32768, math.MaxInt16}
	if len(buf.Samples) != len(expected) {
		t.Fatalf("expected %d samples, got %d", len(expected), len(buf.Samples))
	}
	for i := range expected {
		if buf.Samples[i] != expected[i] {
			t.Errorf("sample %d: expected %d, got %d", i, expected[i], buf.Samples[i])
		}
	}
}

func TestWAVDecodeExtensibleFloat(t *testing.T) {
	var payload bytes.Buffer
	binary.Write(&payload, binary.LittleEndian, []float32{0.5, -0.5})
	data := buildExtensibleWAV(floatSubFormat, 2, 48000, 32, payload.Bytes())

	decoder, _ := NewWAV(audio.Format{Codec: "wav"})
	buf, err := decoder.Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if buf.Samples[0] != 16384 || buf.Samples[1] != -16384 {
		t.Errorf("expected [16384 -16384], got %v", buf.Samples)
	}
}

// A float64 tone must measure at its true level, not as reinterpreted float32 words
func TestWAVFloat64ToneLoudness(t *testing.T) {
	const rate = 48000
	samples := make([]float64, 2*rate)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*997*float64(i)/rate)
	}
	var payload bytes.Buffer
	binary.Write(&payload, binary.LittleEndian, samples)
	data := buildWAV(wavFormatFloat, 1, rate, 64, payload.Bytes(), -1)

	buf, err := Decode(audio.Raw{Name: "tone.wav", Data: data})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if buf.Frames() != len(samples) {
		t.Fatalf("expected %d frames, got %d", len(samples), buf.Frames())
	}

	m, err := loudness.Measure(buf.Normalize(), buf.Format.SampleRate)
	if err != nil {
		t.Fatalf("measure failed: %v", err)
	}
	if math.Abs(m.LUFS()-(-9.03)) > 0.1 {
		t.Errorf("expected -9.03 LUFS, got %v", m)
	}
}

func TestWAVDecodeUnsupportedEncoding(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"a-law", buildWAV(6, 1, 8000, 8, []byte{0xd5, 0x55}, -1)},
		{"12-bit pcm", buildWAV(wavFormatPCM, 1, 8000, 12, []byte{0, 0, 0, 0}, -1)},
		{"16-bit float", buildWAV(wavFormatFloat, 1, 8000, 16, []byte{0, 0, 0, 0}, -1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoder, _ := NewWAV(audio.Format{Codec: "wav"})
			_, err := decoder.Decode(tt.data)
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("expected ErrUnsupportedFormat, got %v", err)
			}
		})
	}
}

func TestWAVDecodeTruncated(t *testing.T) {
	data := buildWAV(wavFormatPCM, 2, 44100, 16, int16Payload(1, 2), 1<<30)

	decoder, _ := NewWAV(audio.Format{Codec: "wav"})
	buf, err := decoder.Decode(data)
	if err == nil {
		t.Fatal("expected error for truncated data chunk, got nil")
	}
	if buf != nil {
		t.Fatal("expected nil buffer on error")
	}
	if !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
}

func TestWAVDecodeGarbage(t *testing.T) {
	decoder, _ := NewWAV(audio.Format{Codec: "wav"})
	_, err := decoder.Decode([]byte("definitely not a wav file"))
	if err == nil {
		t.Fatal("expected error for garbage input, got nil")
	}

	var decErr *Error
	if !errors.As(err, &decErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if decErr.Container != "wav" {
		t.Errorf("expected container wav, got %q", decErr.Container)
	}
	if decErr.Unwrap() == nil {
		t.Error("expected underlying cause to be preserved")
	}
}

func TestWAVClose(t *testing.T) {
	decoder, _ := NewWAV(audio.Format{Codec: "wav"})

	if err := decoder.Close(); err != nil {
		t.Errorf("expected Close to succeed, got error: %v", err)
	}
}
