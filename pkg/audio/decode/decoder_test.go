// ABOUTME: Tests for container detection and the Decode entry point
// ABOUTME: Covers extension and magic-byte detection and error taxonomy
package decode

import (
	"errors"
	"testing"

	"github.com/harperreed/mixfix/pkg/audio"
)

func TestDetect(t *testing.T) {
	wavBytes := buildWAV(wavFormatPCM, 1, 8000, 16, int16Payload(0), -1)

	tests := []struct {
		name     string
		file     string
		data     []byte
		expected string
		wantErr  bool
	}{
		{"wav extension", "song.wav", nil, "wav", false},
		{"upper case extension", "SONG.WAV", nil, "wav", false},
		{"mp3 extension", "song.mp3", nil, "mp3", false},
		{"flac extension", "song.flac", nil, "flac", false},
		{"riff magic", "", wavBytes, "wav", false},
		{"flac magic", "", []byte("fLaC\x00"), "flac", false},
		{"id3 magic", "", []byte("ID3\x04"), "mp3", false},
		{"mpeg sync", "", []byte{0xFF, 0xFB, 0x90}, "mp3", false},
		{"magic beats unknown extension", "upload.bin", wavBytes, "wav", false},
		{"unknown extension", "song.ogg", []byte("OggS"), "", true},
		{"no name no magic", "", []byte("hello"), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Detect(tt.file, tt.data)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Errorf("expected ErrUnsupportedFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestSupported(t *testing.T) {
	if !Supported("/tmp/a.mp3") {
		t.Error("expected .mp3 to be supported")
	}
	if Supported("/tmp/a.txt") {
		t.Error("expected .txt to be unsupported")
	}
}

func TestNew_UnsupportedCodec(t *testing.T) {
	decoder, err := New(audio.Format{Codec: "opus"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if decoder != nil {
		t.Fatal("expected nil decoder")
	}
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDecode_WAV(t *testing.T) {
	raw := audio.Raw{
		Name: "mix.wav",
		Data: buildWAV(wavFormatPCM, 1, 22050, 16, int16Payload(1, 2, 3), -1),
	}

	buf, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if buf.Format.Codec != "wav" || buf.Format.Channels != 1 || buf.Format.SampleRate != 22050 {
		t.Errorf("unexpected format %+v", buf.Format)
	}
	if len(buf.Samples) != 3 {
		t.Errorf("expected 3 samples, got %d", len(buf.Samples))
	}
}

func TestDecode_ExplicitContainer(t *testing.T) {
	raw := audio.Raw{
		Name:      "upload",
		Container: "WAV",
		Data:      buildWAV(wavFormatPCM, 2, 44100, 16, int16Payload(1, 2), -1),
	}

	if _, err := Decode(raw); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
}

func TestDecode_Unsupported(t *testing.T) {
	_, err := Decode(audio.Raw{Name: "song.ogg", Data: []byte("OggS")})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	if errors.Is(err, ErrDecode) {
		t.Error("unsupported format must not match ErrDecode")
	}
}

func TestDecode_TooManyChannels(t *testing.T) {
	raw := audio.Raw{
		Name: "surround.wav",
		Data: buildWAV(wavFormatPCM, 3, 48000, 16, int16Payload(1, 2, 3), -1),
	}

	_, err := Decode(raw)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDecode_EmptyDataChunk(t *testing.T) {
	raw := audio.Raw{
		Name: "empty.wav",
		Data: buildWAV(wavFormatPCM, 2, 44100, 16, nil, -1),
	}

	_, err := Decode(raw)
	if !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
}
