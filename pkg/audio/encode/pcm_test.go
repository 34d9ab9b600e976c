// ABOUTME: Unit tests for PCM encoder
// ABOUTME: Tests 16-bit packing from 8, 16, 24 and 32-bit sources
package encode

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/harperreed/mixfix/pkg/audio"
)

func TestNewPCM(t *testing.T) {
	tests := []struct {
		name        string
		format      audio.Format
		wantErr     bool
		errContains string
	}{
		{
			name: "valid 16-bit PCM",
			format: audio.Format{
				Codec:      "pcm",
				SampleRate: 48000,
				Channels:   2,
				BitDepth:   16,
			},
			wantErr: false,
		},
		{
			name: "valid 24-bit PCM",
			format: audio.Format{
				Codec:      "pcm",
				SampleRate: 44100,
				Channels:   2,
				BitDepth:   24,
			},
			wantErr: false,
		},
		{
			name: "invalid codec",
			format: audio.Format{
				Codec:      "wav",
				SampleRate: 48000,
				Channels:   2,
				BitDepth:   16,
			},
			wantErr:     true,
			errContains: "invalid codec",
		},
		{
			name: "unsupported bit depth",
			format: audio.Format{
				Codec:      "pcm",
				SampleRate: 48000,
				Channels:   2,
				BitDepth:   4,
			},
			wantErr:     true,
			errContains: "unsupported bit depth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoder, err := NewPCM(tt.format)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewPCM() expected error, got nil")
				} else if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("NewPCM() error = %v, want error containing %v", err, tt.errContains)
				}
			} else {
				if err != nil {
					t.Errorf("NewPCM() unexpected error = %v", err)
				}
				if encoder == nil {
					t.Errorf("NewPCM() returned nil encoder")
				}
			}
		})
	}
}

func TestPCMEncoder_Encode(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		samples  []int32
		expected []int16
	}{
		{
			name:     "16-bit passthrough",
			bitDepth: 16,
			samples:  []int32{0, 32767, -32768, 1234, -5678},
			expected: []int16{0, 32767, -32768, 1234, -5678},
		},
		{
			name:     "16-bit saturates after gain",
			bitDepth: 16,
			samples:  []int32{65000, -65000},
			expected: []int16{math.MaxInt16, math.MinInt16},
		},
		{
			name:     "24-bit shifts down",
			bitDepth: 24,
			samples:  []int32{0x7FFFFF, -0x800000, 0x123456},
			expected: []int16{0x7FFF, -0x8000, 0x1234},
		},
		{
			name:     "8-bit shifts up",
			bitDepth: 8,
			samples:  []int32{127, -128, 1},
			expected: []int16{127 << 8, -128 << 8, 256},
		},
		{
			name:     "32-bit shifts down",
			bitDepth: 32,
			samples:  []int32{math.MaxInt32, math.MinInt32},
			expected: []int16{math.MaxInt16, math.MinInt16},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoder, err := NewPCM(audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 1, BitDepth: tt.bitDepth})
			if err != nil {
				t.Fatalf("NewPCM() failed: %v", err)
			}
			defer encoder.Close()

			output, err := encoder.Encode(tt.samples)
			if err != nil {
				t.Fatalf("Encode() failed: %v", err)
			}

			if len(output) != len(tt.samples)*2 {
				t.Fatalf("Encode() output size = %d, want %d", len(output), len(tt.samples)*2)
			}

			for i, want := range tt.expected {
				got := int16(binary.LittleEndian.Uint16(output[i*2:]))
				if got != want {
					t.Errorf("Sample %d: got %d, want %d", i, got, want)
				}
			}
		})
	}
}

func TestPCMEncoder_Close(t *testing.T) {
	encoder, err := NewPCM(audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 16})
	if err != nil {
		t.Fatalf("NewPCM() failed: %v", err)
	}

	if err := encoder.Close(); err != nil {
		t.Errorf("Close() unexpected error = %v", err)
	}
}
