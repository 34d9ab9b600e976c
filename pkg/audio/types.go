// ABOUTME: Audio type definitions
// ABOUTME: Defines raw containers, PCM formats and decoded buffers
package audio

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Raw is an encoded audio file as handed over by a source (upload, file, socket)
type Raw struct {
	Name      string // Original file name, used for container detection
	Container string // "wav", "mp3", "flac"; empty means detect
	Data      []byte
}

// Format describes a PCM stream
type Format struct {
	Codec      string // Container the samples were decoded from
	SampleRate int
	Channels   int
	BitDepth   int // Bit depth of Samples, used for normalization
}

// Buffer represents decoded PCM audio
type Buffer struct {
	Samples []int32 // Interleaved samples at Format.BitDepth
	Format  Format
}

// ErrInvalidBuffer is returned by Validate for malformed buffers
var ErrInvalidBuffer = errors.New("invalid audio buffer")

// Validate checks the buffer invariants
func (b *Buffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidBuffer)
	}
	if b.Format.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidBuffer, b.Format.SampleRate)
	}
	if b.Format.Channels < 1 {
		return fmt.Errorf("%w: %d channels", ErrInvalidBuffer, b.Format.Channels)
	}
	if b.Format.BitDepth < 8 || b.Format.BitDepth > 32 {
		return fmt.Errorf("%w: bit depth %d", ErrInvalidBuffer, b.Format.BitDepth)
	}
	if len(b.Samples)%b.Format.Channels != 0 {
		return fmt.Errorf("%w: %d samples is not a multiple of %d channels",
			ErrInvalidBuffer, len(b.Samples), b.Format.Channels)
	}
	return nil
}

// Frames returns the number of sample frames
func (b *Buffer) Frames() int {
	if b.Format.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Format.Channels
}

// Duration returns the playing time of the buffer
func (b *Buffer) Duration() time.Duration {
	if b.Format.SampleRate == 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.Format.SampleRate)
}

// Clone returns a deep copy of the buffer
func (b *Buffer) Clone() *Buffer {
	samples := make([]int32, len(b.Samples))
	copy(samples, b.Samples)
	return &Buffer{Samples: samples, Format: b.Format}
}

// Normalize deinterleaves the samples into per-channel float slices,
// dividing each sample by 2^(BitDepth-1)
func (b *Buffer) Normalize() [][]float64 {
	channels := b.Format.Channels
	frames := b.Frames()
	scale := 1.0 / FullScale(b.Format.BitDepth)

	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			out[ch][i] = float64(b.Samples[i*channels+ch]) * scale
		}
	}
	return out
}

// FullScale returns 2^(bitDepth-1), the magnitude of a full-scale sample
func FullScale(bitDepth int) float64 {
	return math.Ldexp(1, bitDepth-1)
}

// Rescale moves a sample from one bit depth to another by shifting
func Rescale(sample int32, from, to int) int32 {
	switch {
	case from > to:
		return sample >> (from - to)
	case from < to:
		return sample << (to - from)
	default:
		return sample
	}
}

// SampleToInt16 converts a sample at bitDepth to int16, saturating at full scale
func SampleToInt16(sample int32, bitDepth int) int16 {
	v := int64(sample)
	if bitDepth > 16 {
		v >>= bitDepth - 16
	} else if bitDepth < 16 {
		v <<= 16 - bitDepth
	}
	return ClampInt16(v)
}

// ClampInt16 saturates v to the int16 range
func ClampInt16(v int64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// ClampInt32 saturates v to the int32 range
func ClampInt32(v float64) int32 {
	if v >= math.MaxInt32 {
		return math.MaxInt32
	}
	if v <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}
