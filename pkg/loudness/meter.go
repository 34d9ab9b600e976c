// ABOUTME: Gated integrated loudness meter
// ABOUTME: Block energy, absolute/relative gating and LUFS integration
package loudness

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
)

const (
	// BlockSize is the gating block duration in seconds
	BlockSize = 0.4
	// Overlap is the fraction of each block shared with the next
	Overlap = 0.75
	// AbsoluteGate drops blocks quieter than this (LUFS)
	AbsoluteGate = -70.0
	// RelativeGate is the offset below the absolute-gated loudness (LU)
	RelativeGate = -10.0

	offset = -0.691
)

var (
	// ErrInsufficientData is returned for input shorter than one block
	ErrInsufficientData = errors.New("audio shorter than one 400ms analysis block")

	// ErrInvalidInput is returned for unusable channel layouts or sample rates
	ErrInvalidInput = errors.New("invalid loudness input")
)

// channelWeights per BS.1770: L, R, C at 1.0, surrounds at 1.41
var channelWeights = []float64{1.0, 1.0, 1.0, 1.41, 1.41}

// Measurement is an integrated loudness in LUFS, or Undefined for silence
type Measurement float64

// Undefined marks a signal with no block above the absolute gate
var Undefined = Measurement(math.NaN())

// Defined reports whether the measurement holds a finite loudness
func (m Measurement) Defined() bool {
	return !math.IsNaN(float64(m)) && !math.IsInf(float64(m), 0)
}

// LUFS returns the measurement as a plain float
func (m Measurement) LUFS() float64 {
	return float64(m)
}

func (m Measurement) String() string {
	if !m.Defined() {
		return "undefined"
	}
	return fmt.Sprintf("%.2f LUFS", float64(m))
}

// MarshalJSON encodes the loudness with two decimals, or null when undefined
func (m Measurement) MarshalJSON() ([]byte, error) {
	if !m.Defined() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(m), 'f', 2, 64)), nil
}

// UnmarshalJSON decodes a number, or null as Undefined
func (m *Measurement) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Undefined
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid loudness %q: %w", data, err)
	}
	*m = Measurement(v)
	return nil
}

// Meter measures integrated loudness for a fixed sample rate and channel count
type Meter struct {
	sampleRate int
	channels   int
	shelf      biquad
	highpass   biquad

	// Debug logs per-block loudness
	Debug bool
}

// NewMeter creates a meter for the given layout
func NewMeter(sampleRate, channels int) (*Meter, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidInput, sampleRate)
	}
	if channels < 1 || channels > len(channelWeights) {
		return nil, fmt.Errorf("%w: %d channels (supported: 1-%d)", ErrInvalidInput, channels, len(channelWeights))
	}

	shelf, highpass := kWeighting(float64(sampleRate))

	return &Meter{
		sampleRate: sampleRate,
		channels:   channels,
		shelf:      shelf,
		highpass:   highpass,
	}, nil
}

// Measure computes integrated loudness of samples laid out as [channel][frame]
func Measure(samples [][]float64, sampleRate int) (Measurement, error) {
	m, err := NewMeter(sampleRate, len(samples))
	if err != nil {
		return Undefined, err
	}
	return m.Integrated(samples)
}

// Integrated computes gated integrated loudness
func (m *Meter) Integrated(samples [][]float64) (Measurement, error) {
	z, err := m.blockEnergy(samples)
	if err != nil {
		return Undefined, err
	}

	numBlocks := len(z[0])
	blockLoudness := make([]float64, numBlocks)
	for j := 0; j < numBlocks; j++ {
		blockLoudness[j] = m.loudness(z, func(i int) float64 { return z[i][j] })
		if m.Debug {
			log.Printf("[DEBUG] loudness block %d: %.2f LUFS", j, blockLoudness[j])
		}
	}

	gated := gate(blockLoudness, AbsoluteGate, math.Inf(-1))
	if len(gated) == 0 {
		return Undefined, nil
	}

	relative := m.loudness(z, meanOver(z, gated)) + RelativeGate
	gated = gate(blockLoudness, AbsoluteGate, relative)
	if len(gated) == 0 {
		return Undefined, nil
	}

	if m.Debug {
		log.Printf("[DEBUG] loudness gating: %d/%d blocks kept, relative gate %.2f LUFS",
			len(gated), numBlocks, relative)
	}

	lufs := m.loudness(z, meanOver(z, gated))
	if math.IsInf(lufs, 0) || math.IsNaN(lufs) {
		return Undefined, nil
	}
	return Measurement(lufs), nil
}

// blockEnergy K-weights each channel and returns mean square energy per
// channel per gating block
func (m *Meter) blockEnergy(samples [][]float64) ([][]float64, error) {
	if len(samples) != m.channels {
		return nil, fmt.Errorf("%w: got %d channels, meter expects %d", ErrInvalidInput, len(samples), m.channels)
	}

	frames := len(samples[0])
	for ch := range samples {
		if len(samples[ch]) != frames {
			return nil, fmt.Errorf("%w: channel %d has %d frames, expected %d",
				ErrInvalidInput, ch, len(samples[ch]), frames)
		}
	}

	rate := float64(m.sampleRate)
	if frames < int(math.Round(BlockSize*rate)) {
		return nil, fmt.Errorf("%w: %d frames at %d Hz", ErrInsufficientData, frames, m.sampleRate)
	}

	step := 1 - Overlap
	duration := float64(frames) / rate
	numBlocks := int(math.Round((duration-BlockSize)/(BlockSize*step))) + 1
	norm := 1 / (BlockSize * rate)

	z := make([][]float64, m.channels)
	for ch := range samples {
		filtered := m.highpass.process(m.shelf.process(samples[ch]))

		z[ch] = make([]float64, numBlocks)
		for j := 0; j < numBlocks; j++ {
			lower := int(BlockSize * (float64(j) * step) * rate)
			upper := int(BlockSize * (float64(j)*step + 1) * rate)
			if upper > frames {
				upper = frames
			}

			var sum float64
			for _, v := range filtered[lower:upper] {
				sum += v * v
			}
			z[ch][j] = sum * norm
		}
	}

	return z, nil
}

// loudness converts per-channel energies into LUFS using channel weights
func (m *Meter) loudness(z [][]float64, energy func(ch int) float64) float64 {
	var sum float64
	for ch := range z {
		sum += channelWeights[ch] * energy(ch)
	}
	return offset + 10*math.Log10(sum)
}

// gate returns indices of blocks louder than both thresholds. The absolute
// gate is inclusive and the relative gate exclusive.
func gate(blockLoudness []float64, absolute, relative float64) []int {
	var kept []int
	for j, l := range blockLoudness {
		if l >= absolute && l > relative {
			kept = append(kept, j)
		}
	}
	return kept
}

// meanOver returns a per-channel energy function averaging the given blocks
func meanOver(z [][]float64, blocks []int) func(ch int) float64 {
	return func(ch int) float64 {
		var sum float64
		for _, j := range blocks {
			sum += z[ch][j]
		}
		return sum / float64(len(blocks))
	}
}
