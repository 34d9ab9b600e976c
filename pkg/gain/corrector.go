// ABOUTME: Loudness gain corrector
// ABOUTME: Computes the gain decision and scales samples into a new buffer
package gain

import (
	"errors"
	"fmt"
	"math"

	"github.com/harperreed/mixfix/pkg/audio"
	"github.com/harperreed/mixfix/pkg/loudness"
)

// TargetLUFS is the streaming loudness target
const TargetLUFS = -14.0

// ErrCannotCorrectSilence is returned when the measurement is undefined
var ErrCannotCorrectSilence = errors.New("cannot correct silent audio")

// Decision records the gain chosen for a track
type Decision struct {
	TargetLUFS  float64
	CurrentLUFS float64
	GainDB      float64
}

// Processed is a gain-corrected copy of the input
type Processed struct {
	Decision
	Buffer *audio.Buffer
}

// Linear converts decibels to a linear amplitude factor
func Linear(db float64) float64 {
	return math.Pow(10, db/20)
}

// Decide computes the gain that moves m to target
func Decide(m loudness.Measurement, target float64) (Decision, error) {
	if !m.Defined() {
		return Decision{}, ErrCannotCorrectSilence
	}
	return Decision{
		TargetLUFS:  target,
		CurrentLUFS: m.LUFS(),
		GainDB:      target - m.LUFS(),
	}, nil
}

// Correct returns a new buffer with every sample scaled by the gain
// toward target. The input buffer is not modified.
func Correct(buf *audio.Buffer, m loudness.Measurement, target float64) (*Processed, error) {
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("gain input: %w", err)
	}

	decision, err := Decide(m, target)
	if err != nil {
		return nil, err
	}

	factor := Linear(decision.GainDB)
	samples := make([]int32, len(buf.Samples))
	for i, s := range buf.Samples {
		samples[i] = audio.ClampInt32(math.Round(float64(s) * factor))
	}

	return &Processed{
		Decision: decision,
		Buffer: &audio.Buffer{
			Samples: samples,
			Format:  buf.Format,
		},
	}, nil
}
