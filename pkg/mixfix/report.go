// ABOUTME: Processing report for a single track
// ABOUTME: Holds measured loudness, policy band, gain applied and output details
package mixfix

import (
	"encoding/json"
	"fmt"

	"github.com/harperreed/mixfix/pkg/audio"
	"github.com/harperreed/mixfix/pkg/loudness"
	"github.com/harperreed/mixfix/pkg/policy"
)

// Report describes what the pipeline measured and changed
type Report struct {
	RequestID string `json:"request_id"`
	Name      string `json:"name,omitempty"`

	Container  string  `json:"container"`
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	BitDepth   int     `json:"bit_depth"`
	Duration   float64 `json:"duration_seconds"`

	Loudness       loudness.Measurement `json:"lufs"`
	Band           policy.Band          `json:"-"`
	Severity       string               `json:"severity,omitempty"`
	Message        string               `json:"message"`
	Recommendation string               `json:"recommendation,omitempty"`

	TargetLUFS float64 `json:"target_lufs"`
	GainDB     float64 `json:"gain_db"`
	Corrected  bool    `json:"corrected"`

	OutputName  string `json:"output_name,omitempty"`
	OutputBytes int    `json:"output_bytes,omitempty"`
}

// Silent reports whether the track had no measurable loudness
func (r *Report) Silent() bool {
	return !r.Loudness.Defined()
}

func (r *Report) setSource(name string, buf *audio.Buffer) {
	r.Name = name
	r.Container = buf.Format.Codec
	r.SampleRate = buf.Format.SampleRate
	r.Channels = buf.Format.Channels
	r.BitDepth = buf.Format.BitDepth
	r.Duration = buf.Duration().Seconds()
}

func (r *Report) setBand(band policy.Band) {
	r.Band = band
	r.Severity = band.Severity.String()
	r.Message = band.Message
	if !band.Recommendation.IsZero() {
		r.Recommendation = band.Recommendation.String()
	}
}

// UnmarshalJSON decodes a report and restores its policy band. The severity
// string wins over the loudness, which the wire form rounds to 2 decimals.
func (r *Report) UnmarshalJSON(data []byte) error {
	type plain Report
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Report(p)
	if band, ok := policy.Lookup(r.Severity); ok {
		r.Band = band
	} else if r.Loudness.Defined() {
		r.Band = policy.Classify(r.Loudness.LUFS())
	}
	return nil
}

// Lines renders the report as user-facing text, one line per fact
func (r *Report) Lines() []string {
	if r.Silent() {
		return []string{
			"Track loudness: undefined",
			SilentMessage,
		}
	}

	lines := []string{
		fmt.Sprintf("Track loudness: %.2f LUFS", r.Loudness.LUFS()),
		r.Message,
	}

	if rec := r.Band.Recommendation; !rec.IsZero() {
		verb := "Increase"
		if rec.MaxDB < 0 {
			verb = "Reduce"
		}
		lines = append(lines, fmt.Sprintf("Recommendation: %s by %s", verb, rec))
	}

	lines = append(lines, fmt.Sprintf("Target: %g LUFS | Current: %.1f LUFS", r.TargetLUFS, r.Loudness.LUFS()))

	if r.Corrected {
		lines = append(lines,
			fmt.Sprintf("Applying gain: %+.1f dB", r.GainDB),
			fmt.Sprintf("Fixed audio ready! File size: %d bytes", r.OutputBytes),
		)
	}

	return lines
}
