// ABOUTME: Loudness band classification
// ABOUTME: Severity levels, recommendation ranges and the ordered band table
package policy

import "fmt"

// Severity describes how far a track sits from the streaming target
type Severity int

const (
	Good Severity = iota
	SlightlyQuiet
	TooQuiet
	SlightlyLoud
	TooLoud
)

// String returns a stable identifier for the severity
func (s Severity) String() string {
	switch s {
	case Good:
		return "good"
	case SlightlyQuiet:
		return "slightly-quiet"
	case TooQuiet:
		return "too-quiet"
	case SlightlyLoud:
		return "slightly-loud"
	case TooLoud:
		return "too-loud"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Range is a recommended gain adjustment in dB
type Range struct {
	MinDB float64
	MaxDB float64
}

// IsZero reports whether no adjustment is recommended
func (r Range) IsZero() bool {
	return r.MinDB == 0 && r.MaxDB == 0
}

// String renders the range as "+4 to +8 dB", or "none"
func (r Range) String() string {
	if r.IsZero() {
		return "none"
	}
	return fmt.Sprintf("%+g to %+g dB", r.MinDB, r.MaxDB)
}

// Band is the classification result for one measurement
type Band struct {
	Severity       Severity
	Recommendation Range
	Message        string
}

type rule struct {
	match func(lufs float64) bool
	band  Band
}

// rules are evaluated in order. The loud bands overlap and the order
// decides which one applies.
var rules = []rule{
	{
		match: func(l float64) bool { return l < -18 },
		band: Band{
			Severity:       TooQuiet,
			Recommendation: Range{MinDB: 4, MaxDB: 8},
			Message:        "Track is too quiet → Need to boost volume significantly!",
		},
	},
	{
		match: func(l float64) bool { return l < -14 },
		band: Band{
			Severity:       SlightlyQuiet,
			Recommendation: Range{MinDB: 2, MaxDB: 4},
			Message:        "A bit quiet → Could use more volume",
		},
	},
	{
		match: func(l float64) bool { return l > -10 },
		band: Band{
			Severity:       TooLoud,
			Recommendation: Range{MinDB: -4, MaxDB: -2},
			Message:        "Too loud → Risk of distortion",
		},
	},
	{
		match: func(l float64) bool { return l > -12 },
		band: Band{
			Severity:       SlightlyLoud,
			Recommendation: Range{MinDB: -2, MaxDB: -1},
			Message:        "Bit too loud → Slightly reduce volume",
		},
	},
}

var good = Band{
	Severity: Good,
	Message:  "Loudness is in a good range for streaming!",
}

// Classify returns the first band whose condition holds for lufs.
// Values matching no band, NaN included, are Good.
func Classify(lufs float64) Band {
	for _, r := range rules {
		if r.match(lufs) {
			return r.band
		}
	}
	return good
}

// Lookup returns the band whose severity renders as name. Reports carry the
// severity string, so a decoded report can restore its band without
// reclassifying a rounded loudness.
func Lookup(name string) (Band, bool) {
	if name == good.Severity.String() {
		return good, true
	}
	for _, r := range rules {
		if r.band.Severity.String() == name {
			return r.band, true
		}
	}
	return Band{}, false
}
