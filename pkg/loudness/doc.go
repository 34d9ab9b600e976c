// ABOUTME: Integrated loudness measurement package
// ABOUTME: Implements ITU-R BS.1770-4 gated loudness (LUFS) for mono and stereo audio
// Package loudness measures integrated loudness per ITU-R BS.1770-4.
//
// The measurement runs in four steps:
//   - K-weighting: a high-shelf stage followed by a 38 Hz high-pass, with
//     coefficients designed for the actual sample rate
//   - Mean square energy per 400ms block with 75% overlap
//   - Absolute gating at -70 LUFS and relative gating 10 dB below the
//     absolute-gated mean
//   - Integration: -0.691 + 10*log10(weighted mean energy)
//
// Silence never produces -Inf. Measure returns Undefined instead, and
// callers test it with Measurement.Defined.
//
// Example:
//
//	m, err := loudness.Measure(buf.Normalize(), buf.Format.SampleRate)
//	if err != nil {
//	    return err // ErrInsufficientData for clips shorter than 400ms
//	}
//	if !m.Defined() {
//	    // silent track
//	}
//	fmt.Printf("%.2f LUFS\n", m.LUFS())
package loudness
