// ABOUTME: Gain correction package
// ABOUTME: Applies a single global gain toward a loudness target
// Package gain scales decoded audio so its integrated loudness moves to
// a target, -14 LUFS by default.
//
// The gain is target minus measured loudness, applied as a linear factor
// of 10^(dB/20) to every sample. No limiter runs afterwards: samples that
// exceed full scale are only saturated to the int32 storage range here,
// and to 16-bit by the WAV encoder.
//
// Example:
//
//	out, err := gain.Correct(buf, m, gain.TargetLUFS)
//	if errors.Is(err, gain.ErrCannotCorrectSilence) {
//	    // nothing to scale
//	}
package gain
