// ABOUTME: Audio encoder package for writing corrected audio
// ABOUTME: Provides the Encoder interface, 16-bit PCM packing and WAV output
// Package encode turns decoded sample buffers back into files.
//
// Supports: 16-bit little-endian PCM, RIFF/WAVE
//
// PCMEncoder accepts int32 samples at any source bit depth from 8 to 32
// and packs them as 16-bit, saturating at full scale. WAV always writes
// stereo: mono input is duplicated into both channels.
//
// Example:
//
//	data, err := encode.WAV(processed.Buffer)
//	if errors.Is(err, encode.ErrEmptyOutput) {
//	    // nothing usable was produced
//	}
//	os.WriteFile(encode.OutputName, data, 0644)
package encode
