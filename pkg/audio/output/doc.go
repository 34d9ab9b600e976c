// ABOUTME: Audio output package for previewing corrected audio
// ABOUTME: Provides the Output interface, an oto backend and Preview
// Package output plays sample buffers on the local sound device.
//
// Oto plays 16-bit PCM; samples at other bit depths are rescaled on the
// way out. Preview feeds a whole buffer in 100ms chunks so playback can be
// stopped through its context.
//
// Example:
//
//	out := output.NewOto()
//	defer out.Close()
//	err := output.Preview(ctx, out, result.Buffer)
package output
