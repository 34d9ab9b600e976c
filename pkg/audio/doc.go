// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Raw, Format, Buffer types and sample conversion functions
// Package audio provides the fundamental audio types shared by the mixfix pipeline.
//
// This package defines:
//   - Raw: an encoded file (wav, mp3, flac) as received from a source
//   - Format: sample rate, channel count and bit depth of decoded PCM
//   - Buffer: interleaved integer PCM samples at the declared bit depth
//
// Buffers are normalized to per-channel float64 slices in [-1, 1] for
// measurement by dividing each sample by 2^(BitDepth-1).
//
// Example:
//
//	buf := &audio.Buffer{
//	    Samples: pcm,
//	    Format:  audio.Format{Codec: "wav", SampleRate: 44100, Channels: 2, BitDepth: 16},
//	}
//	if err := buf.Validate(); err != nil {
//	    return err
//	}
//	channels := buf.Normalize() // channels[0] is left, channels[1] is right
package audio
