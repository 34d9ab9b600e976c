// ABOUTME: Audio decoder package for whole-file decoding
// ABOUTME: Provides Decoder interface and implementations for WAV, MP3, FLAC
// Package decode turns complete encoded audio files into PCM buffers.
//
// Supports: WAV (8 to 32-bit PCM, 32/64-bit float, WAVE_FORMAT_EXTENSIBLE), MP3,
// FLAC (up to 24-bit)
//
// Samples keep their native bit depth; the buffer's Format.BitDepth records it
// so callers can normalize. MP3 decodes to 16-bit; mono sources stay mono.
//
// Failures are typed: ErrUnsupportedFormat for containers or layouts no
// decoder handles, and *Error (matching ErrDecode) for failures inside a codec.
//
// Example:
//
//	buf, err := decode.Decode(audio.Raw{Name: "song.mp3", Data: data})
//	if errors.Is(err, decode.ErrUnsupportedFormat) {
//	    // reject the upload
//	}
package decode
