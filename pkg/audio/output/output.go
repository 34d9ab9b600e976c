// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for playback backends and the chunked preview player
package output

import (
	"context"
	"fmt"

	"github.com/harperreed/mixfix/pkg/audio"
)

// Output represents an audio output device
type Output interface {
	// Open initializes the output device for samples at bitDepth
	Open(sampleRate, channels, bitDepth int) error

	// Write outputs audio samples (blocks until written)
	Write(samples []int32) error

	// Close releases output resources
	Close() error
}

// chunkDuration in milliseconds; cancellation is checked between chunks
const chunkDuration = 100

// Preview plays buf through out until it ends or ctx is cancelled.
// The caller closes out.
func Preview(ctx context.Context, out Output, buf *audio.Buffer) error {
	if err := buf.Validate(); err != nil {
		return fmt.Errorf("preview: %w", err)
	}

	if err := out.Open(buf.Format.SampleRate, buf.Format.Channels, buf.Format.BitDepth); err != nil {
		return fmt.Errorf("preview: %w", err)
	}

	chunk := buf.Format.SampleRate * chunkDuration / 1000 * buf.Format.Channels
	if chunk == 0 {
		chunk = buf.Format.Channels
	}

	for start := 0; start < len(buf.Samples); start += chunk {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		end := start + chunk
		if end > len(buf.Samples) {
			end = len(buf.Samples)
		}
		if err := out.Write(buf.Samples[start:end]); err != nil {
			return fmt.Errorf("preview: %w", err)
		}
	}

	return nil
}
