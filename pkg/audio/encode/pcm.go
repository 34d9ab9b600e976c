// ABOUTME: PCM audio encoder
// ABOUTME: Packs int32 samples at any source bit depth into 16-bit PCM bytes
package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/harperreed/mixfix/pkg/audio"
)

// PCMEncoder encodes samples to 16-bit little-endian PCM
type PCMEncoder struct {
	sourceBits int
}

// NewPCM creates a PCM encoder for samples at format.BitDepth
func NewPCM(format audio.Format) (Encoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM encoder: %s", format.Codec)
	}

	if format.BitDepth < 8 || format.BitDepth > 32 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 8-32)", format.BitDepth)
	}

	return &PCMEncoder{
		sourceBits: format.BitDepth,
	}, nil
}

// Encode converts int32 samples to 16-bit PCM bytes, 2 bytes per sample
func (e *PCMEncoder) Encode(samples []int32) ([]byte, error) {
	output := make([]byte, len(samples)*2)
	for i, sample := range samples {
		sample16 := audio.SampleToInt16(sample, e.sourceBits)
		binary.LittleEndian.PutUint16(output[i*2:], uint16(sample16))
	}
	return output, nil
}

// Close releases resources
func (e *PCMEncoder) Close() error {
	return nil
}
