// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes FLAC audio frame by frame to interleaved samples
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/harperreed/mixfix/pkg/audio"
	"github.com/mewkiz/flac"
)

// FLACDecoder decodes FLAC audio
type FLACDecoder struct{}

// NewFLAC creates a new FLAC decoder
func NewFLAC(format audio.Format) (Decoder, error) {
	if format.Codec != "flac" {
		return nil, fmt.Errorf("invalid codec for FLAC decoder: %s", format.Codec)
	}

	return &FLACDecoder{}, nil
}

// Decode converts FLAC bytes to a PCM buffer
func (d *FLACDecoder) Decode(data []byte) (*audio.Buffer, error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Container: "flac", Err: err}
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)

	if bitDepth > 24 {
		return nil, fmt.Errorf("%w: %d-bit flac (supported: up to 24)", ErrUnsupportedFormat, bitDepth)
	}

	// NSamples is header-declared; bound the preallocation by the input size
	capacity := int(info.NSamples) * channels
	if limit := len(data) * 8; capacity > limit || capacity < 0 {
		capacity = limit
	}
	samples := make([]int32, 0, capacity)
	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &Error{Container: "flac", Err: err}
		}

		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < channels; ch++ {
				samples = append(samples, frame.Subframes[ch].Samples[i])
			}
		}
	}

	return &audio.Buffer{
		Samples: samples,
		Format: audio.Format{
			Codec:      "flac",
			SampleRate: int(info.SampleRate),
			Channels:   channels,
			BitDepth:   bitDepth,
		},
	}, nil
}

// Close releases decoder resources
func (d *FLACDecoder) Close() error {
	return nil
}
