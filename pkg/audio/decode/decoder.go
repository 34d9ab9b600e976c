// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for all audio decoders plus the Decode entry point
package decode

import (
	"fmt"
	"strings"

	"github.com/harperreed/mixfix/pkg/audio"
)

// Decoder decodes a complete encoded file into PCM samples
type Decoder interface {
	// Decode converts encoded audio data to a PCM buffer
	Decode(data []byte) (*audio.Buffer, error)

	// Close releases decoder resources
	Close() error
}

// New creates a decoder for the container named in format.Codec
func New(format audio.Format) (Decoder, error) {
	switch strings.ToLower(format.Codec) {
	case "wav":
		return NewWAV(format)
	case "mp3":
		return NewMP3(format)
	case "flac":
		return NewFLAC(format)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format.Codec)
	}
}

// Decode turns a raw upload into PCM. The container is taken from raw.Container
// when set, otherwise detected from the file name and content.
func Decode(raw audio.Raw) (*audio.Buffer, error) {
	container := strings.ToLower(raw.Container)
	if container == "" {
		detected, err := Detect(raw.Name, raw.Data)
		if err != nil {
			return nil, err
		}
		container = detected
	}

	decoder, err := New(audio.Format{Codec: container})
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	buf, err := decoder.Decode(raw.Data)
	if err != nil {
		return nil, err
	}

	if buf.Format.Channels != 1 && buf.Format.Channels != 2 {
		return nil, fmt.Errorf("%w: %d channels (supported: 1, 2)", ErrUnsupportedFormat, buf.Format.Channels)
	}
	if err := buf.Validate(); err != nil {
		return nil, &Error{Container: container, Err: err}
	}
	if len(buf.Samples) == 0 {
		return nil, &Error{Container: container, Err: errNoSamples}
	}

	return buf, nil
}
