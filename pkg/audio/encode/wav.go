// ABOUTME: RIFF/WAVE writer for corrected audio
// ABOUTME: Writes 16-bit stereo PCM at the source sample rate
package encode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/harperreed/mixfix/pkg/audio"
)

const (
	// OutputName is the file name given to corrected audio
	OutputName = "fixed_mix.wav"
	// MimeType is the content type of WAV output
	MimeType = "audio/wav"
	// MinOutputBytes is the smallest output considered a real file
	MinOutputBytes = 1000

	outputChannels = 2
	outputBits     = 16
	headerSize     = 44
	formatPCM      = 1
)

// ErrEmptyOutput is returned when encoding produces too few bytes
var ErrEmptyOutput = errors.New("encoded output is empty")

// wavHeader is the canonical 44-byte RIFF/WAVE header
type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

func newWAVHeader(sampleRate, dataSize int) wavHeader {
	blockAlign := outputChannels * outputBits / 8
	return wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(headerSize - 8 + dataSize),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   formatPCM,
		NumChannels:   outputChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * blockAlign),
		BlockAlign:    uint16(blockAlign),
		BitsPerSample: outputBits,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(dataSize),
	}
}

// WAV encodes buf as 16-bit stereo PCM WAV at its own sample rate.
// Mono buffers are duplicated into both channels.
func WAV(buf *audio.Buffer) ([]byte, error) {
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("wav encode: %w", err)
	}
	if buf.Format.Channels > outputChannels {
		return nil, fmt.Errorf("wav encode: %d channels (supported: 1-2)", buf.Format.Channels)
	}

	encoder, err := NewPCM(audio.Format{
		Codec:      "pcm",
		SampleRate: buf.Format.SampleRate,
		Channels:   outputChannels,
		BitDepth:   buf.Format.BitDepth,
	})
	if err != nil {
		return nil, fmt.Errorf("wav encode: %w", err)
	}
	defer encoder.Close()

	pcm, err := encoder.Encode(stereo(buf))
	if err != nil {
		return nil, fmt.Errorf("wav encode: %w", err)
	}

	var out bytes.Buffer
	out.Grow(headerSize + len(pcm))
	if err := binary.Write(&out, binary.LittleEndian, newWAVHeader(buf.Format.SampleRate, len(pcm))); err != nil {
		return nil, fmt.Errorf("wav header: %w", err)
	}
	out.Write(pcm)

	if out.Len() < MinOutputBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrEmptyOutput, out.Len())
	}

	return out.Bytes(), nil
}

// stereo returns interleaved two-channel samples
func stereo(buf *audio.Buffer) []int32 {
	if buf.Format.Channels == outputChannels {
		return buf.Samples
	}

	out := make([]int32, len(buf.Samples)*2)
	for i, s := range buf.Samples {
		out[i*2] = s
		out[i*2+1] = s
	}
	return out
}
