// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MP3 audio to 16-bit samples, keeping mono sources single channel
package decode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
	"github.com/harperreed/mixfix/pkg/audio"
)

// MP3Decoder decodes MP3 audio
type MP3Decoder struct{}

// NewMP3 creates a new MP3 decoder
func NewMP3(format audio.Format) (Decoder, error) {
	if format.Codec != "mp3" {
		return nil, fmt.Errorf("invalid codec for MP3 decoder: %s", format.Codec)
	}

	return &MP3Decoder{}, nil
}

// Decode converts MP3 bytes to a PCM buffer
func (d *MP3Decoder) Decode(data []byte) (*audio.Buffer, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Container: "mp3", Err: err}
	}

	// go-mp3 always outputs 16-bit little-endian stereo
	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, &Error{Container: "mp3", Err: err}
	}

	// Frames are 4 bytes: left then right
	frames := len(pcm) / 4
	if frames == 0 {
		return nil, &Error{Container: "mp3", Err: errNoSamples}
	}

	// go-mp3 duplicates a mono source into both channels; keep only the left
	channels := 2
	if mpegMono(data) {
		channels = 1
	}
	samples := make([]int32, frames*channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] = int32(int16(binary.LittleEndian.Uint16(pcm[i*4+ch*2:])))
		}
	}

	return &audio.Buffer{
		Samples: samples,
		Format: audio.Format{
			Codec:      "mp3",
			SampleRate: decoder.SampleRate(),
			Channels:   channels,
			BitDepth:   16,
		},
	}, nil
}

// mpegMono reports whether the first MPEG audio frame after any ID3v2 tag
// uses the single channel mode
func mpegMono(data []byte) bool {
	pos := 0
	if len(data) >= 10 && string(data[:3]) == "ID3" {
		// Syncsafe size excludes the 10-byte header and the optional footer
		size := int(data[6]&0x7f)<<21 | int(data[7]&0x7f)<<14 | int(data[8]&0x7f)<<7 | int(data[9]&0x7f)
		pos = 10 + size
		if data[5]&0x10 != 0 {
			pos += 10
		}
	}

	for ; pos+4 <= len(data); pos++ {
		if mpegHeader(data[pos : pos+4]) {
			return data[pos+3]>>6 == 0x3
		}
	}
	return false
}

// mpegHeader reports whether h is a plausible MPEG audio frame header
func mpegHeader(h []byte) bool {
	if h[0] != 0xFF || h[1]&0xE0 != 0xE0 {
		return false
	}
	version := (h[1] >> 3) & 0x3
	layer := (h[1] >> 1) & 0x3
	bitrate := h[2] >> 4
	rate := (h[2] >> 2) & 0x3
	emphasis := h[3] & 0x3
	return version != 1 && layer != 0 && bitrate != 0 && bitrate != 0xF && rate != 0x3 && emphasis != 2
}

// Close releases decoder resources
func (d *MP3Decoder) Close() error {
	return nil
}
