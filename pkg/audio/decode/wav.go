// ABOUTME: WAV audio decoder
// ABOUTME: Decodes RIFF/WAVE integer PCM (8 to 32-bit), IEEE float and WAVE_FORMAT_EXTENSIBLE files
package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/harperreed/mixfix/pkg/audio"
	"github.com/mjibson/go-dsp/wav"
)

// WAVE format tags
const (
	wavePCM        = 0x0001
	waveFloat      = 0x0003
	waveExtensible = 0xFFFE
)

// WAVDecoder decodes WAV files
type WAVDecoder struct{}

// NewWAV creates a new WAV decoder
func NewWAV(format audio.Format) (Decoder, error) {
	if format.Codec != "wav" {
		return nil, fmt.Errorf("invalid codec for WAV decoder: %s", format.Codec)
	}

	return &WAVDecoder{}, nil
}

// wavLayout is the fmt chunk plus the location of the data chunk
type wavLayout struct {
	tag        uint16 // PCM or float, resolved through the extensible sub-format
	extensible bool
	channels   int
	sampleRate int
	bits       int
	dataOffset int
	dataSize   int
}

// Decode converts WAV bytes to a PCM buffer
func (d *WAVDecoder) Decode(data []byte) (*audio.Buffer, error) {
	layout, err := parseWAV(data)
	if err != nil {
		return nil, &Error{Container: "wav", Err: err}
	}

	// go-dsp reads the classic layouts; everything else is unpacked here
	if layout.dspReadable() {
		return decodeDSP(data)
	}
	return layout.unpack(data[layout.dataOffset : layout.dataOffset+layout.dataSize])
}

// dspReadable reports whether go-dsp/wav can read the samples. It rejects the
// extensible tag and integer PCM wider than 16 bits, and reads every float
// file as 32-bit.
func (l *wavLayout) dspReadable() bool {
	if l.extensible {
		return false
	}
	switch l.tag {
	case wavePCM:
		return l.bits == 8 || l.bits == 16
	case waveFloat:
		return l.bits == 32
	}
	return false
}

// parseWAV walks the RIFF chunks up to the data chunk
func parseWAV(data []byte) (*wavLayout, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errors.New("missing RIFF/WAVE header")
	}

	var l wavLayout
	hasFmt := false
	for pos := 12; pos+8 <= len(data); {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4:]))
		body := pos + 8

		switch id {
		case "fmt ":
			if size < 16 || size > len(data)-body {
				return nil, fmt.Errorf("bad fmt chunk size %d", size)
			}
			chunk := data[body : body+size]
			l.tag = binary.LittleEndian.Uint16(chunk[0:])
			l.channels = int(binary.LittleEndian.Uint16(chunk[2:]))
			l.sampleRate = int(binary.LittleEndian.Uint32(chunk[4:]))
			l.bits = int(binary.LittleEndian.Uint16(chunk[14:]))
			if l.tag == waveExtensible {
				// cbSize, valid bits, channel mask, then the sub-format GUID
				// whose first two bytes carry the real format tag
				if size < 40 {
					return nil, fmt.Errorf("short extensible fmt chunk: %d bytes", size)
				}
				l.extensible = true
				l.tag = binary.LittleEndian.Uint16(chunk[24:])
			}
			if l.channels == 0 || l.sampleRate == 0 || l.bits == 0 {
				return nil, errors.New("malformed fmt chunk")
			}
			hasFmt = true
		case "data":
			if !hasFmt {
				return nil, errors.New("data chunk before fmt chunk")
			}
			// The size comes straight from the header; refuse to read past the file
			if size > len(data)-body {
				return nil, fmt.Errorf("truncated data chunk: header declares %d bytes, %d present", size, len(data)-body)
			}
			l.dataOffset = body
			l.dataSize = size
			return &l, nil
		}

		// Chunks are word aligned
		pos = body + size + size&1
	}

	return nil, errors.New("no data chunk")
}

// decodeDSP reads 8/16-bit PCM and 32-bit float through go-dsp
func decodeDSP(data []byte) (*audio.Buffer, error) {
	w, err := wav.New(bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Container: "wav", Err: err}
	}

	raw, err := w.ReadSamples(w.Samples)
	if err != nil {
		return nil, &Error{Container: "wav", Err: err}
	}

	header := w.Header
	buf := &audio.Buffer{
		Format: audio.Format{
			Codec:      "wav",
			SampleRate: int(header.SampleRate),
			Channels:   int(header.NumChannels),
		},
	}

	switch s := raw.(type) {
	case []uint8:
		// 8-bit WAV is unsigned with a 128 offset
		buf.Format.BitDepth = 8
		buf.Samples = make([]int32, len(s))
		for i, v := range s {
			buf.Samples[i] = int32(v) - 128
		}
	case []int16:
		buf.Format.BitDepth = 16
		buf.Samples = make([]int32, len(s))
		for i, v := range s {
			buf.Samples[i] = int32(v)
		}
	case []float32:
		buf.Format.BitDepth = 16
		buf.Samples = make([]int32, len(s))
		for i, v := range s {
			buf.Samples[i] = quantizeFloat(float64(v))
		}
	default:
		return nil, fmt.Errorf("%w: wav sample type %T", ErrUnsupportedFormat, raw)
	}

	return buf, nil
}

// unpack decodes the data chunk for layouts go-dsp cannot read
func (l *wavLayout) unpack(payload []byte) (*audio.Buffer, error) {
	if l.bits%8 != 0 || l.bits > 64 {
		return nil, fmt.Errorf("%w: %d-bit wav", ErrUnsupportedFormat, l.bits)
	}
	width := l.bits / 8
	frame := width * l.channels
	n := len(payload) / frame * l.channels

	buf := &audio.Buffer{
		Samples: make([]int32, n),
		Format: audio.Format{
			Codec:      "wav",
			SampleRate: l.sampleRate,
			Channels:   l.channels,
		},
	}

	switch {
	case l.tag == wavePCM && l.bits <= 32:
		buf.Format.BitDepth = l.bits
		for i := range buf.Samples {
			buf.Samples[i] = pcmSample(payload[i*width:], width)
		}
	case l.tag == waveFloat && l.bits == 32:
		buf.Format.BitDepth = 16
		for i := range buf.Samples {
			v := math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
			buf.Samples[i] = quantizeFloat(float64(v))
		}
	case l.tag == waveFloat && l.bits == 64:
		buf.Format.BitDepth = 16
		for i := range buf.Samples {
			v := math.Float64frombits(binary.LittleEndian.Uint64(payload[i*8:]))
			buf.Samples[i] = quantizeFloat(v)
		}
	default:
		return nil, fmt.Errorf("%w: %d-bit wav format tag %#04x", ErrUnsupportedFormat, l.bits, l.tag)
	}

	return buf, nil
}

// pcmSample reads one little-endian signed sample; 8-bit is unsigned
func pcmSample(b []byte, width int) int32 {
	switch width {
	case 1:
		return int32(b[0]) - 128
	case 2:
		return int32(int16(binary.LittleEndian.Uint16(b)))
	case 3:
		// Sign extend from bit 23
		return int32(uint32(b[0])<<8|uint32(b[1])<<16|uint32(b[2])<<24) >> 8
	default:
		return int32(binary.LittleEndian.Uint32(b))
	}
}

// quantizeFloat maps a [-1, 1) float sample to 16-bit, saturating
func quantizeFloat(v float64) int32 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Max(-1, math.Min(1, v))
	return int32(audio.ClampInt16(int64(math.Round(v * 32768))))
}

// Close releases resources
func (d *WAVDecoder) Close() error {
	return nil
}
