// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams PCM at any bit depth to oto as 16-bit with a software volume
package output

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"

	"github.com/ebitengine/oto/v3"

	"github.com/harperreed/mixfix/pkg/audio"
)

// Oto plays through the system audio device using oto
type Oto struct {
	otoCtx *oto.Context
	player *oto.Player
	stream *io.PipeWriter

	sampleRate int
	channels   int
	bitDepth   int
	volume     int
}

// NewOto creates an Oto output at full volume
func NewOto() *Oto {
	return &Oto{volume: 100}
}

// Open prepares the device. oto allows a single context per process, so a
// second Open with a different rate or channel count is rejected.
func (o *Oto) Open(sampleRate, channels, bitDepth int) error {
	if bitDepth < 8 || bitDepth > 32 {
		return fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}
	o.bitDepth = bitDepth

	if o.otoCtx != nil {
		if o.sampleRate != sampleRate || o.channels != channels {
			return fmt.Errorf("output already open at %dHz %dch, cannot switch to %dHz %dch",
				o.sampleRate, o.channels, sampleRate, channels)
		}
		if o.stream == nil {
			o.startPlayer()
		}
		return nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	o.otoCtx = ctx
	o.sampleRate = sampleRate
	o.channels = channels
	o.startPlayer()

	log.Printf("Audio output opened: %dHz, %d channels", sampleRate, channels)
	return nil
}

// startPlayer attaches a player fed by a pipe
func (o *Oto) startPlayer() {
	r, w := io.Pipe()
	o.stream = w
	o.player = o.otoCtx.NewPlayer(r)
	o.player.Play()
}

// Write plays samples, blocking until oto has taken them
func (o *Oto) Write(samples []int32) error {
	if o.stream == nil {
		return fmt.Errorf("output not open")
	}

	scale := float64(o.volume) / 100
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := audio.SampleToInt16(scaleSample(s, scale), o.bitDepth)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}

	if _, err := o.stream.Write(pcm); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}
	return nil
}

// Close stops the player; the oto context stays for a later Open
func (o *Oto) Close() error {
	if o.stream != nil {
		o.stream.Close()
		o.stream = nil
	}
	if o.player != nil {
		err := o.player.Close()
		o.player = nil
		return err
	}
	return nil
}

// SetVolume sets the playback volume, clamped to 0-100
func (o *Oto) SetVolume(volume int) {
	o.volume = min(max(volume, 0), 100)
}

// Volume returns the playback volume
func (o *Oto) Volume() int {
	return o.volume
}

func scaleSample(sample int32, scale float64) int32 {
	if scale == 1 {
		return sample
	}
	return audio.ClampInt32(float64(sample) * scale)
}
