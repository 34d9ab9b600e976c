// ABOUTME: Tests for the remote mixfix client
// ABOUTME: Runs fix and analyze against an in-process server over httptest
package client

import (
	"context"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/mixfix/internal/server"
	"github.com/harperreed/mixfix/pkg/audio"
	"github.com/harperreed/mixfix/pkg/audio/encode"
	"github.com/harperreed/mixfix/pkg/gain"
	"github.com/harperreed/mixfix/pkg/loudness"
	"github.com/harperreed/mixfix/pkg/mixfix"
	"github.com/harperreed/mixfix/pkg/policy"
)

// toneWAV returns a 2 second stereo WAV with the given peak amplitude
func toneWAV(t *testing.T, amplitude float64) []byte {
	t.Helper()

	const rate = 44100
	frames := rate * 2
	samples := make([]int32, frames*2)
	for i := 0; i < frames; i++ {
		v := int32(math.Round(amplitude * 32767 * math.Sin(2*math.Pi*997*float64(i)/rate)))
		samples[i*2] = v
		samples[i*2+1] = v
	}

	data, err := encode.WAV(&audio.Buffer{
		Samples: samples,
		Format:  audio.Format{Codec: "wav", SampleRate: rate, Channels: 2, BitDepth: 16},
	})
	if err != nil {
		t.Fatalf("failed to build WAV: %v", err)
	}
	return data
}

func newTestClient(t *testing.T) *Client {
	t.Helper()

	s := server.New(server.Config{Name: "test"})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	return NewClient(Config{ServerAddr: strings.TrimPrefix(ts.URL, "http://")})
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{ServerAddr: "localhost:8930"})
	if c.config.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %v", c.config.Timeout)
	}
	if c.config.ServerAddr != "localhost:8930" {
		t.Errorf("expected server addr localhost:8930, got %s", c.config.ServerAddr)
	}
}

func TestFix(t *testing.T) {
	c := newTestClient(t)

	// 0.1 peak stereo sine reads -20 LUFS
	raw := audio.Raw{Name: "quiet.wav", Data: toneWAV(t, 0.1)}
	result, err := c.Fix(context.Background(), raw)
	if err != nil {
		t.Fatalf("Fix failed: %v", err)
	}

	if result.Report.Band.Severity != policy.TooQuiet {
		t.Errorf("expected too-quiet band, got %v", result.Report.Band.Severity)
	}
	if math.Abs(result.Report.GainDB-6) > 0.1 {
		t.Errorf("expected gain near +6 dB, got %.2f", result.Report.GainDB)
	}
	if len(result.Output) != result.Report.OutputBytes {
		t.Errorf("expected %d output bytes, got %d", result.Report.OutputBytes, len(result.Output))
	}
	if result.Buffer == nil || result.Buffer.Format.Channels != 2 {
		t.Fatal("expected decoded stereo buffer")
	}

	m, err := loudness.Measure(result.Buffer.Normalize(), result.Buffer.Format.SampleRate)
	if err != nil {
		t.Fatalf("measure failed: %v", err)
	}
	if math.Abs(m.LUFS()-gain.TargetLUFS) > 0.1 {
		t.Errorf("expected fixed output near %.1f LUFS, got %v", gain.TargetLUFS, m)
	}
}

func TestFixServerErrors(t *testing.T) {
	c := newTestClient(t)

	tests := []struct {
		name   string
		raw    audio.Raw
		silent bool
		stage  string
	}{
		{"silence", audio.Raw{Name: "silent.wav", Data: toneWAV(t, 0)}, true, "correct"},
		{"corrupt", audio.Raw{Name: "bad.wav", Data: []byte("RIFF\x10\x00\x00\x00WAVEjunk")}, false, "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Fix(context.Background(), tt.raw)
			if err == nil {
				t.Fatal("expected error")
			}

			serverErr, ok := err.(*ServerError)
			if !ok {
				t.Fatalf("expected *ServerError, got %T: %v", err, err)
			}
			if serverErr.Stage != tt.stage {
				t.Errorf("expected stage %q, got %q", tt.stage, serverErr.Stage)
			}
			if mixfix.IsSilent(err) != tt.silent {
				t.Errorf("IsSilent() = %v, want %v", mixfix.IsSilent(err), tt.silent)
			}
			if mixfix.UserMessage(err) != serverErr.Message {
				t.Errorf("expected user message %q, got %q", serverErr.Message, mixfix.UserMessage(err))
			}
		})
	}
}

func TestFixDialError(t *testing.T) {
	ts := httptest.NewServer(nil)
	addr := strings.TrimPrefix(ts.URL, "http://")
	ts.Close()

	c := NewClient(Config{ServerAddr: addr, Timeout: 2 * time.Second})
	if _, err := c.Fix(context.Background(), audio.Raw{Name: "a.wav", Data: []byte("x")}); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestAnalyze(t *testing.T) {
	c := newTestClient(t)

	// 0.22 peak stereo sine reads about -13 LUFS
	report, err := c.Analyze(context.Background(), audio.Raw{Name: "mix.wav", Data: toneWAV(t, 0.22)})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if report.Corrected {
		t.Error("analyze must not report a correction")
	}
	if report.Band.Severity != policy.Good {
		t.Errorf("expected good band, got %v (%v)", report.Band.Severity, report.Loudness)
	}
	if report.Name != "mix.wav" {
		t.Errorf("expected name mix.wav, got %q", report.Name)
	}
}

func TestAnalyzeServerError(t *testing.T) {
	c := newTestClient(t)

	_, err := c.Analyze(context.Background(), audio.Raw{Name: "track.ogg", Data: []byte("OggS not supported here")})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*ServerError); !ok {
		t.Fatalf("expected *ServerError, got %T: %v", err, err)
	}
}
