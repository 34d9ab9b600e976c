// ABOUTME: Loudness fix pipeline
// ABOUTME: Chains decoder, meter, classifier, gain corrector and WAV encoder
package mixfix

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/harperreed/mixfix/pkg/audio"
	"github.com/harperreed/mixfix/pkg/audio/decode"
	"github.com/harperreed/mixfix/pkg/audio/encode"
	"github.com/harperreed/mixfix/pkg/gain"
	"github.com/harperreed/mixfix/pkg/loudness"
	"github.com/harperreed/mixfix/pkg/policy"
)

// Config holds pipeline settings
type Config struct {
	// Debug logs per-block loudness while measuring
	Debug bool

	// OnStage, if set, is called as each stage starts
	OnStage func(Stage)
}

// Pipeline processes uploads with a fixed configuration
type Pipeline struct {
	config Config
}

// Result is the outcome of a successful run
type Result struct {
	Report Report

	// Output is the corrected WAV file, nil for analysis runs
	Output []byte

	// Buffer holds the corrected samples for preview playback
	Buffer *audio.Buffer
}

// New creates a pipeline
func New(config Config) *Pipeline {
	return &Pipeline{config: config}
}

// Process runs the full pipeline with the default configuration
func Process(raw audio.Raw) (*Result, error) {
	return New(Config{}).Process(raw)
}

// Analyze measures and classifies raw without producing output.
// Silent tracks are not an error here; the report says so.
func (p *Pipeline) Analyze(raw audio.Raw) (*Report, error) {
	id := uuid.New().String()

	buf, err := p.decode(id, raw)
	if err != nil {
		return nil, err
	}

	report := &Report{RequestID: id, TargetLUFS: gain.TargetLUFS}
	report.setSource(raw.Name, buf)

	m, err := p.measure(id, buf)
	if err != nil {
		return nil, err
	}
	report.Loudness = m

	if !m.Defined() {
		report.Message = SilentMessage
		return report, nil
	}

	report.setBand(p.classify(id, m))
	report.GainDB = gain.TargetLUFS - m.LUFS()
	return report, nil
}

// Process decodes, measures, classifies, corrects and encodes raw
func (p *Pipeline) Process(raw audio.Raw) (*Result, error) {
	id := uuid.New().String()

	buf, err := p.decode(id, raw)
	if err != nil {
		return nil, err
	}

	report := Report{RequestID: id, TargetLUFS: gain.TargetLUFS}
	report.setSource(raw.Name, buf)

	m, err := p.measure(id, buf)
	if err != nil {
		return nil, err
	}
	report.Loudness = m

	if m.Defined() {
		report.setBand(p.classify(id, m))
	}

	p.enter(StageCorrect)
	processed, err := gain.Correct(buf, m, gain.TargetLUFS)
	if err != nil {
		log.Printf("[%s] correct: %v", id, err)
		return nil, &StageError{Stage: StageCorrect, Err: err}
	}
	log.Printf("[%s] correct: target %.1f LUFS, current %.2f LUFS, gain %+.1f dB",
		id, processed.TargetLUFS, processed.CurrentLUFS, processed.GainDB)
	report.GainDB = processed.GainDB

	p.enter(StageEncode)
	output, err := encode.WAV(processed.Buffer)
	if err != nil {
		log.Printf("[%s] encode: %v", id, err)
		return nil, &StageError{Stage: StageEncode, Err: err}
	}
	log.Printf("[%s] encode: %s, %d bytes", id, encode.OutputName, len(output))

	report.Corrected = true
	report.OutputName = encode.OutputName
	report.OutputBytes = len(output)

	return &Result{
		Report: report,
		Output: output,
		Buffer: processed.Buffer,
	}, nil
}

func (p *Pipeline) enter(stage Stage) {
	if p.config.OnStage != nil {
		p.config.OnStage(stage)
	}
}

func (p *Pipeline) decode(id string, raw audio.Raw) (*audio.Buffer, error) {
	p.enter(StageDecode)
	buf, err := decode.Decode(raw)
	if err != nil {
		log.Printf("[%s] decode %q: %v", id, raw.Name, err)
		return nil, &StageError{Stage: StageDecode, Err: err}
	}

	log.Printf("[%s] decode %q: %s %dHz %dch %d-bit, %.2fs",
		id, raw.Name, buf.Format.Codec, buf.Format.SampleRate, buf.Format.Channels,
		buf.Format.BitDepth, buf.Duration().Seconds())
	return buf, nil
}

func (p *Pipeline) measure(id string, buf *audio.Buffer) (loudness.Measurement, error) {
	p.enter(StageMeasure)
	meter, err := loudness.NewMeter(buf.Format.SampleRate, buf.Format.Channels)
	if err != nil {
		log.Printf("[%s] measure: %v", id, err)
		return loudness.Undefined, &StageError{Stage: StageMeasure, Err: err}
	}
	meter.Debug = p.config.Debug

	m, err := meter.Integrated(buf.Normalize())
	if err != nil {
		log.Printf("[%s] measure: %v", id, err)
		return loudness.Undefined, &StageError{Stage: StageMeasure, Err: fmt.Errorf("integrated loudness: %w", err)}
	}

	log.Printf("[%s] measure: %v", id, m)
	return m, nil
}

func (p *Pipeline) classify(id string, m loudness.Measurement) policy.Band {
	band := policy.Classify(m.LUFS())
	log.Printf("[%s] classify: %s (recommend %s)", id, band.Severity, band.Recommendation)
	return band
}
