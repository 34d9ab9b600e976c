// ABOUTME: Pipeline error types
// ABOUTME: StageError wraps stage failures and UserMessage renders them for users
package mixfix

import (
	"errors"
	"fmt"

	"github.com/harperreed/mixfix/pkg/audio/decode"
	"github.com/harperreed/mixfix/pkg/audio/encode"
	"github.com/harperreed/mixfix/pkg/gain"
	"github.com/harperreed/mixfix/pkg/loudness"
)

// Stage names a step of the pipeline
type Stage string

const (
	StageDecode  Stage = "decode"
	StageMeasure Stage = "measure"
	StageCorrect Stage = "correct"
	StageEncode  Stage = "encode"
)

// SilentMessage is shown when a track has no measurable loudness
const SilentMessage = "track is silent, no correction applied"

// StageError reports which stage failed and why
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsSilent reports whether err means the track was silent
func IsSilent(err error) bool {
	return errors.Is(err, gain.ErrCannotCorrectSilence)
}

// UserMessage describes err for end users, naming the failed stage
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if IsSilent(err) {
		return SilentMessage
	}

	// Errors relayed from a remote server already carry their message
	var relayed interface{ UserMessage() string }
	if errors.As(err, &relayed) {
		return relayed.UserMessage()
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		return fmt.Sprintf("error processing audio: %v", err)
	}

	var cause string
	switch {
	case errors.Is(err, decode.ErrUnsupportedFormat):
		cause = "unsupported audio format, upload WAV, MP3 or FLAC"
	case errors.Is(err, decode.ErrDecode):
		cause = fmt.Sprintf("could not read audio file (%v)", stageErr.Err)
	case errors.Is(err, loudness.ErrInsufficientData):
		cause = "track is too short to measure, at least 0.4 seconds is needed"
	case errors.Is(err, encode.ErrEmptyOutput):
		cause = "generated audio file is empty"
	default:
		cause = stageErr.Err.Error()
	}

	return fmt.Sprintf("%s failed: %s", stageErr.Stage, cause)
}
