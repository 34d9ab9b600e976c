// ABOUTME: Decoder error taxonomy
// ABOUTME: Distinguishes unsupported containers from failures inside a codec
package decode

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned for containers no decoder handles
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrDecode matches every *Error via errors.Is
	ErrDecode = errors.New("decode failed")

	errNoSamples = errors.New("stream contains no audio samples")
)

// Error reports a failure inside a codec backend
type Error struct {
	Container string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s decode failed: %v", e.Container, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrDecode) match any decode failure
func (e *Error) Is(target error) bool {
	return target == ErrDecode
}
