// ABOUTME: Container detection for uploaded audio
// ABOUTME: Infers wav, mp3 or flac from the file extension, then from magic bytes
package decode

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

var extensions = map[string]string{
	".wav":  "wav",
	".wave": "wav",
	".mp3":  "mp3",
	".flac": "flac",
}

// Detect returns the container name for a file
func Detect(name string, data []byte) (string, error) {
	if name != "" {
		ext := strings.ToLower(filepath.Ext(name))
		if container, ok := extensions[ext]; ok {
			return container, nil
		}
	}

	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return "wav", nil
	case bytes.HasPrefix(data, []byte("fLaC")):
		return "flac", nil
	case bytes.HasPrefix(data, []byte("ID3")):
		return "mp3", nil
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// MPEG audio frame sync
		return "mp3", nil
	}

	if name == "" {
		return "", fmt.Errorf("%w: unrecognised content", ErrUnsupportedFormat)
	}
	return "", fmt.Errorf("%w: %s (supported: .wav, .mp3, .flac)", ErrUnsupportedFormat, name)
}

// Supported reports whether a file name has an extension Detect accepts
func Supported(name string) bool {
	_, ok := extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}
