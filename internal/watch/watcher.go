// ABOUTME: Watch-folder runner for automatic loudness fixes
// ABOUTME: Processes new wav/mp3/flac files in a directory into <name>_fixed.wav
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/harperreed/mixfix/pkg/audio"
	"github.com/harperreed/mixfix/pkg/audio/decode"
	"github.com/harperreed/mixfix/pkg/mixfix"
)

// OutputSuffix is appended to the base name of corrected files
const OutputSuffix = "_fixed.wav"

// DefaultSettle is how long a file must go without writes before processing
const DefaultSettle = 500 * time.Millisecond

// Config holds watcher configuration
type Config struct {
	Dir    string
	Settle time.Duration
	Debug  bool

	// OnResult is called after each file, with err set on failure
	OnResult func(input, output string, result *mixfix.Result, err error)
}

// Watcher processes audio files as they appear in a directory
type Watcher struct {
	config   Config
	pipeline *mixfix.Pipeline
	jobs     chan string

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a watcher for config.Dir
func New(config Config) (*Watcher, error) {
	info, err := os.Stat(config.Dir)
	if err != nil {
		return nil, fmt.Errorf("watch dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch dir: %s is not a directory", config.Dir)
	}

	if config.Settle <= 0 {
		config.Settle = DefaultSettle
	}

	return &Watcher{
		config:   config,
		pipeline: mixfix.New(mixfix.Config{Debug: config.Debug}),
		jobs:     make(chan string, 64),
		pending:  make(map[string]*time.Timer),
	}, nil
}

// OutputPath returns where the corrected version of input is written
func OutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + OutputSuffix
}

// Eligible reports whether path is an audio input the watcher should process
func Eligible(path string) bool {
	return decode.Supported(path) && !strings.HasSuffix(strings.ToLower(path), OutputSuffix)
}

// Run watches until ctx is cancelled. Files are processed one at a time.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.config.Dir); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	log.Printf("Watching %s for wav/mp3/flac files", w.config.Dir)

	go w.processQueue(ctx)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 && Eligible(event.Name) {
				w.schedule(ctx, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Watcher error: %v", err)
		case <-ctx.Done():
			w.stopTimers()
			return nil
		}
	}
}

// schedule queues path once it has stopped changing for the settle time
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.config.Settle)
		return
	}

	w.pending[path] = time.AfterFunc(w.config.Settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case w.jobs <- path:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) processQueue(ctx context.Context) {
	for {
		select {
		case path := <-w.jobs:
			output, result, err := w.ProcessFile(path)
			if w.config.OnResult != nil {
				w.config.OnResult(path, output, result, err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// ProcessFile fixes a single file and writes the result next to it
func (w *Watcher) ProcessFile(path string) (string, *mixfix.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("read %s: %w", path, err)
	}

	result, err := w.pipeline.Process(audio.Raw{Name: filepath.Base(path), Data: data})
	if err != nil {
		log.Printf("Skipping %s: %s", path, mixfix.UserMessage(err))
		return "", nil, err
	}

	output := OutputPath(path)
	if err := os.WriteFile(output, result.Output, 0644); err != nil {
		return "", nil, fmt.Errorf("write %s: %w", output, err)
	}

	log.Printf("Fixed %s -> %s (%+.1f dB)", path, output, result.Report.GainDB)
	return output, result, nil
}
