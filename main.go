// ABOUTME: Entry point for the mixfix command line tool
// ABOUTME: Parses CLI flags and fixes one file, or watches a folder for new ones
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/mixfix/internal/client"
	"github.com/harperreed/mixfix/internal/discovery"
	"github.com/harperreed/mixfix/internal/ui"
	"github.com/harperreed/mixfix/internal/version"
	"github.com/harperreed/mixfix/internal/watch"
	"github.com/harperreed/mixfix/pkg/audio"
	"github.com/harperreed/mixfix/pkg/audio/encode"
	"github.com/harperreed/mixfix/pkg/audio/output"
	"github.com/harperreed/mixfix/pkg/mixfix"
)

var (
	outPath     = flag.String("o", encode.OutputName, "Output file for the corrected WAV")
	analyzeOnly = flag.Bool("analyze", false, "Measure and classify only, do not write output")
	play        = flag.Bool("play", false, "Play the corrected audio after processing")
	volume      = flag.Int("volume", 100, "Preview playback volume (0-100)")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, print a plain report instead")
	logFile     = flag.String("log-file", "mixfix.log", "Log file path")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	watchDir    = flag.String("watch", "", "Watch a directory and fix new files as <name>_fixed.wav")
	remote      = flag.String("remote", "", "Process on a mixfix server at host:port, or \"auto\" to find one via mDNS")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// processor runs the pipeline locally or on a remote server
type processor struct {
	local  *mixfix.Pipeline
	remote *client.Client
}

func (p processor) analyze(ctx context.Context, raw audio.Raw) (*mixfix.Report, error) {
	if p.remote != nil {
		return p.remote.Analyze(ctx, raw)
	}
	return p.local.Analyze(raw)
}

func (p processor) fix(ctx context.Context, raw audio.Raw) (*mixfix.Result, error) {
	if p.remote != nil {
		return p.remote.Fix(ctx, raw)
	}
	return p.local.Process(raw)
}

// newProcessor builds a processor for the -remote flag
func newProcessor(ctx context.Context, config mixfix.Config) (processor, error) {
	if *remote == "" {
		return processor{local: mixfix.New(config)}, nil
	}

	addr := *remote
	if addr == "auto" {
		servers, err := discovery.Lookup(ctx, 3*time.Second)
		if err != nil {
			return processor{}, err
		}
		if len(servers) == 0 {
			return processor{}, errors.New("no mixfix server found on the local network")
		}
		addr = servers[0].Addr()
		log.Printf("Using server %s at %s", servers[0].Name, addr)
	}

	return processor{remote: client.NewClient(client.Config{ServerAddr: addr, Debug: *debug})}, nil
}

func main() {
	os.Exit(run())
}

func run() int {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: mixfix [flags] FILE\n       mixfix -watch DIR\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return 0
	}

	useTUI := !*noTUI && *watchDir == ""

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Plain mode: log to both stderr and file, keeping stdout for the report
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	}

	if *debug {
		log.Printf("[DEBUG] %s starting, debug logging enabled", version.String())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *watchDir != "" {
		return runWatch(ctx)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		return 2
	}

	path := flag.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	raw := audio.Raw{Name: filepath.Base(path), Data: data}

	if useTUI {
		return runTUI(ctx, raw)
	}
	return runPlain(ctx, raw)
}

// runPlain processes raw and prints a colored report
func runPlain(ctx context.Context, raw audio.Raw) int {
	p, err := newProcessor(ctx, mixfix.Config{Debug: *debug})
	if err != nil {
		ui.PrintError(os.Stdout, err)
		return 1
	}

	if *analyzeOnly {
		report, err := p.analyze(ctx, raw)
		if err != nil {
			ui.PrintError(os.Stdout, err)
			return 1
		}
		ui.PrintReport(os.Stdout, report)
		return 0
	}

	result, err := p.fix(ctx, raw)
	if err != nil {
		ui.PrintError(os.Stdout, err)
		return 1
	}

	ui.PrintReport(os.Stdout, &result.Report)

	if err := os.WriteFile(*outPath, result.Output, 0644); err != nil {
		ui.PrintError(os.Stdout, err)
		return 1
	}
	ui.PrintSaved(os.Stdout, *outPath)

	if *play {
		out := output.NewOto()
		out.SetVolume(*volume)
		defer out.Close()

		if err := output.Preview(ctx, out, result.Buffer); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Preview failed: %v", err)
		}
	}

	return 0
}

// runTUI processes raw while showing progress and the report in the TUI
func runTUI(ctx context.Context, raw audio.Raw) int {
	controls := ui.NewControls()
	prog := ui.Run(raw.Name, controls)

	config := mixfix.Config{
		Debug: *debug,
		OnStage: func(stage mixfix.Stage) {
			prog.Send(ui.StatusMsg{Stage: string(stage)})
		},
	}

	var (
		mu       sync.Mutex
		preview  *audio.Buffer
		exitCode int
	)
	fail := func(err error) {
		mu.Lock()
		exitCode = 1
		mu.Unlock()
		prog.Send(ui.ErrorMsg{Err: err})
	}

	go func() {
		p, err := newProcessor(ctx, config)
		if err != nil {
			fail(err)
			return
		}
		if p.remote != nil {
			prog.Send(ui.StatusMsg{Stage: "upload"})
		}

		if *analyzeOnly {
			report, err := p.analyze(ctx, raw)
			if err != nil {
				fail(err)
				return
			}
			prog.Send(ui.ReportMsg{Report: report})
			return
		}

		result, err := p.fix(ctx, raw)
		if err != nil {
			fail(err)
			return
		}

		if err := os.WriteFile(*outPath, result.Output, 0644); err != nil {
			fail(err)
			return
		}
		log.Printf("Saved %s", *outPath)

		mu.Lock()
		preview = result.Buffer
		mu.Unlock()
		prog.Send(ui.ReportMsg{Report: &result.Report, OutputPath: *outPath, CanPlay: true})

		if *play {
			controls.Play <- true
		}
	}()

	playCtx, cancelPlay := context.WithCancel(ctx)
	defer cancelPlay()
	go handlePlayback(playCtx, prog, controls, func() *audio.Buffer {
		mu.Lock()
		defer mu.Unlock()
		return preview
	})

	go func() {
		select {
		case <-ctx.Done():
			prog.Quit()
		case <-controls.Quit:
		}
	}()

	if _, err := prog.Run(); err != nil {
		log.Printf("TUI error: %v", err)
		return 1
	}

	mu.Lock()
	defer mu.Unlock()
	return exitCode
}

// handlePlayback starts and stops preview playback on request from the TUI
func handlePlayback(ctx context.Context, prog *tea.Program, controls *ui.Controls, buffer func() *audio.Buffer) {
	out := output.NewOto()
	out.SetVolume(*volume)
	defer out.Close()

	cancel := context.CancelFunc(func() {})
	var done chan struct{}

	// stop ends the current preview and waits for it to let go of out
	stop := func() {
		cancel()
		if done != nil {
			<-done
			done = nil
		}
	}
	defer stop()

	for {
		select {
		case start := <-controls.Play:
			stop()
			if !start {
				continue
			}

			buf := buffer()
			if buf == nil {
				continue
			}

			var playCtx context.Context
			playCtx, cancel = context.WithCancel(ctx)
			done = make(chan struct{})
			prog.Send(ui.PlaybackMsg{Playing: true})

			go func(finished chan struct{}) {
				defer close(finished)
				if err := output.Preview(playCtx, out, buf); err != nil && !errors.Is(err, context.Canceled) {
					log.Printf("Preview failed: %v", err)
				}
				prog.Send(ui.PlaybackMsg{Playing: false})
			}(done)
		case <-ctx.Done():
			return
		}
	}
}

// runWatch fixes files as they arrive in the watched directory
func runWatch(ctx context.Context) int {
	w, err := watch.New(watch.Config{
		Dir:   *watchDir,
		Debug: *debug,
		OnResult: func(input, outputPath string, result *mixfix.Result, err error) {
			if err != nil {
				fmt.Printf("%s: ", filepath.Base(input))
				ui.PrintError(os.Stdout, err)
				return
			}
			ui.PrintReport(os.Stdout, &result.Report)
			ui.PrintSaved(os.Stdout, outputPath)
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Printf("Watching %s (Ctrl-C to stop)\n", *watchDir)
	if err := w.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
