// ABOUTME: Entry point for the mixfix server
// ABOUTME: Parses CLI flags and serves the loudness fix pipeline on the network
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/mixfix/internal/history"
	"github.com/harperreed/mixfix/internal/server"
	"github.com/harperreed/mixfix/internal/version"
)

var (
	port        = flag.Int("port", server.DefaultPort, "HTTP and WebSocket server port")
	name        = flag.String("name", "", "Server friendly name (default: hostname-mixfix-server)")
	logFile     = flag.String("log-file", "mixfix-server.log", "Log file path")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	noMDNS      = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	maxUploadMB = flag.Int64("max-upload-mb", server.DefaultMaxUpload>>20, "Maximum upload size in megabytes")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, log to the console instead")
	historyDB   = flag.String("history-db", "mixfix-server.db", "SQLite job history file (empty disables)")
)

func main() {
	flag.Parse()

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	if *noTUI {
		// Log to both file and stdout
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	} else {
		// TUI owns the terminal
		log.SetOutput(f)
	}

	serverName := *name
	if serverName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serverName = fmt.Sprintf("%s-mixfix-server", hostname)
	}

	log.Printf("Starting %s: %s on port %d", version.String(), serverName, *port)
	if *debug {
		log.Printf("Debug logging enabled")
	}
	log.Printf("Logging to: %s", *logFile)
	log.Printf("Press Ctrl-C to stop")

	var store *history.Store
	if *historyDB != "" {
		store, err = history.Open(*historyDB)
		if err != nil {
			log.Fatalf("Failed to open job history: %v", err)
		}
		defer store.Close()
		log.Printf("Job history: %s", *historyDB)
	}

	srv := server.New(server.Config{
		Port:           *port,
		Name:           serverName,
		EnableMDNS:     !*noMDNS,
		Debug:          *debug,
		UseTUI:         !*noTUI,
		MaxUploadBytes: *maxUploadMB << 20,
		History:        store,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received %v signal, shutting down gracefully...", sig)
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Printf("Server stopped")
}
