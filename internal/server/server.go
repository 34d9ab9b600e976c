// ABOUTME: Main server implementation for mixfix
// ABOUTME: Serves the loudness fix pipeline over HTTP and WebSocket with mDNS advertisement
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/harperreed/mixfix/internal/discovery"
	"github.com/harperreed/mixfix/internal/history"
	"github.com/harperreed/mixfix/internal/version"
	"github.com/harperreed/mixfix/pkg/mixfix"
)

const (
	// DefaultPort is the HTTP port used when none is configured
	DefaultPort = 8930

	// DefaultMaxUpload caps request bodies at 100 MB
	DefaultMaxUpload = 100 << 20

	// maxRecentJobs is the number of jobs the TUI shows and /api/jobs
	// returns by default
	maxRecentJobs = 10

	// maxJobHistory bounds the jobs kept in memory and the /api/jobs limit
	maxJobHistory = 100
)

// Config holds server configuration
type Config struct {
	Port       int
	Name       string
	EnableMDNS bool
	Debug      bool
	UseTUI     bool
	// MaxUploadBytes limits the size of an uploaded file
	MaxUploadBytes int64
	// History persists jobs when set; the server does not close it
	History *history.Store
}

// Server represents the mixfix server
type Server struct {
	config   Config
	serverID string

	// WebSocket upgrader
	upgrader websocket.Upgrader

	// HTTP server
	httpServer *http.Server
	mux        *http.ServeMux

	pipeline *mixfix.Pipeline

	// Job history
	jobs      []history.Job
	processed int
	failed    int
	jobsMu    sync.RWMutex

	// mDNS discovery
	mdnsManager *discovery.Manager

	// TUI
	tui       *ServerTUI
	startTime time.Time

	// Control
	stopChan   chan struct{}
	stopOnce   sync.Once // Ensure Stop() is only called once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// New creates a new server instance
func New(config Config) *Server {
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultMaxUpload
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		mux:      http.NewServeMux(),
		pipeline: mixfix.New(mixfix.Config{Debug: config.Debug}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// The server is meant for trusted local networks
				origin := r.Header.Get("Origin")
				if origin != "" && config.Debug {
					log.Printf("[DEBUG] accepting WebSocket from origin: %s", origin)
				}
				return true
			},
		},
		startTime: time.Now(),
		stopChan:  make(chan struct{}),
	}

	s.loadHistory()

	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/api/analyze", s.handleAnalyze)
	s.mux.HandleFunc("/api/fix", s.handleFix)
	s.mux.HandleFunc("/api/jobs", s.handleJobs)
	s.mux.HandleFunc("/ws", s.handleWebSocket)

	return s
}

// Handler returns the HTTP handler serving all endpoints
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the server and blocks until it stops
func (s *Server) Start() error {
	// Start TUI if enabled
	if s.config.UseTUI {
		s.tui = NewServerTUI()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.tui.Start(s.config.Name, s.config.Port); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()

		// Give TUI time to initialize
		time.Sleep(100 * time.Millisecond)
	}

	log.Printf("Server starting: %s (ID: %s)", s.config.Name, s.serverID)

	// Start mDNS advertisement if enabled
	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Version:     version.Version,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("HTTP server listening on %s", addr)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	s.updateTUI()

	// Wait for stop signal, TUI quit, or server error
	var serverErr error
	var tuiQuitChan <-chan struct{}
	if s.tui != nil {
		tuiQuitChan = s.tui.QuitChan()
	}

	select {
	case <-s.stopChan:
		log.Printf("Server shutting down...")
	case <-tuiQuitChan:
		log.Printf("TUI quit requested, shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
	}

	// Mark server as shutting down to reject new work
	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.tui != nil {
		s.tui.Stop()
	}

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.wg.Wait()
	log.Printf("Server stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

func (s *Server) shuttingDown() bool {
	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()
	return s.isShutdown
}

// loadHistory restores counters and recent jobs from the store
func (s *Server) loadHistory() {
	if s.config.History == nil {
		return
	}

	processed, failed, err := s.config.History.Counts()
	if err != nil {
		log.Printf("Failed to load job counts: %v", err)
		return
	}
	jobs, err := s.config.History.Recent(maxJobHistory)
	if err != nil {
		log.Printf("Failed to load recent jobs: %v", err)
		return
	}

	s.processed, s.failed, s.jobs = processed, failed, jobs
	log.Printf("Loaded job history: %d ok, %d failed", processed, failed)
}

// recordJob adds a finished request to the job history
func (s *Server) recordJob(job history.Job) {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if s.config.History != nil {
		stored, err := s.config.History.Add(job)
		if err != nil {
			log.Printf("Failed to store job %q: %v", job.Name, err)
		} else {
			job = stored
		}
	}

	s.jobsMu.Lock()
	if job.Failed() {
		s.failed++
	} else {
		s.processed++
	}
	s.jobs = append([]history.Job{job}, s.jobs...)
	if len(s.jobs) > maxJobHistory {
		s.jobs = s.jobs[:maxJobHistory]
	}
	s.jobsMu.Unlock()

	s.updateTUI()
}
