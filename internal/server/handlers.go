// ABOUTME: HTTP handlers for the mixfix API
// ABOUTME: Upload parsing, analyze and fix endpoints, health check and error mapping
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"

	"github.com/harperreed/mixfix/internal/history"
	"github.com/harperreed/mixfix/internal/version"
	"github.com/harperreed/mixfix/pkg/audio"
	"github.com/harperreed/mixfix/pkg/audio/decode"
	"github.com/harperreed/mixfix/pkg/audio/encode"
	"github.com/harperreed/mixfix/pkg/loudness"
	"github.com/harperreed/mixfix/pkg/mixfix"
)

// Response headers carrying the report alongside WAV output
const (
	HeaderRequestID = "X-Mixfix-Request-Id"
	HeaderLUFS      = "X-Mixfix-Lufs"
	HeaderSeverity  = "X-Mixfix-Severity"
	HeaderGainDB    = "X-Mixfix-Gain-Db"
	HeaderTarget    = "X-Mixfix-Target-Lufs"
)

// multipartMemory is kept in memory before spilling to temp files
const multipartMemory = 32 << 20

var (
	errNoFile       = errors.New("no audio file in request")
	errTooLarge     = errors.New("upload too large")
	errShuttingDown = errors.New("server is shutting down")
)

// errorResponse is the JSON body of a failed request
type errorResponse struct {
	Error  string `json:"error"`
	Stage  string `json:"stage,omitempty"`
	Silent bool   `json:"silent,omitempty"`
}

type healthResponse struct {
	Status   string `json:"status"`
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Version  string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		ServerID: s.serverID,
		Name:     s.config.Name,
		Version:  version.Version,
	})
}

// handleJobs lists recent jobs, newest first, limited by ?limit=
// (default maxRecentJobs, at most maxJobHistory)
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	limit := maxRecentJobs
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxJobHistory {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid limit: %q", v)})
			return
		}
		limit = n
	}

	jobs, err := s.recentJobs(limit)
	if err != nil {
		log.Printf("Error listing jobs: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not list jobs"})
		return
	}
	if jobs == nil {
		jobs = []history.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// handleAnalyze measures and classifies an upload and returns the report as JSON
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.readRequest(w, r)
	if !ok {
		return
	}

	report, err := s.pipeline.Analyze(raw)
	if err != nil {
		s.recordJob(jobFromError(raw.Name, "analyze", err))
		s.writeError(w, err)
		return
	}

	s.recordJob(jobFromReport(report, "analyze"))
	writeJSON(w, http.StatusOK, report)
}

// handleFix runs the full pipeline and returns fixed_mix.wav
func (s *Server) handleFix(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.readRequest(w, r)
	if !ok {
		return
	}

	result, err := s.pipeline.Process(raw)
	if err != nil {
		s.recordJob(jobFromError(raw.Name, "fix", err))
		s.writeError(w, err)
		return
	}

	s.recordJob(jobFromReport(&result.Report, "fix"))

	h := w.Header()
	h.Set("Content-Type", encode.MimeType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": encode.OutputName}))
	h.Set("Content-Length", strconv.Itoa(len(result.Output)))
	setReportHeaders(h, &result.Report)

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Output); err != nil {
		log.Printf("[%s] error writing response: %v", result.Report.RequestID, err)
	}
}

// readRequest extracts the upload from a POST request, writing an error
// response and returning false when it cannot
func (s *Server) readRequest(w http.ResponseWriter, r *http.Request) (audio.Raw, bool) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return audio.Raw{}, false
	}
	if s.shuttingDown() {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: errShuttingDown.Error()})
		return audio.Raw{}, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)

	raw, err := readUpload(r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return audio.Raw{}, false
	}

	if s.config.Debug {
		log.Printf("[DEBUG] upload %q: %d bytes from %s", raw.Name, len(raw.Data), r.RemoteAddr)
	}
	return raw, true
}

// readUpload accepts a multipart "file" field or a raw body named by ?name=
func readUpload(r *http.Request) (audio.Raw, error) {
	raw := audio.Raw{
		Name:      r.URL.Query().Get("name"),
		Container: r.URL.Query().Get("format"),
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return raw, uploadError(err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return raw, fmt.Errorf("%w: missing \"file\" field", errNoFile)
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return raw, uploadError(err)
		}
		raw.Data = data
		if raw.Name == "" {
			raw.Name = header.Filename
		}
		return raw, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return raw, uploadError(err)
	}
	if len(data) == 0 {
		return raw, errNoFile
	}
	raw.Data = data
	return raw, nil
}

func uploadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: limit is %d bytes", errTooLarge, maxErr.Limit)
	}
	return fmt.Errorf("failed to read upload: %w", err)
}

// statusFor maps pipeline errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, decode.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, decode.ErrDecode),
		errors.Is(err, loudness.ErrInsufficientData),
		mixfix.IsSilent(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), newErrorResponse(err))
}

func newErrorResponse(err error) errorResponse {
	resp := errorResponse{
		Error:  mixfix.UserMessage(err),
		Silent: mixfix.IsSilent(err),
	}
	var stageErr *mixfix.StageError
	if errors.As(err, &stageErr) {
		resp.Stage = string(stageErr.Stage)
	}
	return resp
}

func setReportHeaders(h http.Header, report *mixfix.Report) {
	h.Set(HeaderRequestID, report.RequestID)
	h.Set(HeaderLUFS, strconv.FormatFloat(report.Loudness.LUFS(), 'f', 2, 64))
	h.Set(HeaderSeverity, report.Severity)
	h.Set(HeaderGainDB, strconv.FormatFloat(report.GainDB, 'f', 1, 64))
	h.Set(HeaderTarget, strconv.FormatFloat(report.TargetLUFS, 'f', 1, 64))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
