// ABOUTME: TUI update helpers for server
// ABOUTME: Builds job summaries and sends server state updates to the TUI
package server

import (
	"fmt"
	"time"

	"github.com/harperreed/mixfix/internal/history"
	"github.com/harperreed/mixfix/pkg/loudness"
	"github.com/harperreed/mixfix/pkg/mixfix"
)

// JobInfo summarizes one processed upload for display
type JobInfo struct {
	Name      string
	Transport string
	Loudness  string
	Gain      string
	Err       string
	At        time.Time
}

func jobFromReport(r *mixfix.Report, transport string) history.Job {
	return history.Job{
		RequestID: r.RequestID,
		Name:      displayName(r.Name),
		Transport: transport,
		Loudness:  r.Loudness,
		Severity:  r.Severity,
		GainDB:    r.GainDB,
	}
}

func jobFromError(name, transport string, err error) history.Job {
	return history.Job{
		Name:      displayName(name),
		Transport: transport,
		Loudness:  loudness.Undefined,
		Err:       mixfix.UserMessage(err),
	}
}

// jobInfo formats a job for the TUI
func jobInfo(job history.Job) JobInfo {
	info := JobInfo{
		Name:      job.Name,
		Transport: job.Transport,
		Err:       job.Err,
		At:        job.CreatedAt,
	}
	if !job.Failed() {
		info.Loudness = job.Loudness.String()
		info.Gain = fmt.Sprintf("%+.1f dB", job.GainDB)
	}
	return info
}

func displayName(name string) string {
	if name == "" {
		return "(unnamed)"
	}
	return name
}

// snapshot copies the counters and the jobs the TUI shows
func (s *Server) snapshot() ServerStatus {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	shown := s.jobs
	if len(shown) > maxRecentJobs {
		shown = shown[:maxRecentJobs]
	}
	jobs := make([]JobInfo, len(shown))
	for i, job := range shown {
		jobs[i] = jobInfo(job)
	}

	return ServerStatus{
		Name:      s.config.Name,
		Port:      s.config.Port,
		Processed: s.processed,
		Failed:    s.failed,
		Jobs:      jobs,
	}
}

// recentJobs returns up to limit jobs, newest first
func (s *Server) recentJobs(limit int) ([]history.Job, error) {
	if s.config.History != nil {
		return s.config.History.Recent(limit)
	}

	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	if limit > len(s.jobs) {
		limit = len(s.jobs)
	}
	jobs := make([]history.Job, limit)
	copy(jobs, s.jobs)
	return jobs, nil
}

// updateTUI sends current server state to TUI
func (s *Server) updateTUI() {
	if s.tui == nil {
		return
	}
	s.tui.Update(s.snapshot())
}
