// ABOUTME: Server TUI for displaying recent jobs and stats
// ABOUTME: Real-time server status display using bubbletea
package server

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	tuiTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)
	tuiLabel = lipgloss.NewStyle().
			Bold(true).
			Width(8).
			Foreground(lipgloss.Color("86"))
	tuiValue   = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	tuiSection = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	tuiError   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	tuiFaint   = lipgloss.NewStyle().Faint(true)
	tuiName    = lipgloss.NewStyle().Width(24)
	tuiKind    = lipgloss.NewStyle().Width(9).Foreground(lipgloss.Color("244"))
)

// ServerTUI manages the server TUI
type ServerTUI struct {
	program  *tea.Program
	quitChan chan struct{} // Signal to stop the server

	mu      sync.Mutex
	updates chan ServerStatus
	stopped bool
}

// ServerStatus holds server state for TUI
type ServerStatus struct {
	Name      string
	Port      int
	Processed int
	Failed    int
	Jobs      []JobInfo
}

// tuiModel is the bubbletea model for server TUI
type tuiModel struct {
	status    ServerStatus
	startTime time.Time
	quitting  bool
	quitChan  chan struct{}
}

type tickMsg time.Time
type statusMsg ServerStatus

func (m tuiModel) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			select {
			case m.quitChan <- struct{}{}:
			default:
			}
			return m, tea.Quit
		}

	case tickMsg:
		return m, tickEvery()

	case statusMsg:
		m.status = ServerStatus(msg)
	}

	return m, nil
}

func (m tuiModel) View() string {
	if m.quitting {
		return "Shutting down server...\n"
	}

	var b strings.Builder

	b.WriteString(tuiTitle.Render("mixfix server"))
	b.WriteString("\n\n")

	field := func(label, value string) {
		b.WriteString(tuiLabel.Render(label))
		b.WriteString(tuiValue.Render(value))
		b.WriteString("\n")
	}
	field("Server", m.status.Name)
	field("Port", fmt.Sprintf("%d", m.status.Port))
	if !m.startTime.IsZero() {
		field("Uptime", time.Since(m.startTime).Round(time.Second).String())
	}
	field("Jobs", fmt.Sprintf("%d ok, %d failed", m.status.Processed, m.status.Failed))
	b.WriteString("\n")

	b.WriteString(tuiSection.Render(fmt.Sprintf("Recent Jobs (%d)", len(m.status.Jobs))))
	b.WriteString("\n\n")

	if len(m.status.Jobs) == 0 {
		b.WriteString(tuiFaint.Render("  No uploads yet"))
		b.WriteString("\n")
	}
	for _, job := range m.status.Jobs {
		b.WriteString("  ")
		b.WriteString(tuiFaint.Render(jobTime(job.At)))
		b.WriteString(" ")
		b.WriteString(tuiKind.Render(job.Transport))
		b.WriteString(tuiName.Render(job.Name))
		if job.Err != "" {
			b.WriteString(tuiError.Render(job.Err))
		} else {
			b.WriteString(tuiValue.Render(fmt.Sprintf("%s, %s", job.Loudness, job.Gain)))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(tuiFaint.Render("Press 'q' or Ctrl+C to quit"))

	return b.String()
}

func jobTime(t time.Time) string {
	if t.IsZero() {
		return "--:--:--"
	}
	return t.Format("15:04:05")
}

// NewServerTUI creates a new server TUI
func NewServerTUI() *ServerTUI {
	return &ServerTUI{
		updates:  make(chan ServerStatus, 10),
		quitChan: make(chan struct{}, 1),
	}
}

// Start runs the TUI until it quits
func (t *ServerTUI) Start(serverName string, port int) error {
	m := tuiModel{
		status:    ServerStatus{Name: serverName, Port: port},
		startTime: time.Now(),
		quitChan:  t.quitChan,
	}

	program := tea.NewProgram(m, tea.WithAltScreen())

	t.mu.Lock()
	t.program = program
	t.mu.Unlock()

	go func() {
		for status := range t.updates {
			program.Send(statusMsg(status))
		}
	}()

	_, err := program.Run()
	return err
}

// Update sends a status update to the TUI, dropping it when the TUI is busy or stopped
func (t *ServerTUI) Update(status ServerStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	select {
	case t.updates <- status:
	default:
	}
}

// Stop stops the TUI
func (t *ServerTUI) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	t.stopped = true
	if t.program != nil {
		t.program.Quit()
	}
	close(t.updates)
}

// QuitChan returns the channel that signals when user wants to quit
func (t *ServerTUI) QuitChan() <-chan struct{} {
	return t.quitChan
}
