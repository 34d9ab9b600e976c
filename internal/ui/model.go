// ABOUTME: Bubbletea model for the mixfix TUI
// ABOUTME: Tracks pipeline progress and renders the loudness report
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/mixfix/pkg/mixfix"
	"github.com/harperreed/mixfix/pkg/policy"
)

// Meter bar range in LUFS
const (
	meterFloor   = -30.0
	meterCeiling = 0.0
	meterWidth   = 30
)

// Model represents the TUI state
type Model struct {
	fileName string
	stage    string
	done     bool

	report *mixfix.Report
	err    error

	outputPath string
	playing    bool
	canPlay    bool

	controls *Controls

	width  int
	height int
}

// StatusMsg updates TUI state while the pipeline runs
type StatusMsg struct {
	Stage string
}

// ReportMsg delivers the finished report
type ReportMsg struct {
	Report     *mixfix.Report
	OutputPath string
	CanPlay    bool
}

// ErrorMsg delivers a pipeline failure
type ErrorMsg struct {
	Err error
}

// PlaybackMsg reports preview playback state
type PlaybackMsg struct {
	Playing bool
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	goodStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	alertStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().Faint(true)
)

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.stage = msg.Stage
	case ReportMsg:
		m.done = true
		m.report = msg.Report
		m.outputPath = msg.OutputPath
		m.canPlay = msg.CanPlay
	case ErrorMsg:
		m.done = true
		m.err = msg.Err
	case PlaybackMsg:
		m.playing = msg.Playing
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("mixfix " + m.fileName))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(alertStyle.Render(mixfix.UserMessage(m.err)))
		b.WriteString("\n")
	case m.report != nil:
		b.WriteString(m.renderReport())
	default:
		b.WriteString(valueStyle.Render(fmt.Sprintf("Working: %s...", m.stage)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	return b.String()
}

// renderReport renders the loudness report and meter
func (m Model) renderReport() string {
	r := m.report
	var b strings.Builder

	field := func(name, value string) {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-10s", name+":")))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}

	field("Format", fmt.Sprintf("%s %dHz %s %d-bit, %.1fs",
		r.Container, r.SampleRate, channelName(r.Channels), r.BitDepth, r.Duration))

	if r.Silent() {
		field("Loudness", "undefined")
		b.WriteString(warnStyle.Render(mixfix.SilentMessage))
		b.WriteString("\n")
		return b.String()
	}

	field("Loudness", fmt.Sprintf("%.2f LUFS", r.Loudness.LUFS()))
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-10s", "Meter:")))
	b.WriteString(renderMeter(r.Loudness.LUFS(), r.TargetLUFS))
	b.WriteString("\n\n")

	b.WriteString(severityStyle(r.Band.Severity).Render(r.Message))
	b.WriteString("\n")
	if r.Recommendation != "" {
		field("Advice", r.Recommendation)
	}

	field("Target", fmt.Sprintf("%g LUFS", r.TargetLUFS))
	field("Gain", fmt.Sprintf("%+.1f dB", r.GainDB))

	if r.Corrected {
		field("Output", fmt.Sprintf("%s (%d bytes)", m.outputPath, r.OutputBytes))
	}

	return b.String()
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	help := "q:Quit"
	if m.canPlay {
		if m.playing {
			help = "p:Stop preview  " + help
		} else {
			help = "p:Preview  " + help
		}
	}
	return helpStyle.Render(help)
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		if m.controls != nil {
			select {
			case m.controls.Quit <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case "p":
		if !m.canPlay || m.controls == nil {
			return m, nil
		}
		select {
		case m.controls.Play <- !m.playing:
		default:
		}
	}

	return m, nil
}

func severityStyle(s policy.Severity) lipgloss.Style {
	switch s {
	case policy.Good:
		return goodStyle
	case policy.SlightlyQuiet, policy.SlightlyLoud:
		return warnStyle
	default:
		return alertStyle
	}
}

// renderMeter draws the loudness on a -30..0 LUFS scale with the target marked
func renderMeter(lufs, target float64) string {
	pos := meterPosition(lufs)
	mark := meterPosition(target)

	var b strings.Builder
	b.WriteString("[")
	for i := 0; i < meterWidth; i++ {
		switch {
		case i == mark:
			b.WriteString("|")
		case i < pos:
			b.WriteString("█")
		default:
			b.WriteString("░")
		}
	}
	b.WriteString("]")
	return b.String()
}

// meterPosition maps lufs onto a cell index of the meter bar
func meterPosition(lufs float64) int {
	if lufs <= meterFloor {
		return 0
	}
	if lufs >= meterCeiling {
		return meterWidth
	}
	return int((lufs - meterFloor) / (meterCeiling - meterFloor) * meterWidth)
}

func channelName(channels int) string {
	if channels == 1 {
		return "Mono"
	}
	return "Stereo"
}
