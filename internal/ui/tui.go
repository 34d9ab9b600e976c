// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the mixfix CLI
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Controls holds channels for user requests coming out of the TUI
type Controls struct {
	// Play carries true to start preview playback and false to stop it
	Play chan bool
	Quit chan struct{}
}

// NewControls creates a new control handler
func NewControls() *Controls {
	return &Controls{
		Play: make(chan bool, 1),
		Quit: make(chan struct{}, 1),
	}
}

// NewModel creates a new TUI model for fileName
func NewModel(fileName string, controls *Controls) Model {
	return Model{
		fileName: fileName,
		stage:    "decode",
		controls: controls,
	}
}

// Run creates the TUI program
func Run(fileName string, controls *Controls) *tea.Program {
	return tea.NewProgram(NewModel(fileName, controls))
}
