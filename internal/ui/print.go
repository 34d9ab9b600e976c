// ABOUTME: Plain text report printer for -no-tui mode
// ABOUTME: Writes report lines with severity colors using fatih/color
package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/harperreed/mixfix/pkg/mixfix"
	"github.com/harperreed/mixfix/pkg/policy"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	bold   = color.New(color.Bold)
)

// PrintReport writes the report lines to w, coloring the policy message
func PrintReport(w io.Writer, r *mixfix.Report) {
	lines := r.Lines()
	for i, line := range lines {
		switch {
		case i == 0:
			bold.Fprintln(w, line)
		case r.Silent():
			yellow.Fprintln(w, line)
		case line == r.Message:
			severityColor(r.Band.Severity).Fprintln(w, line)
		default:
			fmt.Fprintln(w, line)
		}
	}
}

// PrintError writes the user-facing message for err
func PrintError(w io.Writer, err error) {
	if mixfix.IsSilent(err) {
		yellow.Fprintln(w, mixfix.UserMessage(err))
		return
	}
	red.Fprintf(w, "Error: %s\n", mixfix.UserMessage(err))
}

// PrintSaved confirms where the corrected file was written
func PrintSaved(w io.Writer, path string) {
	green.Fprintf(w, "Saved %s\n", path)
}

func severityColor(s policy.Severity) *color.Color {
	switch s {
	case policy.Good:
		return green
	case policy.SlightlyQuiet, policy.SlightlyLoud:
		return yellow
	default:
		return red
	}
}
