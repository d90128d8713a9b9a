// Package tui holds the terminal UI pieces of notify.
package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// InitializeTUI prepares the terminal environment for TUI applications.
// It honors `CLICOLOR_FORCE` and `COLORTERM=truecolor` by forcing the
// lipgloss color profile, and `NO_COLOR` by disabling color entirely.
//
// Call it at the start of any command that renders styled output.
func InitializeTUI() {
	switch {
	case os.Getenv("NO_COLOR") != "":
		lipgloss.SetColorProfile(termenv.Ascii)
	case os.Getenv("CLICOLOR_FORCE") == "1" || os.Getenv("COLORTERM") == "truecolor":
		lipgloss.SetColorProfile(termenv.TrueColor)
	}
}
