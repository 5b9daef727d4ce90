package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	strike = "\033[9m"

	fgGray   = "\033[90m"
	fgGreen  = "\033[32m"
	fgYellow = "\033[33m"
	fgBlue   = "\033[34m"
	fgRed    = "\033[31m"

	symCheck = "✔"
	symCross = "✖"
)

var (
	forceColor   bool
	disableColor bool
)

func SetColorForcing(force, disable bool) {
	forceColor = force
	disableColor = disable
}

// SetColorMode applies the "color" setting (auto, always, never) to the plain
// helpers here and to lipgloss, which the TUI renders with.
func SetColorMode(mode string) {
	switch mode {
	case "always":
		SetColorForcing(true, false)
		lipgloss.SetColorProfile(termenv.ANSI256)
	case "never":
		SetColorForcing(false, true)
		lipgloss.SetColorProfile(termenv.Ascii)
	default:
		SetColorForcing(false, false)
	}
}

func isTTY() bool {
	return termenv.NewOutput(os.Stdout).ColorProfile() != termenv.Ascii
}

func C(color, s string) string {
	if disableColor || current.NoColor || color == "" {
		return s
	}
	if forceColor || isTTY() {
		return color + s + reset
	}
	return s
}

// Strike renders s struck through (done tasks).
func Strike(s string) string { return C(strike, s) }

func OK(w io.Writer, msg string)   { fmt.Fprintln(w, C(fgGreen, symCheck+" "+msg)) }
func Fail(w io.Writer, msg string) { fmt.Fprintln(w, C(fgRed, symCross+" "+msg)) }

// Dim renders s faint; used for hints and row numbers.
func Dim(s string) string { return C(dim, s) }

// Hint is a muted one-liner printed below errors.
func Hint(w io.Writer, msg string) { fmt.Fprintln(w, C(fgGray, msg)) }
