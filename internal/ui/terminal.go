package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ShouldUseColor returns true when ANSI colors should be used on stdout.
func ShouldUseColor() bool {
	return ShouldUseColorFor(os.Stdout)
}

// ShouldUseColorFor reports whether ANSI colors should be written to f.
// It respects NO_COLOR, CLICOLOR_FORCE, CLICOLOR, and TTY detection.
func ShouldUseColorFor(f *os.File) bool {
	// https://no-color.org: any non-empty value disables color.
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR")) == "0" {
		return false
	}
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
