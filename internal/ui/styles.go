package ui

import "fmt"

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent = 74  // blue
	colorCmd    = 250 // light gray
	colorMuted  = 245 // medium gray
	colorPass   = 114 // green
	colorFail   = 203 // red
	colorWarn   = 179 // amber
)

var noColor bool

func render(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return render(colorCmd, s) }

// RenderPass returns s styled as a passing result (green).
func RenderPass(s string) string { return render(colorPass, s) }

// RenderFail returns s styled as a failing result (red).
func RenderFail(s string) string { return render(colorFail, s) }

// RenderWarn returns s styled as a warning (amber).
func RenderWarn(s string) string { return render(colorWarn, s) }

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
