package ui

import (
	"os"
	"strings"
	"testing"
)

func TestShouldUseColorFor(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	tests := []struct {
		name  string
		env   map[string]string
		file  *os.File
		color bool
	}{
		{"NoColorWins", map[string]string{"NO_COLOR": "1", "CLICOLOR_FORCE": "1"}, f, false},
		{"ForceWithoutTTY", map[string]string{"CLICOLOR_FORCE": "1"}, f, true},
		{"CLIColorOff", map[string]string{"CLICOLOR": "0"}, f, false},
		{"RegularFile", nil, f, false},
		{"NilFile", nil, nil, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", "")
			t.Setenv("CLICOLOR_FORCE", "")
			t.Setenv("CLICOLOR", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if got := ShouldUseColorFor(tc.file); got != tc.color {
				t.Errorf("ShouldUseColorFor() = %v, want %v", got, tc.color)
			}
		})
	}
}

func TestRender(t *testing.T) {
	got := RenderPass("DAG")
	if !strings.HasPrefix(got, "\x1b[38;5;114m") || !strings.HasSuffix(got, "DAG\x1b[0m") {
		t.Errorf("RenderPass = %q", got)
	}

	prev := noColor
	ForceNoColor()
	t.Cleanup(func() { noColor = prev })
	for _, fn := range []func(string) string{RenderAccent, RenderMuted, RenderCommand, RenderPass, RenderFail, RenderWarn} {
		if got := fn("x"); got != "x" {
			t.Errorf("with color disabled got %q, want %q", got, "x")
		}
	}
}
