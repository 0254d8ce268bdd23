package main

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/alfredjeanlab/pipelines/internal/ui"
	"github.com/spf13/cobra"
)

// helpRule restyles one part of Cobra's plain-text help.
type helpRule struct {
	re    *regexp.Regexp
	style func(parts []string) string
}

var helpRules = []helpRule{
	// Group headers such as "Pipelines:" or "Flags:".
	{
		re:    regexp.MustCompile(`(?m)^([A-Z][^\n]*:)[ \t]*$`),
		style: func(p []string) string { return ui.RenderAccent(p[1]) },
	},
	// Command names: two-space indent, a word, then the description.
	{
		re:    regexp.MustCompile(`(?m)^(  )(\S+)(  )`),
		style: func(p []string) string { return p[1] + ui.RenderCommand(p[2]) + p[3] },
	},
	// Flag value types, e.g. "--transport string".
	{
		re:    regexp.MustCompile(`(--?\S+\s+)(string|int|int64|duration|stringSlice)\b`),
		style: func(p []string) string { return p[1] + ui.RenderMuted(p[2]) },
	},
	// Defaults, e.g. (default "http").
	{
		re:    regexp.MustCompile(`\(default "[^"]*"\)`),
		style: func(p []string) string { return ui.RenderMuted(p[0]) },
	},
}

// colorizedHelpFunc returns a Cobra help function that styles the default
// help text when stdout supports color.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}

		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)

		fmt.Fprint(out, colorizeHelpOutput(buf.String()))
	}
}

// colorizeHelpOutput applies every help rule to s in order.
func colorizeHelpOutput(s string) string {
	for _, rule := range helpRules {
		s = rule.re.ReplaceAllStringFunc(s, func(match string) string {
			parts := rule.re.FindStringSubmatch(match)
			if parts == nil {
				return match
			}
			return rule.style(parts)
		})
	}
	return s
}
