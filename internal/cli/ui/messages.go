package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Level represents the severity of a message.
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// MessageOptions configures the message formatting.
type MessageOptions struct {
	Level        Level
	Context      string
	Problem      string
	Details      []string
	HelpCommands []string
	NoColor      bool
}

// FormatMessage creates a standardized message.
//
// Example output:
//
//	✗ GENERATION FAILED: render patient.go
//	   unknown field type
//
//	   → Get help: fhirgen generate --help
func FormatMessage(opts MessageOptions) string {
	var b strings.Builder

	var header, body *color.Color
	var symbol string
	switch opts.Level {
	case LevelWarning:
		header = color.New(color.FgYellow, color.Bold)
		body = color.New(color.FgYellow)
		symbol = "!"
	case LevelInfo:
		header = color.New(color.FgCyan, color.Bold)
		body = color.New(color.FgCyan)
		symbol = "i"
	default:
		header = color.New(color.FgRed, color.Bold)
		body = color.New(color.FgRed)
		symbol = "✗"
	}
	help := color.New(color.FgCyan)
	if opts.NoColor {
		header.DisableColor()
		body.DisableColor()
		help.DisableColor()
	}

	if opts.Context != "" {
		header.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(opts.Context), opts.Problem)
	} else {
		header.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}
	for _, d := range opts.Details {
		body.Fprintf(&b, "   %s\n", d)
	}
	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		for _, cmd := range opts.HelpCommands {
			help.Fprintf(&b, "   → %s\n", cmd)
		}
	}
	return b.String()
}

// WriteMessage writes a formatted message to the writer.
func WriteMessage(w io.Writer, opts MessageOptions) {
	fmt.Fprint(w, FormatMessage(opts))
}

// FormatSuccess creates a success message.
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to the writer.
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}
