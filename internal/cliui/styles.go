// Package cliui provides Vectura CLI output styling: a lipgloss palette
// plus a thin Writer wrapping it with status/success/error helpers.
// Grounded on the teacher's internal/ui.Styles (same palette idiom, a
// single accent color plus semantic styles for success/warning/error),
// merged with internal/output.Writer's icon-prefixed status-line shape.
package cliui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Color palette: a single teal accent, grounded on the teacher's
// single-accent lime-green palette but recolored to avoid implying any
// affiliation with the teacher's own branding.
const (
	ColorAccent    = "44" // primary accent (teal)
	ColorAccentDim = "30"
	ColorWhite     = "255"
	ColorGray      = "245"
	ColorDarkGray  = "238"
	ColorRed       = "196"
	ColorYellow    = "220"
)

// Styles holds the styled components used by the CLI.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Label   lipgloss.Style
	Score   lipgloss.Style
}

// DefaultStyles returns the colored style set.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Score:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccentDim)),
	}
}

// NoColorStyles returns an unstyled set, used when output isn't a
// terminal (grounded on the teacher's NoColorStyles).
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{Header: plain, Success: plain, Warning: plain, Error: plain, Dim: plain, Label: plain, Score: plain}
}

// GetStyles returns DefaultStyles unless noColor is set.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}

// Writer formats CLI status lines through a Styles set.
type Writer struct {
	out    io.Writer
	styles Styles
}

// NewWriter creates a Writer printing to out with the given style set.
func NewWriter(out io.Writer, styles Styles) *Writer {
	return &Writer{out: out, styles: styles}
}

// Success prints a success line.
func (w *Writer) Success(msg string) {
	fmt.Fprintln(w.out, w.styles.Success.Render(msg))
}

// Successf prints a formatted success line.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Error prints an error line.
func (w *Writer) Error(msg string) {
	fmt.Fprintln(w.out, w.styles.Error.Render(msg))
}

// Errorf prints a formatted error line.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Info prints a plain informational line.
func (w *Writer) Info(msg string) {
	fmt.Fprintln(w.out, msg)
}

// Infof prints a formatted informational line.
func (w *Writer) Infof(format string, args ...any) {
	w.Info(fmt.Sprintf(format, args...))
}

// Label prints a dimmed key followed by a value, e.g. "name: vectura".
func (w *Writer) Label(key, value string) {
	fmt.Fprintf(w.out, "%s %s\n", w.styles.Label.Render(key+":"), value)
}

// Result prints one ranked search result line.
func (w *Writer) Result(rank int, id string, score float32, text string) {
	fmt.Fprintf(w.out, "%s %s  %s\n", w.styles.Dim.Render(fmt.Sprintf("%d.", rank)), w.styles.Score.Render(fmt.Sprintf("%.4f", score)), id)
	fmt.Fprintf(w.out, "   %s\n", truncate(text, 120))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
