package output

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ColorScheme provides color functions for different output elements
type ColorScheme struct {
	// ProjectName colors project names
	ProjectName func(format string, a ...interface{}) string

	// Success colors success status
	Success func(format string, a ...interface{}) string

	// Error colors error messages
	Error func(format string, a ...interface{}) string

	// Warning colors warning messages
	Warning func(format string, a ...interface{}) string

	// Header colors table headers
	Header func(format string, a ...interface{}) string

	// Duration colors duration values
	Duration func(format string, a ...interface{}) string

	// Highlight marks large-tier cluster rows
	Highlight func(format string, a ...interface{}) string

	// Disabled indicates if colors are disabled
	Disabled bool
}

// NewColorScheme creates a new color scheme
// Colors are disabled for non-TTY outputs or when noColor is true, unless
// forceColor is set
func NewColorScheme(w io.Writer, noColor, forceColor bool) *ColorScheme {
	useColor := forceColor || (!noColor && isTTY(w))

	if !useColor {
		plain := color.New()
		plain.DisableColor()
		return &ColorScheme{
			ProjectName: plain.Sprintf,
			Success:     plain.Sprintf,
			Error:       plain.Sprintf,
			Warning:     plain.Sprintf,
			Header:      plain.Sprintf,
			Duration:    plain.Sprintf,
			Highlight:   plain.Sprintf,
			Disabled:    true,
		}
	}

	return &ColorScheme{
		ProjectName: enabled(color.FgCyan, color.Bold).Sprintf,
		Success:     enabled(color.FgGreen).Sprintf,
		Error:       enabled(color.FgRed, color.Bold).Sprintf,
		Warning:     enabled(color.FgYellow).Sprintf,
		Header:      enabled(color.FgWhite, color.Bold).Sprintf,
		Duration:    enabled(color.FgBlue).Sprintf,
		Highlight:   enabled(color.FgHiRed).Sprintf,
		Disabled:    false,
	}
}

// enabled builds a color that ignores the package-level NoColor default,
// which fatih/color derives from stdout rather than from our writer
func enabled(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	c.EnableColor()
	return c
}

// isTTY checks if the writer is a TTY
func isTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return IsTerminal(f)
	}
	return false
}

// IsTerminal reports whether f is an interactive terminal
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// StatusColor returns an appropriate color function based on error status
func (cs *ColorScheme) StatusColor(hasError bool) func(format string, a ...interface{}) string {
	if hasError {
		return cs.Error
	}
	return cs.Success
}
