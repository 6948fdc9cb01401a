package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/4ry1337/openvis/pkg/connection"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // primary
	colorGreen  = lipgloss.Color("35")  // connected, success
	colorYellow = lipgloss.Color("220") // connecting, warnings
	colorRed    = lipgloss.Color("167") // errors
	colorOrange = lipgloss.Color("208") // unreachable
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

// =============================================================================
// Styles
// =============================================================================

var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleDim     = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber  = lipgloss.NewStyle().Foreground(colorCyan)
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	StyleError   = lipgloss.NewStyle().Foreground(colorRed)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleKey         = lipgloss.NewStyle().Foreground(colorGray).Width(14)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// statusStyle colors a controller status the way the dashboard does.
func statusStyle(s connection.Status) lipgloss.Style {
	switch s {
	case connection.StatusConnected:
		return lipgloss.NewStyle().Foreground(colorGreen)
	case connection.StatusConnecting:
		return lipgloss.NewStyle().Foreground(colorYellow)
	case connection.StatusUnreachable:
		return lipgloss.NewStyle().Foreground(colorOrange)
	case connection.StatusError:
		return lipgloss.NewStyle().Foreground(colorRed)
	}
	return lipgloss.NewStyle().Foreground(colorDim)
}

// levelIcon returns the styled icon for a notification level.
func levelIcon(l connection.Level) string {
	switch l {
	case connection.LevelSuccess:
		return styleIconSuccess.Render(iconSuccess)
	case connection.LevelWarning:
		return styleIconWarning.Render(iconWarning)
	case connection.LevelError:
		return styleIconError.Render(iconError)
	}
	return styleIconInfo.Render(iconInfo)
}

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

// printFile prints one written output path.
func printFile(w io.Writer, path string) {
	fmt.Fprintln(w, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(w io.Writer, key, value string) {
	fmt.Fprintln(w, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// printCounts prints "N nodes · M links" dimmed.
func printCounts(w io.Writer, nodes, links int) {
	fmt.Fprintln(w, "  "+StyleDim.Render(fmt.Sprintf("%d nodes · %d links", nodes, links)))
}
