package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Layout constants for responsive terminal width
const (
	MinTerminalWidth = 60  // Minimum supported terminal width for boxed output
	MaxContentWidth  = 100 // Maximum content width for readability
)

// Color palette
var (
	// Screen colors, tuned to read like a green phosphor tube
	ScreenColor = lipgloss.Color("#33DD66") // Normal field text
	BrightColor = lipgloss.Color("#CCFFCC") // Intensified field text
	DimColor    = lipgloss.Color("#1E8A4C") // Protected field text

	// Chrome colors
	PrimaryColor = lipgloss.Color("#33DD66") // Borders and titles
	SuccessColor = lipgloss.Color("#43BF6D") // Green
	ErrorColor   = lipgloss.Color("#FF5555") // Red
	WarningColor = lipgloss.Color("#FFA500") // Orange
	MutedColor   = lipgloss.Color("#626262") // Gray
	TextColor    = lipgloss.Color("#FFFFFF") // White
)

// Status markers
const (
	SuccessMarker = "✓"
	ErrorMarker   = "✗"
	WarningMarker = "⚠"
)

// Screen cell styles
var (
	// NormalFieldStyle renders unformatted cells and plain field text
	NormalFieldStyle = lipgloss.NewStyle().
				Foreground(ScreenColor)

	// InputFieldStyle renders unprotected field content
	InputFieldStyle = lipgloss.NewStyle().
			Foreground(ScreenColor).
			Underline(true)

	// IntensifiedFieldStyle renders highlighted field content
	IntensifiedFieldStyle = lipgloss.NewStyle().
				Foreground(BrightColor).
				Bold(true)

	// ProtectedFieldStyle renders protected field content
	ProtectedFieldStyle = lipgloss.NewStyle().
				Foreground(DimColor)

	// CursorStyle marks the cell under the cursor
	CursorStyle = lipgloss.NewStyle().
			Reverse(true)

	// ScreenBoxStyle frames a rendered screen grid
	ScreenBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(DimColor).
			Padding(0, 1)
)

// Chrome styles
var (
	// Title style for screen headings
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	// Subtitle style for secondary text
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)

	// Status bar style for the operator information line
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	// Lock indicator style for the input-inhibited marker
	LockStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	// Spinner style
	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	// Error message style
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true).
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ErrorColor)

	// Success message style
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	// Key style for labeled values in boxes
	DetailKeyStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	// Value style for labeled values in boxes
	DetailValueStyle = lipgloss.NewStyle().
				Foreground(TextColor)
)

// RenderTitle renders a title with consistent styling
func RenderTitle(text string) string {
	return TitleStyle.Render(text)
}

// RenderSubtitle renders a subtitle with consistent styling
func RenderSubtitle(text string) string {
	return SubtitleStyle.Render(text)
}

// RenderError renders an error message
func RenderError(text string) string {
	return ErrorStyle.Render(ErrorMarker + " " + text)
}

// RenderSuccess renders a success message
func RenderSuccess(text string) string {
	return SuccessStyle.Render(SuccessMarker + " " + text)
}

// GetTerminalWidth returns the current terminal width, or a sensible
// default when stdout is not a terminal.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// GetTerminalSize returns the current terminal dimensions, or sensible
// defaults when stdout is not a terminal.
func GetTerminalSize() (width, height int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 || height <= 0 {
		return 80, 24
	}
	return width, height
}
