package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Printer provides methods for printing UI components to a writer.
// Commands that run once and exit use it instead of the interactive
// terminal model.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// SetWidth overrides the detected terminal width
func (p *Printer) SetWidth(width int) *Printer {
	p.width = width
	return p
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Printf writes formatted content
func (p *Printer) Printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// PrintLines writes multiple lines
func (p *Printer) PrintLines(lines ...string) {
	for _, line := range lines {
		_, _ = fmt.Fprintln(p.out, line)
	}
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params map[string]string) {
	p.Println(RenderHeader(title, command, params, p.width))
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details map[string]string) {
	p.Println(RenderSuccessBox(title, details, p.width))
}

// PrintError prints an error result box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting []string) {
	p.Println(RenderErrorBox(title, err, troubleshooting, p.width))
}

// PrintScreen prints a screen grid inside a frame
func (p *Printer) PrintScreen(lines []string) {
	p.Println(ScreenBox(lines))
}

// RenderHeader renders a command banner: the operation name, the
// command that produced it, and its parameters with aligned labels.
func RenderHeader(title, command string, params map[string]string, width int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	if width > MaxContentWidth {
		width = MaxContentWidth
	}

	titleLine := TitleStyle.Render(strings.ToUpper(title))
	commandLine := SubtitleStyle.Render(command)
	content := lipgloss.JoinVertical(lipgloss.Left, titleLine, commandLine)

	if len(params) > 0 {
		keys := make([]string, 0, len(params))
		longest := 0
		for k := range params {
			keys = append(keys, k)
			if len(k) > longest {
				longest = len(k)
			}
		}
		sort.Strings(keys)

		divider := lipgloss.NewStyle().
			Foreground(MutedColor).
			Render(strings.Repeat("─", width-6))

		var paramLines []string
		for _, k := range keys {
			label := DetailKeyStyle.Render(fmt.Sprintf("%-*s", longest+1, k+":"))
			value := DetailValueStyle.Render(params[k])
			paramLines = append(paramLines, label+" "+value)
		}
		content = lipgloss.JoinVertical(lipgloss.Left,
			content, divider, strings.Join(paramLines, "\n"))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2).
		Padding(0, 2).
		Render(content)
}

// RenderSuccessBox renders a success result with labeled details
func RenderSuccessBox(title string, details map[string]string, width int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	if width > MaxContentWidth {
		width = MaxContentWidth
	}

	lines := []string{
		"",
		SuccessStyle.Render(fmt.Sprintf("   %s  %s", SuccessMarker, title)),
		"",
	}

	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		label := DetailKeyStyle.Render("   " + k + ":")
		value := DetailValueStyle.Render(details[k])
		lines = append(lines, label+" "+value)
	}
	if len(keys) > 0 {
		lines = append(lines, "")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(SuccessColor).
		Width(width - 2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))
}

// RenderErrorBox renders a failure result with the error and
// troubleshooting tips.
func RenderErrorBox(title string, err error, troubleshooting []string, width int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	if width > MaxContentWidth {
		width = MaxContentWidth
	}

	lines := []string{
		"",
		lipgloss.NewStyle().Foreground(ErrorColor).Bold(true).
			Render(fmt.Sprintf("   %s  %s", ErrorMarker, title)),
		"",
	}
	if err != nil {
		lines = append(lines, DetailValueStyle.Render("   "+err.Error()), "")
	}
	if len(troubleshooting) > 0 {
		lines = append(lines, DetailKeyStyle.Render("   Troubleshooting:"))
		for _, tip := range troubleshooting {
			lines = append(lines, DetailValueStyle.Render("     • "+tip))
		}
		lines = append(lines, "")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(ErrorColor).
		Width(width - 2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))
}

// ScreenBox frames a screen's rows the way the interactive terminal
// draws them, for commands that print a screen and exit.
func ScreenBox(lines []string) string {
	styled := make([]string, len(lines))
	for i, line := range lines {
		styled[i] = NormalFieldStyle.Render(line)
	}
	return ScreenBoxStyle.Render(strings.Join(styled, "\n"))
}
