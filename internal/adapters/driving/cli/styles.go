package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// palette is the colour set for terminal output.
var palette = struct {
	Primary lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}{
	Primary: lipgloss.Color("#7C3AED"), // Purple
	Muted:   lipgloss.Color("#6C7086"), // Medium gray
	Success: lipgloss.Color("#A6E3A1"), // Green
	Warning: lipgloss.Color("#F9E2AF"), // Yellow
	Error:   lipgloss.Color("#F38BA8"), // Red
}

// printer styles text only when writing to a terminal.
type printer struct {
	styled bool
}

func newPrinter(w io.Writer) printer {
	f, ok := w.(*os.File)
	return printer{styled: ok && term.IsTerminal(int(f.Fd()))}
}

func (p printer) render(style lipgloss.Style, s string) string {
	if !p.styled {
		return s
	}
	return style.Render(s)
}

// Title renders a section header.
func (p printer) Title(s string) string {
	return p.render(lipgloss.NewStyle().Bold(true).Foreground(palette.Primary), s)
}

// Muted renders secondary text.
func (p printer) Muted(s string) string {
	return p.render(lipgloss.NewStyle().Foreground(palette.Muted), s)
}

// Status renders a run status in its colour.
func (p printer) Status(status domain.RunStatus) string {
	var colour lipgloss.Color
	switch status {
	case domain.RunCompleted:
		colour = palette.Success
	case domain.RunRunning, domain.RunPending:
		colour = palette.Warning
	case domain.RunFailed:
		colour = palette.Error
	default:
		colour = palette.Muted
	}
	return p.render(lipgloss.NewStyle().Bold(true).Foreground(colour), string(status))
}

// Level renders a log level, errors in red.
func (p printer) Level(level domain.LogLevel) string {
	if level == domain.LevelError {
		return p.render(lipgloss.NewStyle().Foreground(palette.Error), string(level))
	}
	return p.render(lipgloss.NewStyle().Foreground(palette.Muted), string(level))
}
