package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/randalmurphal/teamlead/internal/phase"
)

// Styles is the terminal palette. Plain is used when output is not a TTY.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Subtle  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

func colorStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		Label:   lipgloss.NewStyle().Bold(true),
		Subtle:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

func plainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{Title: s, Label: s, Subtle: s, Success: s, Warning: s, Error: s}
}

// stylesFor returns colored styles only when w is a terminal and NO_COLOR is
// unset.
func stylesFor(w io.Writer) Styles {
	f, ok := w.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" {
		return plainStyles()
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return plainStyles()
	}
	return colorStyles()
}

func (s Styles) phaseStyle(p phase.Phase) lipgloss.Style {
	if p == phase.Completed {
		return s.Success
	}
	return s.Label
}
