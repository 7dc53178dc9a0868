// Package ui renders tables, colors and prompts for the sc command line.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"sc-go/internal/sc"
)

var (
	colorSafe      = lipgloss.AdaptiveColor{Light: "#16a34a", Dark: "#4ade80"}
	colorCaution   = lipgloss.AdaptiveColor{Light: "#ca8a04", Dark: "#facc15"}
	colorAdvanced  = lipgloss.AdaptiveColor{Light: "#ea580c", Dark: "#fb923c"}
	colorDangerous = lipgloss.AdaptiveColor{Light: "#dc2626", Dark: "#f87171"}
	colorMuted     = lipgloss.Color("#6B7280")
)

// Styler colors output only when writing to a terminal.
type Styler struct {
	Color bool
}

// NewStyler enables color when f is a terminal and NO_COLOR is unset.
func NewStyler(f *os.File) Styler {
	if os.Getenv("NO_COLOR") != "" {
		return Styler{}
	}
	return Styler{Color: IsTerminal(f)}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (s Styler) render(style lipgloss.Style, text string) string {
	if !s.Color {
		return text
	}
	return style.Render(text)
}

// Safety renders a safety level in its color.
func (s Styler) Safety(level sc.SafetyLevel) string {
	var c lipgloss.TerminalColor
	switch level {
	case sc.Safe:
		c = colorSafe
	case sc.Caution:
		c = colorCaution
	case sc.Advanced:
		c = colorAdvanced
	default:
		c = colorDangerous
	}
	return s.render(lipgloss.NewStyle().Foreground(c), level.String())
}

func (s Styler) Success(text string) string {
	return s.render(lipgloss.NewStyle().Foreground(colorSafe).Bold(true), text)
}

func (s Styler) Failure(text string) string {
	return s.render(lipgloss.NewStyle().Foreground(colorDangerous).Bold(true), text)
}

func (s Styler) Muted(text string) string {
	return s.render(lipgloss.NewStyle().Foreground(colorMuted).Italic(true), text)
}

func (s Styler) Title(text string) string {
	return s.render(lipgloss.NewStyle().Bold(true), text)
}
