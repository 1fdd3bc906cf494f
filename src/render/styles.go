// Package render formats runs and reports as terminal tables.
package render

import "github.com/charmbracelet/lipgloss"

// StyleConfig holds the colors used by the tables.
type StyleConfig struct {
	Header    lipgloss.Color
	Border    lipgloss.Color
	Muted     lipgloss.Color
	Warning   lipgloss.Color
	Highlight lipgloss.Color

	// Plain disables all colors and emphasis.
	Plain bool
}

// DefaultStyles returns the default color palette.
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		Header:    lipgloss.Color("#8AB4F8"),
		Border:    lipgloss.Color("#5F6368"),
		Muted:     lipgloss.Color("#9AA0A6"),
		Warning:   lipgloss.Color("#FBBC04"),
		Highlight: lipgloss.Color("#34A853"),
	}
}

// PlainStyles returns a config for --no-color output.
func PlainStyles() *StyleConfig {
	return &StyleConfig{Plain: true}
}

func (s *StyleConfig) style(c lipgloss.Color) lipgloss.Style {
	if s.Plain {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(c)
}

// HeaderStyle is used for table headers and titles.
func (s *StyleConfig) HeaderStyle() lipgloss.Style {
	if s.Plain {
		return lipgloss.NewStyle().Padding(0, 1)
	}
	return s.style(s.Header).Bold(true).Padding(0, 1)
}

func (s *StyleConfig) CellStyle() lipgloss.Style {
	return lipgloss.NewStyle().Padding(0, 1)
}

func (s *StyleConfig) BorderStyle() lipgloss.Style {
	return s.style(s.Border)
}

func (s *StyleConfig) MutedStyle() lipgloss.Style {
	return s.style(s.Muted)
}

func (s *StyleConfig) WarningStyle() lipgloss.Style {
	return s.style(s.Warning)
}

func (s *StyleConfig) HighlightStyle() lipgloss.Style {
	if s.Plain {
		return lipgloss.NewStyle()
	}
	return s.style(s.Highlight).Bold(true)
}
