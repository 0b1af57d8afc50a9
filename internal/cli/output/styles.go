package output

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles used by CLI output.
type Styles struct {
	Header  lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Info    lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	ID      lipgloss.Style
	Label   lipgloss.Style
}

// NewStyles builds styles bound to r.
func NewStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#3683dc")),
		Bold:    r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("#888888")),
		Info:    r.NewStyle().Foreground(lipgloss.Color("#3683dc")),
		Success: r.NewStyle().Foreground(lipgloss.Color("#02b159")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("#ffb31a")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("#d63c42")),
		ID:      r.NewStyle().Foreground(lipgloss.Color("#ffb31a")),
		Label:   r.NewStyle().Bold(true),
	}
}

// FormatHeader renders a table header cell.
func (s *Styles) FormatHeader(text string) string {
	return s.Header.Render(text)
}

// FormatAppLabel renders an app label.
func (s *Styles) FormatAppLabel(label string) string {
	return s.Label.Render(label)
}
