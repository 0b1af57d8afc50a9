// Package styles holds the lipgloss styles used by the TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is the colour palette the styles are built from.
type Theme struct {
	Name      string
	Primary   lipgloss.TerminalColor
	Secondary lipgloss.TerminalColor
	Accent    lipgloss.TerminalColor
	Muted     lipgloss.TerminalColor
	Error     lipgloss.TerminalColor
	Text      lipgloss.TerminalColor
	Border    lipgloss.TerminalColor
}

// Built-in themes.
var (
	DefaultTheme = Theme{
		Name:      "default",
		Primary:   lipgloss.Color("#02b159"),
		Secondary: lipgloss.Color("#3683dc"),
		Accent:    lipgloss.Color("#ffb31a"),
		Muted:     lipgloss.Color("#888888"),
		Error:     lipgloss.Color("#d63c42"),
		Text:      lipgloss.AdaptiveColor{Light: "#32363c", Dark: "#f4f4f4"},
		Border:    lipgloss.AdaptiveColor{Light: "#c9cacb", Dark: "#555555"},
	}

	DarkTheme = Theme{
		Name:      "dark",
		Primary:   lipgloss.Color("42"),
		Secondary: lipgloss.Color("39"),
		Accent:    lipgloss.Color("214"),
		Muted:     lipgloss.Color("241"),
		Error:     lipgloss.Color("196"),
		Text:      lipgloss.Color("252"),
		Border:    lipgloss.Color("238"),
	}

	MonoTheme = Theme{
		Name:      "mono",
		Primary:   lipgloss.NoColor{},
		Secondary: lipgloss.NoColor{},
		Accent:    lipgloss.NoColor{},
		Muted:     lipgloss.NoColor{},
		Error:     lipgloss.NoColor{},
		Text:      lipgloss.NoColor{},
		Border:    lipgloss.NoColor{},
	}
)

// Styles used across views.
var (
	TitleBar     lipgloss.Style
	Title        lipgloss.Style
	Subtitle     lipgloss.Style
	Help         lipgloss.Style
	HelpKey      lipgloss.Style
	StatusBar    lipgloss.Style
	ErrorMessage lipgloss.Style
	InfoMessage  lipgloss.Style
	Spinner      lipgloss.Style
	Box          lipgloss.Style
	Badge        lipgloss.Style

	Card         lipgloss.Style
	CardFocused  lipgloss.Style
	CardChecked  lipgloss.Style
	CardDisabled lipgloss.Style
	CardHeading  lipgloss.Style
	CardIcon     lipgloss.Style
	InfoIcon     lipgloss.Style

	Drawer      lipgloss.Style
	DrawerTitle lipgloss.Style
	FieldName   lipgloss.Style
)

func init() {
	Apply(DefaultTheme)
}

// ThemeByName returns a built-in theme. Unknown names give the default.
func ThemeByName(name string) Theme {
	switch name {
	case DarkTheme.Name:
		return DarkTheme
	case MonoTheme.Name:
		return MonoTheme
	}
	return DefaultTheme
}

// ThemeNames lists the built-in theme names.
func ThemeNames() []string {
	return []string{DefaultTheme.Name, DarkTheme.Name, MonoTheme.Name}
}

// Apply rebuilds every style from t.
func Apply(t Theme) {
	TitleBar = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(t.Primary).Padding(0, 1)
	if t.Name == MonoTheme.Name {
		TitleBar = lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1)
	}
	Title = lipgloss.NewStyle().Bold(true).Foreground(t.Primary)
	Subtitle = lipgloss.NewStyle().Bold(true).Foreground(t.Secondary)
	Help = lipgloss.NewStyle().Foreground(t.Muted)
	HelpKey = lipgloss.NewStyle().Bold(true).Foreground(t.Text)
	StatusBar = lipgloss.NewStyle().Foreground(t.Muted).Padding(0, 1)
	ErrorMessage = lipgloss.NewStyle().Foreground(t.Error)
	InfoMessage = lipgloss.NewStyle().Foreground(t.Muted).Italic(true)
	Spinner = lipgloss.NewStyle().Foreground(t.Primary)
	Box = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Border).Padding(0, 1)
	Badge = lipgloss.NewStyle().Foreground(t.Accent)

	Card = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Border).Padding(0, 1)
	CardFocused = Card.BorderForeground(t.Secondary)
	CardChecked = Card.Border(lipgloss.ThickBorder()).BorderForeground(t.Primary)
	CardDisabled = Card.Foreground(t.Muted).BorderForeground(t.Muted)
	CardHeading = lipgloss.NewStyle().Bold(true).Foreground(t.Text)
	CardIcon = lipgloss.NewStyle().Foreground(t.Secondary)
	InfoIcon = lipgloss.NewStyle().Foreground(t.Secondary)

	Drawer = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(t.Border).Padding(0, 2)
	DrawerTitle = lipgloss.NewStyle().Bold(true).Foreground(t.Primary).MarginBottom(1)
	FieldName = lipgloss.NewStyle().Foreground(t.Accent)
}
