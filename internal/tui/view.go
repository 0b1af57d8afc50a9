package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/kevinelliott/stackpick/internal/tui/styles"
	"github.com/kevinelliott/stackpick/pkg/catalog"
	"github.com/kevinelliott/stackpick/pkg/selectapp"
)

const (
	drawerWidth = 44
	logoGlyph   = "◆"
	infoGlyph   = "ⓘ"
)

func cardZoneID(id int) string { return fmt.Sprintf("app-%d", id) }
func infoZoneID(id int) string { return fmt.Sprintf("app-%d-info", id) }

// View renders the TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	body := m.panelView()
	if m.drawerOpen && m.drawerApp != nil {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, "  ", m.drawerView())
	}

	return m.zones.Scan(lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		body,
		m.footerView(),
	))
}

// headerView renders the header.
func (m Model) headerView() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleBar.Render(" stackpick "),
		"",
	)
}

// footerView renders the footer.
func (m Model) footerView() string {
	helpKeys := []string{
		styles.HelpKey.Render("←↑↓→") + styles.Help.Render(" move"),
		styles.HelpKey.Render("enter") + styles.Help.Render(" select"),
		styles.HelpKey.Render("i") + styles.Help.Render(" info"),
		styles.HelpKey.Render("tab") + styles.Help.Render(" done"),
		styles.HelpKey.Render("r") + styles.Help.Render(" refresh"),
		styles.HelpKey.Render("q") + styles.Help.Render(" quit"),
	}
	if m.drawerOpen {
		helpKeys = append(helpKeys, styles.HelpKey.Render("esc")+styles.Help.Render(" close info"))
	}

	line := strings.Join(helpKeys, "  ")
	if sel := m.wizard.selection; sel != nil {
		line = styles.Badge.Render("Selected: "+(catalog.App{Label: sel.Label}).DisplayLabel()) + "  " + line
	}
	return "\n" + styles.StatusBar.Width(m.width).Render(line)
}

// panelView renders the panel in its current state. The empty state
// renders nothing.
func (m Model) panelView() string {
	state := m.panel.State()
	if state == selectapp.StateEmpty {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.Title.Render("  " + selectapp.Title))
	b.WriteString("\n")
	if msg := m.panel.HeaderError(); msg != "" {
		b.WriteString(styles.ErrorMessage.Render("  " + msg))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch state {
	case selectapp.StateError:
		b.WriteString(styles.ErrorMessage.Render("  " + m.panel.ErrorText()))
		b.WriteString("\n")
	case selectapp.StateLoading:
		b.WriteString(fmt.Sprintf("  %s Loading apps...\n", m.spinner.View()))
		if m.pages > 0 {
			b.WriteString("  ")
			b.WriteString(m.progress.ViewAs(m.percent()))
			b.WriteString(styles.Help.Render(fmt.Sprintf("  page %d of %d", m.page, m.pages)))
			b.WriteString("\n")
		}
	case selectapp.StateLoaded:
		b.WriteString(m.gridView())
	}
	return b.String()
}

// columns is the number of cards per grid row.
func (m Model) columns() int {
	avail := m.width - 2
	if m.drawerOpen {
		avail -= drawerWidth + 4
	}
	cols := avail / (m.config.UI.CardWidth + 1)
	if cols < 1 {
		return 1
	}
	return cols
}

// gridView lays the cards out in list order, row by row.
func (m Model) gridView() string {
	cards := m.panel.Cards()
	if len(cards) == 0 {
		return styles.InfoMessage.Render("  No apps available.") + "\n"
	}

	cols := m.columns()
	var rows []string
	for start := 0; start < len(cards); start += cols {
		end := min(start+cols, len(cards))
		row := make([]string, 0, 2*(end-start)+1)
		row = append(row, " ")
		for i := start; i < end; i++ {
			row = append(row, m.cardView(cards[i], i == m.focus), " ")
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// cardView renders one card, marked with a zone for the card body and a
// nested zone for its info icon.
func (m Model) cardView(c selectapp.Card, focused bool) string {
	width := m.config.UI.CardWidth
	inner := width - 4

	icon := c.Icon()
	iconText := icon.Glyph
	if !icon.Fallback {
		iconText = logoGlyph
		if m.hyperlinks {
			iconText = termenv.Hyperlink(icon.Src, logoGlyph)
		}
	}

	info := m.zones.Mark(infoZoneID(c.ID), styles.InfoIcon.Render(infoGlyph))
	label := ansi.Truncate(c.Label, inner-lipgloss.Width(iconText)-3, "…")
	heading := styles.CardIcon.Render(iconText) + " " + styles.CardHeading.Render(label)
	gap := max(inner-lipgloss.Width(heading)-lipgloss.Width(info), 1)
	content := heading + strings.Repeat(" ", gap) + info

	style := styles.Card
	switch {
	case c.Disabled:
		style = styles.CardDisabled
	case c.Checked:
		style = styles.CardChecked
	case focused:
		style = styles.CardFocused
	}
	if focused && c.Checked {
		content = lipgloss.NewStyle().Underline(true).Render(content)
	}

	return m.zones.Mark(cardZoneID(c.ID), style.Width(width-2).Render(content))
}

// drawerView renders the info drawer beside the grid.
func (m Model) drawerView() string {
	return styles.Drawer.Render(m.drawer.View())
}

// drawerContent is the scrollable body of the info drawer.
func drawerContent(app catalog.App) string {
	var b strings.Builder
	b.WriteString(styles.DrawerTitle.Render(app.DisplayLabel()))
	b.WriteString("\n")
	if app.Description != "" {
		b.WriteString(lipgloss.NewStyle().Width(drawerWidth - 4).Render(app.Description))
		b.WriteString("\n\n")
	}
	if len(app.Images) > 0 {
		b.WriteString(styles.Subtitle.Render("Images"))
		b.WriteString("\n")
		for _, img := range app.Images {
			b.WriteString("  " + img + "\n")
		}
		b.WriteString("\n")
	}
	if len(app.UserDefinedFields) > 0 {
		b.WriteString(styles.Subtitle.Render("Fields"))
		b.WriteString("\n")
		for _, f := range app.UserDefinedFields {
			b.WriteString(fmt.Sprintf("  %s %s", styles.FieldName.Render(f.Name), f.Label))
			if f.Required() {
				b.WriteString(styles.Badge.Render(" *"))
			}
			b.WriteString("\n")
			if opts := f.Options(); len(opts) > 0 {
				b.WriteString(styles.Help.Render("    " + strings.Join(opts, ", ")))
				b.WriteString("\n")
			}
			if f.Default != "" {
				b.WriteString(styles.Help.Render("    default " + f.Default))
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}
