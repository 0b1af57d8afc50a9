package selectapp

import (
	"embed"
	"html/template"
	"io"

	"github.com/kevinelliott/stackpick/pkg/catalog"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// HTMLOptions carries the host's links and drawer content into the HTML view.
type HTMLOptions struct {
	// SelectHref and InfoHref build the link behind a card and its info icon.
	SelectHref func(id int) string
	InfoHref   func(id int) string

	// Drawer, when set, is rendered beside the panel.
	Drawer *catalog.App

	// Selection is a summary of the wizard's current selection.
	Selection string
}

type htmlCard struct {
	ID         int
	Label      string
	Checked    bool
	Disabled   bool
	Icon       Icon
	SelectHref string
	InfoHref   string
}

type htmlDrawer struct {
	Label       string
	Description string
	Fields      []catalog.UserDefinedField
}

type htmlView struct {
	Title       string
	State       string
	HeaderError string
	ErrorText   string
	Cards       []htmlCard
	Drawer      *htmlDrawer
	Selection   string
}

func newHTMLView(p *Panel, opts HTMLOptions) htmlView {
	view := htmlView{
		Title:       Title,
		State:       p.State().String(),
		HeaderError: p.HeaderError(),
		ErrorText:   p.ErrorText(),
		Selection:   opts.Selection,
	}
	for _, c := range p.Cards() {
		hc := htmlCard{
			ID:       c.ID,
			Label:    c.Label,
			Checked:  c.Checked,
			Disabled: c.Disabled,
			Icon:     c.Icon(),
		}
		if opts.SelectHref != nil {
			hc.SelectHref = opts.SelectHref(c.ID)
		}
		if opts.InfoHref != nil {
			hc.InfoHref = opts.InfoHref(c.ID)
		}
		view.Cards = append(view.Cards, hc)
	}
	if opts.Drawer != nil {
		view.Drawer = &htmlDrawer{
			Label:       opts.Drawer.DisplayLabel(),
			Description: opts.Drawer.Description,
			Fields:      opts.Drawer.UserDefinedFields,
		}
	}
	return view
}

// RenderHTML writes the panel fragment. Nothing is written in the empty state.
func RenderHTML(w io.Writer, p *Panel, opts HTMLOptions) error {
	return templates.ExecuteTemplate(w, "panel", newHTMLView(p, opts))
}

// RenderHTMLPage writes a full page holding the panel, drawer and selection.
func RenderHTMLPage(w io.Writer, p *Panel, opts HTMLOptions) error {
	return templates.ExecuteTemplate(w, "page", newHTMLView(p, opts))
}
