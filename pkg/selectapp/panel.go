// Package selectapp implements the "Select App" step of the provisioning
// wizard: a grid of app cards, a query-driven pre-selection, and click
// forwarding to the wizard that owns the selection.
//
// The package holds no selection state and performs no I/O. Hosts feed it
// props on every change and render the resulting State and Cards in
// whatever medium they use (terminal, HTML).
package selectapp

import (
	"strconv"
	"strings"

	"github.com/kevinelliott/stackpick/pkg/catalog"
)

// Query parameters read from the location.
const (
	ParamAppID    = "appID"
	ParamShowInfo = "showInfo"
)

// Title is the heading shown above the panel.
const Title = "Select App"

// ClickHandler receives a selection. username is a display placeholder and
// is always empty.
type ClickHandler func(id int, label, username string, images []string, fields []catalog.UserDefinedField)

// DrawerHandler opens the info drawer for an app label.
type DrawerHandler func(label string)

// Props is everything the panel renders from.
type Props struct {
	catalog.AppsData

	// SelectedID is the currently selected app id; 0 means none.
	SelectedID int
	Disabled   bool

	HandleClick ClickHandler
	OpenDrawer  DrawerHandler

	// Error is a wizard-level message shown in the panel header.
	Error string
}

// State is one of the mutually exclusive render states.
type State int

const (
	StateEmpty State = iota
	StateError
	StateLoading
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateError:
		return "error"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	}
	return "empty"
}

// Panel is the select-app controller.
type Panel struct {
	location  Location
	assetRoot string
	props     Props
}

// NewPanel creates a panel reading pre-selection from loc and building logo
// URLs under assetRoot.
func NewPanel(loc Location, assetRoot string) *Panel {
	if loc == nil {
		loc = QueryLocation(nil)
	}
	return &Panel{
		location:  loc,
		assetRoot: strings.TrimRight(assetRoot, "/"),
	}
}

// Mount installs the first props and runs the pre-selection check.
func (p *Panel) Mount(props Props) {
	p.props = props
	p.clickAppIfQueryParamExists()
}

// Update installs new props. The pre-selection check runs again only when
// the app list goes from undefined to defined.
func (p *Panel) Update(props Props) {
	prev := p.props
	p.props = props
	if !prev.Defined() && props.Defined() {
		p.clickAppIfQueryParamExists()
	}
}

func (p *Panel) clickAppIfQueryParamExists() {
	raw := p.location.Param(ParamAppID)
	if raw == "" || !p.props.Defined() {
		return
	}
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return
	}

	var matched *catalog.App
	for i := range p.props.Instances {
		if p.props.Instances[i].ID == id {
			matched = &p.props.Instances[i]
			break
		}
	}
	if matched == nil {
		return
	}

	if p.props.HandleClick != nil {
		p.props.HandleClick(matched.ID, matched.Label, "", matched.Images, matched.UserDefinedFields)
	}
	if p.location.Param(ParamShowInfo) != "" && p.props.OpenDrawer != nil {
		p.props.OpenDrawer(matched.Label)
	}
}

// State returns the render state. Error wins over loading, loading over an
// undefined list.
func (p *Panel) State() State {
	switch {
	case p.props.AppsData.Error != "":
		return StateError
	case p.props.Loading:
		return StateLoading
	case !p.props.Defined():
		return StateEmpty
	}
	return StateLoaded
}

// ErrorText is the catalog failure message rendered in the error state.
func (p *Panel) ErrorText() string {
	return p.props.AppsData.Error
}

// HeaderError is the wizard-level message for the panel header.
func (p *Panel) HeaderError() string {
	return p.props.Error
}

// Cards returns one card per app in list order. It is nil unless the panel
// is in the loaded state.
func (p *Panel) Cards() []Card {
	if p.State() != StateLoaded {
		return nil
	}
	cards := make([]Card, len(p.props.Instances))
	for i, app := range p.props.Instances {
		cards[i] = newCard(app, p.props, p.assetRoot)
	}
	return cards
}

// Card returns the card for id in the loaded state.
func (p *Panel) Card(id int) (Card, bool) {
	for _, c := range p.Cards() {
		if c.ID == id {
			return c, true
		}
	}
	return Card{}, false
}
