package selectapp

import (
	"github.com/kevinelliott/stackpick/pkg/catalog"
)

// FallbackGlyph is shown for apps without a logo.
const FallbackGlyph = "🐧"

// Icon describes what a card shows next to its heading.
type Icon struct {
	// Fallback is set when the app has no logo; Src is then empty.
	Fallback bool
	Glyph    string
	Src      string
	Alt      string
}

// Target is the part of a card that received a click.
type Target int

const (
	TargetCard Target = iota
	TargetInfo
)

// Event is a click travelling from the clicked target up to the card.
type Event struct {
	Target             Target
	propagationStopped bool
	defaultPrevented   bool
}

// StopPropagation keeps the event from reaching the card's own handler.
func (e *Event) StopPropagation() { e.propagationStopped = true }

// PreventDefault marks the event's default action as cancelled.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// PropagationStopped reports whether StopPropagation was called.
func (e *Event) PropagationStopped() bool { return e.propagationStopped }

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// Card is one selectable app.
type Card struct {
	ID       int
	Label    string
	Images   []string
	Fields   []catalog.UserDefinedField
	IconURL  string
	Checked  bool
	Disabled bool

	assetRoot   string
	handleClick ClickHandler
	openDrawer  DrawerHandler
}

func newCard(app catalog.App, props Props, assetRoot string) Card {
	return Card{
		ID:          app.ID,
		Label:       app.DisplayLabel(),
		Images:      app.Images,
		Fields:      app.UserDefinedFields,
		IconURL:     app.LogoURL,
		Checked:     app.ID == props.SelectedID,
		Disabled:    props.Disabled,
		assetRoot:   assetRoot,
		handleClick: props.HandleClick,
		openDrawer:  props.OpenDrawer,
	}
}

// Select forwards the card as the wizard's selection. Disabled cards ignore it.
func (c Card) Select() {
	if c.Disabled || c.handleClick == nil {
		return
	}
	c.handleClick(c.ID, c.Label, "", c.Images, c.Fields)
}

// Info opens the drawer for this card without selecting it.
func (c Card) Info(ev *Event) {
	if ev != nil {
		ev.StopPropagation()
		ev.PreventDefault()
	}
	if c.openDrawer != nil {
		c.openDrawer(c.Label)
	}
}

// Click dispatches a click on target: the info handler runs first and the
// card's select handler runs unless propagation was stopped.
func (c Card) Click(target Target) *Event {
	ev := &Event{Target: target}
	if target == TargetInfo {
		c.Info(ev)
	}
	if !ev.PropagationStopped() {
		c.Select()
	}
	return ev
}

// Icon returns the card icon: the fallback glyph for an empty logo path,
// otherwise an image under the asset root.
func (c Card) Icon() Icon {
	if c.IconURL == "" {
		return Icon{Fallback: true, Glyph: FallbackGlyph}
	}
	return Icon{
		Src: c.assetRoot + "/" + c.IconURL,
		Alt: c.Label + " logo",
	}
}
