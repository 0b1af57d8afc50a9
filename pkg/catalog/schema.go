// Package catalog provides the One-Click app catalog: the apps a server can
// be provisioned with, fetched from a StackScripts-style endpoint.
package catalog

import (
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
)

// ErrAppNotFound is returned when an app id is not in the catalog.
var ErrAppNotFound = errors.New("app not found in catalog")

// Catalog represents the complete app catalog in source order.
type Catalog struct {
	Version     string    `json:"version"`
	LastUpdated time.Time `json:"last_updated"`
	Apps        []App     `json:"apps"`
}

// App is a pre-packaged application template that can be deployed.
type App struct {
	ID                int                `json:"id"`
	Label             string             `json:"label"`
	Description       string             `json:"description,omitempty"`
	Username          string             `json:"username,omitempty"`
	LogoURL           string             `json:"logo_url"`
	Images            []string           `json:"images"`
	UserDefinedFields []UserDefinedField `json:"user_defined_fields"`
	DeploymentsActive int                `json:"deployments_active,omitempty"`
	Updated           string             `json:"updated,omitempty"`
}

// UserDefinedField is a named configuration input required to deploy an app.
type UserDefinedField struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Example string `json:"example,omitempty"`
	Default string `json:"default,omitempty"`
	OneOf   string `json:"oneOf,omitempty"`
	ManyOf  string `json:"manyOf,omitempty"`
}

// FieldType classifies how a user-defined field is collected.
type FieldType string

const (
	FieldText        FieldType = "text"
	FieldPassword    FieldType = "password"
	FieldSelect      FieldType = "select"
	FieldMultiSelect FieldType = "multiselect"
)

// AppsData is what the select-app panel consumes from the data layer.
// A nil Instances means the catalog has not loaded yet; a non-nil empty
// slice is a loaded, empty catalog.
type AppsData struct {
	Instances []App
	Error     string
	Loading   bool
}

// Defined reports whether the app list has been supplied.
func (d AppsData) Defined() bool {
	return d.Instances != nil
}

// DisplayLabel returns the label with HTML entities decoded.
func (a App) DisplayLabel() string {
	return html.UnescapeString(a.Label)
}

// HasLogo reports whether the app carries its own logo.
func (a App) HasLogo() bool {
	return a.LogoURL != ""
}

// Type returns how the field should be collected.
func (f UserDefinedField) Type() FieldType {
	switch {
	case f.ManyOf != "":
		return FieldMultiSelect
	case f.OneOf != "":
		return FieldSelect
	}
	name := strings.ToLower(f.Name)
	if strings.HasSuffix(name, "password") || strings.HasSuffix(name, "_pass") {
		return FieldPassword
	}
	return FieldText
}

// Options returns the choices of a select or multiselect field.
func (f UserDefinedField) Options() []string {
	raw := f.OneOf
	if f.ManyOf != "" {
		raw = f.ManyOf
	}
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	opts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			opts = append(opts, p)
		}
	}
	return opts
}

// Required reports whether the field has no default and must be filled in.
func (f UserDefinedField) Required() bool {
	return f.Default == "" && f.Type() != FieldMultiSelect
}

// Data returns the catalog as panel input.
func (c *Catalog) Data() AppsData {
	apps := make([]App, len(c.Apps))
	copy(apps, c.Apps)
	return AppsData{Instances: apps}
}

// GetApp returns a specific app by ID.
func (c *Catalog) GetApp(id int) (App, bool) {
	for _, app := range c.Apps {
		if app.ID == id {
			return app, true
		}
	}
	return App{}, false
}

// labelSource adapts the catalog to fuzzy.Source over decoded labels.
type labelSource []App

func (s labelSource) String(i int) string { return s[i].DisplayLabel() }
func (s labelSource) Len() int            { return len(s) }

// Search returns apps whose label fuzzily matches query, best match first,
// followed by apps whose description contains it. An empty query returns
// every app in catalog order.
func (c *Catalog) Search(query string) []App {
	query = strings.TrimSpace(query)
	if query == "" {
		out := make([]App, len(c.Apps))
		copy(out, c.Apps)
		return out
	}

	matches := fuzzy.FindFrom(query, labelSource(c.Apps))
	sort.Stable(matches)

	seen := make(map[int]bool, len(matches))
	results := make([]App, 0, len(matches))
	for _, match := range matches {
		app := c.Apps[match.Index]
		seen[app.ID] = true
		results = append(results, app)
	}

	lower := strings.ToLower(query)
	for _, app := range c.Apps {
		if seen[app.ID] {
			continue
		}
		if strings.Contains(strings.ToLower(app.Description), lower) {
			results = append(results, app)
		}
	}
	return results
}

// Validate validates the catalog structure.
func (c *Catalog) Validate() error {
	if _, dropped := validApps(c.Apps); len(dropped) > 0 {
		return dropped[0]
	}
	return nil
}

// validApps returns the apps that pass validation in source order, and why
// the others were rejected. The first app with a given id wins.
func validApps(apps []App) ([]App, []error) {
	kept := make([]App, 0, len(apps))
	var dropped []error
	seen := make(map[int]bool, len(apps))
	for i, app := range apps {
		if err := app.validate(i); err != nil {
			dropped = append(dropped, err)
			continue
		}
		if seen[app.ID] {
			dropped = append(dropped, fmt.Errorf("duplicate app id %d", app.ID))
			continue
		}
		seen[app.ID] = true
		kept = append(kept, app)
	}
	return kept, dropped
}

func (a App) validate(index int) error {
	if a.ID <= 0 {
		return fmt.Errorf("app at index %d has invalid id %d", index, a.ID)
	}
	if strings.TrimSpace(a.Label) == "" {
		return fmt.Errorf("app %d has no label", a.ID)
	}
	for _, f := range a.UserDefinedFields {
		if f.Name == "" {
			return fmt.Errorf("app %d has a user-defined field without a name", a.ID)
		}
	}
	return nil
}
