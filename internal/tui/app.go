// Package tui provides the terminal user interface: a one-step wizard that
// hosts the Select App panel.
package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/kevinelliott/stackpick/internal/tui/styles"
	"github.com/kevinelliott/stackpick/pkg/catalog"
	"github.com/kevinelliott/stackpick/pkg/config"
	"github.com/kevinelliott/stackpick/pkg/selectapp"
	"github.com/kevinelliott/stackpick/pkg/storage"
)

// Selection is the app chosen in the wizard.
type Selection struct {
	ID     int                        `json:"id" yaml:"id"`
	Label  string                     `json:"label" yaml:"label"`
	Images []string                   `json:"images" yaml:"images"`
	Fields []catalog.UserDefinedField `json:"user_defined_fields" yaml:"user_defined_fields"`
}

// Options configures a wizard run.
type Options struct {
	Config   *config.Config
	Catalog  *catalog.Manager
	Store    storage.Store
	Location selectapp.Location
	Disabled bool
	Logger   *slog.Logger
}

// wizard is the state shared between the model and the panel callbacks.
type wizard struct {
	selection   *Selection
	drawerLabel string
	drawerDirty bool
	selDirty    bool
	confirmed   bool
}

func (w *wizard) handleClick(id int, label, _ string, images []string, fields []catalog.UserDefinedField) {
	w.selection = &Selection{ID: id, Label: label, Images: images, Fields: fields}
	w.selDirty = true
}

func (w *wizard) openDrawer(label string) {
	w.drawerLabel = label
	w.drawerDirty = true
}

func (w *wizard) selectedID() int {
	if w.selection == nil {
		return 0
	}
	return w.selection.ID
}

// Model is the main TUI model.
type Model struct {
	// Configuration
	config   *config.Config
	catalog  *catalog.Manager
	store    storage.Store
	logger   *slog.Logger
	disabled bool

	// Data
	panel     *selectapp.Panel
	data      catalog.AppsData
	wizard    *wizard
	headerErr string

	// UI state
	width      int
	height     int
	focus      int
	drawerOpen bool
	drawerApp  *catalog.App
	page       int
	pages      int
	hyperlinks bool

	// Components
	spinner  spinner.Model
	progress progress.Model
	drawer   viewport.Model
	zones    *zone.Manager

	// Key bindings
	keys keyMap
}

// New creates a new TUI model.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	theme := styles.ThemeByName(cfg.UI.Theme)
	if !cfg.UI.UseColors {
		theme = styles.MonoTheme
	}
	styles.Apply(theme)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	m := Model{
		config:     cfg,
		catalog:    opts.Catalog,
		store:      opts.Store,
		logger:     logger,
		disabled:   opts.Disabled,
		wizard:     &wizard{},
		data:       catalog.AppsData{Loading: opts.Catalog != nil},
		hyperlinks: cfg.UI.UseColors,
		spinner:    s,
		progress:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		drawer:     viewport.New(drawerWidth, 10),
		zones:      zone.New(),
		keys:       DefaultKeyMap(),
	}

	m.panel = selectapp.NewPanel(opts.Location, cfg.Assets.Root)
	m.panel.Mount(m.props())
	m.applyCallbacks()
	return m
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	if m.catalog == nil {
		return nil
	}
	return tea.Batch(m.spinner.Tick, m.startLoad(false))
}

// catalogLoadedMsg is sent when the catalog load finishes.
type catalogLoadedMsg struct {
	data catalog.AppsData
}

// progressMsg reports one fetched catalog page. ch yields the next one.
type progressMsg struct {
	page  int
	pages int
	ch    <-chan progressMsg
}

// startLoad loads the catalog in the background, forwarding page progress.
// A failed forced refresh keeps the current list so the pre-selection does
// not run again when a later refresh succeeds.
func (m Model) startLoad(force bool) tea.Cmd {
	mgr := m.catalog
	prev := m.data.Instances
	ch := make(chan progressMsg, 8)
	mgr.OnProgress(func(page, pages int) {
		select {
		case ch <- progressMsg{page: page, pages: pages, ch: ch}:
		default:
		}
	})

	load := func() tea.Msg {
		defer close(ch)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if force {
			if err := mgr.Refresh(ctx); err != nil {
				return catalogLoadedMsg{data: catalog.AppsData{Instances: prev, Error: err.Error()}}
			}
		}
		return catalogLoadedMsg{data: mgr.Load(ctx)}
	}
	return tea.Batch(load, waitForProgress(ch))
}

func waitForProgress(ch <-chan progressMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd, quit := m.handleKey(msg); quit {
			return m, tea.Quit
		} else if cmd != nil {
			cmds = append(cmds, cmd)
		}

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft {
			m.handleMouse(msg)
		} else if m.drawerOpen {
			var cmd tea.Cmd
			m.drawer, cmd = m.drawer.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.drawer.Width = drawerWidth
		m.drawer.Height = max(msg.Height-6, 3)

	case catalogLoadedMsg:
		if msg.data.Error != "" {
			m.logger.Warn("catalog load failed", "error", msg.data.Error)
		} else {
			m.logger.Info("catalog loaded", "apps", len(msg.data.Instances))
		}
		m.data = msg.data
		m.page, m.pages = 0, 0
		m.panel.Update(m.props())
		if m.focus >= len(m.data.Instances) {
			m.focus = 0
		}

	case progressMsg:
		m.page, m.pages = msg.page, msg.pages
		if msg.ch != nil {
			cmds = append(cmds, waitForProgress(msg.ch))
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	cmds = append(cmds, m.afterPanel())
	return m, tea.Batch(cmds...)
}

// handleKey reports whether the program should quit.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return nil, true

	case key.Matches(msg, m.keys.Back):
		m.drawerOpen = false
		m.drawerApp = nil

	case key.Matches(msg, m.keys.Done):
		if m.wizard.selection == nil {
			m.headerErr = "Please select an app to continue."
			m.panel.Update(m.props())
			return nil, false
		}
		m.wizard.confirmed = true
		return nil, true

	case key.Matches(msg, m.keys.Refresh):
		if m.catalog == nil || m.data.Loading {
			return nil, false
		}
		m.data = catalog.AppsData{Instances: m.data.Instances, Loading: true}
		m.panel.Update(m.props())
		return tea.Batch(m.spinner.Tick, m.startLoad(true)), false

	case key.Matches(msg, m.keys.Select):
		if c, ok := m.focusedCard(); ok {
			c.Click(selectapp.TargetCard)
		}

	case key.Matches(msg, m.keys.Info):
		if c, ok := m.focusedCard(); ok {
			c.Click(selectapp.TargetInfo)
		}

	case m.drawerOpen && (key.Matches(msg, m.keys.Up) || key.Matches(msg, m.keys.Down)):
		var cmd tea.Cmd
		m.drawer, cmd = m.drawer.Update(msg)
		return cmd, false

	case key.Matches(msg, m.keys.Left):
		m.moveFocus(-1)
	case key.Matches(msg, m.keys.Right):
		m.moveFocus(1)
	case key.Matches(msg, m.keys.Up):
		m.moveFocus(-m.columns())
	case key.Matches(msg, m.keys.Down):
		m.moveFocus(m.columns())
	}
	return nil, false
}

// handleMouse dispatches a click to the card under the pointer. The info
// zone sits inside the card zone and is checked first.
func (m *Model) handleMouse(msg tea.MouseMsg) {
	for i, c := range m.panel.Cards() {
		if zi := m.zones.Get(infoZoneID(c.ID)); zi != nil && zi.InBounds(msg) {
			m.focus = i
			c.Click(selectapp.TargetInfo)
			return
		}
		if zi := m.zones.Get(cardZoneID(c.ID)); zi != nil && zi.InBounds(msg) {
			m.focus = i
			c.Click(selectapp.TargetCard)
			return
		}
	}
}

// afterPanel applies what the panel callbacks changed.
func (m *Model) afterPanel() tea.Cmd {
	var cmd tea.Cmd
	if m.wizard.selDirty {
		m.wizard.selDirty = false
		m.headerErr = ""
		m.panel.Update(m.props())
		m.focusSelected()
		cmd = m.saveSelection(m.wizard.selection.ID)
	}
	if m.wizard.drawerDirty {
		m.wizard.drawerDirty = false
		m.openDrawer(m.wizard.drawerLabel)
	}
	return cmd
}

func (m *Model) props() selectapp.Props {
	return selectapp.Props{
		AppsData:    m.data,
		SelectedID:  m.wizard.selectedID(),
		Disabled:    m.disabled,
		HandleClick: m.wizard.handleClick,
		OpenDrawer:  m.wizard.openDrawer,
		Error:       m.headerErr,
	}
}

// applyCallbacks handles a pre-selection made while mounting.
func (m *Model) applyCallbacks() {
	if m.wizard.selDirty {
		m.wizard.selDirty = false
		m.panel.Update(m.props())
	}
	if m.wizard.drawerDirty {
		m.wizard.drawerDirty = false
		m.openDrawer(m.wizard.drawerLabel)
	}
}

// findApp matches either the raw or the decoded label.
func (m *Model) findApp(label string) (catalog.App, bool) {
	for _, app := range m.data.Instances {
		if app.Label == label || app.DisplayLabel() == label {
			return app, true
		}
	}
	return catalog.App{}, false
}

func (m *Model) openDrawer(label string) {
	app, ok := m.findApp(label)
	if !ok {
		m.logger.Debug("no app for drawer label", "label", label)
		return
	}
	m.drawerApp = &app
	m.drawerOpen = true
	m.drawer.SetContent(drawerContent(app))
	m.drawer.GotoTop()
}

func (m *Model) focusedCard() (selectapp.Card, bool) {
	cards := m.panel.Cards()
	if m.focus < 0 || m.focus >= len(cards) {
		return selectapp.Card{}, false
	}
	return cards[m.focus], true
}

func (m *Model) focusSelected() {
	id := m.wizard.selectedID()
	for i, app := range m.data.Instances {
		if app.ID == id {
			m.focus = i
			return
		}
	}
}

func (m *Model) moveFocus(delta int) {
	n := len(m.panel.Cards())
	if n == 0 {
		return
	}
	next := m.focus + delta
	if next < 0 || next >= n {
		return
	}
	m.focus = next
}

func (m Model) percent() float64 {
	if m.pages <= 0 {
		return 0
	}
	return float64(m.page) / float64(m.pages)
}

// saveSelection remembers the selected app id for the next run.
func (m Model) saveSelection(id int) tea.Cmd {
	if m.store == nil || !m.config.UI.RememberSelection {
		return nil
	}
	store, logger := m.store, m.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.SetSetting(ctx, storage.SettingLastSelectedApp, strconv.Itoa(id)); err != nil {
			logger.Warn("failed to remember selection", "error", err)
		}
		return nil
	}
}

// Selection returns the chosen app, or nil.
func (m Model) Selection() *Selection {
	return m.wizard.selection
}

// Confirmed reports whether the user finished the wizard with a selection.
func (m Model) Confirmed() bool {
	return m.wizard.confirmed
}

// ResolveLocation returns loc, or a location pre-selecting the remembered
// app when loc names none and remembering is enabled.
func ResolveLocation(ctx context.Context, cfg *config.Config, store storage.Store, loc selectapp.Location) selectapp.Location {
	if loc != nil && loc.Param(selectapp.ParamAppID) != "" {
		return loc
	}
	if store == nil || cfg == nil || !cfg.UI.RememberSelection {
		return loc
	}
	last, err := store.GetSetting(ctx, storage.SettingLastSelectedApp)
	if err != nil || last == "" {
		return loc
	}
	id, err := strconv.Atoi(last)
	if err != nil {
		return loc
	}
	return selectapp.ParseLocation(selectapp.PreselectQuery(id, false))
}

// Run starts the TUI and returns the confirmed selection, if any.
func Run(opts Options) (*Selection, error) {
	m := New(opts)
	defer m.zones.Close()

	progOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if m.config.UI.Mouse {
		progOpts = append(progOpts, tea.WithMouseCellMotion())
	}

	final, err := tea.NewProgram(m, progOpts...).Run()
	if err != nil {
		return nil, fmt.Errorf("tui failed: %w", err)
	}
	fm, ok := final.(Model)
	if !ok || !fm.Confirmed() {
		return nil, nil
	}
	return fm.Selection(), nil
}
