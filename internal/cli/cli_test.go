package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kevinelliott/stackpick/internal/cli/output"
	"github.com/kevinelliott/stackpick/pkg/catalog"
	"github.com/kevinelliott/stackpick/pkg/config"
	"github.com/kevinelliott/stackpick/pkg/selectapp"
	"github.com/kevinelliott/stackpick/pkg/storage"
)

// findSubcommand returns a subcommand by name, or nil if not found.
func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, sub := range cmd.Commands() {
		if sub.Name() == name {
			return sub
		}
	}
	return nil
}

// assertSubcommandExists checks that a subcommand exists.
func assertSubcommandExists(t *testing.T, cmd *cobra.Command, name string) *cobra.Command {
	t.Helper()
	sub := findSubcommand(cmd, name)
	if sub == nil {
		t.Errorf("expected subcommand %q to exist, but it was not found", name)
	}
	return sub
}

// assertFlagExists checks that a flag exists on the command.
func assertFlagExists(t *testing.T, cmd *cobra.Command, name string) {
	t.Helper()
	if cmd.Flags().Lookup(name) == nil && cmd.PersistentFlags().Lookup(name) == nil {
		t.Errorf("expected flag %q to exist on command %q", name, cmd.Name())
	}
}

// memStore is an in-memory storage.Store.
type memStore struct {
	mu       sync.Mutex
	data     []byte
	etag     string
	at       time.Time
	settings map[string]string
}

func (m *memStore) Initialize(ctx context.Context) error { return nil }
func (m *memStore) Close() error                         { return nil }
func (m *memStore) GetCatalogCache(ctx context.Context) ([]byte, string, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, "", time.Time{}, storage.ErrNoCache
	}
	return m.data, m.etag, m.at, nil
}
func (m *memStore) SaveCatalogCache(ctx context.Context, data []byte, etag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data, m.etag, m.at = data, etag, time.Now()
	return nil
}
func (m *memStore) GetSetting(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings[key], nil
}
func (m *memStore) SetSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		m.settings = map[string]string{}
	}
	m.settings[key] = value
	return nil
}
func (m *memStore) DeleteSetting(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.settings, key)
	return nil
}

func testApps() []catalog.App {
	return []catalog.App{
		{ID: 401697, Label: "WordPress", Description: "Flexible, open source CMS", Images: []string{"linode/ubuntu22.04"}},
		{ID: 401701, Label: "Let&#39;s Encrypt", Images: []string{"linode/debian11"}},
		{ID: 401709, Label: "Plex", Images: []string{"any/all"}},
	}
}

func TestNewRootCommand(t *testing.T) {
	cfg := config.Default()
	cmd := NewRootCommand(cfg, "1.0.0", "abc123", "2024-01-01")

	if cmd.Use != "stackpick" {
		t.Errorf("Use = %q, want %q", cmd.Use, "stackpick")
	}
	if !cmd.SilenceUsage {
		t.Error("SilenceUsage should be true")
	}
	if !cmd.SilenceErrors {
		t.Error("SilenceErrors should be true")
	}

	expectedSubcommands := []string{"catalog", "completion", "config", "doctor", "serve", "tui", "version"}
	for _, name := range expectedSubcommands {
		assertSubcommandExists(t, cmd, name)
	}
	if got := len(cmd.Commands()); got != len(expectedSubcommands) {
		t.Errorf("subcommand count = %d, want %d", got, len(expectedSubcommands))
		for _, sub := range cmd.Commands() {
			t.Logf("  - %s", sub.Name())
		}
	}

	assertFlagExists(t, cmd, "config")
	assertFlagExists(t, cmd, "verbose")
	assertFlagExists(t, cmd, "format")
	assertFlagExists(t, cmd, "no-color")

	if flag := cmd.PersistentFlags().ShorthandLookup("c"); flag == nil {
		t.Error("expected -c shorthand for --config flag")
	}
	if flag := cmd.PersistentFlags().ShorthandLookup("f"); flag == nil {
		t.Error("expected -f shorthand for --format flag")
	}
}

func TestNewCatalogCommand(t *testing.T) {
	cmd := NewCatalogCommand(config.Default())

	if cmd.Use != "catalog" {
		t.Errorf("Use = %q, want %q", cmd.Use, "catalog")
	}

	expected := []string{"list", "refresh", "search", "show", "status"}
	for _, name := range expected {
		assertSubcommandExists(t, cmd, name)
	}
	if got := len(cmd.Commands()); got != len(expected) {
		t.Errorf("subcommand count = %d, want %d", got, len(expected))
	}

	if listCmd := findSubcommand(cmd, "list"); listCmd != nil {
		assertFlagExists(t, listCmd, "image")
		if len(listCmd.Aliases) == 0 || listCmd.Aliases[0] != "ls" {
			t.Errorf("list command Aliases = %v, want [ls]", listCmd.Aliases)
		}
	}

	if searchCmd := findSubcommand(cmd, "search"); searchCmd != nil {
		if err := searchCmd.Args(searchCmd, nil); err == nil {
			t.Error("search should require a query")
		}
	}
}

func TestNewConfigCommand(t *testing.T) {
	cmd := NewConfigCommand(config.Default())

	if cmd.Use != "config" {
		t.Errorf("Use = %q, want %q", cmd.Use, "config")
	}
	for _, name := range []string{"show", "get", "set", "path", "init"} {
		assertSubcommandExists(t, cmd, name)
	}
	if got := len(cmd.Commands()); got != 5 {
		t.Errorf("subcommand count = %d, want 5", got)
	}
}

func TestNewTUICommand(t *testing.T) {
	cmd := NewTUICommand(config.Default())

	if cmd.Use != "tui" {
		t.Errorf("Use = %q, want %q", cmd.Use, "tui")
	}
	if cmd.Short != "Launch the terminal user interface" {
		t.Errorf("Short = %q", cmd.Short)
	}
	for _, name := range []string{"query", "app-id", "show-info", "disabled"} {
		assertFlagExists(t, cmd, name)
	}
	if cmd.RunE == nil {
		t.Error("expected RunE function to be set")
	}
}

func TestNewServeCommand(t *testing.T) {
	cmd := NewServeCommand(config.Default())

	if cmd.Use != "serve" {
		t.Errorf("Use = %q, want %q", cmd.Use, "serve")
	}
	for _, name := range []string{"host", "rest-port", "grpc-port"} {
		assertFlagExists(t, cmd, name)
	}
}

func TestNewDoctorCommand(t *testing.T) {
	cmd := NewDoctorCommand(config.Default())

	if cmd.Use != "doctor" {
		t.Errorf("Use = %q, want %q", cmd.Use, "doctor")
	}
	assertFlagExists(t, cmd, "offline")
}

func TestNewVersionCommand(t *testing.T) {
	cmd := NewVersionCommand("1.2.3", "abc123def", "2024-06-15")

	if cmd.Use != "version" {
		t.Errorf("Use = %q, want %q", cmd.Use, "version")
	}
	if cmd.Short != "Show version information" {
		t.Errorf("Short = %q, want %q", cmd.Short, "Show version information")
	}
	assertFlagExists(t, cmd, "json")
	if cmd.Run == nil {
		t.Error("expected Run function to be set")
	}
}

func TestVersionOutput(t *testing.T) {
	run := func(args ...string) string {
		root := NewRootCommand(config.Default(), "1.2.3", "abc123def", "2024-06-15")
		var buf bytes.Buffer
		root.SetOut(&buf)
		root.SetErr(&bytes.Buffer{})
		root.SetArgs(args)
		if err := root.Execute(); err != nil {
			t.Fatalf("Execute(%v) error = %v", args, err)
		}
		return buf.String()
	}

	if out := run("version"); !strings.HasPrefix(out, "stackpick 1.2.3") {
		t.Errorf("output = %q", out)
	}

	out := run("version", "--json")
	var info VersionInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if info.Version != "1.2.3" || info.Commit != "abc123def" || info.Date != "2024-06-15" {
		t.Errorf("info = %+v", info)
	}
}

func TestNewCompletionCommand(t *testing.T) {
	cmd := NewCompletionCommand()

	if cmd.Use != "completion [bash|zsh|fish|powershell]" {
		t.Errorf("Use = %q, want %q", cmd.Use, "completion [bash|zsh|fish|powershell]")
	}
	if cmd.Short != "Generate shell completion scripts" {
		t.Errorf("Short = %q, want %q", cmd.Short, "Generate shell completion scripts")
	}

	expectedArgs := []string{"bash", "zsh", "fish", "powershell"}
	if len(cmd.ValidArgs) != len(expectedArgs) {
		t.Fatalf("ValidArgs = %v, want %v", cmd.ValidArgs, expectedArgs)
	}
	for i, arg := range expectedArgs {
		if cmd.ValidArgs[i] != arg {
			t.Errorf("ValidArgs[%d] = %q, want %q", i, cmd.ValidArgs[i], arg)
		}
	}
}

func TestCompletionGeneratesScript(t *testing.T) {
	root := NewRootCommand(config.Default(), "dev", "none", "unknown")

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"completion", "bash"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(buf.String(), "stackpick") {
		t.Error("bash completion should mention the command name")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{"zero", 0, "0s"},
		{"seconds", 45 * time.Second, "45s"},
		{"one minute", time.Minute, "1m 0s"},
		{"minutes and seconds", 5*time.Minute + 30*time.Second, "5m 30s"},
		{"one hour", time.Hour, "1h 0m"},
		{"hours and minutes", 3*time.Hour + 15*time.Minute, "3h 15m"},
		{"one day", 24 * time.Hour, "1d 0h"},
		{"days and hours", 2*24*time.Hour + 5*time.Hour, "2d 5h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := formatDuration(tt.duration); result != tt.expected {
				t.Errorf("formatDuration(%v) = %q, want %q", tt.duration, result, tt.expected)
			}
		})
	}
}

func TestValidateConfigValue(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		expected interface{}
	}{
		{"bool true lowercase", "catalog.refresh_on_start", "true", true},
		{"bool true uppercase", "catalog.refresh_on_start", "TRUE", true},
		{"bool true yes", "ui.remember_selection", "yes", true},
		{"bool true 1", "ui.mouse", "1", true},
		{"bool false 0", "ui.use_colors", "0", false},
		{"bool false off", "api.require_auth", "off", false},

		{"int page size", "catalog.page_size", "200", 200},
		{"int card width", "ui.card_width", "40", 40},
		{"int grpc port", "api.grpc_port", "50051", 50051},
		{"int rest port", "api.rest_port", "8080", 8080},
		{"int logging max backups", "logging.max_backups", "5", 5},

		{"duration refresh interval", "catalog.refresh_interval", "1h", time.Hour},
		{"duration timeout", "catalog.timeout", "45s", 45 * time.Second},

		{"float rate limit", "catalog.rate_limit", "2.5", 2.5},
		{"float zero rate limit", "catalog.rate_limit", "0", 0.0},

		{"source url", "catalog.source_url", "https://example.com/stackscripts", "https://example.com/stackscripts"},
		{"asset root trims slash", "assets.root", "https://cdn.example.com/", "https://cdn.example.com"},
		{"theme", "ui.theme", "dark", "dark"},
		{"log level", "logging.level", "debug", "debug"},
		{"log format", "logging.format", "json", "json"},
		{"token", "catalog.token", "secret", "secret"},

		{"case insensitive key", "CATALOG.PAGE_SIZE", "25", 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := validateConfigValue(tt.key, tt.value)
			if err != nil {
				t.Fatalf("validateConfigValue(%q, %q) error = %v", tt.key, tt.value, err)
			}
			if result != tt.expected {
				t.Errorf("validateConfigValue(%q, %q) = %v (%T), want %v (%T)",
					tt.key, tt.value, result, result, tt.expected, tt.expected)
			}
		})
	}
}

func TestValidateConfigValueRejects(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantMsg string
	}{
		{"unknown key", "catalog.pagesize", "100", "did you mean"},
		{"unknown section", "server.port", "80", "unknown config key"},
		{"bad bool", "ui.mouse", "maybe", "not a boolean"},
		{"bad int", "catalog.page_size", "lots", "not an integer"},
		{"page size too small", "catalog.page_size", "10", "out of range"},
		{"port too large", "api.rest_port", "70000", "out of range"},
		{"refresh too short", "catalog.refresh_interval", "30s", "at least 1m"},
		{"bad duration", "catalog.timeout", "soon", "catalog.timeout"},
		{"negative rate", "catalog.rate_limit", "-1", "non-negative"},
		{"source url scheme", "catalog.source_url", "ftp://example.com", "invalid URL"},
		{"asset root without host", "assets.root", "/static", "invalid URL"},
		{"unknown theme", "ui.theme", "solarized", "unknown theme"},
		{"bad level", "logging.level", "trace", "logging.level"},
		{"bad format", "logging.format", "xml", "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validateConfigValue(tt.key, tt.value)
			if err == nil {
				t.Fatalf("validateConfigValue(%q, %q) should fail", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestUnknownKeySuggestsClosest(t *testing.T) {
	err := unknownKeyError("catalog.refresh_intrval")
	if !strings.Contains(err.Error(), "catalog.refresh_interval") {
		t.Errorf("error = %q, want a catalog.refresh_interval suggestion", err)
	}
}

func TestCompleteConfigKeys(t *testing.T) {
	got, _ := completeConfigKeys(nil, nil, "assets.")
	if len(got) != 1 || got[0] != "assets.root" {
		t.Errorf("completions = %v, want [assets.root]", got)
	}
	if got, _ := completeConfigKeys(nil, []string{"ui.theme"}, ""); got != nil {
		t.Errorf("value completions = %v, want none", got)
	}
}

func TestWriteStructured(t *testing.T) {
	items := toListItems(testApps()[:2])

	var buf bytes.Buffer
	if err := writeStructured(&buf, "json", items); err != nil {
		t.Fatalf("json error = %v", err)
	}
	var decoded []AppListItem
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded) != 2 || decoded[1].Label != "Let's Encrypt" {
		t.Errorf("decoded = %+v", decoded)
	}

	buf.Reset()
	if err := writeStructured(&buf, "yaml", items); err != nil {
		t.Fatalf("yaml error = %v", err)
	}
	var fromYAML []AppListItem
	if err := yaml.Unmarshal(buf.Bytes(), &fromYAML); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if len(fromYAML) != 2 || fromYAML[0].ID != 401697 {
		t.Errorf("fromYAML = %+v", fromYAML)
	}

	if err := writeStructured(&buf, "xml", items); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestFilterByImage(t *testing.T) {
	tests := []struct {
		image string
		want  []int
	}{
		{"linode/ubuntu22.04", []int{401697, 401709}},
		{"linode/debian11", []int{401701, 401709}},
		{"linode/arch", []int{401709}},
	}

	for _, tt := range tests {
		t.Run(tt.image, func(t *testing.T) {
			got := filterByImage(testApps(), tt.image)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d apps, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("got[%d].ID = %d, want %d", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestOutputAppTable(t *testing.T) {
	var out, errOut bytes.Buffer
	printer := output.NewPrinterTo(&out, &errOut, true)

	if err := outputAppTable(toListItems(testApps()), printer); err != nil {
		t.Fatalf("outputAppTable() error = %v", err)
	}
	s := out.String()
	for _, want := range []string{"ID", "APP", "WordPress", "Let's Encrypt", "3 apps"} {
		if !strings.Contains(s, want) {
			t.Errorf("table missing %q:\n%s", want, s)
		}
	}
	if strings.Index(s, "WordPress") > strings.Index(s, "Plex") {
		t.Error("apps should keep catalog order")
	}
}

func TestTUILocation(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		appID    int
		showInfo bool
		wantID   string
		wantInfo string
	}{
		{"empty", "", 0, false, "", ""},
		{"app id", "", 401697, false, "401697", ""},
		{"app id with info", "", 401697, true, "401697", "true"},
		{"query wins", "appID=7&showInfo=1", 401697, false, "7", "1"},
		{"query with question mark", "?appID=9", 0, false, "9", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := tuiLocation(tt.query, tt.appID, tt.showInfo)
			if got := loc.Param(selectapp.ParamAppID); got != tt.wantID {
				t.Errorf("appID = %q, want %q", got, tt.wantID)
			}
			if got := loc.Param(selectapp.ParamShowInfo); got != tt.wantInfo {
				t.Errorf("showInfo = %q, want %q", got, tt.wantInfo)
			}
		})
	}
}

func TestCheckURL(t *testing.T) {
	tests := []struct {
		raw  string
		want CheckStatus
	}{
		{"https://api.linode.com/v4/linode/stackscripts", CheckOK},
		{"http://localhost:8080", CheckOK},
		{"ftp://example.com", CheckWarning},
		{"not a url", CheckWarning},
		{"", CheckWarning},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := checkURL("x", tt.raw, CheckWarning).Status; got != tt.want {
				t.Errorf("status = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckSource(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   CheckStatus
	}{
		{"ok", http.StatusOK, CheckOK},
		{"unauthorized", http.StatusUnauthorized, CheckWarning},
		{"server error", http.StatusInternalServerError, CheckError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAuth, gotPage string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				gotPage = r.URL.Query().Get("page")
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			cfg := config.Default()
			cfg.Catalog.SourceURL = srv.URL
			cfg.Catalog.Token = "secret"

			res := checkSource(context.Background(), cfg, srv.Client())
			if res.Status != tt.want {
				t.Errorf("status = %v, want %v (%s)", res.Status, tt.want, res.Message)
			}
			if gotAuth != "Bearer secret" {
				t.Errorf("Authorization = %q", gotAuth)
			}
			if gotPage != "1" {
				t.Errorf("page = %q", gotPage)
			}
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		cfg := config.Default()
		cfg.Catalog.SourceURL = url
		if res := checkSource(context.Background(), cfg, http.DefaultClient); res.Status != CheckError {
			t.Errorf("status = %v, want CheckError", res.Status)
		}
	})

	t.Run("offline", func(t *testing.T) {
		res := runSourceChecks(context.Background(), config.Default(), true)
		if len(res) != 1 || res[0].Status != CheckSkipped {
			t.Errorf("results = %+v", res)
		}
	})
}

func TestCheckCatalogCache(t *testing.T) {
	cfg := config.Default()
	ctx := context.Background()

	store := &memStore{}
	if got := checkCatalogCache(ctx, cfg, store).Status; got != CheckWarning {
		t.Errorf("empty cache status = %v, want CheckWarning", got)
	}

	store.SaveCatalogCache(ctx, []byte(`{}`), "")
	if got := checkCatalogCache(ctx, cfg, store).Status; got != CheckOK {
		t.Errorf("fresh cache status = %v, want CheckOK", got)
	}

	store.at = time.Now().Add(-2 * cfg.Catalog.RefreshInterval)
	if got := checkCatalogCache(ctx, cfg, store).Status; got != CheckWarning {
		t.Errorf("stale cache status = %v, want CheckWarning", got)
	}
}

func TestRunConfigChecksAuth(t *testing.T) {
	cfg := config.Default()
	cfg.API.RequireAuth = true

	var found bool
	for _, r := range runConfigChecks(cfg) {
		if r.Name == "API Auth" {
			found = true
			if r.Status != CheckError {
				t.Errorf("status = %v, want CheckError", r.Status)
			}
		}
	}
	if !found {
		t.Error("expected an API Auth check when auth is required without a token")
	}
}

func TestSummarize(t *testing.T) {
	var out, errOut bytes.Buffer
	printer := output.NewPrinterTo(&out, &errOut, true)

	if err := summarize(printer, []CheckResult{{Status: CheckOK}, {Status: CheckWarning}}); err != nil {
		t.Errorf("warnings only should pass, got %v", err)
	}
	if err := summarize(printer, []CheckResult{{Status: CheckOK}, {Status: CheckError}}); err == nil {
		t.Error("errors should fail")
	}
}

func TestServe(t *testing.T) {
	catalogJSON, err := json.Marshal(&catalog.Catalog{Version: "1", Apps: testApps()})
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.API.EnableREST = true
	cfg.API.EnableGRPC = true
	cfg.API.RESTPort = 0
	cfg.API.GRPCPort = 0
	cfg.Catalog.RefreshInterval = time.Hour
	catMgr := catalog.NewManager(cfg, &memStore{data: catalogJSON, at: time.Now()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	announced := make(chan string, 2)
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, cfg, catMgr, "127.0.0.1", func(format string, args ...interface{}) {
			announced <- fmt.Sprintf(format, args...)
		})
	}()

	var restAddr string
	for i := 0; i < 2; i++ {
		select {
		case msg := <-announced:
			if strings.HasPrefix(msg, "REST API listening on ") {
				restAddr = strings.Fields(strings.TrimPrefix(msg, "REST API listening on "))[0]
			}
		case err := <-done:
			t.Fatalf("serve() returned early: %v", err)
		case <-time.After(5 * time.Second):
			t.Fatal("servers never started")
		}
	}
	if restAddr == "" {
		t.Fatal("REST address was not announced")
	}

	resp, err := http.Get(restAddr + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve() did not stop")
	}
}
