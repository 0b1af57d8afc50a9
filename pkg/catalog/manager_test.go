package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kevinelliott/stackpick/pkg/config"
	"github.com/kevinelliott/stackpick/pkg/storage"
)

// mockStore implements storage.Store for testing
type mockStore struct {
	catalogData []byte
	catalogEtag string
	catalogTime time.Time
	saves       int
	err         error
}

func (m *mockStore) Initialize(ctx context.Context) error { return nil }
func (m *mockStore) Close() error                         { return nil }

func (m *mockStore) GetCatalogCache(ctx context.Context) ([]byte, string, time.Time, error) {
	if m.err != nil {
		return nil, "", time.Time{}, m.err
	}
	if m.catalogData == nil {
		return nil, "", time.Time{}, storage.ErrNoCache
	}
	if m.catalogTime.IsZero() {
		return m.catalogData, m.catalogEtag, time.Now(), nil
	}
	return m.catalogData, m.catalogEtag, m.catalogTime, nil
}

func (m *mockStore) SaveCatalogCache(ctx context.Context, data []byte, etag string) error {
	m.catalogData = data
	m.catalogEtag = etag
	m.catalogTime = time.Now()
	m.saves++
	return nil
}

func (m *mockStore) GetSetting(ctx context.Context, key string) (string, error) { return "", nil }
func (m *mockStore) SetSetting(ctx context.Context, key, value string) error    { return nil }
func (m *mockStore) DeleteSetting(ctx context.Context, key string) error        { return nil }

func newTestConfig() *config.Config {
	return &config.Config{
		Catalog: config.CatalogConfig{
			SourceURL:       "http://example.com/stackscripts",
			RefreshInterval: time.Hour,
			Timeout:         5 * time.Second,
			PageSize:        100,
		},
	}
}

func createTestCatalog() *Catalog {
	return &Catalog{
		Version:     "1.0.0",
		LastUpdated: time.Now(),
		Apps: []App{
			{
				ID:          401697,
				Label:       "WordPress",
				Description: "Flexible, open source content management system",
				LogoURL:     "assets/wordpress.svg",
				Images:      []string{"linode/ubuntu22.04"},
				UserDefinedFields: []UserDefinedField{
					{Name: "soa_email_address", Label: "Email address"},
					{Name: "webserver_stack", Label: "Web server", OneOf: "LAMP,LEMP", Default: "LAMP"},
				},
			},
			{
				ID:          401701,
				Label:       "Plex",
				Description: "Organize and stream your media",
				LogoURL:     "",
				Images:      []string{"linode/debian11"},
			},
			{
				ID:          401709,
				Label:       "Rust &#39;Minecraft&#39; Server",
				Description: "Game server for CLI admins",
				LogoURL:     "assets/minecraft.svg",
				Images:      []string{"linode/ubuntu20.04"},
			},
		},
	}
}

// stackScriptPage renders one page of the upstream listing.
func stackScriptPage(t *testing.T, apps []App, page, pages int) []byte {
	t.Helper()
	data := make([]map[string]interface{}, 0, len(apps))
	for _, a := range apps {
		entry := map[string]interface{}{
			"id":                  a.ID,
			"label":               a.Label,
			"description":         a.Description,
			"images":              a.Images,
			"user_defined_fields": a.UserDefinedFields,
		}
		if a.LogoURL != "" {
			entry["logo_url"] = a.LogoURL
		} else {
			entry["logo_url"] = nil
		}
		data = append(data, entry)
	}
	out, err := json.Marshal(map[string]interface{}{
		"data":    data,
		"page":    page,
		"pages":   pages,
		"results": len(apps),
	})
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestNewManager(t *testing.T) {
	cfg := newTestConfig()
	store := &mockStore{}

	mgr := NewManager(cfg, store)

	if mgr == nil {
		t.Fatal("NewManager returned nil")
	}
	if mgr.config != cfg {
		t.Error("config not set correctly")
	}
	if mgr.store != store {
		t.Error("store not set correctly")
	}
	if mgr.httpClient == nil {
		t.Error("httpClient should be initialized")
	}
}

func TestManagerGetFromCache(t *testing.T) {
	catalog := createTestCatalog()
	data, err := json.Marshal(catalog)
	if err != nil {
		t.Fatal(err)
	}

	store := &mockStore{catalogData: data}
	mgr := NewManager(newTestConfig(), store)

	result, err := mgr.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if result.Version != catalog.Version {
		t.Errorf("Version = %q, want %q", result.Version, catalog.Version)
	}
	if len(result.Apps) != len(catalog.Apps) {
		t.Fatalf("Apps count = %d, want %d", len(result.Apps), len(catalog.Apps))
	}
	for i := range catalog.Apps {
		if result.Apps[i].ID != catalog.Apps[i].ID {
			t.Errorf("Apps[%d].ID = %d, want %d (source order)", i, result.Apps[i].ID, catalog.Apps[i].ID)
		}
	}
}

func TestManagerGetCached(t *testing.T) {
	data, _ := json.Marshal(createTestCatalog())

	store := &mockStore{catalogData: data}
	mgr := NewManager(newTestConfig(), store)
	ctx := context.Background()

	result1, err := mgr.Get(ctx)
	if err != nil {
		t.Fatalf("First Get() error = %v", err)
	}

	newCatalog := createTestCatalog()
	newCatalog.Version = "2.0.0"
	store.catalogData, _ = json.Marshal(newCatalog)

	// Second call should return the in-memory copy
	result2, err := mgr.Get(ctx)
	if err != nil {
		t.Fatalf("Second Get() error = %v", err)
	}

	if result1.Version != result2.Version {
		t.Errorf("Cached catalog not returned: got %q, want %q", result2.Version, result1.Version)
	}
}

func TestManagerGetApp(t *testing.T) {
	data, _ := json.Marshal(createTestCatalog())
	mgr := NewManager(newTestConfig(), &mockStore{catalogData: data})
	ctx := context.Background()

	app, err := mgr.GetApp(ctx, 401697)
	if err != nil {
		t.Fatalf("GetApp(401697) error = %v", err)
	}
	if app.Label != "WordPress" {
		t.Errorf("Label = %q, want %q", app.Label, "WordPress")
	}

	_, err = mgr.GetApp(ctx, 1)
	if !errors.Is(err, ErrAppNotFound) {
		t.Errorf("GetApp(1) error = %v, want ErrAppNotFound", err)
	}
}

func TestManagerSearch(t *testing.T) {
	data, _ := json.Marshal(createTestCatalog())
	mgr := NewManager(newTestConfig(), &mockStore{catalogData: data})
	ctx := context.Background()

	tests := []struct {
		query    string
		expected int
	}{
		{"wordpress", 1},
		{"plex", 1},
		{"minecraft", 1},
		{"stream", 1},
		{"", 3},
		{"zzzzqqq", 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			results, err := mgr.Search(ctx, tt.query)
			if err != nil {
				t.Fatalf("Search(%q) error = %v", tt.query, err)
			}
			if len(results) != tt.expected {
				t.Errorf("Search(%q) returned %d results, want %d", tt.query, len(results), tt.expected)
			}
		})
	}
}

func TestManagerRefresh(t *testing.T) {
	catalog := createTestCatalog()

	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("ETag", `"abc"`)
		w.Write(stackScriptPage(t, catalog.Apps, 1, 1))
	}))
	defer server.Close()

	cfg := newTestConfig()
	cfg.Catalog.SourceURL = server.URL + "/v4/linode/stackscripts"
	cfg.Catalog.Token = "secret"
	store := &mockStore{}
	mgr := NewManager(cfg, store)

	ctx := context.Background()
	if err := mgr.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if store.catalogData == nil {
		t.Error("Catalog should be saved to cache")
	}
	if store.catalogEtag != `"abc"` {
		t.Errorf("cached etag = %q, want %q", store.catalogEtag, `"abc"`)
	}

	result, err := mgr.Get(ctx)
	if err != nil {
		t.Fatalf("Get() after Refresh() error = %v", err)
	}
	if len(result.Apps) != 3 {
		t.Fatalf("Apps count = %d, want 3", len(result.Apps))
	}
	if result.Apps[1].LogoURL != "" {
		t.Errorf("null logo_url should become empty string, got %q", result.Apps[1].LogoURL)
	}
	if result.Apps[1].UserDefinedFields == nil {
		t.Error("missing user_defined_fields should become an empty list")
	}
	if result.Version != `"abc"` {
		t.Errorf("Version = %q, want etag", result.Version)
	}
}

func TestManagerRefreshPaginates(t *testing.T) {
	catalog := createTestCatalog()

	var seenProgress []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if r.URL.Query().Get("page_size") != "100" {
			t.Errorf("page_size = %q, want 100", r.URL.Query().Get("page_size"))
		}
		w.Header().Set("Content-Type", "application/json")
		switch page {
		case 1:
			w.Write(stackScriptPage(t, catalog.Apps[:2], 1, 2))
		case 2:
			w.Write(stackScriptPage(t, catalog.Apps[2:], 2, 2))
		default:
			t.Errorf("unexpected page %d", page)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cfg := newTestConfig()
	cfg.Catalog.SourceURL = server.URL
	mgr := NewManager(cfg, &mockStore{})
	mgr.OnProgress(func(page, pages int) {
		seenProgress = append(seenProgress, fmt.Sprintf("%d/%d", page, pages))
	})

	if err := mgr.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	cat, err := mgr.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []int{401697, 401701, 401709}
	for i, id := range want {
		if cat.Apps[i].ID != id {
			t.Errorf("Apps[%d].ID = %d, want %d", i, cat.Apps[i].ID, id)
		}
	}
	if fmt.Sprint(seenProgress) != "[1/2 2/2]" {
		t.Errorf("progress = %v, want [1/2 2/2]", seenProgress)
	}
}

func TestManagerRefreshNotModified(t *testing.T) {
	catalog := createTestCatalog()
	var requests int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write(stackScriptPage(t, catalog.Apps, 1, 1))
	}))
	defer server.Close()

	cfg := newTestConfig()
	cfg.Catalog.SourceURL = server.URL
	store := &mockStore{}
	mgr := NewManager(cfg, store)
	ctx := context.Background()

	if err := mgr.Refresh(ctx); err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}
	if err := mgr.Refresh(ctx); err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}

	if got := atomic.LoadInt32(&requests); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
	cat, _ := mgr.Get(ctx)
	if len(cat.Apps) != 3 {
		t.Errorf("Apps count = %d, want the cached 3", len(cat.Apps))
	}
	if store.saves != 2 {
		t.Errorf("saves = %d, want 2 (304 refreshes the cache timestamp)", store.saves)
	}
}

func TestManagerRefreshSkipsInvalidApps(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"id":1,"label":"WordPress"},
			{"id":2,"label":""},
			{"id":0,"label":"No ID"},
			{"id":1,"label":"WordPress again"},
			{"id":3,"label":"Plex"}
		],"page":1,"pages":1}`))
	}))
	defer server.Close()

	cfg := newTestConfig()
	cfg.Catalog.SourceURL = server.URL
	mgr := NewManager(cfg, &mockStore{})

	data := mgr.Load(context.Background())
	if data.Error != "" {
		t.Fatalf("Load() error = %q, want the valid apps", data.Error)
	}

	var got []string
	for _, app := range data.Instances {
		got = append(got, fmt.Sprintf("%d:%s", app.ID, app.Label))
	}
	if fmt.Sprint(got) != "[1:WordPress 3:Plex]" {
		t.Errorf("Instances = %v, want [1:WordPress 3:Plex]", got)
	}
}

func TestManagerRefreshAllInvalidIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":0,"label":""}],"page":1,"pages":1}`))
	}))
	defer server.Close()

	cfg := newTestConfig()
	cfg.Catalog.SourceURL = server.URL
	mgr := NewManager(cfg, &mockStore{})

	data := mgr.Load(context.Background())
	if data.Error != "" || !data.Defined() || len(data.Instances) != 0 {
		t.Errorf("Load() = %+v, want a defined empty list", data)
	}
}

func TestManagerRefreshSharesConcurrentFetch(t *testing.T) {
	catalog := createTestCatalog()

	var requests int32
	arrived := make(chan struct{}, 1)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		select {
		case arrived <- struct{}{}:
		default:
		}
		<-release
		w.Write(stackScriptPage(t, catalog.Apps, 1, 1))
	}))
	defer server.Close()

	cfg := newTestConfig()
	cfg.Catalog.SourceURL = server.URL
	mgr := NewManager(cfg, &mockStore{})

	const callers = 5
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() { errs <- mgr.Refresh(context.Background()) }()
	}

	<-arrived
	time.Sleep(100 * time.Millisecond)
	close(release)

	for i := 0; i < callers; i++ {
		if err := <-errs; err != nil {
			t.Errorf("Refresh() error = %v", err)
		}
	}
	if got := atomic.LoadInt32(&requests); got != 1 {
		t.Errorf("requests = %d, want 1 shared fetch", got)
	}
}

func TestManagerRefreshHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := newTestConfig()
	cfg.Catalog.SourceURL = server.URL
	mgr := NewManager(cfg, &mockStore{})

	if err := mgr.Refresh(context.Background()); err == nil {
		t.Error("Refresh() should return error on HTTP error")
	}
}

func TestManagerStaleCacheFallsBackOnError(t *testing.T) {
	data, _ := json.Marshal(createTestCatalog())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := newTestConfig()
	cfg.Catalog.SourceURL = server.URL
	store := &mockStore{catalogData: data, catalogTime: time.Now().Add(-2 * time.Hour)}
	mgr := NewManager(cfg, store)

	cat, err := mgr.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v, want stale catalog", err)
	}
	if len(cat.Apps) != 3 {
		t.Errorf("Apps count = %d, want 3", len(cat.Apps))
	}
}

func TestManagerLoad(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		data, _ := json.Marshal(createTestCatalog())
		mgr := NewManager(newTestConfig(), &mockStore{catalogData: data})

		apps := mgr.Load(context.Background())
		if !apps.Defined() {
			t.Fatal("Load() should define the instances")
		}
		if apps.Error != "" || apps.Loading {
			t.Errorf("Load() = %+v, want clean data", apps)
		}
	})

	t.Run("failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		cfg := newTestConfig()
		cfg.Catalog.SourceURL = server.URL
		mgr := NewManager(cfg, &mockStore{})

		apps := mgr.Load(context.Background())
		if apps.Defined() {
			t.Error("failed Load() should leave instances undefined")
		}
		if apps.Error == "" {
			t.Error("failed Load() should carry an error message")
		}
	})
}

func TestManagerRefreshListeners(t *testing.T) {
	catalog := createTestCatalog()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write(stackScriptPage(t, catalog.Apps, 1, 1))
	}))
	defer server.Close()

	cfg := newTestConfig()
	cfg.Catalog.SourceURL = server.URL
	mgr := NewManager(cfg, &mockStore{})

	var notified []int
	mgr.AddRefreshListener(func(c *Catalog) {
		notified = append(notified, len(c.Apps))
	})

	ctx := context.Background()
	if err := mgr.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	if fmt.Sprint(notified) != "[3]" {
		t.Errorf("notified = %v, want one notification for the changed catalog", notified)
	}
}

func TestManagerRefreshRateLimited(t *testing.T) {
	catalog := createTestCatalog()

	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		w.Write(stackScriptPage(t, catalog.Apps[page-1:page], page, 3))
	}))
	defer server.Close()

	cfg := newTestConfig()
	cfg.Catalog.SourceURL = server.URL
	cfg.Catalog.RateLimit = 20
	mgr := NewManager(cfg, &mockStore{})

	start := time.Now()
	if err := mgr.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("3 pages at 20/s took %v, want at least 100ms", elapsed)
	}
	if got := atomic.LoadInt32(&requests); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := mgr.Refresh(ctx); err == nil {
		t.Error("Refresh() with a cancelled context should fail")
	}
}
