package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/kevinelliott/stackpick/pkg/config"
	"github.com/kevinelliott/stackpick/pkg/storage"
)

// maxPages bounds pagination against a misbehaving source.
const maxPages = 50

// ProgressFunc is called after each fetched page.
type ProgressFunc func(page, pages int)

// Manager loads the catalog from memory, the local cache, or the remote
// source, in that order.
type Manager struct {
	config     *config.Config
	store      storage.Store
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	refreshes  singleflight.Group

	mu        sync.RWMutex
	catalog   *Catalog
	etag      string
	fetchedAt time.Time
	progress  ProgressFunc
	listeners []func(*Catalog)
}

// NewManager creates a new catalog manager.
func NewManager(cfg *config.Config, store storage.Store) *Manager {
	timeout := cfg.Catalog.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.Catalog.RateLimit > 0 {
		limit = rate.Limit(cfg.Catalog.RateLimit)
	}
	return &Manager{
		config:     cfg,
		store:      store,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     slog.Default().With("component", "catalog"),
	}
}

// SetLogger replaces the manager's logger.
func (m *Manager) SetLogger(l *slog.Logger) {
	m.logger = l
}

// OnProgress registers a callback invoked while pages are fetched.
func (m *Manager) OnProgress(fn ProgressFunc) {
	m.mu.Lock()
	m.progress = fn
	m.mu.Unlock()
}

// AddRefreshListener registers fn to run after a refresh replaces the
// catalog. A not-modified response does not notify.
func (m *Manager) AddRefreshListener(fn func(*Catalog)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Get returns the catalog, fetching it if nothing usable is cached. A stale
// catalog is refreshed; if the refresh fails the stale copy is returned.
func (m *Manager) Get(ctx context.Context) (*Catalog, error) {
	m.mu.RLock()
	cat, fetchedAt := m.catalog, m.fetchedAt
	m.mu.RUnlock()

	if cat == nil {
		if err := m.loadFromStore(ctx); err != nil && !errors.Is(err, storage.ErrNoCache) {
			m.logger.Warn("ignoring unreadable catalog cache", "error", err)
		}
		m.mu.RLock()
		cat, fetchedAt = m.catalog, m.fetchedAt
		m.mu.RUnlock()
	}

	if cat != nil && time.Since(fetchedAt) < m.config.Catalog.RefreshInterval {
		return cat, nil
	}

	if err := m.Refresh(ctx); err != nil {
		if cat != nil {
			m.logger.Warn("catalog refresh failed, using cached copy", "error", err)
			return cat, nil
		}
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.catalog, nil
}

// GetApp returns an app by id.
func (m *Manager) GetApp(ctx context.Context, id int) (App, error) {
	cat, err := m.Get(ctx)
	if err != nil {
		return App{}, err
	}
	app, ok := cat.GetApp(id)
	if !ok {
		return App{}, fmt.Errorf("%w: %d", ErrAppNotFound, id)
	}
	return app, nil
}

// Search searches the catalog by label and description.
func (m *Manager) Search(ctx context.Context, query string) ([]App, error) {
	cat, err := m.Get(ctx)
	if err != nil {
		return nil, err
	}
	return cat.Search(query), nil
}

// Load returns panel input: the loaded apps or the load failure message.
func (m *Manager) Load(ctx context.Context) AppsData {
	cat, err := m.Get(ctx)
	if err != nil {
		return AppsData{Error: err.Error()}
	}
	return cat.Data()
}

func (m *Manager) loadFromStore(ctx context.Context) error {
	if m.store == nil {
		return storage.ErrNoCache
	}
	data, etag, updated, err := m.store.GetCatalogCache(ctx)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return storage.ErrNoCache
	}

	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return fmt.Errorf("failed to decode cached catalog: %w", err)
	}

	m.mu.Lock()
	m.catalog = &cat
	m.etag = etag
	m.fetchedAt = updated
	m.mu.Unlock()

	m.logger.Debug("catalog loaded from cache", "apps", len(cat.Apps), "age", time.Since(updated).Round(time.Second))
	return nil
}

// Refresh fetches every page from the remote source and replaces the cache.
// Concurrent callers share one fetch.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err, shared := m.refreshes.Do("refresh", func() (interface{}, error) {
		return nil, m.refresh(ctx)
	})
	if shared {
		m.logger.Debug("joined in-flight catalog refresh")
	}
	return err
}

func (m *Manager) refresh(ctx context.Context) error {
	m.mu.RLock()
	etag := m.etag
	if m.catalog == nil {
		etag = ""
	}
	progress := m.progress
	m.mu.RUnlock()

	var (
		apps      []App
		newEtag   string
		unchanged bool
	)
	pages := 1

	for page := 1; page <= pages && page <= maxPages; page++ {
		if err := m.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting to fetch page %d: %w", page, err)
		}
		resp, err := m.fetchPage(ctx, page, etag)
		if err != nil {
			return err
		}
		if resp.notModified {
			unchanged = true
			break
		}
		if page == 1 {
			newEtag = resp.etag
		}
		if resp.Pages > pages {
			pages = resp.Pages
		}
		for _, s := range resp.Data {
			apps = append(apps, s.toApp())
		}
		if progress != nil {
			progress(page, pages)
		}
	}

	now := time.Now()

	if unchanged {
		m.mu.Lock()
		m.fetchedAt = now
		cat := m.catalog
		m.mu.Unlock()
		m.logger.Debug("catalog not modified", "etag", etag)
		return m.persist(ctx, cat, etag)
	}

	apps, dropped := validApps(apps)
	for _, err := range dropped {
		m.logger.Warn("skipping invalid app", "error", err)
	}
	cat := &Catalog{
		Version:     catalogVersion(newEtag, now),
		LastUpdated: now,
		Apps:        apps,
	}

	m.mu.Lock()
	m.catalog = cat
	m.etag = newEtag
	m.fetchedAt = now
	listeners := m.listeners
	m.mu.Unlock()

	m.logger.Info("catalog refreshed", "apps", len(apps), "skipped", len(dropped), "pages", pages)
	for _, fn := range listeners {
		fn(cat)
	}
	return m.persist(ctx, cat, newEtag)
}

func (m *Manager) persist(ctx context.Context, cat *Catalog, etag string) error {
	if m.store == nil || cat == nil {
		return nil
	}
	data, err := json.Marshal(cat)
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	if err := m.store.SaveCatalogCache(ctx, data, etag); err != nil {
		return fmt.Errorf("failed to cache catalog: %w", err)
	}
	return nil
}

// pageResponse is one page of the StackScripts-style listing.
type pageResponse struct {
	Data    []stackScript `json:"data"`
	Page    int           `json:"page"`
	Pages   int           `json:"pages"`
	Results int           `json:"results"`

	etag        string
	notModified bool
}

// stackScript is the wire shape of one app on the source.
type stackScript struct {
	ID                int                `json:"id"`
	Username          string             `json:"username"`
	Label             string             `json:"label"`
	Description       string             `json:"description"`
	LogoURL           *string            `json:"logo_url"`
	Images            []string           `json:"images"`
	UserDefinedFields []UserDefinedField `json:"user_defined_fields"`
	DeploymentsActive int                `json:"deployments_active"`
	Updated           string             `json:"updated"`
}

func (s stackScript) toApp() App {
	logo := ""
	if s.LogoURL != nil {
		logo = *s.LogoURL
	}
	images := s.Images
	if images == nil {
		images = []string{}
	}
	fields := s.UserDefinedFields
	if fields == nil {
		fields = []UserDefinedField{}
	}
	return App{
		ID:                s.ID,
		Label:             s.Label,
		Description:       s.Description,
		Username:          s.Username,
		LogoURL:           logo,
		Images:            images,
		UserDefinedFields: fields,
		DeploymentsActive: s.DeploymentsActive,
		Updated:           s.Updated,
	}
}

func (m *Manager) fetchPage(ctx context.Context, page int, etag string) (*pageResponse, error) {
	u, err := url.Parse(m.config.Catalog.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog source URL: %w", err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	if m.config.Catalog.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(m.config.Catalog.PageSize))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if m.config.Catalog.Token != "" {
		req.Header.Set("Authorization", "Bearer "+m.config.Catalog.Token)
	}
	if page == 1 && etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return &pageResponse{notModified: true}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("failed to fetch catalog: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var out pageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode catalog page %d: %w", page, err)
	}
	out.etag = resp.Header.Get("ETag")
	return &out, nil
}

func catalogVersion(etag string, at time.Time) string {
	if etag != "" {
		return etag
	}
	return at.UTC().Format("20060102T150405Z")
}
