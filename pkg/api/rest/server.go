// Package rest serves the app catalog and the HTML Select App panel over HTTP.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kevinelliott/stackpick/pkg/catalog"
	"github.com/kevinelliott/stackpick/pkg/config"
	"github.com/kevinelliott/stackpick/pkg/selectapp"
)

// ServerConfig configures the listener.
type ServerConfig struct {
	Address string
}

// Server is the REST API server.
type Server struct {
	config  *config.Config
	catalog *catalog.Manager
	logger  *slog.Logger
	router  chi.Router

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates a new REST server.
func NewServer(cfg *config.Config, catMgr *catalog.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config:  cfg,
		catalog: catMgr,
		logger:  logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)
	r.Use(jsonContentType)

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/apps", s.handleListApps)
			r.Get("/apps/search", s.handleSearchApps)
			r.Get("/apps/{id}", s.handleGetApp)
			r.Post("/catalog/refresh", s.handleRefreshCatalog)
		})

		r.Get("/panel", s.handlePanel)
	})

	return r
}

// Start starts listening and serving in the background.
func (s *Server) Start(ctx context.Context, cfg ServerConfig) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Address, err)
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.listener = ln
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("rest server stopped", "error", err)
		}
	}()

	s.logger.Info("rest server listening", "address", ln.Addr().String())
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop rest server: %w", err)
	}
	return nil
}

// Address returns the bound address, or "" before Start.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Middleware

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.config.API.RequireAuth {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" || token != s.config.API.AuthToken {
			s.respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListApps(w http.ResponseWriter, r *http.Request) {
	cat, err := s.catalog.Get(r.Context())
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"apps":         cat.Apps,
		"count":        len(cat.Apps),
		"version":      cat.Version,
		"last_updated": cat.LastUpdated,
	})
}

func (s *Server) handleSearchApps(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	apps, err := s.catalog.Search(r.Context(), query)
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if apps == nil {
		apps = []catalog.App{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"apps":  apps,
		"query": query,
		"count": len(apps),
	})
}

func (s *Server) handleGetApp(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid app id")
		return
	}
	app, err := s.catalog.GetApp(r.Context(), id)
	if errors.Is(err, catalog.ErrAppNotFound) {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"app": app})
}

func (s *Server) handleRefreshCatalog(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Refresh(r.Context()); err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	cat, err := s.catalog.Get(r.Context())
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "refreshed",
		"count":   len(cat.Apps),
		"version": cat.Version,
	})
}

// panelRequest holds the selection for one rendering of the panel.
type panelRequest struct {
	selectedID  int
	label       string
	drawerLabel string
}

func (p *panelRequest) handleClick(id int, label, _ string, _ []string, _ []catalog.UserDefinedField) {
	p.selectedID = id
	p.label = label
}

func (p *panelRequest) openDrawer(label string) {
	p.drawerLabel = label
}

// handlePanel renders the Select App panel. appID and showInfo drive the
// pre-selection, selected carries the current selection between requests,
// info opens the drawer for one card and disabled locks the cards.
func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := &panelRequest{}
	req.selectedID, _ = strconv.Atoi(q.Get("selected"))
	disabled, _ := strconv.ParseBool(q.Get("disabled"))

	data := s.catalog.Load(r.Context())
	props := func() selectapp.Props {
		return selectapp.Props{
			AppsData:    data,
			SelectedID:  req.selectedID,
			Disabled:    disabled,
			HandleClick: req.handleClick,
			OpenDrawer:  req.openDrawer,
		}
	}

	panel := selectapp.NewPanel(selectapp.LocationFromURL(r.URL), s.config.Assets.Root)
	panel.Mount(props())

	if infoID, err := strconv.Atoi(q.Get("info")); err == nil {
		if card, ok := panel.Card(infoID); ok {
			card.Click(selectapp.TargetInfo)
		}
	}
	panel.Update(props())

	opts := selectapp.HTMLOptions{
		SelectHref: func(id int) string { return panelHref(id, 0, disabled) },
		InfoHref:   func(id int) string { return panelHref(req.selectedID, id, disabled) },
	}
	if req.drawerLabel != "" {
		if app, ok := findApp(data.Instances, req.drawerLabel); ok {
			opts.Drawer = &app
		}
	}
	for _, app := range data.Instances {
		if app.ID == req.selectedID {
			opts.Selection = app.DisplayLabel()
			break
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := selectapp.RenderHTMLPage(w, panel, opts); err != nil {
		s.logger.Error("failed to render panel", "error", err)
	}
}

func panelHref(selected, info int, disabled bool) string {
	v := url.Values{}
	if selected != 0 {
		v.Set("selected", strconv.Itoa(selected))
	}
	if info != 0 {
		v.Set("info", strconv.Itoa(info))
	}
	if disabled {
		v.Set("disabled", "true")
	}
	if len(v) == 0 {
		return "/panel"
	}
	return "/panel?" + v.Encode()
}

// findApp matches either the raw or the decoded label.
func findApp(apps []catalog.App, label string) (catalog.App, bool) {
	for _, app := range apps {
		if app.Label == label || app.DisplayLabel() == label {
			return app, true
		}
	}
	return catalog.App{}, false
}

// Helpers

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
