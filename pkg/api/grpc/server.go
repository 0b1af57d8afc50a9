// Package grpc exposes the app catalog as a gRPC service.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/kevinelliott/stackpick/pkg/catalog"
	"github.com/kevinelliott/stackpick/pkg/config"
)

// ServerConfig configures the listener.
type ServerConfig struct {
	Address string
}

// Server implements CatalogServer.
type Server struct {
	config  *config.Config
	catalog *catalog.Manager
	logger  *slog.Logger

	mu         sync.Mutex
	grpcServer *grpc.Server
	listener   net.Listener

	subMu       sync.RWMutex
	subscribers map[chan *CatalogEvent]struct{}
}

// NewServer creates a new gRPC server.
func NewServer(cfg *config.Config, catMgr *catalog.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config:      cfg,
		catalog:     catMgr,
		logger:      logger,
		subscribers: make(map[chan *CatalogEvent]struct{}),
	}
	catMgr.AddRefreshListener(func(cat *catalog.Catalog) {
		s.broadcast(&CatalogEvent{
			Version:   cat.Version,
			Count:     len(cat.Apps),
			Timestamp: time.Now(),
		})
	})
	return s
}

// Start listens on cfg.Address and serves in the background.
func (s *Server) Start(ctx context.Context, cfg ServerConfig) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Address, err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener in the background.
func (s *Server) Serve(ln net.Listener) error {
	gs := grpc.NewServer(grpc.UnaryInterceptor(s.logUnary))
	gs.RegisterService(&ServiceDesc, s)

	s.mu.Lock()
	if s.grpcServer != nil {
		s.mu.Unlock()
		ln.Close()
		return errors.New("grpc server already started")
	}
	s.grpcServer = gs
	s.listener = ln
	s.mu.Unlock()

	go func() {
		if err := gs.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			s.logger.Error("grpc server stopped", "error", err)
		}
	}()

	s.logger.Info("grpc server listening", "address", ln.Addr().String())
	return nil
}

// Stop gracefully stops the server, or forcibly once ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	gs := s.grpcServer
	s.grpcServer = nil
	s.listener = nil
	s.mu.Unlock()

	if gs == nil {
		return nil
	}

	s.closeSubscribers()

	done := make(chan struct{})
	go func() {
		gs.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		gs.Stop()
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

// RequestIDHeader carries the id assigned to each unary call.
const RequestIDHeader = "x-request-id"

func (s *Server) logUnary(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	id := uuid.NewString()
	if err := grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, id)); err != nil {
		s.logger.Debug("failed to set request id header", "error", err)
	}
	resp, err := handler(ctx, req)
	s.logger.Debug("rpc",
		"request_id", id,
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	)
	return resp, err
}

// ListApps lists every app in catalog order.
func (s *Server) ListApps(ctx context.Context, req *ListAppsRequest) (*ListAppsResponse, error) {
	cat, err := s.catalog.Get(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "catalog unavailable: %v", err)
	}
	return &ListAppsResponse{
		Apps:        cat.Apps,
		Version:     cat.Version,
		LastUpdated: cat.LastUpdated,
	}, nil
}

// GetApp returns one app by id.
func (s *Server) GetApp(ctx context.Context, req *GetAppRequest) (*GetAppResponse, error) {
	if req.ID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "app id is required")
	}
	app, err := s.catalog.GetApp(ctx, req.ID)
	if errors.Is(err, catalog.ErrAppNotFound) {
		return nil, status.Error(codes.NotFound, err.Error())
	}
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "catalog unavailable: %v", err)
	}
	return &GetAppResponse{App: app}, nil
}

// SearchApps searches by label and description.
func (s *Server) SearchApps(ctx context.Context, req *SearchAppsRequest) (*SearchAppsResponse, error) {
	apps, err := s.catalog.Search(ctx, req.Query)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "catalog unavailable: %v", err)
	}
	if apps == nil {
		apps = []catalog.App{}
	}
	return &SearchAppsResponse{Apps: apps}, nil
}

// RefreshCatalog refetches the catalog from its source.
func (s *Server) RefreshCatalog(ctx context.Context, req *RefreshCatalogRequest) (*RefreshCatalogResponse, error) {
	if err := s.catalog.Refresh(ctx); err != nil {
		return nil, status.Errorf(codes.Unavailable, "refresh failed: %v", err)
	}
	cat, err := s.catalog.Get(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "catalog unavailable: %v", err)
	}
	return &RefreshCatalogResponse{Version: cat.Version, Count: len(cat.Apps)}, nil
}

// WatchCatalog streams an event each time the catalog changes.
func (s *Server) WatchCatalog(req *WatchCatalogRequest, stream grpc.ServerStream) error {
	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	for {
		select {
		case <-stream.Context().Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if err := stream.SendMsg(ev); err != nil {
				return err
			}
		}
	}
}

// Subscribe returns a channel receiving catalog events.
func (s *Server) Subscribe() chan *CatalogEvent {
	ch := make(chan *CatalogEvent, 16)
	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscription.
func (s *Server) Unsubscribe(ch chan *CatalogEvent) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if _, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Server) broadcast(ev *CatalogEvent) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			s.logger.Warn("dropping catalog event for slow subscriber")
		}
	}
}

func (s *Server) closeSubscribers() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}
