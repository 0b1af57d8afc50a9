package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kevinelliott/stackpick/internal/logging"
	grpcapi "github.com/kevinelliott/stackpick/pkg/api/grpc"
	"github.com/kevinelliott/stackpick/pkg/api/rest"
	"github.com/kevinelliott/stackpick/pkg/catalog"
	"github.com/kevinelliott/stackpick/pkg/config"
)

// NewServeCommand creates the serve command.
func NewServeCommand(cfg *config.Config) *cobra.Command {
	var (
		host     string
		restPort int
		grpcPort int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over REST and gRPC",
		Long: `Run the REST API (including the HTML select-app panel at /panel) and
the gRPC catalog service, as enabled by api.enable_rest and api.enable_grpc.

The catalog is refreshed every catalog.refresh_interval while serving.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("rest-port") {
				cfg.API.RESTPort = restPort
			}
			if cmd.Flags().Changed("grpc-port") {
				cfg.API.GRPCPort = grpcPort
			}
			if !cfg.API.EnableREST && !cfg.API.EnableGRPC {
				return errors.New("nothing to serve: enable api.enable_rest or api.enable_grpc")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			catMgr, store, err := openCatalog(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			watchLogging(cmd)

			return serve(ctx, cfg, catMgr, host, newPrinter(cmd, cfg).Info)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "address to bind")
	cmd.Flags().IntVar(&restPort, "rest-port", 0, "REST port (overrides api.rest_port)")
	cmd.Flags().IntVar(&grpcPort, "grpc-port", 0, "gRPC port (overrides api.grpc_port)")

	return cmd
}

// serve runs the enabled servers until ctx is done.
func serve(ctx context.Context, cfg *config.Config, catMgr *catalog.Manager, host string, announce func(string, ...interface{})) error {
	logger := logging.ForComponent(logging.CompCLI)

	if cfg.Catalog.RefreshOnStart {
		if err := catMgr.Refresh(ctx); err != nil {
			logger.Warn("initial catalog refresh failed", "error", err)
		}
	}

	var (
		restServer *rest.Server
		grpcServer *grpcapi.Server
	)

	if cfg.API.EnableREST {
		restServer = rest.NewServer(cfg, catMgr, logging.ForComponent(logging.CompHTTP))
		addr := net.JoinHostPort(host, strconv.Itoa(cfg.API.RESTPort))
		if err := restServer.Start(ctx, rest.ServerConfig{Address: addr}); err != nil {
			return err
		}
		announce("REST API listening on http://%s (panel at /panel)", restServer.Address())
	}

	if cfg.API.EnableGRPC {
		grpcServer = grpcapi.NewServer(cfg, catMgr, logging.ForComponent(logging.CompGRPC))
		addr := net.JoinHostPort(host, strconv.Itoa(cfg.API.GRPCPort))
		if err := grpcServer.Start(ctx, grpcapi.ServerConfig{Address: addr}); err != nil {
			if restServer != nil {
				restServer.Stop(context.Background())
			}
			return err
		}
		announce("gRPC service %s listening on %s", grpcapi.ServiceName, grpcServer.Address())
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		refreshLoop(gctx, catMgr, cfg.Catalog.RefreshInterval, logger)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var errs []error
		if restServer != nil {
			errs = append(errs, restServer.Stop(shutdownCtx))
		}
		if grpcServer != nil {
			errs = append(errs, grpcServer.Stop(shutdownCtx))
		}
		if err := errors.Join(errs...); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("servers stopped")
		return nil
	})

	return g.Wait()
}

// watchLogging applies log level changes made to the config file while serving.
func watchLogging(cmd *cobra.Command) {
	var path string
	if f := cmd.Flag("config"); f != nil {
		path = f.Value.String()
	}
	loader := config.NewLoader()
	if _, err := loader.Load(path); err != nil {
		return
	}
	loader.Watch(func(next *config.Config) {
		if logging.Level() == logging.ParseLevel(next.Logging.Level) {
			return
		}
		logging.SetLevel(next.Logging.Level)
		logging.ForComponent(logging.CompCLI).Info("log level changed", "level", next.Logging.Level)
	})
}

// refreshLoop refreshes the catalog every interval until ctx is done.
func refreshLoop(ctx context.Context, catMgr *catalog.Manager, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := catMgr.Refresh(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("periodic catalog refresh failed", "error", err)
				continue
			}
			logger.Debug("catalog refreshed")
		}
	}
}
