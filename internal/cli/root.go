// Package cli implements the command-line interface for stackpick.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kevinelliott/stackpick/internal/cli/output"
	"github.com/kevinelliott/stackpick/internal/logging"
	"github.com/kevinelliott/stackpick/pkg/catalog"
	"github.com/kevinelliott/stackpick/pkg/config"
	"github.com/kevinelliott/stackpick/pkg/platform"
	"github.com/kevinelliott/stackpick/pkg/storage"
)

// NewRootCommand creates the root command for stackpick.
func NewRootCommand(cfg *config.Config, version, commit, date string) *cobra.Command {
	var (
		configFile string
		verbose    bool
		format     string
		noColor    bool
	)

	root := &cobra.Command{
		Use:   "stackpick",
		Short: "One-Click app picker",
		Long: `stackpick browses the One-Click app catalog and lets you pick the app
a new server will be provisioned with.

The same select-app panel is available as a terminal UI, as an HTML
page served over REST, and as a gRPC catalog service.

Examples:
  stackpick tui                        # Pick an app interactively
  stackpick tui --app-id 401697        # Preselect WordPress
  stackpick catalog search wordpress   # Search the catalog
  stackpick serve                      # Serve REST and gRPC APIs`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Reload config if custom path specified
			if configFile != "" {
				loader := config.NewLoader()
				newCfg, err := loader.Load(configFile)
				if err != nil {
					return fmt.Errorf("failed to load config from %s: %w", configFile, err)
				}
				*cfg = *newCfg
			}

			if verbose {
				cfg.Logging.Level = "debug"
			}
			if noColor {
				cfg.UI.UseColors = false
			}

			var fallback io.Writer = os.Stderr
			if cmd.Name() == "tui" {
				fallback = io.Discard
			}
			logging.Init(cfg.Logging, fallback)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Close()
		},
	}

	// Global flags
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().StringVarP(&format, "format", "f", "table", "output format (table, json, yaml)")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		NewCatalogCommand(cfg),
		NewConfigCommand(cfg),
		NewDoctorCommand(cfg),
		NewServeCommand(cfg),
		NewTUICommand(cfg),
		NewVersionCommand(version, commit, date),
		NewCompletionCommand(),
	)

	return root
}

// newPrinter creates a printer honouring --no-color.
func newPrinter(cmd *cobra.Command, cfg *config.Config) *output.Printer {
	return output.NewPrinterTo(cmd.OutOrStdout(), cmd.ErrOrStderr(), noColorFlag(cmd, cfg))
}

func noColorFlag(cmd *cobra.Command, cfg *config.Config) bool {
	if !cfg.UI.UseColors {
		return true
	}
	f := cmd.Flag("no-color")
	return f != nil && f.Value.String() == "true"
}

// outputFormat returns the --format value.
func outputFormat(cmd *cobra.Command) string {
	if f := cmd.Flag("format"); f != nil {
		return f.Value.String()
	}
	return "table"
}

// writeStructured writes v as json or yaml.
func writeStructured(w io.Writer, format string, v interface{}) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		defer encoder.Close()
		return encoder.Encode(v)
	}
	return fmt.Errorf("unsupported format %q", format)
}

// openStore opens and initializes the local SQLite store.
func openStore(ctx context.Context) (*storage.SQLiteStore, error) {
	store, err := storage.NewSQLiteStore(platform.Current().GetDataDir())
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}
	if err := store.Initialize(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

// openCatalog opens the store and a catalog manager backed by it. The
// caller must close the returned store.
func openCatalog(ctx context.Context, cfg *config.Config) (*catalog.Manager, *storage.SQLiteStore, error) {
	store, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	catMgr := catalog.NewManager(cfg, store)
	catMgr.SetLogger(logging.ForComponent(logging.CompCatalog))
	return catMgr, store, nil
}
