package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"

	"github.com/kevinelliott/stackpick/internal/cli/output"
	"github.com/kevinelliott/stackpick/pkg/catalog"
	"github.com/kevinelliott/stackpick/pkg/config"
	"github.com/kevinelliott/stackpick/pkg/storage"
)

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse the One-Click app catalog",
		Long: `List, search and inspect the One-Click apps available for deployment,
and refresh the local cache from the catalog source.

Apps are always listed in the order the source returns them.`,
	}

	cmd.AddCommand(
		newCatalogListCommand(cfg),
		newCatalogRefreshCommand(cfg),
		newCatalogSearchCommand(cfg),
		newCatalogShowCommand(cfg),
		newCatalogStatusCommand(cfg),
	)

	return cmd
}

func newCatalogListCommand(cfg *config.Config) *cobra.Command {
	var image string

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List all apps in the catalog",
		Long:    `Display every app in the catalog. Use --image to keep only apps that deploy onto that image.`,
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			printer := newPrinter(cmd, cfg)
			cat, err := loadCatalog(ctx, cmd, cfg, "Loading catalog")
			if err != nil {
				return err
			}

			apps := cat.Apps
			if image != "" {
				apps = filterByImage(apps, image)
			}
			return outputApps(cmd, printer, apps)
		},
	}

	cmd.Flags().StringVar(&image, "image", "", "only list apps compatible with this image (e.g. linode/ubuntu22.04)")

	return cmd
}

func newCatalogRefreshCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the catalog from its source",
		Long: `Fetch every page of the catalog from the configured source and update
the local cache. A source that reports no change leaves the cache as is.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			spinner := output.NewSpinner(
				output.WithMessage("Refreshing catalog from "+cfg.Catalog.SourceURL),
				output.WithNoColor(noColorFlag(cmd, cfg)),
				output.WithWriter(cmd.ErrOrStderr()),
			)
			spinner.Start()

			catMgr, store, err := openCatalog(ctx, cfg)
			if err != nil {
				spinner.Error("Failed to open storage")
				return err
			}
			defer store.Close()

			if err := catMgr.Refresh(ctx); err != nil {
				spinner.Error("Failed to refresh catalog")
				return fmt.Errorf("failed to refresh catalog: %w", err)
			}

			cat, err := catMgr.Get(ctx)
			if err != nil {
				spinner.Error("Failed to load catalog")
				return fmt.Errorf("failed to load catalog: %w", err)
			}

			spinner.Success(fmt.Sprintf("Catalog refreshed - %d apps available (version %s)", len(cat.Apps), cat.Version))
			return nil
		},
	}
}

func newCatalogSearchCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog",
		Long:  `Fuzzy search apps by label, then by description.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			printer := newPrinter(cmd, cfg)
			cat, err := loadCatalog(ctx, cmd, cfg, "Searching catalog")
			if err != nil {
				return err
			}

			results := cat.Search(query)
			if len(results) == 0 && outputFormat(cmd) == "table" {
				printer.Info("No results found for %q", query)
				return nil
			}
			return outputApps(cmd, printer, results)
		},
	}
}

func newCatalogShowCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "show <app-id>",
		Short: "Show a catalog entry",
		Long:  `Display the full catalog entry for an app, including its images and the fields it asks for.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("invalid app id %q", args[0])
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			catMgr, store, err := openCatalog(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			app, err := catMgr.GetApp(ctx, id)
			if errors.Is(err, catalog.ErrAppNotFound) {
				return fmt.Errorf("app %d not found in catalog", id)
			}
			if err != nil {
				return fmt.Errorf("failed to load catalog: %w", err)
			}

			if format := outputFormat(cmd); format != "table" {
				return writeStructured(cmd.OutOrStdout(), format, app)
			}

			printAppDetails(newPrinter(cmd, cfg), cfg, app)
			return nil
		},
	}
}

func newCatalogStatusCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show local catalog cache status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			printer := newPrinter(cmd, cfg)
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			printer.Print("Source:   %s", cfg.Catalog.SourceURL)
			printer.Print("Database: %s", store.Path())

			_, etag, updatedAt, err := store.GetCatalogCache(ctx)
			if errors.Is(err, storage.ErrNoCache) {
				printer.Warning("No cached catalog. Run 'stackpick catalog refresh'.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read catalog cache: %w", err)
			}

			age := time.Since(updatedAt)
			printer.Print("Updated:  %s (%s ago)", updatedAt.Local().Format(time.RFC1123), formatDuration(age))
			if etag != "" {
				printer.Print("ETag:     %s", etag)
			}
			if age > cfg.Catalog.RefreshInterval {
				printer.Warning("Cache is stale (refresh interval %s)", cfg.Catalog.RefreshInterval)
			} else {
				printer.Success("Cache is fresh")
			}
			return nil
		},
	}
}

// loadCatalog opens the catalog behind a spinner.
func loadCatalog(ctx context.Context, cmd *cobra.Command, cfg *config.Config, message string) (*catalog.Catalog, error) {
	spinner := output.NewSpinner(
		output.WithMessage(message),
		output.WithNoColor(noColorFlag(cmd, cfg)),
		output.WithWriter(cmd.ErrOrStderr()),
	)
	spinner.Start()

	catMgr, store, err := openCatalog(ctx, cfg)
	if err != nil {
		spinner.Error("Failed to open storage")
		return nil, err
	}
	defer store.Close()

	cat, err := catMgr.Get(ctx)
	if err != nil {
		spinner.Error("Failed to load catalog")
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	spinner.Stop()
	return cat, nil
}

func filterByImage(apps []catalog.App, image string) []catalog.App {
	var out []catalog.App
	for _, app := range apps {
		for _, img := range app.Images {
			if img == image || img == "any/all" {
				out = append(out, app)
				break
			}
		}
	}
	return out
}

// AppListItem represents an app in list output.
type AppListItem struct {
	ID          int      `json:"id" yaml:"id"`
	Label       string   `json:"label" yaml:"label"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Images      []string `json:"images" yaml:"images"`
	Fields      int      `json:"fields" yaml:"fields"`
}

func toListItems(apps []catalog.App) []AppListItem {
	items := make([]AppListItem, 0, len(apps))
	for _, app := range apps {
		items = append(items, AppListItem{
			ID:          app.ID,
			Label:       app.DisplayLabel(),
			Description: app.Description,
			Images:      app.Images,
			Fields:      len(app.UserDefinedFields),
		})
	}
	return items
}

func outputApps(cmd *cobra.Command, printer *output.Printer, apps []catalog.App) error {
	items := toListItems(apps)
	if format := outputFormat(cmd); format != "table" {
		return writeStructured(cmd.OutOrStdout(), format, items)
	}
	return outputAppTable(items, printer)
}

func outputAppTable(items []AppListItem, printer *output.Printer) error {
	if len(items) == 0 {
		printer.Info("No apps in catalog.")
		return nil
	}

	styles := printer.Styles()
	table := printer.Table()
	table.SetHeaders(
		styles.FormatHeader("ID"),
		styles.FormatHeader("APP"),
		styles.FormatHeader("IMAGES"),
		styles.FormatHeader("DESCRIPTION"),
	)

	for _, item := range items {
		table.AddRow(
			styles.ID.Render(strconv.Itoa(item.ID)),
			styles.FormatAppLabel(item.Label),
			strconv.Itoa(len(item.Images)),
			styles.Muted.Render(ansi.Truncate(item.Description, 50, "…")),
		)
	}

	table.Render()
	printer.Println()
	printer.Info("%d apps", len(items))
	return nil
}

func printAppDetails(printer *output.Printer, cfg *config.Config, app catalog.App) {
	styles := printer.Styles()

	printer.Print("%s %s", styles.Bold.Render("App:"), app.DisplayLabel())
	printer.Print("%s %d", styles.Bold.Render("ID:"), app.ID)
	if app.Description != "" {
		printer.Print("%s %s", styles.Bold.Render("Description:"), app.Description)
	}
	if app.Username != "" {
		printer.Print("%s %s", styles.Bold.Render("Author:"), app.Username)
	}
	if app.HasLogo() {
		printer.Print("%s %s/%s", styles.Bold.Render("Logo:"), cfg.Assets.Root, app.LogoURL)
	}
	if app.DeploymentsActive > 0 {
		printer.Print("%s %d", styles.Bold.Render("Active deployments:"), app.DeploymentsActive)
	}

	printer.Println()
	printer.Print("%s", styles.Bold.Render("Images:"))
	for _, img := range app.Images {
		printer.Print("  %s", img)
	}

	if len(app.UserDefinedFields) == 0 {
		return
	}
	printer.Println()
	printer.Print("%s", styles.Bold.Render("Fields:"))
	for _, f := range app.UserDefinedFields {
		required := ""
		if f.Required() {
			required = styles.Warning.Render(" (required)")
		}
		printer.Print("  %s%s", f.Name, required)
		printer.Print("    %s %s", styles.Muted.Render("Label:"), f.Label)
		printer.Print("    %s %s", styles.Muted.Render("Type:"), f.Type())
		if opts := f.Options(); len(opts) > 0 {
			printer.Print("    %s %s", styles.Muted.Render("Options:"), strings.Join(opts, ", "))
		}
		if f.Default != "" {
			printer.Print("    %s %s", styles.Muted.Render("Default:"), f.Default)
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}
