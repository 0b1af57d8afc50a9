package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/kevinelliott/stackpick/internal/logging"
	"github.com/kevinelliott/stackpick/internal/tui"
	"github.com/kevinelliott/stackpick/pkg/config"
	"github.com/kevinelliott/stackpick/pkg/selectapp"
)

// NewTUICommand creates the tui command.
func NewTUICommand(cfg *config.Config) *cobra.Command {
	var (
		query    string
		appID    int
		showInfo bool
		disabled bool
	)

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Launch the terminal user interface",
		Long: `Launch the select-app panel in the terminal. Move between cards with
the arrow keys, select with enter and confirm with tab.

An app can be preselected with --app-id, or with --query using the same
query string the web panel accepts (for example "appID=401697&showInfo=true").
When ui.remember_selection is enabled the last confirmed app is preselected.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			catMgr, store, err := openCatalog(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			loc := tuiLocation(query, appID, showInfo)
			loc = tui.ResolveLocation(ctx, cfg, store, loc)

			sel, err := tui.Run(tui.Options{
				Config:   cfg,
				Catalog:  catMgr,
				Store:    store,
				Location: loc,
				Disabled: disabled,
				Logger:   logging.ForComponent(logging.CompTUI),
			})
			if err != nil {
				return err
			}

			printer := newPrinter(cmd, cfg)
			if sel == nil {
				printer.Info("No app selected.")
				return nil
			}
			if format := outputFormat(cmd); format != "table" {
				return writeStructured(cmd.OutOrStdout(), format, sel)
			}
			printer.Success("Selected %s (%d)", sel.Label, sel.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "panel query string, e.g. appID=401697&showInfo=true")
	cmd.Flags().IntVar(&appID, "app-id", 0, "preselect the app with this id")
	cmd.Flags().BoolVar(&showInfo, "show-info", false, "open the info drawer of the preselected app")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "show the panel read-only")

	return cmd
}

func tuiLocation(query string, appID int, showInfo bool) selectapp.Location {
	if query != "" {
		return selectapp.ParseLocation(query)
	}
	if appID > 0 {
		return selectapp.ParseLocation(selectapp.PreselectQuery(appID, showInfo))
	}
	return selectapp.ParseLocation("")
}
