package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kevinelliott/stackpick/internal/cli/output"
	"github.com/kevinelliott/stackpick/internal/tui/styles"
	"github.com/kevinelliott/stackpick/pkg/config"
	"github.com/kevinelliott/stackpick/pkg/platform"
	"github.com/kevinelliott/stackpick/pkg/storage"
)

// CheckResult represents the result of a health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string
}

// CheckStatus represents the status of a check.
type CheckStatus int

const (
	CheckOK CheckStatus = iota
	CheckWarning
	CheckError
	CheckSkipped
)

// NewDoctorCommand creates the doctor command for health checks.
func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check system health and configuration",
		Long: `Run health checks on the local database, the catalog cache, the
configuration and the reachability of the catalog source.

Examples:
  stackpick doctor              # Run all health checks
  stackpick doctor --offline    # Skip network checks`,
		RunE: func(cmd *cobra.Command, args []string) error {
			printer := newPrinter(cmd, cfg)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			printer.Println()
			printer.Print("stackpick doctor")
			printer.Print("================")
			printer.Println()

			sections := []struct {
				title string
				run   func() []CheckResult
			}{
				{"System", runSystemChecks},
				{"Storage", func() []CheckResult { return runStorageChecks(ctx, cfg) }},
				{"Configuration", func() []CheckResult { return runConfigChecks(cfg) }},
				{"Catalog Source", func() []CheckResult { return runSourceChecks(ctx, cfg, offline) }},
			}

			var results []CheckResult
			for _, s := range sections {
				printer.Print("%s", s.title)
				printer.Print("%s", strings.Repeat("-", len(s.title)))
				res := s.run()
				results = append(results, res...)
				printResults(printer, res)
				printer.Println()
			}

			return summarize(printer, results)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "skip checks that need the network")

	return cmd
}

func summarize(printer *output.Printer, results []CheckResult) error {
	var okCount, warnCount, errCount, skipCount int
	for _, r := range results {
		switch r.Status {
		case CheckOK:
			okCount++
		case CheckWarning:
			warnCount++
		case CheckError:
			errCount++
		case CheckSkipped:
			skipCount++
		}
	}

	printer.Print("Summary")
	printer.Print("-------")
	printer.Print("  Passed:   %d", okCount)
	if warnCount > 0 {
		printer.Warning("  Warnings: %d", warnCount)
	}
	if errCount > 0 {
		printer.Error("  Errors:   %d", errCount)
	}
	if skipCount > 0 {
		printer.Print("  Skipped:  %d", skipCount)
	}
	printer.Println()

	if errCount > 0 {
		printer.Error("Some checks failed. See above for details.")
		return errors.New("health checks failed")
	}
	if warnCount > 0 {
		printer.Warning("All checks passed with warnings.")
	} else {
		printer.Success("All checks passed!")
	}
	return nil
}

func printResults(printer *output.Printer, results []CheckResult) {
	for _, r := range results {
		switch r.Status {
		case CheckOK:
			printer.Success("%s: %s", r.Name, r.Message)
		case CheckWarning:
			printer.Warning("%s: %s", r.Name, r.Message)
			if r.Fix != "" {
				printer.Print("         Fix: %s", r.Fix)
			}
		case CheckError:
			printer.Error("%s: %s", r.Name, r.Message)
			if r.Fix != "" {
				printer.Print("       Fix: %s", r.Fix)
			}
		case CheckSkipped:
			printer.Info("%s: %s (skipped)", r.Name, r.Message)
		}
	}
}

func runSystemChecks() []CheckResult {
	plat := platform.Current()
	return []CheckResult{
		{Name: "Go Runtime", Status: CheckOK, Message: runtime.Version()},
		{Name: "Platform", Status: CheckOK, Message: fmt.Sprintf("%s/%s", plat.ID(), plat.Architecture())},
	}
}

func runStorageChecks(ctx context.Context, cfg *config.Config) []CheckResult {
	var results []CheckResult

	dataDir := platform.Current().GetDataDir()
	results = append(results, CheckResult{
		Name:    "Data Directory",
		Status:  CheckOK,
		Message: dataDir,
	})

	store, err := storage.NewSQLiteStore(dataDir)
	if err != nil {
		return append(results, CheckResult{
			Name:    "Database",
			Status:  CheckError,
			Message: fmt.Sprintf("failed to open: %v", err),
			Fix:     "Check permissions on " + dataDir,
		})
	}
	defer store.Close()

	if err := store.Initialize(ctx); err != nil {
		return append(results, CheckResult{
			Name:    "Database",
			Status:  CheckError,
			Message: fmt.Sprintf("failed to initialize: %v", err),
			Fix:     "Delete " + store.Path() + " and try again",
		})
	}
	results = append(results, CheckResult{
		Name:    "Database",
		Status:  CheckOK,
		Message: store.Path(),
	})

	return append(results, checkCatalogCache(ctx, cfg, store))
}

func checkCatalogCache(ctx context.Context, cfg *config.Config, store storage.Store) CheckResult {
	_, _, updatedAt, err := store.GetCatalogCache(ctx)
	switch {
	case errors.Is(err, storage.ErrNoCache):
		return CheckResult{
			Name:    "Catalog Cache",
			Status:  CheckWarning,
			Message: "no cached catalog",
			Fix:     "Run 'stackpick catalog refresh'",
		}
	case err != nil:
		return CheckResult{
			Name:    "Catalog Cache",
			Status:  CheckError,
			Message: fmt.Sprintf("unreadable: %v", err),
			Fix:     "Run 'stackpick catalog refresh'",
		}
	}

	age := time.Since(updatedAt)
	if age > cfg.Catalog.RefreshInterval {
		return CheckResult{
			Name:    "Catalog Cache",
			Status:  CheckWarning,
			Message: fmt.Sprintf("stale (age: %s)", formatDuration(age)),
			Fix:     "Run 'stackpick catalog refresh'",
		}
	}
	return CheckResult{
		Name:    "Catalog Cache",
		Status:  CheckOK,
		Message: fmt.Sprintf("fresh (age: %s)", formatDuration(age)),
	}
}

func runConfigChecks(cfg *config.Config) []CheckResult {
	var results []CheckResult

	path := config.GetConfigPath()
	if _, err := os.Stat(path); err == nil {
		results = append(results, CheckResult{Name: "Config File", Status: CheckOK, Message: path})
	} else {
		results = append(results, CheckResult{
			Name:    "Config File",
			Status:  CheckWarning,
			Message: "not found, using defaults",
			Fix:     "Run 'stackpick config init'",
		})
	}

	results = append(results, checkURL("Catalog Source URL", cfg.Catalog.SourceURL, CheckError))
	results = append(results, checkURL("Asset Root", cfg.Assets.Root, CheckWarning))

	if theme := styles.ThemeByName(cfg.UI.Theme); theme.Name != cfg.UI.Theme {
		results = append(results, CheckResult{
			Name:    "Theme",
			Status:  CheckWarning,
			Message: fmt.Sprintf("unknown theme %q, using %q", cfg.UI.Theme, theme.Name),
			Fix:     "stackpick config set ui.theme default",
		})
	} else {
		results = append(results, CheckResult{Name: "Theme", Status: CheckOK, Message: theme.Name})
	}

	if cfg.API.RequireAuth && cfg.API.AuthToken == "" {
		results = append(results, CheckResult{
			Name:    "API Auth",
			Status:  CheckError,
			Message: "auth required but api.auth_token is empty",
			Fix:     "stackpick config set api.auth_token <token>",
		})
	}

	return results
}

func checkURL(name, raw string, failStatus CheckStatus) CheckResult {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return CheckResult{
			Name:    name,
			Status:  failStatus,
			Message: fmt.Sprintf("invalid URL %q", raw),
		}
	}
	return CheckResult{Name: name, Status: CheckOK, Message: raw}
}

func runSourceChecks(ctx context.Context, cfg *config.Config, offline bool) []CheckResult {
	if offline {
		return []CheckResult{{Name: "Reachability", Status: CheckSkipped, Message: cfg.Catalog.SourceURL}}
	}
	return []CheckResult{checkSource(ctx, cfg, http.DefaultClient)}
}

// checkSource requests the first page of the catalog source.
func checkSource(ctx context.Context, cfg *config.Config, client *http.Client) CheckResult {
	reqCtx, cancel := context.WithTimeout(ctx, cfg.Catalog.Timeout)
	defer cancel()

	u, err := url.Parse(cfg.Catalog.SourceURL)
	if err != nil {
		return CheckResult{Name: "Reachability", Status: CheckError, Message: err.Error()}
	}
	q := u.Query()
	q.Set("page", "1")
	q.Set("page_size", "25")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return CheckResult{Name: "Reachability", Status: CheckError, Message: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	if cfg.Catalog.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Catalog.Token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return CheckResult{
			Name:    "Reachability",
			Status:  CheckError,
			Message: err.Error(),
			Fix:     "Check network access to " + u.Host,
		}
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return CheckResult{
			Name:    "Reachability",
			Status:  CheckWarning,
			Message: resp.Status,
			Fix:     "Set catalog.token",
		}
	case resp.StatusCode >= 400:
		return CheckResult{Name: "Reachability", Status: CheckError, Message: resp.Status}
	}
	return CheckResult{
		Name:    "Reachability",
		Status:  CheckOK,
		Message: fmt.Sprintf("%s in %s", resp.Status, time.Since(start).Round(time.Millisecond)),
	}
}
