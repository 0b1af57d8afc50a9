// stackpick - One-Click app picker for server provisioning
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kevinelliott/stackpick/internal/cli"
	"github.com/kevinelliott/stackpick/pkg/config"
)

// Version information (set by build flags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	loader := config.NewLoader()
	cfg, err := loader.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	root := cli.NewRootCommand(cfg, version, commit, date)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
