package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kevinelliott/stackpick/internal/tui/styles"
	"github.com/kevinelliott/stackpick/pkg/config"
)

// NewConfigCommand creates the config management command group.
func NewConfigCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `View and modify stackpick configuration settings.

Configuration is stored in a YAML file and can be overridden with
environment variables using the STACKPICK_ prefix.`,
	}

	cmd.AddCommand(
		newConfigShowCommand(cfg),
		newConfigGetCommand(cfg),
		newConfigSetCommand(cfg),
		newConfigPathCommand(cfg),
		newConfigInitCommand(cfg),
	)

	return cmd
}

func newConfigShowCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  `Display the current configuration settings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format := outputFormat(cmd); format == "json" {
				return writeStructured(cmd.OutOrStdout(), format, cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to serialize config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newConfigGetCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get a configuration value by key path.

Examples:
  stackpick config get ui.theme
  stackpick config get catalog.source_url
  stackpick config get logging.level`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeConfigKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.ToLower(args[0])
			if _, ok := configKeys[key]; !ok {
				return unknownKeyError(key)
			}

			loader := config.NewLoader()
			if _, err := loader.Load(""); err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, loader.Get(key))
			return nil
		},
	}
}

func newConfigSetCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value by key path.

Values are checked before saving: URLs must be http(s), themes and log
settings must be known names, and numbers must be in range.

Examples:
  stackpick config set ui.theme dark
  stackpick config set ui.remember_selection true
  stackpick config set logging.level debug
  stackpick config set catalog.page_size 200
  stackpick config set catalog.refresh_interval 2h`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeConfigKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.ToLower(args[0])
			valueStr := args[1]

			value, err := validateConfigValue(key, valueStr)
			if err != nil {
				return err
			}

			loader := config.NewLoader()
			if _, err := loader.Load(""); err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := loader.SetAndSave(key, value); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			printer := newPrinter(cmd, cfg)
			printer.Success("Set %s = %s", key, valueStr)
			printer.Info("Config saved to %s", loader.GetFilePath())
			return nil
		},
	}
}

type keyKind int

const (
	kindString keyKind = iota
	kindBool
	kindInt
	kindDuration
	kindFloat
	kindURL
)

// configKeys lists every settable key and how its value is parsed.
var configKeys = map[string]keyKind{
	"catalog.source_url":       kindURL,
	"catalog.refresh_interval": kindDuration,
	"catalog.refresh_on_start": kindBool,
	"catalog.token":            kindString,
	"catalog.timeout":          kindDuration,
	"catalog.page_size":        kindInt,
	"catalog.rate_limit":       kindFloat,

	"assets.root": kindURL,

	"ui.theme":              kindString,
	"ui.use_colors":         kindBool,
	"ui.card_width":         kindInt,
	"ui.mouse":              kindBool,
	"ui.remember_selection": kindBool,

	"api.enable_grpc":  kindBool,
	"api.grpc_port":    kindInt,
	"api.enable_rest":  kindBool,
	"api.rest_port":    kindInt,
	"api.require_auth": kindBool,
	"api.auth_token":   kindString,

	"logging.level":       kindString,
	"logging.format":      kindString,
	"logging.file":        kindString,
	"logging.max_size":    kindInt,
	"logging.max_age":     kindInt,
	"logging.max_backups": kindInt,
}

// intRanges bounds integer keys, inclusive.
var intRanges = map[string][2]int{
	"catalog.page_size":   {25, 500},
	"ui.card_width":       {20, 200},
	"api.grpc_port":       {1, 65535},
	"api.rest_port":       {1, 65535},
	"logging.max_size":    {1, 1024},
	"logging.max_age":     {0, 365},
	"logging.max_backups": {0, 100},
}

func sortedConfigKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func completeConfigKeys(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var out []string
	for _, k := range sortedConfigKeys() {
		if strings.HasPrefix(k, strings.ToLower(toComplete)) {
			out = append(out, k)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// unknownKeyError names the closest known keys.
func unknownKeyError(key string) error {
	keys := sortedConfigKeys()
	query := key
	if i := strings.LastIndex(key, "."); i >= 0 {
		query = key[i+1:]
	}
	matches := fuzzy.Find(query, keys)
	if len(matches) == 0 {
		return fmt.Errorf("unknown config key %q", key)
	}
	var suggestions []string
	for i, m := range matches {
		if i == 3 {
			break
		}
		suggestions = append(suggestions, m.Str)
	}
	return fmt.Errorf("unknown config key %q (did you mean %s?)", key, strings.Join(suggestions, ", "))
}

// validateConfigValue parses value for key and rejects values the
// application cannot use.
func validateConfigValue(key, value string) (interface{}, error) {
	key = strings.ToLower(key)
	kind, ok := configKeys[key]
	if !ok {
		return nil, unknownKeyError(key)
	}

	switch kind {
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			switch strings.ToLower(value) {
			case "yes", "on":
				return true, nil
			case "no", "off":
				return false, nil
			}
			return nil, fmt.Errorf("%s: %q is not a boolean", key, value)
		}
		return b, nil

	case kindInt:
		i, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not an integer", key, value)
		}
		if r, ok := intRanges[key]; ok && (i < r[0] || i > r[1]) {
			return nil, fmt.Errorf("%s: %d is out of range %d-%d", key, i, r[0], r[1])
		}
		return i, nil

	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if key == "catalog.refresh_interval" && d < time.Minute {
			return nil, fmt.Errorf("%s: must be at least 1m", key)
		}
		if d <= 0 {
			return nil, fmt.Errorf("%s: must be positive", key)
		}
		return d, nil

	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("%s: %q is not a non-negative number", key, value)
		}
		return f, nil

	case kindURL:
		if res := checkURL(key, value, CheckError); res.Status != CheckOK {
			return nil, fmt.Errorf("%s: %s", key, res.Message)
		}
		return strings.TrimRight(value, "/"), nil
	}

	switch key {
	case "ui.theme":
		if styles.ThemeByName(value).Name != value {
			return nil, fmt.Errorf("ui.theme: unknown theme %q (one of %s)", value, strings.Join(styles.ThemeNames(), ", "))
		}
	case "logging.level":
		switch value {
		case "debug", "info", "warn", "error":
		default:
			return nil, fmt.Errorf("logging.level: %q is not one of debug, info, warn, error", value)
		}
	case "logging.format":
		if value != "json" && value != "text" {
			return nil, fmt.Errorf("logging.format: %q is not one of json, text", value)
		}
	}
	return value, nil
}

func newConfigPathCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Long:  `Display the path to the configuration file.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.GetConfigPath())
		},
	}
}

func newConfigInitCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration",
		Long: `Create the configuration directory and default configuration file
if they don't exist.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.InitConfig()
			if err != nil {
				return err
			}
			newPrinter(cmd, cfg).Success("Configuration initialized at %s", path)
			return nil
		},
	}
}
