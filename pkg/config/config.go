// Package config provides configuration management for stackpick.
package config

import (
	"strings"
	"time"
)

// Config represents the application configuration.
type Config struct {
	// Catalog settings
	Catalog CatalogConfig `yaml:"catalog" json:"catalog" mapstructure:"catalog"`

	// Static asset settings
	Assets AssetsConfig `yaml:"assets" json:"assets" mapstructure:"assets"`

	// UI settings
	UI UIConfig `yaml:"ui" json:"ui" mapstructure:"ui"`

	// API settings
	API APIConfig `yaml:"api" json:"api" mapstructure:"api"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" json:"logging" mapstructure:"logging"`
}

// CatalogConfig contains catalog-related settings.
type CatalogConfig struct {
	// SourceURL is the paginated endpoint listing One-Click apps
	SourceURL string `yaml:"source_url" json:"source_url" mapstructure:"source_url"`

	// RefreshInterval is how long a fetched catalog stays fresh
	RefreshInterval time.Duration `yaml:"refresh_interval" json:"refresh_interval" mapstructure:"refresh_interval"`

	// RefreshOnStart forces a remote fetch when the TUI or server starts
	RefreshOnStart bool `yaml:"refresh_on_start" json:"refresh_on_start" mapstructure:"refresh_on_start"`

	// Token is an optional bearer token sent to the source
	Token string `yaml:"token" json:"token" mapstructure:"token"`

	// Timeout bounds a single page request
	Timeout time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`

	// PageSize is the number of apps requested per page
	PageSize int `yaml:"page_size" json:"page_size" mapstructure:"page_size"`

	// RateLimit caps page requests per second; 0 disables the limit
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit" mapstructure:"rate_limit"`
}

// AssetsConfig contains static asset settings.
type AssetsConfig struct {
	// Root is prefixed to every app logo path
	Root string `yaml:"root" json:"root" mapstructure:"root"`
}

// UIConfig contains UI-related settings.
type UIConfig struct {
	// Theme is the TUI theme name
	Theme string `yaml:"theme" json:"theme" mapstructure:"theme"`

	// UseColors enables colored output
	UseColors bool `yaml:"use_colors" json:"use_colors" mapstructure:"use_colors"`

	// CardWidth is the width of one app card in the TUI grid
	CardWidth int `yaml:"card_width" json:"card_width" mapstructure:"card_width"`

	// Mouse enables mouse support in the TUI
	Mouse bool `yaml:"mouse" json:"mouse" mapstructure:"mouse"`

	// RememberSelection restores the last selected app when no appID is given
	RememberSelection bool `yaml:"remember_selection" json:"remember_selection" mapstructure:"remember_selection"`
}

// APIConfig contains API server settings.
type APIConfig struct {
	// EnableGRPC enables the gRPC server
	EnableGRPC bool `yaml:"enable_grpc" json:"enable_grpc" mapstructure:"enable_grpc"`

	// GRPCPort is the port for the gRPC server
	GRPCPort int `yaml:"grpc_port" json:"grpc_port" mapstructure:"grpc_port"`

	// EnableREST enables the REST server
	EnableREST bool `yaml:"enable_rest" json:"enable_rest" mapstructure:"enable_rest"`

	// RESTPort is the port for the REST server
	RESTPort int `yaml:"rest_port" json:"rest_port" mapstructure:"rest_port"`

	// RequireAuth requires authentication for API calls
	RequireAuth bool `yaml:"require_auth" json:"require_auth" mapstructure:"require_auth"`

	// AuthToken is the authentication token
	AuthToken string `yaml:"auth_token" json:"auth_token" mapstructure:"auth_token"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level" mapstructure:"level"`

	// Format is the log format (json, text)
	Format string `yaml:"format" json:"format" mapstructure:"format"`

	// File is an optional log file path
	File string `yaml:"file" json:"file" mapstructure:"file"`

	// MaxSize is the max size in MB before rotation
	MaxSize int `yaml:"max_size" json:"max_size" mapstructure:"max_size"`

	// MaxAge is the max days to keep old logs
	MaxAge int `yaml:"max_age" json:"max_age" mapstructure:"max_age"`

	// MaxBackups is the number of rotated files to keep
	MaxBackups int `yaml:"max_backups" json:"max_backups" mapstructure:"max_backups"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Catalog: CatalogConfig{
			SourceURL:       "https://api.linode.com/v4/linode/stackscripts",
			RefreshInterval: time.Hour,
			RefreshOnStart:  false,
			Token:           "",
			Timeout:         30 * time.Second,
			PageSize:        100,
			RateLimit:       5,
		},
		Assets: AssetsConfig{
			Root: "https://cloud.linode.com",
		},
		UI: UIConfig{
			Theme:             "default",
			UseColors:         true,
			CardWidth:         32,
			Mouse:             true,
			RememberSelection: false,
		},
		API: APIConfig{
			EnableGRPC:  false,
			GRPCPort:    50051,
			EnableREST:  true,
			RESTPort:    8080,
			RequireAuth: false,
			AuthToken:   "",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			File:       "",
			MaxSize:    10,
			MaxAge:     7,
			MaxBackups: 3,
		},
	}
}

// Validate validates the configuration, clamping out-of-range values.
func (c *Config) Validate() error {
	if c.Catalog.RefreshInterval < time.Minute {
		c.Catalog.RefreshInterval = time.Minute
	}
	if c.Catalog.Timeout <= 0 {
		c.Catalog.Timeout = 30 * time.Second
	}
	if c.Catalog.PageSize < 25 || c.Catalog.PageSize > 500 {
		c.Catalog.PageSize = 100
	}
	if c.Catalog.RateLimit < 0 {
		c.Catalog.RateLimit = 0
	}
	c.Assets.Root = strings.TrimRight(c.Assets.Root, "/")
	if c.UI.CardWidth < 20 {
		c.UI.CardWidth = 32
	}
	if c.API.GRPCPort < 1 || c.API.GRPCPort > 65535 {
		c.API.GRPCPort = 50051
	}
	if c.API.RESTPort < 1 || c.API.RESTPort > 65535 {
		c.API.RESTPort = 8080
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		c.Logging.Level = "info"
	}
	if c.Logging.Format != "json" {
		c.Logging.Format = "text"
	}
	return nil
}
