package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/kevinelliott/stackpick/pkg/platform"
)

const (
	// ConfigFileName is the name of the config file (without extension)
	ConfigFileName = "config"

	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "STACKPICK"
)

// Loader handles configuration loading and saving.
type Loader struct {
	v         *viper.Viper
	configDir string
	filePath  string
}

// NewLoader creates a new configuration loader rooted at the platform config dir.
func NewLoader() *Loader {
	return NewLoaderWithDir(platform.Current().GetConfigDir())
}

// NewLoaderWithDir creates a loader that looks for config files in dir.
func NewLoaderWithDir(dir string) *Loader {
	return &Loader{
		v:         viper.New(),
		configDir: dir,
	}
}

// Load loads configuration from file, environment, and flags.
// Priority: flags > env > file > defaults
func (l *Loader) Load(customPath string) (*Config, error) {
	l.setDefaults()

	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")

	if customPath != "" {
		l.v.SetConfigFile(customPath)
		l.filePath = customPath
	} else {
		l.v.AddConfigPath(l.configDir)
		l.filePath = filepath.Join(l.configDir, ConfigFileName+".yaml")

		// Also check current directory
		l.v.AddConfigPath(".")
	}

	// STACKPICK_CATALOG_SOURCE_URL maps to catalog.source_url
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := Default()
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to file.
func (l *Loader) Save(cfg *Config) error {
	dir := filepath.Dir(l.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	l.v.Set("catalog", cfg.Catalog)
	l.v.Set("assets", cfg.Assets)
	l.v.Set("ui", cfg.UI)
	l.v.Set("api", cfg.API)
	l.v.Set("logging", cfg.Logging)

	if err := l.v.WriteConfigAs(l.filePath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetFilePath returns the path to the config file.
func (l *Loader) GetFilePath() string {
	return l.filePath
}

// SetAndSave sets a configuration value and saves the entire config to file.
func (l *Loader) SetAndSave(key string, value interface{}) error {
	l.v.Set(key, value)

	dir := filepath.Dir(l.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := l.v.WriteConfigAs(l.filePath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Watch re-reads the config file whenever it is written and passes the
// validated result to fn. Load must have been called first. Reads that fail
// to parse are dropped.
func (l *Loader) Watch(fn func(*Config)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
			return
		}
		cfg := Default()
		if err := l.v.Unmarshal(cfg); err != nil {
			return
		}
		if err := cfg.Validate(); err != nil {
			return
		}
		fn(cfg)
	})
	l.v.WatchConfig()
}

// Get gets a configuration value by key path.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// IsSet reports whether key is known to the loader.
func (l *Loader) IsSet(key string) bool {
	return l.v.IsSet(key)
}

// setDefaults sets the default values in viper.
func (l *Loader) setDefaults() {
	defaults := Default()

	// Catalog defaults
	l.v.SetDefault("catalog.source_url", defaults.Catalog.SourceURL)
	l.v.SetDefault("catalog.refresh_interval", defaults.Catalog.RefreshInterval)
	l.v.SetDefault("catalog.refresh_on_start", defaults.Catalog.RefreshOnStart)
	l.v.SetDefault("catalog.token", defaults.Catalog.Token)
	l.v.SetDefault("catalog.timeout", defaults.Catalog.Timeout)
	l.v.SetDefault("catalog.page_size", defaults.Catalog.PageSize)
	l.v.SetDefault("catalog.rate_limit", defaults.Catalog.RateLimit)

	// Asset defaults
	l.v.SetDefault("assets.root", defaults.Assets.Root)

	// UI defaults
	l.v.SetDefault("ui.theme", defaults.UI.Theme)
	l.v.SetDefault("ui.use_colors", defaults.UI.UseColors)
	l.v.SetDefault("ui.card_width", defaults.UI.CardWidth)
	l.v.SetDefault("ui.mouse", defaults.UI.Mouse)
	l.v.SetDefault("ui.remember_selection", defaults.UI.RememberSelection)

	// API defaults
	l.v.SetDefault("api.enable_grpc", defaults.API.EnableGRPC)
	l.v.SetDefault("api.grpc_port", defaults.API.GRPCPort)
	l.v.SetDefault("api.enable_rest", defaults.API.EnableREST)
	l.v.SetDefault("api.rest_port", defaults.API.RESTPort)
	l.v.SetDefault("api.require_auth", defaults.API.RequireAuth)
	l.v.SetDefault("api.auth_token", defaults.API.AuthToken)

	// Logging defaults
	l.v.SetDefault("logging.level", defaults.Logging.Level)
	l.v.SetDefault("logging.format", defaults.Logging.Format)
	l.v.SetDefault("logging.file", defaults.Logging.File)
	l.v.SetDefault("logging.max_size", defaults.Logging.MaxSize)
	l.v.SetDefault("logging.max_age", defaults.Logging.MaxAge)
	l.v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// InitConfig creates the config directory and default config file if they don't exist.
func InitConfig() (string, error) {
	configDir := platform.Current().GetConfigDir()

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, ConfigFileName+".yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		loader := NewLoaderWithDir(configDir)
		loader.filePath = configPath
		if err := loader.Save(Default()); err != nil {
			return "", fmt.Errorf("failed to create default config: %w", err)
		}
	}

	return configPath, nil
}

// GetConfigPath returns the default config file path.
func GetConfigPath() string {
	return filepath.Join(platform.Current().GetConfigDir(), ConfigFileName+".yaml")
}
