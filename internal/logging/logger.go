// Package logging configures the process-wide structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kevinelliott/stackpick/pkg/config"
)

// Component constants for structured logging.
const (
	CompCatalog = "catalog"
	CompStorage = "storage"
	CompTUI     = "tui"
	CompHTTP    = "http"
	CompGRPC    = "grpc"
	CompCLI     = "cli"
)

var (
	globalMu     sync.RWMutex
	globalLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
	rotator      *lumberjack.Logger
	level        = new(slog.LevelVar)
)

// Init installs the global logger described by cfg. When cfg.File is empty
// records go to fallback; pass io.Discard to silence them (the TUI does, so
// log lines never land on the alt screen).
func Init(cfg config.LoggingConfig, fallback io.Writer) *slog.Logger {
	globalMu.Lock()
	defer globalMu.Unlock()

	if rotator != nil {
		_ = rotator.Close()
		rotator = nil
	}

	out := fallback
	if out == nil {
		out = os.Stderr
	}
	if cfg.File != "" {
		_ = os.MkdirAll(filepath.Dir(cfg.File), 0755)
		rotator = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxAge:     cfg.MaxAge,
			MaxBackups: cfg.MaxBackups,
		}
		out = rotator
	}

	level.Set(ParseLevel(cfg.Level))
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
	return globalLogger
}

// ParseLevel maps a config level name onto a slog level. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// SetLevel changes the level of every logger built by Init, including
// component loggers handed out earlier.
func SetLevel(name string) {
	level.Set(ParseLevel(name))
}

// Level returns the current level.
func Level() slog.Level {
	return level.Level()
}

// Logger returns the global logger.
func Logger() *slog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// ForComponent returns a logger tagged with the given component name.
func ForComponent(name string) *slog.Logger {
	return Logger().With("component", name)
}

// Close flushes and closes the rotating file, if one is open.
func Close() error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if rotator == nil {
		return nil
	}
	err := rotator.Close()
	rotator = nil
	return err
}
