// Package platform provides OS-specific abstractions for cross-platform support.
package platform

import (
	"os"
	"path/filepath"
	"runtime"
)

// ID represents a platform identifier.
type ID string

const (
	Darwin  ID = "darwin"
	Linux   ID = "linux"
	Windows ID = "windows"
)

// appDirName is the directory created under each OS base directory.
const appDirName = "stackpick"

const (
	envHome        = "HOME"
	envUserProfile = "USERPROFILE"
	envXDGData     = "XDG_DATA_HOME"
	envXDGState    = "XDG_STATE_HOME"
)

// Platform abstracts the OS-specific directories stackpick writes to.
type Platform interface {
	// Identity
	ID() ID
	Architecture() string
	Name() string

	// Paths
	GetDataDir() string
	GetConfigDir() string
	GetCacheDir() string
	GetLogDir() string
}

// current holds the singleton platform instance.
var current Platform

// Current returns the Platform implementation for the current OS.
func Current() Platform {
	if current == nil {
		current = newPlatform()
	}
	return current
}

// CurrentID returns the current platform ID.
func CurrentID() ID {
	return ID(runtime.GOOS)
}

// CurrentArch returns the current architecture.
func CurrentArch() string {
	return runtime.GOARCH
}

// IsDarwin returns true if running on macOS.
func IsDarwin() bool {
	return runtime.GOOS == string(Darwin)
}

// IsLinux returns true if running on Linux.
func IsLinux() bool {
	return runtime.GOOS == string(Linux)
}

// IsWindows returns true if running on Windows.
func IsWindows() bool {
	return runtime.GOOS == string(Windows)
}

// Supports returns true if the given platform ID is supported.
func Supports(id ID) bool {
	return id == Darwin || id == Linux || id == Windows
}

// HomeDirEnv returns the environment variable name for the home directory.
func HomeDirEnv() string {
	if IsWindows() {
		return envUserProfile
	}
	return envHome
}

// osPlatform resolves directories from the user's base directories.
type osPlatform struct {
	id   ID
	home string
}

func newPlatform() Platform {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.TempDir()
	}
	return &osPlatform{id: CurrentID(), home: home}
}

func (p *osPlatform) ID() ID               { return p.id }
func (p *osPlatform) Architecture() string { return runtime.GOARCH }

func (p *osPlatform) Name() string {
	switch p.id {
	case Darwin:
		return "macOS"
	case Linux:
		return "Linux"
	case Windows:
		return "Windows"
	}
	return string(p.id)
}

func (p *osPlatform) GetConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, appDirName)
	}
	return filepath.Join(p.home, ".config", appDirName)
}

func (p *osPlatform) GetCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, appDirName)
	}
	return filepath.Join(p.home, ".cache", appDirName)
}

func (p *osPlatform) GetDataDir() string {
	switch p.id {
	case Darwin:
		return filepath.Join(p.home, "Library", "Application Support", appDirName)
	case Windows:
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, appDirName)
		}
	}
	if dir := os.Getenv(envXDGData); dir != "" {
		return filepath.Join(dir, appDirName)
	}
	return filepath.Join(p.home, ".local", "share", appDirName)
}

func (p *osPlatform) GetLogDir() string {
	switch p.id {
	case Darwin:
		return filepath.Join(p.home, "Library", "Logs", appDirName)
	case Windows:
		return filepath.Join(p.GetDataDir(), "logs")
	}
	if dir := os.Getenv(envXDGState); dir != "" {
		return filepath.Join(dir, appDirName)
	}
	return filepath.Join(p.home, ".local", "state", appDirName)
}
