// Package storage persists the catalog cache and small UI settings.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNoCache is returned when no catalog has been cached yet.
var ErrNoCache = errors.New("no cached catalog")

// Store is the persistence interface used by the catalog manager and UIs.
type Store interface {
	Initialize(ctx context.Context) error
	Close() error

	// Catalog cache
	GetCatalogCache(ctx context.Context) ([]byte, string, time.Time, error)
	SaveCatalogCache(ctx context.Context, data []byte, etag string) error

	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
}

// Setting keys shared between packages.
const (
	SettingLastSelectedApp = "last_selected_app"
)
