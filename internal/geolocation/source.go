// Package geolocation hides the platform position feed behind one watch contract.
package geolocation

import (
	"context"
	"time"

	"github.com/shenikar/speedbump_logger/internal/models"
)

// Kind identifies a backend.
type Kind string

const (
	KindNative Kind = "native"
	KindWeb    Kind = "web"
)

// WatchID is the opaque handle returned by Watch.
type WatchID string

// WatchOptions mirrors the platform position options.
// MaxCachedAge of zero rejects every cached fix.
type WatchOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaxCachedAge time.Duration
}

// Callback receives either a sample or an error, never both.
type Callback func(sample *models.PositionSample, err error)

// Source is a continuous position feed.
type Source interface {
	Kind() Kind
	Watch(ctx context.Context, opts WatchOptions, cb Callback) (WatchID, error)
	ClearWatch(ctx context.Context, id WatchID) error
}

// PermissionRequester is implemented by backends that must ask the platform
// for location access before watching.
type PermissionRequester interface {
	RequestPermission(ctx context.Context) error
}

// Haptics is implemented by backends able to pulse the device.
type Haptics interface {
	Pulse(ctx context.Context, d time.Duration) error
}
