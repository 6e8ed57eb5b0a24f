package panobridge

import "github.com/meridian-labs/panobridge/internal/domain"

// Re-export domain types for host use.
type (
	// View is the presentation descriptor derived for the host.
	View = domain.ViewState

	// ViewKind identifies the view variant to render.
	ViewKind = domain.ViewKind

	// MessageID names a placeholder or error caption.
	MessageID = domain.MessageID

	// Location is a geographic position with free-form properties.
	Location = domain.Location

	// LatLng is a latitude/longitude pair.
	LatLng = domain.LatLng

	// PointOfView is a viewer orientation.
	PointOfView = domain.PointOfView

	// Credentials is a Street Smart username/password pair.
	Credentials = domain.Credentials
)

// View variants.
const (
	ViewCredentials  = domain.ViewCredentials
	ViewLoadingAPI   = domain.ViewLoadingAPI
	ViewInitializing = domain.ViewInitializing
	ViewZoomIn       = domain.ViewZoomIn
	ViewNoImage      = domain.ViewNoImage
	ViewPanorama     = domain.ViewPanorama
	ViewError        = domain.ViewError
)

// Sentinel errors returned by the facade.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrNoCredentials   = domain.ErrNoCredentials
)
