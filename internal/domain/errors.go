package domain

import "errors"

// Domain errors represent error conditions in the panobridge domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("panobridge: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("panobridge: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("panobridge: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("panobridge: invalid configuration")

	// ErrRuntimeNotReady is returned when an operation needs the viewer runtime
	// before it has announced an API handle.
	ErrRuntimeNotReady = errors.New("panobridge: viewer runtime not ready")

	// ErrRuntimeClosed is returned when the viewer runtime has been shut down.
	ErrRuntimeClosed = errors.New("panobridge: viewer runtime closed")

	// ErrNoCredentials is returned when an operation requires stored credentials
	// and none are present.
	ErrNoCredentials = errors.New("panobridge: no credentials")
)
