package ports

import (
	"context"

	"github.com/meridian-labs/panobridge/pkg/streetsmart"
)

// Ready announces a usable vendor API handle. It is delivered once per
// runtime mount: on the initial launch and again after every remount or
// reconnect, each time carrying a fresh handle scoped to that mount.
type Ready struct {
	// API is the vendor API handle. It stays valid until the mount that
	// produced it goes away; calls after that fail.
	API streetsmart.API

	// TargetElement is the DOM selector of the mount element the viewer
	// renders into. Init must receive this exact value.
	TargetElement string
}

// ViewerRuntime hosts the vendor viewer library inside an isolated runtime
// and surfaces its API handle to the application.
//
// Implementations own the full runtime lifecycle: serving the bootstrap
// document, launching the viewer host, supervising it across crashes, and
// tearing it down. The application never touches the vendor library except
// through the handles delivered on Ready.
type ViewerRuntime interface {
	// Start launches the runtime. It returns once supervision is running;
	// the first handle arrives asynchronously on Ready.
	Start(ctx context.Context) error

	// Ready delivers a fresh API handle per mount. The channel is closed
	// when the runtime shuts down.
	Ready() <-chan Ready

	// Remount discards the current mount and forces a fresh one, which
	// re-delivers Ready. Handles from the old mount become invalid.
	Remount() error

	// Close shuts the runtime down and releases its resources.
	Close() error
}
