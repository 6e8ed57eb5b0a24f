package streetsmart

import "context"

// API is the authenticated entry surface of the viewer library.
// A handle is scoped to one runtime mount: once the mount goes away every
// call returns an error.
type API interface {
	// Init authenticates and initializes the library against the mount
	// element named in opts. It must complete before Open is called.
	Init(ctx context.Context, opts InitOptions) error

	// Open opens viewers for the given panorama image identifier and
	// returns them in vendor order. Callers normally use the first.
	Open(ctx context.Context, imageID string, opts ViewerOptions) ([]PanoramaViewer, error)

	// Destroy tears the library down and releases the mount element.
	Destroy(ctx context.Context, opts DestroyOptions) error
}

// PanoramaViewer is one open panorama viewing surface.
type PanoramaViewer interface {
	// On subscribes fn to the named viewer event and returns the
	// subscription to hand back to Off.
	On(ctx context.Context, event string, fn func(Event)) (Subscription, error)

	// Off removes a subscription created by On on this viewer.
	Off(ctx context.Context, sub Subscription) error
}

// Subscription identifies one registered event handler.
type Subscription struct {
	// ID is the bridge-assigned identifier of the registration.
	ID string

	// Event is the viewer event the handler was registered for.
	Event string
}

// DestroyOptions names the mount element the library was initialized
// against. Destroy must receive the element that was active at init time.
type DestroyOptions struct {
	TargetElement string `json:"targetElement"`
}
