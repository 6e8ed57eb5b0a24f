package panobridge

// State represents the viewer lifecycle state.
type State int

const (
	// StateUninitialized means no init attempt has run against the current
	// viewer handle.
	StateUninitialized State = iota

	// StateInitializing means an init call is in flight.
	StateInitializing

	// StateInitialized means the viewer accepted the credentials and is
	// ready to open panoramas.
	StateInitialized

	// StateError means init or a panorama open failed; see the view's
	// error message and Reload().
	StateError
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateInitializing:
		return "Initializing"
	case StateInitialized:
		return "Initialized"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// EventHandler receives viewer notifications.
// Callbacks are invoked synchronously from the controller loop and must
// not block. If not provided, no events are emitted.
type EventHandler interface {
	// OnStateChange is called when the viewer lifecycle state changes.
	OnStateChange(event StateChangeEvent)

	// OnViewChange is called when the derived view changes.
	OnViewChange(event ViewChangeEvent)

	// OnPointOfView is called when the user rotates or tilts the panorama.
	OnPointOfView(event PointOfViewEvent)

	// OnLocationChange is called when the user walks to another recording.
	OnLocationChange(event LocationChangeEvent)

	// OnViewerError is called when the viewer enters the error state.
	OnViewerError(event ViewerErrorEvent)
}

// StateChangeEvent carries a viewer lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// ViewChangeEvent carries the freshly derived view.
type ViewChangeEvent struct {
	View View
}

// PointOfViewEvent carries a viewer orientation update.
type PointOfViewEvent struct {
	Heading float64
	Pitch   float64
}

// LocationChangeEvent carries a user-driven location change. The location
// includes the full recording properties with the image id set.
type LocationChangeEvent struct {
	Location Location
}

// ViewerErrorEvent carries a viewer failure and its display message.
type ViewerErrorEvent struct {
	Error   error
	Message string
}

// BaseEventHandler provides no-op implementations of all EventHandler
// methods. Embed it to implement only the events you care about.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)       {}
func (BaseEventHandler) OnViewChange(ViewChangeEvent)         {}
func (BaseEventHandler) OnPointOfView(PointOfViewEvent)       {}
func (BaseEventHandler) OnLocationChange(LocationChangeEvent) {}
func (BaseEventHandler) OnViewerError(ViewerErrorEvent)       {}
