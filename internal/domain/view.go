package domain

// ViewKind identifies which of the mutually exclusive view variants the host
// should render.
type ViewKind string

// View variants, in the order the selector considers them.
const (
	// ViewCredentials: no credentials are present; the main content is the
	// credential prompt itself.
	ViewCredentials ViewKind = "credentials"

	// ViewLoadingAPI: the viewer runtime has not announced an API handle yet.
	ViewLoadingAPI ViewKind = "loading-api"

	// ViewInitializing: the API handle exists but authentication has not
	// completed.
	ViewInitializing ViewKind = "initializing"

	// ViewZoomIn: the viewer is ready but the host's map point is not visible
	// at the current zoom level.
	ViewZoomIn ViewKind = "zoom-in"

	// ViewNoImage: the viewer is ready but no panorama image is selected.
	ViewNoImage ViewKind = "no-image"

	// ViewPanorama: a panorama session is (or should be) open.
	ViewPanorama ViewKind = "panorama"

	// ViewError: a lifecycle or session failure is being presented.
	ViewError ViewKind = "error"
)

// MessageID is a stable identifier resolved to display text by a message
// catalog. The renderer owns presentation; these IDs are the contract.
type MessageID string

const (
	MsgInvalidCredentials MessageID = "invalid-credentials"
	MsgZoomIn             MessageID = "zoom-in"
	MsgInitializing       MessageID = "initializing"
	MsgLoadingAPI         MessageID = "loading-api"
	MsgErrorOccurred      MessageID = "error-occurred"
	MsgReloadAPI          MessageID = "reload-api"
)

// ViewState is the presentation descriptor handed to the host. It is pure
// data: the selector derives it, the host renders it.
type ViewState struct {
	// Kind selects the main view variant.
	Kind ViewKind `json:"kind"`

	// ShowCredentialsForm asks the host to overlay its credential entry form.
	// It is independent of Kind: it can accompany any variant.
	ShowCredentialsForm bool `json:"showCredentialsForm"`

	// Loading marks variants that represent transient progress.
	Loading bool `json:"loading"`

	// MessageID names the placeholder or error caption to display, when the
	// variant carries one.
	MessageID MessageID `json:"messageId,omitempty"`

	// ErrorMessage is the resolved failure text for ViewError.
	ErrorMessage string `json:"errorMessage,omitempty"`

	// CanReload marks a ViewError that the host may offer to recover from.
	CanReload bool `json:"canReload,omitempty"`

	// Style is the host-supplied base style passed through untouched.
	Style map[string]string `json:"style,omitempty"`
}
