package app

import "github.com/meridian-labs/panobridge/internal/domain"

// PresentationInputs is the full state the selector derives a view from.
type PresentationInputs struct {
	CredentialsPresent bool
	APIReady           bool
	State              LifecycleState
	ImageID            string
	MapPointVisible    bool
	ErrorMessage       string
	CanReload          bool
	Style              map[string]string
}

// SelectView derives the presentation descriptor for the current state.
// It is a pure function: same inputs, same view.
//
// The credentials form is an overlay, independent of the main variant.
// The error banner wins over every other variant. With credentials
// present and no error, the empty-state variants are considered in fixed
// order before the panorama becomes visible: no API handle, then not yet
// initialized, then map point not visible, then no image selected.
func SelectView(in PresentationInputs) domain.ViewState {
	v := domain.ViewState{
		ShowCredentialsForm: !in.CredentialsPresent,
		Style:               in.Style,
	}

	switch {
	case in.State == StateError:
		v.Kind = domain.ViewError
		v.MessageID = domain.MsgErrorOccurred
		v.ErrorMessage = in.ErrorMessage
		v.CanReload = in.CanReload

	case !in.CredentialsPresent:
		// Empty-state variants require credentials; without them the
		// prompt is the content.
		v.Kind = domain.ViewCredentials

	case !in.APIReady:
		v.Kind = domain.ViewLoadingAPI
		v.MessageID = domain.MsgLoadingAPI
		v.Loading = true

	case in.State != StateInitialized:
		v.Kind = domain.ViewInitializing
		v.MessageID = domain.MsgInitializing
		v.Loading = true

	case !in.MapPointVisible:
		v.Kind = domain.ViewZoomIn
		v.MessageID = domain.MsgZoomIn

	case in.ImageID == "":
		v.Kind = domain.ViewNoImage

	default:
		v.Kind = domain.ViewPanorama
	}

	return v
}

// viewEqual compares the host-visible fields of two views. Style is
// excluded: it is fixed per instance and never drives a change event.
func viewEqual(a, b domain.ViewState) bool {
	return a.Kind == b.Kind &&
		a.ShowCredentialsForm == b.ShowCredentialsForm &&
		a.Loading == b.Loading &&
		a.MessageID == b.MessageID &&
		a.ErrorMessage == b.ErrorMessage &&
		a.CanReload == b.CanReload
}
