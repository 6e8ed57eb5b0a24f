package streetsmart

import (
	"errors"
	"strings"
)

// ErrNoViewer is returned when an open call succeeds but the vendor
// returns no viewer instance.
var ErrNoViewer = errors.New("streetsmart: open returned no viewer")

// unauthorizedMarker is the fragment the vendor embeds in its rejection
// when the supplied credentials fail the login check.
const unauthorizedMarker = "init::Loading user info failed with status code 401"

// IsUnauthorized reports whether err is the vendor's rejected-login
// failure. The vendor only exposes this condition textually, so the check
// matches the known message fragment anywhere in the error chain's text.
func IsUnauthorized(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), unauthorizedMarker)
}
