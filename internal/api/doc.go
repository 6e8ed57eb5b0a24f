// Package api exposes the loopback HTTP control plane for a panobridge
// daemon. Routes are versioned under /v1; payload types are decoupled
// from the application types so internal refactors do not break clients.
package api
