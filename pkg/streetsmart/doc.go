// Package streetsmart defines the callable surface of the Cyclomedia
// Street Smart panorama viewer library as seen from the Go side of the
// isolation boundary.
//
// The vendor library itself is JavaScript and runs inside a sandboxed
// viewer runtime. This package holds everything both sides of that
// boundary agree on: the [API] and [PanoramaViewer] call surfaces, the
// option payloads for init/open/destroy, the viewer event names and
// their detail decoders, and the classification of the vendor's
// unauthorized-login failure.
//
// Implementations of [API] are produced by the runtime adapter; hosts
// normally never construct one directly.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package streetsmart
