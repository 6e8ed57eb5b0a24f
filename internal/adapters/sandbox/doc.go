// Package sandbox hosts the vendor viewer in an isolated child process
// and bridges it to the controller over a loopback WebSocket.
//
// The runtime serves a fixed bootstrap page that loads the vendor API
// script and declares a single mount element, spawns the configured
// viewer host command pointed at that page, and exposes each bridge
// connection as a streetsmart.API handle. Handles are connection-scoped:
// when the bridge drops, calls on the old handle fail and the next hello
// frame delivers a fresh one.
package sandbox
