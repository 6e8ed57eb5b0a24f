// Package domain contains the core domain entities and value objects for panobridge.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (WebSocket, file system, logging) and
// contains only pure business logic.
//
// # Entities
//
//   - [Credentials]: Viewer account credentials (username/password pair)
//   - [Location]: A geographic location with its panorama properties bag
//   - [PointOfView]: A viewing direction (heading/pitch)
//   - [ViewState]: The presentation descriptor derived for the host to render
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Focused on business rules and invariants
//   - Testable without mocks or external systems
package domain
