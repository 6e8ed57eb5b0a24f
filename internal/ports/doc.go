// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// application needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [ViewerRuntime]: Hosts the vendor viewer library in an isolated runtime
//   - [CredentialStore]: Persists and loads viewer credentials
//   - [MessageCatalog]: Resolves stable message IDs to display text
//   - [Logger]: Structured logging consumed throughout the application layer
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement these interfaces
// with concrete implementations (child process + WebSocket bridge, file
// system, static catalogs, etc.).
//
// This separation enables:
//   - Testing application logic with mock implementations
//   - Swapping infrastructure without changing business logic
//   - Clear boundaries and dependency direction
package ports
