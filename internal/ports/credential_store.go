package ports

import (
	"context"

	"github.com/meridian-labs/panobridge/internal/domain"
)

// CredentialStore persists viewer credentials under a reference key.
// Implementations persist atomically (e.g., write to temp file, then rename)
// so a crash never leaves a torn entry.
type CredentialStore interface {
	// Get retrieves the credentials stored under ref.
	// The bool reports whether an entry exists; an absent entry is not an
	// error. Errors are reserved for actual read failures.
	Get(ctx context.Context, ref string) (domain.Credentials, bool, error)

	// Set stores credentials under ref, replacing any previous entry.
	Set(ctx context.Context, ref string, creds domain.Credentials) error
}
