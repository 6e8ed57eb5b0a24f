package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/meridian-labs/panobridge/internal/domain"
)

// CredentialFile implements ports.CredentialStore using one JSON file
// per credential reference.
type CredentialFile struct {
	dir string
}

// NewCredentialFile creates a credential store rooted at dir.
func NewCredentialFile(dir string) *CredentialFile {
	return &CredentialFile{dir: dir}
}

// Get retrieves the stored credentials for ref. A missing file reports
// not-found with a nil error.
func (s *CredentialFile) Get(ctx context.Context, ref string) (domain.Credentials, bool, error) {
	data, err := os.ReadFile(s.Path(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Credentials{}, false, nil
		}
		return domain.Credentials{}, false, err
	}

	var creds domain.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return domain.Credentials{}, false, err
	}

	return creds, true, nil
}

// Set persists the credentials for ref atomically.
// Uses atomic write (write to temp file, then rename) to prevent corruption.
func (s *CredentialFile) Set(ctx context.Context, ref string, creds domain.Credentials) error {
	// Ensure directory exists
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}

	path := s.Path(ref)
	tmp := path + ".tmp"

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}

	// Credentials are secrets; keep the file owner-only.
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}

	// Atomic rename
	return os.Rename(tmp, path)
}

// Path returns the full path of the file backing ref.
func (s *CredentialFile) Path(ref string) string {
	return filepath.Join(s.dir, ref+".json")
}
