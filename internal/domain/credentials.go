package domain

// CredentialRef is the namespace key under which viewer credentials are stored.
// Hosts that share a credential store with other tools address this entry.
const CredentialRef = "streetsmart"

// Credentials is a viewer account credential pair. Both fields must be
// non-empty before authentication is attempted.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Complete reports whether both fields are present.
func (c Credentials) Complete() bool {
	return c.Username != "" && c.Password != ""
}

// Redacted returns a loggable form with the password masked.
func (c Credentials) Redacted() string {
	if c.Password == "" {
		return c.Username
	}
	return c.Username + ":***"
}
