package app

import (
	"github.com/meridian-labs/panobridge/internal/domain"
	"github.com/meridian-labs/panobridge/internal/ports"
	"github.com/meridian-labs/panobridge/pkg/streetsmart"
)

// fallbackErrorMessage is shown when a failure carries no text of its own.
const fallbackErrorMessage = "Unknown error"

// Recovery owns the reload epoch. Bumping the epoch is the only mechanism
// that forces a full destroy+reinitialize cycle: the lifecycle tuple
// includes it, so a bump invalidates the applied tuple and clears the
// retained failure through the teardown that follows.
type Recovery struct {
	logger ports.Logger
	epoch  uint64
}

// NewRecovery creates a recovery controller at epoch zero.
func NewRecovery(logger ports.Logger) *Recovery {
	return &Recovery{logger: logger}
}

// Epoch returns the current reload epoch.
func (r *Recovery) Epoch() uint64 {
	return r.epoch
}

// Reload bumps the reload epoch by exactly one and returns the new value.
func (r *Recovery) Reload() uint64 {
	r.epoch++
	r.logger.Info("reload requested", ports.Uint64("epoch", r.epoch))
	return r.epoch
}

// DeriveMessage renders a failure into display text: the vendor's
// rejected-login failure maps to the localized invalid-credentials
// message, any other failure uses its own text, and a failure without
// text falls back to a generic message.
func DeriveMessage(err error, catalog ports.MessageCatalog) string {
	if err == nil {
		return ""
	}
	if streetsmart.IsUnauthorized(err) {
		return catalog.Resolve(domain.MsgInvalidCredentials)
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallbackErrorMessage
}
