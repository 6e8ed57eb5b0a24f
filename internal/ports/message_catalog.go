package ports

import "github.com/meridian-labs/panobridge/internal/domain"

// MessageCatalog resolves stable message IDs to display text.
// Implementations return the id itself for IDs they do not know, so a hole
// in a catalog degrades to a readable token instead of an empty caption.
type MessageCatalog interface {
	Resolve(id domain.MessageID) string
}
