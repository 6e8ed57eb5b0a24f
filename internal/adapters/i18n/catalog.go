// Package i18n provides the built-in message catalogs.
package i18n

import (
	"strings"

	"github.com/meridian-labs/panobridge/internal/domain"
)

// Catalog implements ports.MessageCatalog backed by a static table.
// Unknown IDs resolve to their own text so a missing entry stays visible
// instead of rendering blank.
type Catalog struct {
	messages map[domain.MessageID]string
}

// Resolve returns the display text for id.
func (c *Catalog) Resolve(id domain.MessageID) string {
	if s, ok := c.messages[id]; ok {
		return s
	}
	return string(id)
}

// English returns the built-in English catalog.
func English() *Catalog {
	return &Catalog{messages: map[domain.MessageID]string{
		domain.MsgInvalidCredentials: "Invalid username, password or API key",
		domain.MsgZoomIn:             "Zoom in on the map to load the street view",
		domain.MsgInitializing:       "Initializing street view",
		domain.MsgLoadingAPI:         "Loading street view API",
		domain.MsgErrorOccurred:      "An error occurred in the street view",
		domain.MsgReloadAPI:          "Reload street view",
	}}
}

// Dutch returns the built-in Dutch catalog.
func Dutch() *Catalog {
	return &Catalog{messages: map[domain.MessageID]string{
		domain.MsgInvalidCredentials: "Ongeldige gebruikersnaam, wachtwoord of API-sleutel",
		domain.MsgZoomIn:             "Zoom in op de kaart om het straatbeeld te laden",
		domain.MsgInitializing:       "Straatbeeld initialiseren",
		domain.MsgLoadingAPI:         "Straatbeeld-API laden",
		domain.MsgErrorOccurred:      "Er is een fout opgetreden in het straatbeeld",
		domain.MsgReloadAPI:          "Straatbeeld opnieuw laden",
	}}
}

// ForLocale returns the catalog matching a BCP 47 locale tag, falling
// back to English.
func ForLocale(locale string) *Catalog {
	tag := strings.ToLower(locale)
	if tag == "nl" || strings.HasPrefix(tag, "nl-") {
		return Dutch()
	}
	return English()
}
