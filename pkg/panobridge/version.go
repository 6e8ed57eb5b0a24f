package panobridge

import (
	"github.com/meridian-labs/panobridge/pkg/lifecycle"
	"github.com/meridian-labs/panobridge/pkg/log"
	"github.com/meridian-labs/panobridge/pkg/streetsmart"
)

// Version information for the panobridge module.
const (
	// Version is the current version of the panobridge module.
	Version = "1.0.0"

	// MinCompatibleVersion is the minimum version that is compatible with this version.
	MinCompatibleVersion = "1.0.0"
)

// ModuleVersions returns the current versions of all sub-modules.
func ModuleVersions() map[string]string {
	return map[string]string{
		"panobridge":  Version,
		"lifecycle":   lifecycle.Version,
		"log":         log.Version,
		"streetsmart": streetsmart.Version,
	}
}

// CompatibilityMatrix returns the minimum compatible versions of all
// sub-modules.
func CompatibilityMatrix() map[string]string {
	return map[string]string{
		"panobridge":  MinCompatibleVersion,
		"lifecycle":   lifecycle.MinCompatibleVersion,
		"log":         log.MinCompatibleVersion,
		"streetsmart": streetsmart.MinCompatibleVersion,
	}
}
