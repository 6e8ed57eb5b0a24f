package sandbox

import (
	"fmt"

	"github.com/meridian-labs/panobridge/internal/ports"
)

// helloAPI is the only bridge API the page may announce.
const helloAPI = "StreetSmartApi"

// DefaultTargetElement is the mount element the bootstrap page declares.
const DefaultTargetElement = "#panobridge-viewer"

// resolveReady maps a hello frame to the controller-facing ready signal.
// The returned handle is bound to conn and stays valid exactly as long
// as that connection lives.
func resolveReady(f frame, conn *bridgeConn) (ports.Ready, error) {
	if f.Type != frameHello {
		return ports.Ready{}, fmt.Errorf("expected hello frame, got %q", f.Type)
	}
	if f.API != helloAPI {
		return ports.Ready{}, fmt.Errorf("unsupported bridge api %q", f.API)
	}

	target := f.Target
	if target == "" {
		target = DefaultTargetElement
	}

	return ports.Ready{
		API:           &apiProxy{conn: conn},
		TargetElement: target,
	}, nil
}
