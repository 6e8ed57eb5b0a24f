package ports

import "github.com/meridian-labs/panobridge/pkg/log"

// Logger aliases the public pkg/log contract so the application layer can
// take any host-injected logger through a single port.
type Logger = log.Logger

// Field aliases pkg/log.Field.
type Field = log.Field

// Field constructors re-exported for the application layer.
var (
	String   = log.String
	Strs     = log.Strs
	Int      = log.Int
	Int64    = log.Int64
	Uint64   = log.Uint64
	Float64  = log.Float64
	Bool     = log.Bool
	Duration = log.Duration
	Err      = log.Err
	Any      = log.Any
)
