package pipeline

import (
	"errors"

	"github.com/pallapothu30/weather-etl/internal/config"
	"github.com/pallapothu30/weather-etl/internal/ingest"
	"github.com/pallapothu30/weather-etl/internal/store"
	"github.com/pallapothu30/weather-etl/internal/transform"
)

// Stable failure labels for logs and the runs metric.
const (
	KindResolution  = "resolution"
	KindFetch       = "fetch"
	KindTransform   = "transform"
	KindSchemaSetup = "schema_setup"
	KindLoad        = "load"
	KindConfig      = "config"
	KindUnknown     = "unknown"
)

// FailureKind maps an error to the stage that produced it. nil maps to "".
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, config.ErrInvalid):
		return KindConfig
	case errors.Is(err, ingest.ErrResolution):
		return KindResolution
	case errors.Is(err, ingest.ErrFetch):
		return KindFetch
	case errors.Is(err, transform.ErrTransform):
		return KindTransform
	case errors.Is(err, store.ErrSchemaSetup):
		return KindSchemaSetup
	case errors.Is(err, store.ErrLoad):
		return KindLoad
	default:
		return KindUnknown
	}
}
