package requestutil

import "github.com/kart-io/sentinel-kb/pkg/infra/middleware/common"

// Header constants shared with the common package.
const (
	HeaderXRequestID = common.HeaderXRequestID
	HeaderTraceID    = common.HeaderTraceID
)

// RequestIDKey is the context key type for request ID.
type RequestIDKey = common.RequestIDKey

// Re-exported request ID helpers. The canonical implementations live in
// the common package to avoid import cycles between middleware subpackages.
var (
	GetRequestID      = common.GetRequestID
	WithRequestID     = common.WithRequestID
	GenerateRequestID = common.GenerateRequestID
)
