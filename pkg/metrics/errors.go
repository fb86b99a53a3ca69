package metrics

import (
	"errors"
)

// Sentinel kind for failed observations; reserved for collectors that
// can reject samples.
var (
	ErrObserveFailed = errors.New("metrics observe failed")
)
