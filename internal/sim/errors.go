package sim

import "errors"

// Taxonomy tags for the error classes named in spec §7. Wrapped with
// fmt.Errorf("%w: ...") around the underlying config/metadata/runtime
// error so callers can classify a failure with errors.Is without string
// matching.
var (
	ErrConfig   = errors.New("sim: configuration error")
	ErrMetaData = errors.New("sim: meta-data error")
	ErrRuntime  = errors.New("sim: runtime invariant violation")
)
