package metadata

import "errors"

// Sentinel errors for meta-data parse failures (spec §4.1). Any failure
// aborts parsing — partial streams are never returned.
var (
	ErrUnexpectedHeader  = errors.New("metadata: unexpected or missing header")
	ErrUnexpectedTrailer = errors.New("metadata: unexpected or missing trailer")
	ErrUnknownCode       = errors.New("metadata: unknown code")
	ErrUnknownDescriptor = errors.New("metadata: unknown descriptor")
	ErrCyclesOutOfRange  = errors.New("metadata: cycles out of range")
	ErrMissingTerminator = errors.New("metadata: missing terminator")
)
