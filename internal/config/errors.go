package config

import "errors"

// Sentinel errors for configuration-file failures (spec §7: Configuration
// errors are fatal at load time). Callers use errors.Is to classify.
var (
	ErrUnexpectedHeader      = errors.New("config: unexpected or missing header")
	ErrUnexpectedTrailer     = errors.New("config: unexpected or missing trailer")
	ErrMalformedLine         = errors.New("config: malformed line")
	ErrUnknownKeyword        = errors.New("config: unknown keyword")
	ErrDuplicateKeyword      = errors.New("config: duplicate keyword")
	ErrMissingKeyword        = errors.New("config: missing required keyword")
	ErrMalformedValue        = errors.New("config: malformed value")
	ErrNonPositiveValue      = errors.New("config: non-positive value")
	ErrUnknownUnit           = errors.New("config: unknown unit")
	ErrUnknownSchedulingCode = errors.New("config: unknown CPU scheduling code")
	ErrUnknownLogSink        = errors.New("config: unknown log sink")
)
