package executor

import "errors"

// ErrUnknownDescriptor is returned when an instruction carries a
// code/descriptor pair the dispatch table has no handler for. This should
// be unreachable for metadata produced by internal/metadata.Parse, which
// already validates against the same vocabulary.
var ErrUnknownDescriptor = errors.New("executor: no handler for instruction")
