package sentinel

import "errors"

// Sentinel errors for infrastructure facts. The Directory client and the
// registration engine return these (optionally wrapped) so services can
// translate them into coded domain errors.
//
//   - ErrNotFound: the Directory Service has no such resource
//   - ErrConflict: the Directory Service rejected a write as conflicting
//   - ErrInvalidState: the engine is in the wrong state for the operation (e.g. closed)
//   - ErrUnavailable: the Directory Service is unreachable or the circuit is open
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
