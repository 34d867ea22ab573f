package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped) so
// services can translate them into domain errors.
//
// - ErrNotFound: record does not exist in the store
// - ErrAlreadyUsed: a payment memo has already been consumed by a mint
// - ErrConflict: a uniqueness constraint would be violated
// - ErrInvalidState: record is in the wrong state for the requested operation
// - ErrUnavailable: backing store temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
