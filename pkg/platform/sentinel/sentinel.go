package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: a uniqueness constraint refused the write
// - ErrProtected: deletion refused because downstream data references the row
// - ErrInvalidState: entity in wrong state for requested operation
//
// For validation errors (bad input, broken invariants), use
// pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrProtected    = errors.New("protected")
	ErrInvalidState = errors.New("invalid state")
)
