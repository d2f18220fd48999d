package model

import "errors"

// Error taxonomy surfaced to callers. Structural violations and exhausted
// resources are errors; low-confidence extraction and detected conflicts
// are routed to the validation queue instead.
var (
	// ErrUnknownEntity is returned when a relationship or mention references
	// a key that is not in the store. The write is rejected, never auto-created.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrInvalidSpan is returned for a mention whose span_start >= span_end
	ErrInvalidSpan = errors.New("invalid mention span")

	// ErrSessionAlreadyActive is returned when starting a discovery session
	// while another is running or paused
	ErrSessionAlreadyActive = errors.New("discovery session already active")

	// ErrEmptySeed is returned when graph expansion is given no seed entities
	ErrEmptySeed = errors.New("empty seed set")

	// ErrClaimConflict is returned when a claim finds no pending entry,
	// typically after losing a race; callers retry by claiming again
	ErrClaimConflict = errors.New("no claimable queue entry")

	// ErrExtractionTimeout marks a single unit that exceeded the per-unit
	// timeout; the unit is skipped and the session continues
	ErrExtractionTimeout = errors.New("extraction timed out")

	// ErrStorageUnavailable is fatal for a session; the session transitions
	// to error and is resumable from its processed counter
	ErrStorageUnavailable = errors.New("storage unavailable")
)
