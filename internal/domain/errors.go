package domain

import "errors"

var (
	// ErrNegativeValue is returned when a snapshot reports a negative cumulative value
	ErrNegativeValue = errors.New("cumulative value must not be negative")

	// ErrFutureDate is returned when a snapshot is dated after the current day
	ErrFutureDate = errors.New("snapshot date must not be in the future")

	// ErrUnknownPlatform is returned when a snapshot names a platform outside the enumeration
	ErrUnknownPlatform = errors.New("unknown platform")

	// ErrTenantNotFound is returned when an operation references a tenant that does not exist
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrTrackNotFound is returned when a track lookup finds no row
	ErrTrackNotFound = errors.New("track not found")

	// ErrPlaylistNotFound is returned when a playlist lookup finds no row
	ErrPlaylistNotFound = errors.New("playlist not found")

	// ErrRecomputeContention is returned when a recompute for the same entity is
	// already in flight and the bounded retry budget is exhausted
	ErrRecomputeContention = errors.New("recompute already in progress for entity")

	// ErrRetentionWindowActive is returned when retention or compression would
	// touch raw snapshots whose days are not yet finalized
	ErrRetentionWindowActive = errors.New("retention cutoff reaches into non-finalized days")
)
