package domain

import "time"

const (
	// DEFAULT_LAG_WINDOW is how long after a day corrections are still folded
	// into its daily total before the day finalizes
	DEFAULT_LAG_WINDOW = 7 * 24 * time.Hour

	// DEFAULT_RAW_RETENTION is how long raw snapshots are kept before deletion
	DEFAULT_RAW_RETENTION = 400 * 24 * time.Hour

	// DEFAULT_COMPRESSION_AGE is how old raw history must be before it is
	// thinned to monthly anchors
	DEFAULT_COMPRESSION_AGE = 90 * 24 * time.Hour

	// SIGNATURE_REPLAY_WINDOW bounds how old a signed collector payload may be
	SIGNATURE_REPLAY_WINDOW = 5 * time.Minute
)
