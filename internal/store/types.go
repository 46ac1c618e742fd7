package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/isrcanalytics/streamledger/internal/domain"
)

// EnsureTrackInput carries an upsert of a catalogue track. Title and Artist
// overwrite the stored values only when non-nil.
type EnsureTrackInput struct {
	TenantID    uuid.UUID
	ISRC        string
	Title       *string
	Artist      *string
	ReleaseDate *time.Time
}

// UpdateTrackInput carries a metadata update. Nil fields are left untouched.
type UpdateTrackInput struct {
	Title       *string
	Artist      *string
	ReleaseDate *time.Time
}

// EnsurePlaylistInput carries an upsert of a watched playlist.
type EnsurePlaylistInput struct {
	TenantID   uuid.UUID
	Platform   domain.Platform
	ExternalID string
	Name       *string
}

// DeltaRow is one recomputed daily increment for a single entity.
type DeltaRow struct {
	Day   time.Time
	Delta int64
}

// ApplyRecomputeInput carries an entity's freshly derived deltas. Every stored
// delta for the entity dated on or after From is replaced in one transaction
// and each touched day's total is reconciled.
type ApplyRecomputeInput struct {
	TenantID uuid.UUID
	Platform domain.Platform
	EntityID int64
	From     time.Time
	Deltas   []DeltaRow
}

// AppliedCredit records one lag credit produced while reconciling a recompute.
type AppliedCredit struct {
	Day    time.Time
	Credit int64
}

// RecomputeResult reports which days a recompute touched and which of them
// were already finalized and therefore absorbed the change as lag credits.
type RecomputeResult struct {
	AffectedDays []time.Time
	Credits      []AppliedCredit
}

// DayValue is one point of a per-day series.
type DayValue struct {
	Day   time.Time `json:"day"`
	Value int64     `json:"value"`
}

// TrackDelta is one entry of a daily leaderboard.
type TrackDelta struct {
	TrackID int64  `json:"trackID"`
	ISRC    string `json:"isrc"`
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	Delta   int64  `json:"delta"`
}

// ArtistShare is one artist's share of delta volume over a window.
type ArtistShare struct {
	Artist string `json:"artist"`
	Delta  int64  `json:"delta"`
}

// ConservationReport compares reconciled volume against raw counters. For a
// well-behaved monotonic history TotalsSum plus CreditsSum equals LatestSum;
// platform counter resets show up as nonzero Drift.
type ConservationReport struct {
	TotalsSum  int64
	CreditsSum int64
	LatestSum  int64
	Drift      int64
}
