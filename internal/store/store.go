package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/isrcanalytics/streamledger/internal/domain"
	"github.com/isrcanalytics/streamledger/internal/store/schema"
)

// Store defines the interface for database operations
type Store interface {
	// CreateTenant creates a new tenant row
	CreateTenant(ctx context.Context, tenant *schema.Tenant) error
	// GetTenant retrieves a tenant by ID
	GetTenant(ctx context.Context, id uuid.UUID) (*schema.Tenant, error)
	// DeleteTenant removes a tenant; every scoped row cascades
	DeleteTenant(ctx context.Context, id uuid.UUID) error
	// ListTenantIDs returns all tenant IDs, for maintenance sweeps
	ListTenantIDs(ctx context.Context) ([]uuid.UUID, error)

	// EnsureTrack upserts a track on (tenant, isrc), refreshing metadata when provided
	EnsureTrack(ctx context.Context, input EnsureTrackInput) (*schema.Track, error)
	// GetTrackByID retrieves a tenant's track by internal ID
	GetTrackByID(ctx context.Context, tenantID uuid.UUID, trackID int64) (*schema.Track, error)
	// GetTrackByISRC retrieves a tenant's track by catalogue code
	GetTrackByISRC(ctx context.Context, tenantID uuid.UUID, isrc string) (*schema.Track, error)
	// ListTracks returns a tenant's full catalogue
	ListTracks(ctx context.Context, tenantID uuid.UUID) ([]schema.Track, error)
	// ListTrackIDs pages a tenant's track IDs in ascending order, for backfills
	ListTrackIDs(ctx context.Context, tenantID uuid.UUID, afterID int64, limit int) ([]int64, error)
	// UpdateTrack updates a track's display metadata
	UpdateTrack(ctx context.Context, tenantID uuid.UUID, trackID int64, input UpdateTrackInput) error
	// DeleteTrack removes a track and its dependent facts
	DeleteTrack(ctx context.Context, tenantID uuid.UUID, trackID int64) error

	// EnsurePlaylist upserts a playlist on (tenant, platform, external_id)
	EnsurePlaylist(ctx context.Context, input EnsurePlaylistInput) (*schema.Playlist, error)
	// GetPlaylistByID retrieves a tenant's playlist by internal ID
	GetPlaylistByID(ctx context.Context, tenantID uuid.UUID, playlistID int64) (*schema.Playlist, error)
	// GetPlaylistByExternalID retrieves a tenant's playlist by platform code
	GetPlaylistByExternalID(ctx context.Context, tenantID uuid.UUID, platform domain.Platform, externalID string) (*schema.Playlist, error)
	// ListPlaylists returns a tenant's watched playlists
	ListPlaylists(ctx context.Context, tenantID uuid.UUID) ([]schema.Playlist, error)
	// ListPlaylistIDs pages a tenant's playlist IDs in ascending order
	ListPlaylistIDs(ctx context.Context, tenantID uuid.UUID, afterID int64, limit int) ([]int64, error)

	// UpsertStreamSnapshot writes a cumulative play count fact, last write wins
	UpsertStreamSnapshot(ctx context.Context, snapshot *schema.StreamSnapshot) error
	// UpsertFollowerSnapshot writes a cumulative follower count fact, last write wins
	UpsertFollowerSnapshot(ctx context.Context, snapshot *schema.FollowerSnapshot) error
	// StreamSnapshotsFrom returns a track's snapshots dated >= from, ascending
	StreamSnapshotsFrom(ctx context.Context, platform domain.Platform, trackID int64, from time.Time) ([]schema.StreamSnapshot, error)
	// PriorStreamSnapshot returns the latest snapshot dated strictly before a day, or nil
	PriorStreamSnapshot(ctx context.Context, platform domain.Platform, trackID int64, before time.Time) (*schema.StreamSnapshot, error)
	// FollowerSnapshotsFrom returns a playlist's snapshots dated >= from, ascending
	FollowerSnapshotsFrom(ctx context.Context, platform domain.Platform, playlistID int64, from time.Time) ([]schema.FollowerSnapshot, error)
	// PriorFollowerSnapshot returns the latest snapshot dated strictly before a day, or nil
	PriorFollowerSnapshot(ctx context.Context, platform domain.Platform, playlistID int64, before time.Time) (*schema.FollowerSnapshot, error)

	// ApplyStreamRecompute atomically swaps a track's derived deltas from a
	// given day forward and reconciles every affected daily total
	ApplyStreamRecompute(ctx context.Context, input ApplyRecomputeInput) (*RecomputeResult, error)
	// ApplyFollowerRecompute is the playlist mirror of ApplyStreamRecompute
	ApplyFollowerRecompute(ctx context.Context, input ApplyRecomputeInput) (*RecomputeResult, error)
	// ApplyDayCorrection reconciles one (tenant, kind, day) against a newly
	// computed total: overwrite before finalization, lag credit after
	ApplyDayCorrection(ctx context.Context, tenantID uuid.UUID, kind domain.AggregateKind, day time.Time, newTotal int64) (credit int64, err error)
	// ResetPassCredits zeroes moved_today ahead of a processing pass
	ResetPassCredits(ctx context.Context, tenantID uuid.UUID, kind domain.AggregateKind) error
	// FinalizeDailyTotals marks every unfinalized total dated on or before the
	// cutoff as finalized, returning how many days were closed
	FinalizeDailyTotals(ctx context.Context, cutoff time.Time) (int64, error)
	// ConservationReport sums reconciled state against latest raw counters
	ConservationReport(ctx context.Context, tenantID uuid.UUID, kind domain.AggregateKind) (*ConservationReport, error)

	// TotalDeltaByDay returns a tenant's daily totals over a window, ascending by day
	TotalDeltaByDay(ctx context.Context, tenantID uuid.UUID, kind domain.AggregateKind, from, to time.Time) ([]DayValue, error)
	// LagCreditsByDay returns a tenant's lag credits over a window, ascending by day
	LagCreditsByDay(ctx context.Context, tenantID uuid.UUID, kind domain.AggregateKind, from, to time.Time) ([]schema.LagCredit, error)
	// TopTrackDeltas returns the highest per-track deltas for one day
	TopTrackDeltas(ctx context.Context, tenantID uuid.UUID, day time.Time, limit int) ([]TrackDelta, error)
	// TrackDeltaSeries returns one track's delta series over a window
	TrackDeltaSeries(ctx context.Context, tenantID uuid.UUID, trackID int64, from, to time.Time) ([]DayValue, error)
	// SnapshotDates returns the distinct stream snapshot dates for a tenant, ascending
	SnapshotDates(ctx context.Context, tenantID uuid.UUID) ([]time.Time, error)
	// FollowerSeries returns one playlist's raw follower counts over a window
	FollowerSeries(ctx context.Context, tenantID uuid.UUID, playlistID int64, from, to time.Time) ([]DayValue, error)
	// TotalFollowerSeries sums follower counts per day across the given playlists
	TotalFollowerSeries(ctx context.Context, tenantID uuid.UUID, playlistIDs []int64, from, to time.Time) ([]DayValue, error)
	// TopArtistShare aggregates delta volume by artist over a window
	TopArtistShare(ctx context.Context, tenantID uuid.UUID, from, to time.Time, limit int) ([]ArtistShare, error)
	// CatalogueSizeSeries returns how many tracks existed at the end of each day
	CatalogueSizeSeries(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]DayValue, error)

	// UpsertCatalogueHealth writes one per-day availability observation
	UpsertCatalogueHealth(ctx context.Context, snapshot *schema.CatalogueHealthSnapshot) error
	// HealthSnapshots returns availability observations over a window with tracks preloaded
	HealthSnapshots(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]schema.CatalogueHealthSnapshot, error)

	// MinUnfinalizedDay returns the earliest day, across both reconciliation
	// streams, that is not yet finalized; ok is false when everything is final
	MinUnfinalizedDay(ctx context.Context) (day time.Time, ok bool, err error)
	// DeleteSnapshotsBefore removes all raw snapshots dated strictly before the cutoff
	DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// CompressSnapshotsBefore thins raw snapshots dated strictly before the
	// cutoff to the last observation per entity per month
	CompressSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
