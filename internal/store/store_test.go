package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isrcanalytics/streamledger/internal/domain"
	"github.com/isrcanalytics/streamledger/internal/store/schema"
)

// =============================================================================
// Test Data Builders
// =============================================================================

func mustDay(t *testing.T, s string) time.Time {
	day, err := domain.ParseDay(s)
	require.NoError(t, err)
	return day.Time()
}

func createTestTenant(t *testing.T, store Store, name string) *schema.Tenant {
	tenant := &schema.Tenant{ID: uuid.New(), Name: name}
	require.NoError(t, store.CreateTenant(context.Background(), tenant))
	return tenant
}

func createTestTrack(t *testing.T, store Store, tenantID uuid.UUID, isrc, title, artist string) *schema.Track {
	track, err := store.EnsureTrack(context.Background(), EnsureTrackInput{
		TenantID: tenantID,
		ISRC:     isrc,
		Title:    &title,
		Artist:   &artist,
	})
	require.NoError(t, err)
	return track
}

func createTestPlaylist(t *testing.T, store Store, tenantID uuid.UUID, externalID, name string) *schema.Playlist {
	playlist, err := store.EnsurePlaylist(context.Background(), EnsurePlaylistInput{
		TenantID:   tenantID,
		Platform:   domain.PlatformSpotify,
		ExternalID: externalID,
		Name:       &name,
	})
	require.NoError(t, err)
	return playlist
}

func upsertStream(t *testing.T, store Store, tenantID uuid.UUID, trackID int64, date string, playcount int64) {
	require.NoError(t, store.UpsertStreamSnapshot(context.Background(), &schema.StreamSnapshot{
		TenantID:     tenantID,
		Platform:     domain.PlatformSpotify,
		TrackID:      trackID,
		SnapshotDate: mustDay(t, date),
		Playcount:    playcount,
	}))
}

func applyStreamDeltas(t *testing.T, store Store, tenantID uuid.UUID, trackID int64, from string, deltas map[string]int64) *RecomputeResult {
	rows := make([]DeltaRow, 0, len(deltas))
	for date, delta := range deltas {
		rows = append(rows, DeltaRow{Day: mustDay(t, date), Delta: delta})
	}
	result, err := store.ApplyStreamRecompute(context.Background(), ApplyRecomputeInput{
		TenantID: tenantID,
		Platform: domain.PlatformSpotify,
		EntityID: trackID,
		From:     mustDay(t, from),
		Deltas:   rows,
	})
	require.NoError(t, err)
	return result
}

// =============================================================================
// Tenants and Dimensions
// =============================================================================

func testTenantLifecycle(t *testing.T, store Store) {
	ctx := context.Background()

	tenant := createTestTenant(t, store, "Test Label")

	fetched, err := store.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, fetched.ID)
	assert.Equal(t, "Test Label", fetched.Name)

	_, err = store.GetTenant(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)

	ids, err := store.ListTenantIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, tenant.ID)

	// deleting the tenant cascades through its catalogue and facts
	track := createTestTrack(t, store, tenant.ID, "USRC17607839", "Song A", "Artist A")
	upsertStream(t, store, tenant.ID, track.ID, "2026-01-01", 100)

	require.NoError(t, store.DeleteTenant(ctx, tenant.ID))
	_, err = store.GetTrackByID(ctx, tenant.ID, track.ID)
	assert.ErrorIs(t, err, domain.ErrTrackNotFound)

	assert.ErrorIs(t, store.DeleteTenant(ctx, tenant.ID), domain.ErrTenantNotFound)
}

func testEnsureTrack(t *testing.T, store Store) {
	ctx := context.Background()
	tenant := createTestTenant(t, store, "Label A")

	track := createTestTrack(t, store, tenant.ID, "USRC17607839", "Song A", "Artist A")
	assert.NotZero(t, track.ID)
	assert.Equal(t, "Song A", track.Title)

	// re-ensuring the same ISRC refreshes metadata without a second row
	newTitle := "Song A (Remastered)"
	updated, err := store.EnsureTrack(ctx, EnsureTrackInput{
		TenantID: tenant.ID,
		ISRC:     "USRC17607839",
		Title:    &newTitle,
	})
	require.NoError(t, err)
	assert.Equal(t, track.ID, updated.ID)
	assert.Equal(t, newTitle, updated.Title)
	assert.Equal(t, "Artist A", updated.Artist)

	// ensuring with no metadata leaves the stored values alone
	same, err := store.EnsureTrack(ctx, EnsureTrackInput{TenantID: tenant.ID, ISRC: "USRC17607839"})
	require.NoError(t, err)
	assert.Equal(t, track.ID, same.ID)
	assert.Equal(t, newTitle, same.Title)

	byISRC, err := store.GetTrackByISRC(ctx, tenant.ID, "USRC17607839")
	require.NoError(t, err)
	assert.Equal(t, track.ID, byISRC.ID)

	tracks, err := store.ListTracks(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Len(t, tracks, 1)
}

func testTrackTenantIsolation(t *testing.T, store Store) {
	ctx := context.Background()
	tenantA := createTestTenant(t, store, "Label A")
	tenantB := createTestTenant(t, store, "Label B")

	// the same ISRC held by two tenants yields two independent rows
	trackA := createTestTrack(t, store, tenantA.ID, "USRC17607839", "Song", "Artist")
	trackB := createTestTrack(t, store, tenantB.ID, "USRC17607839", "Song", "Artist")
	assert.NotEqual(t, trackA.ID, trackB.ID)

	// a tenant cannot reach another tenant's track by ID
	_, err := store.GetTrackByID(ctx, tenantA.ID, trackB.ID)
	assert.ErrorIs(t, err, domain.ErrTrackNotFound)

	upsertStream(t, store, tenantA.ID, trackA.ID, "2026-01-01", 100)
	upsertStream(t, store, tenantB.ID, trackB.ID, "2026-01-01", 900)

	applyStreamDeltas(t, store, tenantA.ID, trackA.ID, "2026-01-01", map[string]int64{"2026-01-01": 100})
	applyStreamDeltas(t, store, tenantB.ID, trackB.ID, "2026-01-01", map[string]int64{"2026-01-01": 900})

	totalsA, err := store.TotalDeltaByDay(ctx, tenantA.ID, domain.AggregateKindStreams,
		mustDay(t, "2026-01-01"), mustDay(t, "2026-01-31"))
	require.NoError(t, err)
	require.Len(t, totalsA, 1)
	assert.Equal(t, int64(100), totalsA[0].Value)
}

func testUpdateAndDeleteTrack(t *testing.T, store Store) {
	ctx := context.Background()
	tenant := createTestTenant(t, store, "Label A")
	track := createTestTrack(t, store, tenant.ID, "USRC17607839", "Song A", "Artist A")

	newArtist := "Artist A feat. B"
	require.NoError(t, store.UpdateTrack(ctx, tenant.ID, track.ID, UpdateTrackInput{Artist: &newArtist}))

	updated, err := store.GetTrackByID(ctx, tenant.ID, track.ID)
	require.NoError(t, err)
	assert.Equal(t, newArtist, updated.Artist)
	assert.Equal(t, "Song A", updated.Title)

	assert.ErrorIs(t,
		store.UpdateTrack(ctx, tenant.ID, 999999, UpdateTrackInput{Artist: &newArtist}),
		domain.ErrTrackNotFound)

	require.NoError(t, store.DeleteTrack(ctx, tenant.ID, track.ID))
	_, err = store.GetTrackByID(ctx, tenant.ID, track.ID)
	assert.ErrorIs(t, err, domain.ErrTrackNotFound)
}

func testEnsurePlaylist(t *testing.T, store Store) {
	ctx := context.Background()
	tenant := createTestTenant(t, store, "Label A")

	playlist := createTestPlaylist(t, store, tenant.ID, "37i9dQZF1DXcBWIGoYBM5M", "Today's Top Hits")
	assert.NotZero(t, playlist.ID)

	renamed := "Top Hits"
	again, err := store.EnsurePlaylist(ctx, EnsurePlaylistInput{
		TenantID:   tenant.ID,
		Platform:   domain.PlatformSpotify,
		ExternalID: "37i9dQZF1DXcBWIGoYBM5M",
		Name:       &renamed,
	})
	require.NoError(t, err)
	assert.Equal(t, playlist.ID, again.ID)
	assert.Equal(t, renamed, again.Name)

	playlists, err := store.ListPlaylists(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Len(t, playlists, 1)

	_, err = store.GetPlaylistByID(ctx, tenant.ID, 999999)
	assert.ErrorIs(t, err, domain.ErrPlaylistNotFound)

	found, err := store.GetPlaylistByExternalID(ctx, tenant.ID, domain.PlatformSpotify, "37i9dQZF1DXcBWIGoYBM5M")
	require.NoError(t, err)
	assert.Equal(t, playlist.ID, found.ID)

	_, err = store.GetPlaylistByExternalID(ctx, tenant.ID, domain.PlatformSpotify, "unregistered")
	assert.ErrorIs(t, err, domain.ErrPlaylistNotFound)
}

// =============================================================================
// Fact Store
// =============================================================================

func testSnapshotUpsert(t *testing.T, store Store) {
	ctx := context.Background()
	tenant := createTestTenant(t, store, "Label A")
	track := createTestTrack(t, store, tenant.ID, "USRC17607839", "Song A", "Artist A")

	upsertStream(t, store, tenant.ID, track.ID, "2026-01-01", 100)
	// re-reported value for the same key overwrites, last write wins
	upsertStream(t, store, tenant.ID, track.ID, "2026-01-01", 120)

	snapshots, err := store.StreamSnapshotsFrom(ctx, domain.PlatformSpotify, track.ID, mustDay(t, "2026-01-01"))
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, int64(120), snapshots[0].Playcount)

	prior, err := store.PriorStreamSnapshot(ctx, domain.PlatformSpotify, track.ID, mustDay(t, "2026-01-01"))
	require.NoError(t, err)
	assert.Nil(t, prior)

	upsertStream(t, store, tenant.ID, track.ID, "2026-01-03", 150)
	prior, err = store.PriorStreamSnapshot(ctx, domain.PlatformSpotify, track.ID, mustDay(t, "2026-01-03"))
	require.NoError(t, err)
	require.NotNil(t, prior)
	assert.Equal(t, int64(120), prior.Playcount)

	// ordering is ascending by date
	snapshots, err = store.StreamSnapshotsFrom(ctx, domain.PlatformSpotify, track.ID, mustDay(t, "2026-01-01"))
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.True(t, snapshots[0].SnapshotDate.Before(snapshots[1].SnapshotDate))
}

func testFollowerSnapshotUpsert(t *testing.T, store Store) {
	ctx := context.Background()
	tenant := createTestTenant(t, store, "Label A")
	playlist := createTestPlaylist(t, store, tenant.ID, "37i9dQZF1DXcBWIGoYBM5M", "Hits")

	snap := &schema.FollowerSnapshot{
		TenantID:     tenant.ID,
		Platform:     domain.PlatformSpotify,
		PlaylistID:   playlist.ID,
		SnapshotDate: mustDay(t, "2026-01-01"),
		Followers:    5000,
	}
	require.NoError(t, store.UpsertFollowerSnapshot(ctx, snap))

	snap2 := &schema.FollowerSnapshot{
		TenantID:     tenant.ID,
		Platform:     domain.PlatformSpotify,
		PlaylistID:   playlist.ID,
		SnapshotDate: mustDay(t, "2026-01-01"),
		Followers:    5100,
	}
	require.NoError(t, store.UpsertFollowerSnapshot(ctx, snap2))

	snapshots, err := store.FollowerSnapshotsFrom(ctx, domain.PlatformSpotify, playlist.ID, mustDay(t, "2026-01-01"))
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, int64(5100), snapshots[0].Followers)
}

// =============================================================================
// Recompute and Reconciliation
// =============================================================================

func testApplyStreamRecompute(t *testing.T, store Store) {
	ctx := context.Background()
	tenant := createTestTenant(t, store, "Label A")
	track := createTestTrack(t, store, tenant.ID, "USRC17607839", "Song A", "Artist A")

	result := applyStreamDeltas(t, store, tenant.ID, track.ID, "2026-01-01", map[string]int64{
		"2026-01-01": 100,
		"2026-01-02": 50,
		"2026-01-03": 0,
	})
	assert.Len(t, result.AffectedDays, 3)
	assert.Empty(t, result.Credits)

	totals, err := store.TotalDeltaByDay(ctx, tenant.ID, domain.AggregateKindStreams,
		mustDay(t, "2026-01-01"), mustDay(t, "2026-01-31"))
	require.NoError(t, err)
	require.Len(t, totals, 3)
	assert.Equal(t, int64(100), totals[0].Value)
	assert.Equal(t, int64(50), totals[1].Value)
	assert.Equal(t, int64(0), totals[2].Value)

	// a replacement from a midpoint leaves earlier days untouched and
	// reconciles the rewritten window
	result = applyStreamDeltas(t, store, tenant.ID, track.ID, "2026-01-02", map[string]int64{
		"2026-01-02": 70,
		"2026-01-03": 30,
	})
	assert.Len(t, result.AffectedDays, 2)

	totals, err = store.TotalDeltaByDay(ctx, tenant.ID, domain.AggregateKindStreams,
		mustDay(t, "2026-01-01"), mustDay(t, "2026-01-31"))
	require.NoError(t, err)
	require.Len(t, totals, 3)
	assert.Equal(t, int64(100), totals[0].Value)
	assert.Equal(t, int64(70), totals[1].Value)
	assert.Equal(t, int64(30), totals[2].Value)

	// days dropped by the replacement fall back to zero
	applyStreamDeltas(t, store, tenant.ID, track.ID, "2026-01-03", map[string]int64{})
	totals, err = store.TotalDeltaByDay(ctx, tenant.ID, domain.AggregateKindStreams,
		mustDay(t, "2026-01-03"), mustDay(t, "2026-01-03"))
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, int64(0), totals[0].Value)
}

func testRecomputeAggregatesAcrossTracks(t *testing.T, store Store) {
	ctx := context.Background()
	tenant := createTestTenant(t, store, "Label A")
	trackA := createTestTrack(t, store, tenant.ID, "USRC17607839", "Song A", "Artist A")
	trackB := createTestTrack(t, store, tenant.ID, "USRC17607840", "Song B", "Artist B")

	applyStreamDeltas(t, store, tenant.ID, trackA.ID, "2026-01-01", map[string]int64{"2026-01-01": 100})
	applyStreamDeltas(t, store, tenant.ID, trackB.ID, "2026-01-01", map[string]int64{"2026-01-01": 40})

	totals, err := store.TotalDeltaByDay(ctx, tenant.ID, domain.AggregateKindStreams,
		mustDay(t, "2026-01-01"), mustDay(t, "2026-01-01"))
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, int64(140), totals[0].Value)
}

func testFinalizeDailyTotals(t *testing.T, store Store) {
	ctx := context.Background()
	tenant := createTestTenant(t, store, "Label A")
	track := createTestTrack(t, store, tenant.ID, "USRC17607839", "Song A", "Artist A")

	applyStreamDeltas(t, store, tenant.ID, track.ID, "2026-01-01", map[string]int64{
		"2026-01-01": 100,
		"2026-01-10": 50,
	})

	finalized, err := store.FinalizeDailyTotals(ctx, mustDay(t, "2026-01-05"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), finalized)

	// a second sweep over the same cutoff has nothing left to close
	finalized, err = store.FinalizeDailyTotals(ctx, mustDay(t, "2026-01-05"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), finalized)

	day, ok, err := store.MinUnfinalizedDay(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, mustDay(t, "2026-01-10"), domain.NewDay(day).Time())
}

func testLagCreditOnFinalizedDay(t *testing.T, store Store) {
	ctx := context.Background()
	tenant := createTestTenant(t, store, "Label A")
	track := createTestTrack(t, store, tenant.ID, "USRC17607839", "Song A", "Artist A")

	applyStreamDeltas(t, store, tenant.ID, track.ID, "2026-01-01", map[string]int64{"2026-01-01": 100})
	_, err := store.FinalizeDailyTotals(ctx, mustDay(t, "2026-01-01"))
	require.NoError(t, err)

	// late volume for a finalized day becomes a lag credit, the total is immutable
	result := applyStreamDeltas(t, store, tenant.ID, track.ID, "2026-01-01", map[string]int64{"2026-01-01": 130})
	require.Len(t, result.Credits, 1)
	assert.Equal(t, int64(30), result.Credits[0].Credit)

	totals, err := store.TotalDeltaByDay(ctx, tenant.ID, domain.AggregateKindStreams,
		mustDay(t, "2026-01-01"), mustDay(t, "2026-01-01"))
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, int64(100), totals[0].Value)

	credits, err := store.LagCreditsByDay(ctx, tenant.ID, domain.AggregateKindStreams,
		mustDay(t, "2026-01-01"), mustDay(t, "2026-01-01"))
	require.NoError(t, err)
	require.Len(t, credits, 1)
	assert.Equal(t, int64(30), credits[0].MovedToday)
	assert.Equal(t, int64(30), credits[0].MovedAlltime)

	// a second late correction accumulates into the same credit row
	result = applyStreamDeltas(t, store, tenant.ID, track.ID, "2026-01-01", map[string]int64{"2026-01-01": 140})
	require.Len(t, result.Credits, 1)
	assert.Equal(t, int64(10), result.Credits[0].Credit)

	credits, err = store.LagCreditsByDay(ctx, tenant.ID, domain.AggregateKindStreams,
		mustDay(t, "2026-01-01"), mustDay(t, "2026-01-01"))
	require.NoError(t, err)
	require.Len(t, credits, 1)
	assert.Equal(t, int64(40), credits[0].MovedToday)
	assert.Equal(t, int64(40), credits[0].MovedAlltime)
}

func testNegativeLagCredit(t *testing.T, store Store) {
	ctx := context.Background()
	tenant := createTestTenant(t, store, "Label A")
	track := createTestTrack(t, store, tenant.ID, "USRC17607839", "Song A", "Artist A")

	applyStreamDeltas(t, store, tenant.ID, track.ID, "2026-01-01", map[string]int64{"2026-01-01": 100})
	_, err := store.FinalizeDailyTotals(ctx, mustDay(t, "2026-01-01"))
	require.NoError(t, err)

	// a downward revision of a finalized day produces a negative credit
	result := applyStreamDeltas(t, store, tenant.ID, track.ID, "2026-01-01", map[string]int64{"2026-01-01": 80})
	require.Len(t, result.Credits, 1)
	assert.Equal(t, int64(-20), result.Credits[0].Credit)

	credits, err := store.LagCreditsByDay(ctx, tenant.ID, domain.AggregateKindStreams,
		mustDay(t, "2026-01-01"), mustDay(t, "2026-01-01"))
	require.NoError(t, err)
	require.Len(t, credits, 1)
	assert.Equal(t, int64(-20), credits[0].MovedAlltime)
}

func testResetPassCredits(t *testing.T, store Store) {
	ctx := context.Background()
	tenant := createTestTenant(t, store, "Label A")
	track := createTestTrack(t, store, tenant.ID, "USRC17607839", "Song A", "Artist A")

	applyStreamDeltas(t, store, tenant.ID, track.ID, "2026-01-01", map[string]int64{"2026-01-01": 100})
	_, err := store.FinalizeDailyTotals(ctx, mustDay(t, "2026-01-01"))
	require.NoError(t, err)
	applyStreamDeltas(t, store, tenant.ID, track.ID, "2026-01-01", map[string]int64{"2026-01-01": 130})

	require.NoError(t, store.ResetPassCredits(ctx, tenant.ID, domain.AggregateKindStreams))

	credits, err := store.LagCreditsByDay(ctx, tenant.ID, domain.AggregateKindStreams,
		mustDay(t, "2026-01-01"), mustDay(t, "2026-01-01"))
	require.NoError(t, err)
	require.Len(t, credits, 1)
	assert.Equal(t, int64(0), credits[0].MovedToday)
	// the all time accumulation survives the pass reset
	assert.Equal(t, int64(30), credits[0].MovedAlltime)
}

func testApplyDayCorrection(t *testing.T, store Store) {
	ctx := context.Background()
	tenant := createTestTenant(t, store, "Label A")

	// first write creates the day
	credit, err := store.ApplyDayCorrection(ctx, tenant.ID, domain.AggregateKindStreams, mustDay(t, "2026-01-01"), 100)
	require.NoError(t, err)
	assert.Zero(t, credit)

	// unchanged totals are a no-op
	credit, err = store.ApplyDayCorrection(ctx, tenant.ID, domain.AggregateKindStreams, mustDay(t, "2026-01-01"), 100)
	require.NoError(t, err)
	assert.Zero(t, credit)

	// unfinalized days are overwritten in place
	credit, err = store.ApplyDayCorrection(ctx, tenant.ID, domain.AggregateKindStreams, mustDay(t, "2026-01-01"), 120)
	require.NoError(t, err)
	assert.Zero(t, credit)

	totals, err := store.TotalDeltaByDay(ctx, tenant.ID, domain.AggregateKindStreams,
		mustDay(t, "2026-01-01"), mustDay(t, "2026-01-01"))
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, int64(120), totals[0].Value)

	_, err = store.FinalizeDailyTotals(ctx, mustDay(t, "2026-01-01"))
	require.NoError(t, err)

	credit, err = store.ApplyDayCorrection(ctx, tenant.ID, domain.AggregateKindStreams, mustDay(t, "2026-01-01"), 150)
	require.NoError(t, err)
	assert.Equal(t, int64(30), credit)
}

func testConservation(t *testing.T, store Store) {
	ctx := context.Background()
	tenant := createTestTenant(t, store, "Label A")
	track := createTestTrack(t, store, tenant.ID, "USRC17607839", "Song A", "Artist A")

	// raw counters for a monotonic history
	upsertStream(t, store, tenant.ID, track.ID, "2026-01-01", 100)
	upsertStream(t, store, tenant.ID, track.ID, "2026-01-02", 150)

	applyStreamDeltas(t, store, tenant.ID, track.ID, "2026-01-01", map[string]int64{
		"2026-01-01": 100,
		"2026-01-02": 50,
	})
	_, err := store.FinalizeDailyTotals(ctx, mustDay(t, "2026-01-01"))
	require.NoError(t, err)

	// late correction lands as a credit, conservation still holds
	upsertStream(t, store, tenant.ID, track.ID, "2026-01-01", 110)
	applyStreamDeltas(t, store, tenant.ID, track.ID, "2026-01-01", map[string]int64{
		"2026-01-01": 110,
		"2026-01-02": 40,
	})

	report, err := store.ConservationReport(ctx, tenant.ID, domain.AggregateKindStreams)
	require.NoError(t, err)
	assert.Equal(t, int64(140), report.TotalsSum)
	assert.Equal(t, int64(10), report.CreditsSum)
	assert.Equal(t, int64(150), report.LatestSum)
	assert.Zero(t, report.Drift)
}

// =============================================================================
// Serving Queries
// =============================================================================

func testTopTrackDeltasAndSeries(t *testing.T, store Store) {
	ctx := context.Background()
	tenant := createTestTenant(t, store, "Label A")
	trackA := createTestTrack(t, store, tenant.ID, "USRC17607839", "Song A", "Artist A")
	trackB := createTestTrack(t, store, tenant.ID, "USRC17607840", "Song B", "Artist B")

	applyStreamDeltas(t, store, tenant.ID, trackA.ID, "2026-01-01", map[string]int64{
		"2026-01-01": 100,
		"2026-01-02": 60,
	})
	applyStreamDeltas(t, store, tenant.ID, trackB.ID, "2026-01-01", map[string]int64{
		"2026-01-01": 250,
	})

	top, err := store.TopTrackDeltas(ctx, tenant.ID, mustDay(t, "2026-01-01"), 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, trackB.ID, top[0].TrackID)
	assert.Equal(t, int64(250), top[0].Delta)
	assert.Equal(t, "Artist B", top[0].Artist)

	top, err = store.TopTrackDeltas(ctx, tenant.ID, mustDay(t, "2026-01-01"), 1)
	require.NoError(t, err)
	require.Len(t, top, 1)

	series, err := store.TrackDeltaSeries(ctx, tenant.ID, trackA.ID,
		mustDay(t, "2026-01-01"), mustDay(t, "2026-01-31"))
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, int64(100), series[0].Value)
	assert.Equal(t, int64(60), series[1].Value)

	shares, err := store.TopArtistShare(ctx, tenant.ID,
		mustDay(t, "2026-01-01"), mustDay(t, "2026-01-31"), 10)
	require.NoError(t, err)
	require.Len(t, shares, 2)
	assert.Equal(t, "Artist B", shares[0].Artist)
	assert.Equal(t, int64(250), shares[0].Delta)
	assert.Equal(t, "Artist A", shares[1].Artist)
	assert.Equal(t, int64(160), shares[1].Delta)
}

func testSnapshotDates(t *testing.T, store Store) {
	ctx := context.Background()
	tenant := createTestTenant(t, store, "Label A")
	track := createTestTrack(t, store, tenant.ID, "USRC17607839", "Song A", "Artist A")

	upsertStream(t, store, tenant.ID, track.ID, "2026-01-03", 150)
	upsertStream(t, store, tenant.ID, track.ID, "2026-01-01", 100)

	dates, err := store.SnapshotDates(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.True(t, dates[0].Before(dates[1]))
}

func testFollowerSeries(t *testing.T, store Store) {
	ctx := context.Background()
	tenant := createTestTenant(t, store, "Label A")
	playlistA := createTestPlaylist(t, store, tenant.ID, "37i9dQZF1DXcBWIGoYBM5M", "Hits")
	playlistB := createTestPlaylist(t, store, tenant.ID, "37i9dQZF1DX0XUsuxWHRQd", "RapCaviar")

	for _, s := range []struct {
		playlistID int64
		date       string
		followers  int64
	}{
		{playlistA.ID, "2026-01-01", 5000},
		{playlistA.ID, "2026-01-02", 5100},
		{playlistB.ID, "2026-01-01", 20000},
	} {
		require.NoError(t, store.UpsertFollowerSnapshot(ctx, &schema.FollowerSnapshot{
			TenantID:     tenant.ID,
			Platform:     domain.PlatformSpotify,
			PlaylistID:   s.playlistID,
			SnapshotDate: mustDay(t, s.date),
			Followers:    s.followers,
		}))
	}

	series, err := store.FollowerSeries(ctx, tenant.ID, playlistA.ID,
		mustDay(t, "2026-01-01"), mustDay(t, "2026-01-31"))
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, int64(5000), series[0].Value)
	assert.Equal(t, int64(5100), series[1].Value)

	total, err := store.TotalFollowerSeries(ctx, tenant.ID, nil,
		mustDay(t, "2026-01-01"), mustDay(t, "2026-01-31"))
	require.NoError(t, err)
	require.Len(t, total, 2)
	assert.Equal(t, int64(25000), total[0].Value)
	assert.Equal(t, int64(5100), total[1].Value)

	scoped, err := store.TotalFollowerSeries(ctx, tenant.ID, []int64{playlistB.ID},
		mustDay(t, "2026-01-01"), mustDay(t, "2026-01-31"))
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, int64(20000), scoped[0].Value)
}

func testCatalogueSizeSeries(t *testing.T, store Store) {
	ctx := context.Background()
	tenant := createTestTenant(t, store, "Label A")
	createTestTrack(t, store, tenant.ID, "USRC17607839", "Song A", "Artist A")
	createTestTrack(t, store, tenant.ID, "USRC17607840", "Song B", "Artist B")

	today := domain.NewDay(time.Now()).Time()
	series, err := store.CatalogueSizeSeries(ctx, tenant.ID, today, today)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, int64(2), series[0].Value)
}

// =============================================================================
// Catalogue Health
// =============================================================================

func testCatalogueHealth(t *testing.T, store Store) {
	ctx := context.Background()
	tenant := createTestTenant(t, store, "Label A")
	track := createTestTrack(t, store, tenant.ID, "USRC17607839", "Song A", "Artist A")

	require.NoError(t, store.UpsertCatalogueHealth(ctx, &schema.CatalogueHealthSnapshot{
		TenantID:            tenant.ID,
		TrackID:             track.ID,
		CheckDate:           mustDay(t, "2026-01-01"),
		SpotifyAvailable:    true,
		AppleMusicAvailable: false,
	}))

	// the same day's check overwrites the previous observation
	require.NoError(t, store.UpsertCatalogueHealth(ctx, &schema.CatalogueHealthSnapshot{
		TenantID:            tenant.ID,
		TrackID:             track.ID,
		CheckDate:           mustDay(t, "2026-01-01"),
		SpotifyAvailable:    true,
		AppleMusicAvailable: true,
	}))

	snapshots, err := store.HealthSnapshots(ctx, tenant.ID,
		mustDay(t, "2026-01-01"), mustDay(t, "2026-01-31"))
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.True(t, snapshots[0].SpotifyAvailable)
	assert.True(t, snapshots[0].AppleMusicAvailable)
	assert.Equal(t, "USRC17607839", snapshots[0].Track.ISRC)
}

// =============================================================================
// Retention
// =============================================================================

func testMinUnfinalizedDay(t *testing.T, store Store) {
	ctx := context.Background()

	_, ok, err := store.MinUnfinalizedDay(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	tenant := createTestTenant(t, store, "Label A")
	track := createTestTrack(t, store, tenant.ID, "USRC17607839", "Song A", "Artist A")

	// a raw snapshot with no finalized total keeps its day open
	upsertStream(t, store, tenant.ID, track.ID, "2026-01-05", 100)

	day, ok, err := store.MinUnfinalizedDay(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, mustDay(t, "2026-01-05"), domain.NewDay(day).Time())

	applyStreamDeltas(t, store, tenant.ID, track.ID, "2026-01-05", map[string]int64{"2026-01-05": 100})
	_, err = store.FinalizeDailyTotals(ctx, mustDay(t, "2026-01-05"))
	require.NoError(t, err)

	_, ok, err = store.MinUnfinalizedDay(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testDeleteSnapshotsBefore(t *testing.T, store Store) {
	ctx := context.Background()
	tenant := createTestTenant(t, store, "Label A")
	track := createTestTrack(t, store, tenant.ID, "USRC17607839", "Song A", "Artist A")

	upsertStream(t, store, tenant.ID, track.ID, "2025-01-01", 10)
	upsertStream(t, store, tenant.ID, track.ID, "2026-01-01", 100)

	deleted, err := store.DeleteSnapshotsBefore(ctx, mustDay(t, "2025-06-01"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	snapshots, err := store.StreamSnapshotsFrom(ctx, domain.PlatformSpotify, track.ID, mustDay(t, "2024-01-01"))
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, mustDay(t, "2026-01-01"), domain.NewDay(snapshots[0].SnapshotDate).Time())
}

func testCompressSnapshotsBefore(t *testing.T, store Store) {
	ctx := context.Background()
	tenant := createTestTenant(t, store, "Label A")
	track := createTestTrack(t, store, tenant.ID, "USRC17607839", "Song A", "Artist A")

	upsertStream(t, store, tenant.ID, track.ID, "2025-01-10", 10)
	upsertStream(t, store, tenant.ID, track.ID, "2025-01-20", 20)
	upsertStream(t, store, tenant.ID, track.ID, "2025-02-05", 30)
	upsertStream(t, store, tenant.ID, track.ID, "2026-01-01", 100)

	thinned, err := store.CompressSnapshotsBefore(ctx, mustDay(t, "2025-12-01"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), thinned)

	// only the last observation per month survives inside the window
	snapshots, err := store.StreamSnapshotsFrom(ctx, domain.PlatformSpotify, track.ID, mustDay(t, "2024-01-01"))
	require.NoError(t, err)
	require.Len(t, snapshots, 3)
	assert.Equal(t, mustDay(t, "2025-01-20"), domain.NewDay(snapshots[0].SnapshotDate).Time())
	assert.Equal(t, mustDay(t, "2025-02-05"), domain.NewDay(snapshots[1].SnapshotDate).Time())
}

// =============================================================================
// Suite
// =============================================================================

// RunStoreTests runs the full store suite against an implementation
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"TenantLifecycle", testTenantLifecycle},
		{"EnsureTrack", testEnsureTrack},
		{"TrackTenantIsolation", testTrackTenantIsolation},
		{"UpdateAndDeleteTrack", testUpdateAndDeleteTrack},
		{"EnsurePlaylist", testEnsurePlaylist},
		{"SnapshotUpsert", testSnapshotUpsert},
		{"FollowerSnapshotUpsert", testFollowerSnapshotUpsert},
		{"ApplyStreamRecompute", testApplyStreamRecompute},
		{"RecomputeAggregatesAcrossTracks", testRecomputeAggregatesAcrossTracks},
		{"FinalizeDailyTotals", testFinalizeDailyTotals},
		{"LagCreditOnFinalizedDay", testLagCreditOnFinalizedDay},
		{"NegativeLagCredit", testNegativeLagCredit},
		{"ResetPassCredits", testResetPassCredits},
		{"ApplyDayCorrection", testApplyDayCorrection},
		{"Conservation", testConservation},
		{"TopTrackDeltasAndSeries", testTopTrackDeltasAndSeries},
		{"SnapshotDates", testSnapshotDates},
		{"FollowerSeries", testFollowerSeries},
		{"CatalogueSizeSeries", testCatalogueSizeSeries},
		{"CatalogueHealth", testCatalogueHealth},
		{"MinUnfinalizedDay", testMinUnfinalizedDay},
		{"DeleteSnapshotsBefore", testDeleteSnapshotsBefore},
		{"CompressSnapshotsBefore", testCompressSnapshotsBefore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}
