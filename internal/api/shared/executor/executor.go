package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/isrcanalytics/streamledger/internal/adapter"
	"github.com/isrcanalytics/streamledger/internal/api/shared/dto"
	apierrors "github.com/isrcanalytics/streamledger/internal/api/shared/errors"
	"github.com/isrcanalytics/streamledger/internal/domain"
	"github.com/isrcanalytics/streamledger/internal/health"
	"github.com/isrcanalytics/streamledger/internal/store"
	"github.com/isrcanalytics/streamledger/internal/store/schema"
)

// Executor owns the serving-layer business logic behind the REST handlers.
// Every method is scoped to one tenant; not-found lookups return (nil, nil)
// so handlers can map them to 404 without inspecting error chains.
//
//go:generate mockgen -source=executor.go -destination=../../../mocks/mock_api_executor.go -package=mocks -mock_names=Executor=MockAPIExecutor
type Executor interface {
	// TotalsDaily returns the reconciled per-day totals for one stream over
	// the trailing window, with lag credits surfaced beside each day
	TotalsDaily(ctx context.Context, tenantID uuid.UUID, kind domain.AggregateKind, days int) (*dto.TotalDailyResponse, error)

	// TopTrackDeltas returns the highest per-track deltas for one day
	TopTrackDeltas(ctx context.Context, tenantID uuid.UUID, day domain.Day, limit int) (*dto.TopDeltasResponse, error)

	// SnapshotDates returns the distinct dates a tenant has stream data for
	SnapshotDates(ctx context.Context, tenantID uuid.UUID) (*dto.DatesResponse, error)

	// TrackSeries returns one track's daily delta series over the trailing window
	TrackSeries(ctx context.Context, tenantID uuid.UUID, trackID int64, days int) (*dto.SeriesResponse, error)

	// ListTracks returns a tenant's full catalogue
	ListTracks(ctx context.Context, tenantID uuid.UUID) (*dto.TrackListResponse, error)

	// CreateTrack registers a catalogue track, upserting on (tenant, isrc)
	CreateTrack(ctx context.Context, tenantID uuid.UUID, req *dto.CreateTrackRequest) (*dto.TrackResponse, error)

	// UpdateTrack updates a track's display metadata
	UpdateTrack(ctx context.Context, tenantID uuid.UUID, trackID int64, req *dto.UpdateTrackRequest) (*dto.TrackResponse, error)

	// DeleteTrack removes a track and its dependent facts; found reports
	// whether the track existed
	DeleteTrack(ctx context.Context, tenantID uuid.UUID, trackID int64) (found bool, err error)

	// ListPlaylists returns a tenant's watched playlists
	ListPlaylists(ctx context.Context, tenantID uuid.UUID) (*dto.PlaylistListResponse, error)

	// CreatePlaylist registers a playlist to watch, upserting on
	// (tenant, platform, external_id)
	CreatePlaylist(ctx context.Context, tenantID uuid.UUID, req *dto.CreatePlaylistRequest) (*dto.PlaylistResponse, error)

	// PlaylistSeries returns one playlist's raw follower counts over the trailing window
	PlaylistSeries(ctx context.Context, tenantID uuid.UUID, playlistID int64, days int) (*dto.SeriesResponse, error)

	// TotalFollowerSeries sums follower counts per day across the given playlists
	TotalFollowerSeries(ctx context.Context, tenantID uuid.UUID, playlistIDs []int64, days int) (*dto.SeriesResponse, error)

	// CatalogueSizeSeries returns how many tracks existed at the end of each day
	CatalogueSizeSeries(ctx context.Context, tenantID uuid.UUID, days int) (*dto.SeriesResponse, error)

	// HealthHeatmap returns the per-track availability grid over the trailing window
	HealthHeatmap(ctx context.Context, tenantID uuid.UUID, days int) (*dto.HeatmapResponse, error)

	// TopArtistShare aggregates delta volume by artist over the trailing window
	TopArtistShare(ctx context.Context, tenantID uuid.UUID, days, limit int) (*dto.ArtistShareResponse, error)

	// LagCredits lists the compensation applied to finalized days over the trailing window
	LagCredits(ctx context.Context, tenantID uuid.UUID, kind domain.AggregateKind, days int) (*dto.LagCreditsResponse, error)

	// Conservation reports the conservation check for both reconciliation streams
	Conservation(ctx context.Context, tenantID uuid.UUID) (*dto.ConservationResponse, error)
}

type executor struct {
	store   store.Store
	tracker *health.Tracker
	clock   adapter.Clock
}

// NewExecutor creates the serving executor over the given store
func NewExecutor(s store.Store, tracker *health.Tracker, clock adapter.Clock) Executor {
	return &executor{store: s, tracker: tracker, clock: clock}
}

// window returns the inclusive [from, to] day range ending today
func (e *executor) window(days int) (domain.Day, domain.Day) {
	to := domain.NewDay(e.clock.Now())
	return to.AddDays(1 - days), to
}

func (e *executor) TotalsDaily(ctx context.Context, tenantID uuid.UUID, kind domain.AggregateKind, days int) (*dto.TotalDailyResponse, error) {
	from, to := e.window(days)

	totals, err := e.store.TotalDeltaByDay(ctx, tenantID, kind, from.Time(), to.Time())
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to get daily totals: %v", err))
	}
	credits, err := e.store.LagCreditsByDay(ctx, tenantID, kind, from.Time(), to.Time())
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to get lag credits: %v", err))
	}

	creditByDay := make(map[string]int64, len(credits))
	for _, c := range credits {
		creditByDay[domain.NewDay(c.Day).String()] = c.MovedAlltime
	}

	resp := &dto.TotalDailyResponse{
		Kind: string(kind),
		Days: make([]dto.DayTotal, len(totals)),
	}
	for i, t := range totals {
		day := domain.NewDay(t.Day)
		resp.Days[i] = dto.DayTotal{
			Day:       day.String(),
			Delta:     t.Value,
			LagCredit: creditByDay[day.String()],
		}
	}
	return resp, nil
}

func (e *executor) TopTrackDeltas(ctx context.Context, tenantID uuid.UUID, day domain.Day, limit int) (*dto.TopDeltasResponse, error) {
	deltas, err := e.store.TopTrackDeltas(ctx, tenantID, day.Time(), limit)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to get top deltas: %v", err))
	}

	resp := &dto.TopDeltasResponse{
		Day:     day.String(),
		Entries: make([]dto.TrackDeltaEntry, len(deltas)),
	}
	for i, d := range deltas {
		resp.Entries[i] = dto.TrackDeltaEntry{
			TrackID: d.TrackID,
			ISRC:    d.ISRC,
			Title:   d.Title,
			Artist:  d.Artist,
			Delta:   d.Delta,
		}
	}
	return resp, nil
}

func (e *executor) SnapshotDates(ctx context.Context, tenantID uuid.UUID) (*dto.DatesResponse, error) {
	dates, err := e.store.SnapshotDates(ctx, tenantID)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to get snapshot dates: %v", err))
	}

	resp := &dto.DatesResponse{Dates: make([]string, len(dates))}
	for i, d := range dates {
		resp.Dates[i] = domain.NewDay(d).String()
	}
	return resp, nil
}

func (e *executor) TrackSeries(ctx context.Context, tenantID uuid.UUID, trackID int64, days int) (*dto.SeriesResponse, error) {
	if _, err := e.store.GetTrackByID(ctx, tenantID, trackID); err != nil {
		if errors.Is(err, domain.ErrTrackNotFound) {
			return nil, nil
		}
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to get track: %v", err))
	}

	from, to := e.window(days)
	series, err := e.store.TrackDeltaSeries(ctx, tenantID, trackID, from.Time(), to.Time())
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to get track series: %v", err))
	}
	return mapSeries(series), nil
}

func (e *executor) ListTracks(ctx context.Context, tenantID uuid.UUID) (*dto.TrackListResponse, error) {
	tracks, err := e.store.ListTracks(ctx, tenantID)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to list tracks: %v", err))
	}

	resp := &dto.TrackListResponse{
		Tracks: make([]dto.TrackResponse, len(tracks)),
		Total:  len(tracks),
	}
	for i := range tracks {
		resp.Tracks[i] = mapTrack(&tracks[i])
	}
	return resp, nil
}

func (e *executor) CreateTrack(ctx context.Context, tenantID uuid.UUID, req *dto.CreateTrackRequest) (*dto.TrackResponse, error) {
	input := store.EnsureTrackInput{
		TenantID: tenantID,
		ISRC:     req.ISRC,
		Title:    req.Title,
		Artist:   req.Artist,
	}
	if req.ReleaseDate != nil {
		day, err := domain.ParseDay(*req.ReleaseDate)
		if err != nil {
			return nil, apierrors.NewValidationError(err.Error())
		}
		t := day.Time()
		input.ReleaseDate = &t
	}

	track, err := e.store.EnsureTrack(ctx, input)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to create track: %v", err))
	}
	resp := mapTrack(track)
	return &resp, nil
}

func (e *executor) UpdateTrack(ctx context.Context, tenantID uuid.UUID, trackID int64, req *dto.UpdateTrackRequest) (*dto.TrackResponse, error) {
	input := store.UpdateTrackInput{
		Title:  req.Title,
		Artist: req.Artist,
	}
	if req.ReleaseDate != nil {
		day, err := domain.ParseDay(*req.ReleaseDate)
		if err != nil {
			return nil, apierrors.NewValidationError(err.Error())
		}
		t := day.Time()
		input.ReleaseDate = &t
	}

	if err := e.store.UpdateTrack(ctx, tenantID, trackID, input); err != nil {
		if errors.Is(err, domain.ErrTrackNotFound) {
			return nil, nil
		}
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to update track: %v", err))
	}

	track, err := e.store.GetTrackByID(ctx, tenantID, trackID)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to get track: %v", err))
	}
	resp := mapTrack(track)
	return &resp, nil
}

func (e *executor) DeleteTrack(ctx context.Context, tenantID uuid.UUID, trackID int64) (bool, error) {
	if err := e.store.DeleteTrack(ctx, tenantID, trackID); err != nil {
		if errors.Is(err, domain.ErrTrackNotFound) {
			return false, nil
		}
		return false, apierrors.NewDatabaseError(fmt.Sprintf("Failed to delete track: %v", err))
	}
	return true, nil
}

func (e *executor) ListPlaylists(ctx context.Context, tenantID uuid.UUID) (*dto.PlaylistListResponse, error) {
	playlists, err := e.store.ListPlaylists(ctx, tenantID)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to list playlists: %v", err))
	}

	resp := &dto.PlaylistListResponse{
		Playlists: make([]dto.PlaylistResponse, len(playlists)),
		Total:     len(playlists),
	}
	for i, p := range playlists {
		resp.Playlists[i] = dto.PlaylistResponse{
			ID:         p.ID,
			Platform:   string(p.Platform),
			ExternalID: p.ExternalID,
			Name:       p.Name,
		}
	}
	return resp, nil
}

func (e *executor) CreatePlaylist(ctx context.Context, tenantID uuid.UUID, req *dto.CreatePlaylistRequest) (*dto.PlaylistResponse, error) {
	playlist, err := e.store.EnsurePlaylist(ctx, store.EnsurePlaylistInput{
		TenantID:   tenantID,
		Platform:   domain.Platform(req.Platform),
		ExternalID: req.ExternalID,
		Name:       req.Name,
	})
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to create playlist: %v", err))
	}
	return &dto.PlaylistResponse{
		ID:         playlist.ID,
		Platform:   string(playlist.Platform),
		ExternalID: playlist.ExternalID,
		Name:       playlist.Name,
	}, nil
}

func (e *executor) PlaylistSeries(ctx context.Context, tenantID uuid.UUID, playlistID int64, days int) (*dto.SeriesResponse, error) {
	if _, err := e.store.GetPlaylistByID(ctx, tenantID, playlistID); err != nil {
		if errors.Is(err, domain.ErrPlaylistNotFound) {
			return nil, nil
		}
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to get playlist: %v", err))
	}

	from, to := e.window(days)
	series, err := e.store.FollowerSeries(ctx, tenantID, playlistID, from.Time(), to.Time())
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to get follower series: %v", err))
	}
	return mapSeries(series), nil
}

func (e *executor) TotalFollowerSeries(ctx context.Context, tenantID uuid.UUID, playlistIDs []int64, days int) (*dto.SeriesResponse, error) {
	from, to := e.window(days)
	series, err := e.store.TotalFollowerSeries(ctx, tenantID, playlistIDs, from.Time(), to.Time())
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to get total follower series: %v", err))
	}
	return mapSeries(series), nil
}

func (e *executor) CatalogueSizeSeries(ctx context.Context, tenantID uuid.UUID, days int) (*dto.SeriesResponse, error) {
	from, to := e.window(days)
	series, err := e.store.CatalogueSizeSeries(ctx, tenantID, from.Time(), to.Time())
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to get catalogue size series: %v", err))
	}
	return mapSeries(series), nil
}

func (e *executor) HealthHeatmap(ctx context.Context, tenantID uuid.UUID, days int) (*dto.HeatmapResponse, error) {
	from, to := e.window(days)
	rows, err := e.tracker.Heatmap(ctx, tenantID, from, to)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to get health heatmap: %v", err))
	}
	return &dto.HeatmapResponse{Rows: rows}, nil
}

func (e *executor) TopArtistShare(ctx context.Context, tenantID uuid.UUID, days, limit int) (*dto.ArtistShareResponse, error) {
	from, to := e.window(days)
	shares, err := e.store.TopArtistShare(ctx, tenantID, from.Time(), to.Time(), limit)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to get artist share: %v", err))
	}

	resp := &dto.ArtistShareResponse{Entries: make([]dto.ArtistShareEntry, len(shares))}
	for i, s := range shares {
		resp.Entries[i] = dto.ArtistShareEntry{Artist: s.Artist, Delta: s.Delta}
	}
	return resp, nil
}

func (e *executor) LagCredits(ctx context.Context, tenantID uuid.UUID, kind domain.AggregateKind, days int) (*dto.LagCreditsResponse, error) {
	from, to := e.window(days)
	credits, err := e.store.LagCreditsByDay(ctx, tenantID, kind, from.Time(), to.Time())
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to get lag credits: %v", err))
	}

	resp := &dto.LagCreditsResponse{
		Kind:    string(kind),
		Credits: make([]dto.LagCreditEntry, len(credits)),
	}
	for i, c := range credits {
		resp.Credits[i] = dto.LagCreditEntry{
			Day:          domain.NewDay(c.Day).String(),
			MovedToday:   c.MovedToday,
			MovedAlltime: c.MovedAlltime,
		}
	}
	return resp, nil
}

func (e *executor) Conservation(ctx context.Context, tenantID uuid.UUID) (*dto.ConservationResponse, error) {
	kinds := []domain.AggregateKind{domain.AggregateKindStreams, domain.AggregateKindFollowers}

	resp := &dto.ConservationResponse{Reports: make([]dto.ConservationEntry, len(kinds))}
	for i, kind := range kinds {
		report, err := e.store.ConservationReport(ctx, tenantID, kind)
		if err != nil {
			return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to get conservation report: %v", err))
		}
		resp.Reports[i] = dto.ConservationEntry{
			Kind:       string(kind),
			TotalsSum:  report.TotalsSum,
			CreditsSum: report.CreditsSum,
			LatestSum:  report.LatestSum,
			Drift:      report.Drift,
			Conserved:  report.Drift == 0,
		}
	}
	return resp, nil
}

func mapSeries(series []store.DayValue) *dto.SeriesResponse {
	resp := &dto.SeriesResponse{Points: make([]dto.SeriesPoint, len(series))}
	for i, p := range series {
		resp.Points[i] = dto.SeriesPoint{Day: domain.NewDay(p.Day).String(), Value: p.Value}
	}
	return resp
}

func mapTrack(t *schema.Track) dto.TrackResponse {
	resp := dto.TrackResponse{
		ID:     t.ID,
		ISRC:   t.ISRC,
		Title:  t.Title,
		Artist: t.Artist,
	}
	if t.ReleaseDate != nil {
		d := t.ReleaseDate.Format(domain.DateLayout)
		resp.ReleaseDate = &d
	}
	return resp
}
