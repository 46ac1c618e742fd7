package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/isrcanalytics/streamledger/internal/api/middleware"
	"github.com/isrcanalytics/streamledger/internal/api/shared/dto"
	"github.com/isrcanalytics/streamledger/internal/api/shared/executor"
)

// Handler defines the interface for REST API handlers
// This interface allows for easy mocking and testing
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// GetTotalsDaily returns the reconciled per-day totals with lag credits beside
	// GET /api/v1/streams/total-daily?days=<days>&kind=<streams|followers>
	GetTotalsDaily(c *gin.Context)

	// GetTopDeltas returns the per-track leaderboard for one day
	// GET /api/v1/streams/top-deltas?day=<YYYY-MM-DD>&limit=<limit>
	GetTopDeltas(c *gin.Context)

	// GetSnapshotDates returns the distinct dates the tenant has stream data for
	// GET /api/v1/streams/dates
	GetSnapshotDates(c *gin.Context)

	// GetTrackSeries returns one track's daily delta series
	// GET /api/v1/streams/tracks/:id/series?days=<days>
	GetTrackSeries(c *gin.Context)

	// ListPlaylists returns the tenant's watched playlists
	// GET /api/v1/playlists
	ListPlaylists(c *gin.Context)

	// CreatePlaylist registers a playlist to watch
	// POST /api/v1/playlists
	CreatePlaylist(c *gin.Context)

	// GetPlaylistSeries returns one playlist's raw follower counts
	// GET /api/v1/playlists/:id/series?days=<days>
	GetPlaylistSeries(c *gin.Context)

	// GetTotalFollowerSeries sums follower counts per day across playlists
	// POST /api/v1/playlists/total-series
	GetTotalFollowerSeries(c *gin.Context)

	// GetCatalogueSizeSeries returns how many tracks existed per day
	// GET /api/v1/catalogue/size-series?days=<days>
	GetCatalogueSizeSeries(c *gin.Context)

	// GetHealthHeatmap returns the per-track availability grid
	// GET /api/v1/catalogue/health-heatmap?days=<days>
	GetHealthHeatmap(c *gin.Context)

	// ListTracks returns the tenant's full catalogue
	// GET /api/v1/catalogue/tracks
	ListTracks(c *gin.Context)

	// CreateTrack registers a catalogue track
	// POST /api/v1/catalogue/tracks
	CreateTrack(c *gin.Context)

	// UpdateTrack updates a track's display metadata
	// PUT /api/v1/catalogue/tracks/:id
	UpdateTrack(c *gin.Context)

	// DeleteTrack removes a track and its dependent facts
	// DELETE /api/v1/catalogue/tracks/:id
	DeleteTrack(c *gin.Context)

	// GetTopArtistShare returns the per-artist volume breakdown
	// GET /api/v1/artists/top-share?days=<days>&limit=<limit>
	GetTopArtistShare(c *gin.Context)

	// GetLagCredits lists the compensation applied to finalized days
	// GET /api/v1/reconciliation/lag-credits?days=<days>&kind=<streams|followers>
	GetLagCredits(c *gin.Context)

	// GetConservation reports the conservation check for both streams
	// GET /api/v1/reconciliation/conservation
	GetConservation(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	executor executor.Executor
}

// NewHandler creates a new REST API handler using the shared executor
func NewHandler(exec executor.Executor) Handler {
	return &handler{executor: exec}
}

// tenantID resolves the tenant the request is scoped to. JWT sessions carry
// the tenant as the token subject; API key clients name it per request.
func tenantID(c *gin.Context) (uuid.UUID, error) {
	authType, _ := c.Get(middleware.AUTH_TYPE_KEY)
	if authType == "apikey" {
		raw := c.Query("tenant_id")
		if raw == "" {
			return uuid.Nil, errors.New("tenant_id is required for API key requests")
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid tenant_id: %w", err)
		}
		return id, nil
	}

	subject, _ := c.Get(middleware.AUTH_SUBJECT_KEY)
	raw, _ := subject.(string)
	if raw == "" {
		return uuid.Nil, errors.New("token carries no subject")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("token subject is not a tenant ID: %w", err)
	}
	return id, nil
}

func pathID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

// GetTotalsDaily returns the reconciled per-day totals with lag credits beside
func (h *handler) GetTotalsDaily(c *gin.Context) {
	tenant, err := tenantID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	params, err := ParseWindowQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	resp, err := h.executor.TotalsDaily(c.Request.Context(), tenant, params.AggregateKind(), params.Days)
	if err != nil {
		respondInternalError(c, err, "Failed to get daily totals")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetTopDeltas returns the per-track leaderboard for one day
func (h *handler) GetTopDeltas(c *gin.Context) {
	tenant, err := tenantID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	params, day, err := ParseTopDeltasQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	resp, err := h.executor.TopTrackDeltas(c.Request.Context(), tenant, *day, params.Limit)
	if err != nil {
		respondInternalError(c, err, "Failed to get top deltas")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetSnapshotDates returns the distinct dates the tenant has stream data for
func (h *handler) GetSnapshotDates(c *gin.Context) {
	tenant, err := tenantID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	resp, err := h.executor.SnapshotDates(c.Request.Context(), tenant)
	if err != nil {
		respondInternalError(c, err, "Failed to get snapshot dates")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetTrackSeries returns one track's daily delta series
func (h *handler) GetTrackSeries(c *gin.Context) {
	tenant, err := tenantID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	trackID, err := pathID(c)
	if err != nil {
		respondBadRequest(c, "Invalid track ID")
		return
	}

	params, err := ParseWindowQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	resp, err := h.executor.TrackSeries(c.Request.Context(), tenant, trackID, params.Days)
	if err != nil {
		respondInternalError(c, err, "Failed to get track series")
		return
	}
	if resp == nil {
		respondNotFound(c, "Track not found")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListPlaylists returns the tenant's watched playlists
func (h *handler) ListPlaylists(c *gin.Context) {
	tenant, err := tenantID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	resp, err := h.executor.ListPlaylists(c.Request.Context(), tenant)
	if err != nil {
		respondInternalError(c, err, "Failed to list playlists")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreatePlaylist registers a playlist to watch
func (h *handler) CreatePlaylist(c *gin.Context) {
	tenant, err := tenantID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	var req dto.CreatePlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	resp, err := h.executor.CreatePlaylist(c.Request.Context(), tenant, &req)
	if err != nil {
		respondInternalError(c, err, "Failed to create playlist")
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetPlaylistSeries returns one playlist's raw follower counts
func (h *handler) GetPlaylistSeries(c *gin.Context) {
	tenant, err := tenantID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	playlistID, err := pathID(c)
	if err != nil {
		respondBadRequest(c, "Invalid playlist ID")
		return
	}

	params, err := ParseWindowQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	resp, err := h.executor.PlaylistSeries(c.Request.Context(), tenant, playlistID, params.Days)
	if err != nil {
		respondInternalError(c, err, "Failed to get playlist series")
		return
	}
	if resp == nil {
		respondNotFound(c, "Playlist not found")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetTotalFollowerSeries sums follower counts per day across playlists
func (h *handler) GetTotalFollowerSeries(c *gin.Context) {
	tenant, err := tenantID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	var req dto.TotalSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	days := req.Days
	if days < 1 {
		days = 30
	}
	if days > MAX_WINDOW_DAYS {
		days = MAX_WINDOW_DAYS
	}

	resp, err := h.executor.TotalFollowerSeries(c.Request.Context(), tenant, req.PlaylistIDs, days)
	if err != nil {
		respondInternalError(c, err, "Failed to get total follower series")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetCatalogueSizeSeries returns how many tracks existed per day
func (h *handler) GetCatalogueSizeSeries(c *gin.Context) {
	tenant, err := tenantID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	params, err := ParseWindowQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	resp, err := h.executor.CatalogueSizeSeries(c.Request.Context(), tenant, params.Days)
	if err != nil {
		respondInternalError(c, err, "Failed to get catalogue size series")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetHealthHeatmap returns the per-track availability grid
func (h *handler) GetHealthHeatmap(c *gin.Context) {
	tenant, err := tenantID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	params, err := ParseWindowQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	resp, err := h.executor.HealthHeatmap(c.Request.Context(), tenant, params.Days)
	if err != nil {
		respondInternalError(c, err, "Failed to get health heatmap")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListTracks returns the tenant's full catalogue
func (h *handler) ListTracks(c *gin.Context) {
	tenant, err := tenantID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	resp, err := h.executor.ListTracks(c.Request.Context(), tenant)
	if err != nil {
		respondInternalError(c, err, "Failed to list tracks")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreateTrack registers a catalogue track
func (h *handler) CreateTrack(c *gin.Context) {
	tenant, err := tenantID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	var req dto.CreateTrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	resp, err := h.executor.CreateTrack(c.Request.Context(), tenant, &req)
	if err != nil {
		respondInternalError(c, err, "Failed to create track")
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// UpdateTrack updates a track's display metadata
func (h *handler) UpdateTrack(c *gin.Context) {
	tenant, err := tenantID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	trackID, err := pathID(c)
	if err != nil {
		respondBadRequest(c, "Invalid track ID")
		return
	}

	var req dto.UpdateTrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	resp, err := h.executor.UpdateTrack(c.Request.Context(), tenant, trackID, &req)
	if err != nil {
		respondInternalError(c, err, "Failed to update track")
		return
	}
	if resp == nil {
		respondNotFound(c, "Track not found")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteTrack removes a track and its dependent facts
func (h *handler) DeleteTrack(c *gin.Context) {
	tenant, err := tenantID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	trackID, err := pathID(c)
	if err != nil {
		respondBadRequest(c, "Invalid track ID")
		return
	}

	found, err := h.executor.DeleteTrack(c.Request.Context(), tenant, trackID)
	if err != nil {
		respondInternalError(c, err, "Failed to delete track")
		return
	}
	if !found {
		respondNotFound(c, "Track not found")
		return
	}

	c.Status(http.StatusNoContent)
}

// GetTopArtistShare returns the per-artist volume breakdown
func (h *handler) GetTopArtistShare(c *gin.Context) {
	tenant, err := tenantID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	params, err := ParseTopShareQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	resp, err := h.executor.TopArtistShare(c.Request.Context(), tenant, params.Days, params.Limit)
	if err != nil {
		respondInternalError(c, err, "Failed to get artist share")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetLagCredits lists the compensation applied to finalized days
func (h *handler) GetLagCredits(c *gin.Context) {
	tenant, err := tenantID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	params, err := ParseWindowQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	resp, err := h.executor.LagCredits(c.Request.Context(), tenant, params.AggregateKind(), params.Days)
	if err != nil {
		respondInternalError(c, err, "Failed to get lag credits")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetConservation reports the conservation check for both streams
func (h *handler) GetConservation(c *gin.Context) {
	tenant, err := tenantID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	resp, err := h.executor.Conservation(c.Request.Context(), tenant)
	if err != nil {
		respondInternalError(c, err, "Failed to get conservation report")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "ok",
		"service": "streamledger-api",
	})
}
