package dto

import (
	"github.com/isrcanalytics/streamledger/internal/health"
)

// DayTotal is one reconciled day of a tenant's totals. LagCredit reports the
// all-time compensation recorded against the day; it is surfaced beside the
// finalized figure and never folded into it.
type DayTotal struct {
	Day       string `json:"day"`
	Delta     int64  `json:"delta"`
	LagCredit int64  `json:"lag_credit"`
}

// TotalDailyResponse is the per-day totals series for one reconciliation stream
type TotalDailyResponse struct {
	Kind string     `json:"kind"`
	Days []DayTotal `json:"days"`
}

// SeriesPoint is one point of a per-day series
type SeriesPoint struct {
	Day   string `json:"day"`
	Value int64  `json:"value"`
}

// SeriesResponse is a generic per-day series payload
type SeriesResponse struct {
	Points []SeriesPoint `json:"points"`
}

// TrackDeltaEntry is one row of a daily leaderboard
type TrackDeltaEntry struct {
	TrackID int64  `json:"track_id"`
	ISRC    string `json:"isrc"`
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	Delta   int64  `json:"delta"`
}

// TopDeltasResponse is the per-track leaderboard for one day
type TopDeltasResponse struct {
	Day     string            `json:"day"`
	Entries []TrackDeltaEntry `json:"entries"`
}

// DatesResponse lists the distinct snapshot dates a tenant has data for
type DatesResponse struct {
	Dates []string `json:"dates"`
}

// TrackResponse is one catalogue track
type TrackResponse struct {
	ID          int64   `json:"id"`
	ISRC        string  `json:"isrc"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	ReleaseDate *string `json:"release_date,omitempty"`
}

// TrackListResponse is a tenant's full catalogue
type TrackListResponse struct {
	Tracks []TrackResponse `json:"tracks"`
	Total  int             `json:"total"`
}

// PlaylistResponse is one watched playlist
type PlaylistResponse struct {
	ID         int64  `json:"id"`
	Platform   string `json:"platform"`
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
}

// PlaylistListResponse is a tenant's watched playlists
type PlaylistListResponse struct {
	Playlists []PlaylistResponse `json:"playlists"`
	Total     int                `json:"total"`
}

// HeatmapResponse is the catalogue availability grid over a window
type HeatmapResponse struct {
	Rows []health.HeatmapRow `json:"rows"`
}

// ArtistShareEntry is one artist's share of delta volume over a window
type ArtistShareEntry struct {
	Artist string `json:"artist"`
	Delta  int64  `json:"delta"`
}

// ArtistShareResponse is the per-artist volume breakdown over a window
type ArtistShareResponse struct {
	Entries []ArtistShareEntry `json:"entries"`
}

// LagCreditEntry is one day's compensation record
type LagCreditEntry struct {
	Day          string `json:"day"`
	MovedToday   int64  `json:"moved_today"`
	MovedAlltime int64  `json:"moved_alltime"`
}

// LagCreditsResponse lists the compensation applied to finalized days
type LagCreditsResponse struct {
	Kind    string           `json:"kind"`
	Credits []LagCreditEntry `json:"credits"`
}

// ConservationEntry is one reconciliation stream's conservation check.
// Conserved is true when finalized totals plus credits equal the latest raw
// counter sum; drift indicates a platform-side counter reset.
type ConservationEntry struct {
	Kind       string `json:"kind"`
	TotalsSum  int64  `json:"totals_sum"`
	CreditsSum int64  `json:"credits_sum"`
	LatestSum  int64  `json:"latest_sum"`
	Drift      int64  `json:"drift"`
	Conserved  bool   `json:"conserved"`
}

// ConservationResponse reports conservation across both streams
type ConservationResponse struct {
	Reports []ConservationEntry `json:"reports"`
}
