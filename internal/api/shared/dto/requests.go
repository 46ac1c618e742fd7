package dto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/isrcanalytics/streamledger/internal/domain"
)

// CreateTrackRequest registers a catalogue track ahead of its first snapshot
type CreateTrackRequest struct {
	ISRC        string  `json:"isrc"`
	Title       *string `json:"title,omitempty"`
	Artist      *string `json:"artist,omitempty"`
	ReleaseDate *string `json:"release_date,omitempty"`
}

// Validate checks the request payload
func (r *CreateTrackRequest) Validate() error {
	if strings.TrimSpace(r.ISRC) == "" {
		return errors.New("isrc is required")
	}
	if r.ReleaseDate != nil {
		if _, err := domain.ParseDay(*r.ReleaseDate); err != nil {
			return fmt.Errorf("invalid release_date: %w", err)
		}
	}
	return nil
}

// UpdateTrackRequest updates a track's display metadata. Nil fields are left
// untouched.
type UpdateTrackRequest struct {
	Title       *string `json:"title,omitempty"`
	Artist      *string `json:"artist,omitempty"`
	ReleaseDate *string `json:"release_date,omitempty"`
}

// Validate checks the request payload
func (r *UpdateTrackRequest) Validate() error {
	if r.Title == nil && r.Artist == nil && r.ReleaseDate == nil {
		return errors.New("at least one field must be provided")
	}
	if r.ReleaseDate != nil && *r.ReleaseDate != "" {
		if _, err := domain.ParseDay(*r.ReleaseDate); err != nil {
			return fmt.Errorf("invalid release_date: %w", err)
		}
	}
	return nil
}

// CreatePlaylistRequest registers a playlist to watch. Follower snapshots for
// playlists nobody registered are rejected at ingestion.
type CreatePlaylistRequest struct {
	Platform   string  `json:"platform"`
	ExternalID string  `json:"external_id"`
	Name       *string `json:"name,omitempty"`
}

// Validate checks the request payload
func (r *CreatePlaylistRequest) Validate() error {
	if !domain.IsValidPlatform(domain.Platform(r.Platform)) {
		return fmt.Errorf("unknown platform %q", r.Platform)
	}
	if strings.TrimSpace(r.ExternalID) == "" {
		return errors.New("external_id is required")
	}
	return nil
}

// TotalSeriesRequest sums follower counts per day across a set of playlists
type TotalSeriesRequest struct {
	PlaylistIDs []int64 `json:"playlist_ids"`
	Days        int     `json:"days"`
}

// Validate checks the request payload
func (r *TotalSeriesRequest) Validate() error {
	if len(r.PlaylistIDs) == 0 {
		return errors.New("playlist_ids is required")
	}
	if r.Days < 0 {
		return errors.New("days must not be negative")
	}
	return nil
}
