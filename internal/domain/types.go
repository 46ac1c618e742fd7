package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Platform identifies a source streaming platform
type Platform string

const (
	PlatformSpotify    Platform = "spotify"
	PlatformAppleMusic Platform = "apple_music"
)

// IsValidPlatform checks if a platform is part of the supported enumeration
func IsValidPlatform(p Platform) bool {
	return p == PlatformSpotify || p == PlatformAppleMusic
}

// String returns the string representation of the platform
func (p Platform) String() string {
	return string(p)
}

// EntityKind distinguishes the two independent counter streams
type EntityKind string

const (
	// EntityKindTrack covers cumulative play counts per track
	EntityKindTrack EntityKind = "track"
	// EntityKindPlaylist covers cumulative follower counts per playlist
	EntityKindPlaylist EntityKind = "playlist"
)

// AggregateKind identifies which reconciliation stream a daily total or lag
// credit belongs to. Streams and followers reconcile independently.
type AggregateKind string

const (
	AggregateKindStreams   AggregateKind = "streams"
	AggregateKindFollowers AggregateKind = "followers"
)

// IsValidAggregateKind checks if a kind is part of the supported enumeration
func IsValidAggregateKind(k AggregateKind) bool {
	return k == AggregateKindStreams || k == AggregateKindFollowers
}

// KindForEntity maps an entity kind to its reconciliation stream
func KindForEntity(e EntityKind) AggregateKind {
	if e == EntityKindPlaylist {
		return AggregateKindFollowers
	}
	return AggregateKindStreams
}

// DateLayout is the wire and storage layout for snapshot dates
const DateLayout = "2006-01-02"

// Day represents a calendar date with no time component, always UTC midnight
type Day struct {
	t time.Time
}

// NewDay truncates a timestamp to its UTC calendar date
func NewDay(t time.Time) Day {
	u := t.UTC()
	return Day{t: time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDay parses YYYY-MM-DD into a Day
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return NewDay(t), nil
}

// Time returns the UTC midnight timestamp of the day
func (d Day) Time() time.Time {
	return d.t
}

// String formats the day as YYYY-MM-DD
func (d Day) String() string {
	return d.t.Format(DateLayout)
}

// MarshalJSON encodes the day as a YYYY-MM-DD string
func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a YYYY-MM-DD string, or null as the zero day
func (d *Day) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Day{}
		return nil
	}
	day, err := ParseDay(s)
	if err != nil {
		return err
	}
	*d = day
	return nil
}

// AddDays returns the day shifted by n calendar days
func (d Day) AddDays(n int) Day {
	return NewDay(d.t.AddDate(0, 0, n))
}

// Before reports whether d is strictly earlier than other
func (d Day) Before(other Day) bool {
	return d.t.Before(other.t)
}

// After reports whether d is strictly later than other
func (d Day) After(other Day) bool {
	return d.t.After(other.t)
}

// Equal reports whether d and other are the same calendar date
func (d Day) Equal(other Day) bool {
	return d.t.Equal(other.t)
}

// IsZero reports whether the day is unset
func (d Day) IsZero() bool {
	return d.t.IsZero()
}

// SnapshotEvent is the collector boundary payload: one cumulative counter
// observation for one entity on one date. Events carry no ordering guarantee
// across entities; per entity the collector eventually delivers every date it
// has observed. Gaps mean "no new data", not zero.
type SnapshotEvent struct {
	EventID         string     `json:"event_id"`
	TenantID        uuid.UUID  `json:"tenant_id"`
	Platform        Platform   `json:"platform"`
	EntityKind      EntityKind `json:"entity_kind"`
	EntityCode      string     `json:"entity_code"`
	Date            string     `json:"date"`
	CumulativeValue int64      `json:"cumulative_value"`

	// Optional display metadata for track auto-creation on first ingestion
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
}

// Subject returns the JetStream subject for this event
func (e *SnapshotEvent) Subject() string {
	return fmt.Sprintf("snapshots.%s.%s", e.Platform, e.EntityKind)
}

// EntityRef identifies one counter stream: a (tenant, platform, kind, entity)
// tuple. It is the unit of recompute serialization.
type EntityRef struct {
	TenantID uuid.UUID
	Platform Platform
	Kind     EntityKind
	EntityID int64
}

// LockKey returns the key used for per-entity mutual exclusion
func (r EntityRef) LockKey() string {
	return fmt.Sprintf("%s:%s:%s:%d", r.TenantID, r.Platform, r.Kind, r.EntityID)
}

// String formats the ref for logging and workflow IDs
func (r EntityRef) String() string {
	return r.LockKey()
}

// HealthStatus is a point-in-time per-platform availability observation
type HealthStatus struct {
	SpotifyAvailable    bool `json:"spotify_available"`
	AppleMusicAvailable bool `json:"apple_music_available"`
}
