// Package ingest is the validation boundary for collector-reported snapshots.
// Everything behind it may assume facts are well formed: known platform, non
// negative cumulative value, day not in the future, owning track or playlist
// present.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/isrcanalytics/streamledger/internal/adapter"
	"github.com/isrcanalytics/streamledger/internal/domain"
	"github.com/isrcanalytics/streamledger/internal/logger"
	"github.com/isrcanalytics/streamledger/internal/store"
	"github.com/isrcanalytics/streamledger/internal/store/schema"
)

// IngestStore is the slice of the store ingestion writes through.
type IngestStore interface {
	GetTenant(ctx context.Context, id uuid.UUID) (*schema.Tenant, error)
	EnsureTrack(ctx context.Context, input store.EnsureTrackInput) (*schema.Track, error)
	GetPlaylistByExternalID(ctx context.Context, tenantID uuid.UUID, platform domain.Platform, externalID string) (*schema.Playlist, error)
	UpsertStreamSnapshot(ctx context.Context, snapshot *schema.StreamSnapshot) error
	UpsertFollowerSnapshot(ctx context.Context, snapshot *schema.FollowerSnapshot) error
}

// Accepted describes a snapshot that passed validation and landed in the fact
// store, with everything a recompute needs to pick it up.
type Accepted struct {
	Ref domain.EntityRef
	Day domain.Day
}

// Ingestor validates and persists snapshot events.
type Ingestor struct {
	store IngestStore
	clock adapter.Clock
}

// NewIngestor creates an ingestor backed by the given store
func NewIngestor(s IngestStore, clock adapter.Clock) *Ingestor {
	return &Ingestor{store: s, clock: clock}
}

// Ingest validates one snapshot event and upserts the fact row. Tracks are
// auto-created on first sight; playlists must already be registered. The write
// is idempotent: the same event applied twice leaves the same state.
func (i *Ingestor) Ingest(ctx context.Context, event *domain.SnapshotEvent) (*Accepted, error) {
	day, err := i.validate(event)
	if err != nil {
		return nil, err
	}

	if _, err := i.store.GetTenant(ctx, event.TenantID); err != nil {
		return nil, err
	}

	switch event.EntityKind {
	case domain.EntityKindTrack:
		return i.ingestTrack(ctx, event, day)
	case domain.EntityKindPlaylist:
		return i.ingestPlaylist(ctx, event, day)
	default:
		return nil, fmt.Errorf("unknown entity kind %q", event.EntityKind)
	}
}

func (i *Ingestor) validate(event *domain.SnapshotEvent) (domain.Day, error) {
	if !domain.IsValidPlatform(event.Platform) {
		return domain.Day{}, fmt.Errorf("%w: %q", domain.ErrUnknownPlatform, event.Platform)
	}
	if event.CumulativeValue < 0 {
		return domain.Day{}, fmt.Errorf("%w: %d", domain.ErrNegativeValue, event.CumulativeValue)
	}

	day, err := domain.ParseDay(event.Date)
	if err != nil {
		return domain.Day{}, fmt.Errorf("invalid snapshot date %q: %w", event.Date, err)
	}
	if day.After(domain.NewDay(i.clock.Now())) {
		return domain.Day{}, fmt.Errorf("%w: %s", domain.ErrFutureDate, day)
	}
	return day, nil
}

func (i *Ingestor) ingestTrack(ctx context.Context, event *domain.SnapshotEvent, day domain.Day) (*Accepted, error) {
	input := store.EnsureTrackInput{
		TenantID: event.TenantID,
		ISRC:     event.EntityCode,
	}
	if event.Title != "" {
		input.Title = &event.Title
	}
	if event.Artist != "" {
		input.Artist = &event.Artist
	}

	track, err := i.store.EnsureTrack(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := i.store.UpsertStreamSnapshot(ctx, &schema.StreamSnapshot{
		TenantID:     event.TenantID,
		Platform:     event.Platform,
		TrackID:      track.ID,
		SnapshotDate: day.Time(),
		Playcount:    event.CumulativeValue,
	}); err != nil {
		return nil, err
	}

	logger.DebugCtx(ctx, "stream snapshot ingested",
		zap.String("isrc", event.EntityCode),
		zap.String("platform", string(event.Platform)),
		zap.String("date", day.String()))

	return &Accepted{
		Ref: domain.EntityRef{
			TenantID: event.TenantID,
			Platform: event.Platform,
			Kind:     domain.EntityKindTrack,
			EntityID: track.ID,
		},
		Day: day,
	}, nil
}

func (i *Ingestor) ingestPlaylist(ctx context.Context, event *domain.SnapshotEvent, day domain.Day) (*Accepted, error) {
	// Playlists are registered before collectors report on them; a follower
	// count for one nobody registered is a collector bug, not a new entity
	playlist, err := i.store.GetPlaylistByExternalID(ctx, event.TenantID, event.Platform, event.EntityCode)
	if err != nil {
		if errors.Is(err, domain.ErrPlaylistNotFound) {
			return nil, fmt.Errorf("%w: %s on %s", domain.ErrPlaylistNotFound, event.EntityCode, event.Platform)
		}
		return nil, err
	}

	if err := i.store.UpsertFollowerSnapshot(ctx, &schema.FollowerSnapshot{
		TenantID:     event.TenantID,
		Platform:     event.Platform,
		PlaylistID:   playlist.ID,
		SnapshotDate: day.Time(),
		Followers:    event.CumulativeValue,
	}); err != nil {
		return nil, err
	}

	logger.DebugCtx(ctx, "follower snapshot ingested",
		zap.String("external_id", event.EntityCode),
		zap.String("platform", string(event.Platform)),
		zap.String("date", day.String()))

	return &Accepted{
		Ref: domain.EntityRef{
			TenantID: event.TenantID,
			Platform: event.Platform,
			Kind:     domain.EntityKindPlaylist,
			EntityID: playlist.ID,
		},
		Day: day,
	}, nil
}
