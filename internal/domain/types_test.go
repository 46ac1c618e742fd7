package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDay(t *testing.T) {
	t.Run("truncates to UTC midnight", func(t *testing.T) {
		loc, err := time.LoadLocation("America/New_York")
		require.NoError(t, err)

		d := NewDay(time.Date(2025, 3, 14, 23, 30, 0, 0, loc))
		// 23:30 EDT is already March 15 in UTC
		assert.Equal(t, "2025-03-15", d.String())
		assert.Equal(t, time.UTC, d.Time().Location())
	})

	t.Run("parse round trip", func(t *testing.T) {
		d, err := ParseDay("2025-06-01")
		require.NoError(t, err)
		assert.Equal(t, "2025-06-01", d.String())

		_, err = ParseDay("01/06/2025")
		assert.Error(t, err)
	})

	t.Run("arithmetic and ordering", func(t *testing.T) {
		d, _ := ParseDay("2025-01-31")
		next := d.AddDays(1)
		assert.Equal(t, "2025-02-01", next.String())
		assert.True(t, d.Before(next))
		assert.True(t, next.After(d))
		assert.True(t, d.Equal(d.AddDays(0)))
	})
}

func TestPlatformValidation(t *testing.T) {
	assert.True(t, IsValidPlatform(PlatformSpotify))
	assert.True(t, IsValidPlatform(PlatformAppleMusic))
	assert.False(t, IsValidPlatform(Platform("youtube")))
	assert.False(t, IsValidPlatform(Platform("")))
}

func TestKindForEntity(t *testing.T) {
	assert.Equal(t, AggregateKindStreams, KindForEntity(EntityKindTrack))
	assert.Equal(t, AggregateKindFollowers, KindForEntity(EntityKindPlaylist))
}

func TestSnapshotEventSubject(t *testing.T) {
	e := &SnapshotEvent{
		TenantID:   uuid.New(),
		Platform:   PlatformSpotify,
		EntityKind: EntityKindTrack,
	}
	assert.Equal(t, "snapshots.spotify.track", e.Subject())
}

func TestEntityRefLockKey(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	ref := EntityRef{TenantID: id, Platform: PlatformSpotify, Kind: EntityKindTrack, EntityID: 42}
	assert.Equal(t, "11111111-2222-3333-4444-555555555555:spotify:track:42", ref.LockKey())
}
