// Package health tracks per-track availability across platforms. Observations
// are point-in-time facts layered beside the counter pipeline; they never
// participate in delta derivation or reconciliation.
package health

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/isrcanalytics/streamledger/internal/domain"
	"github.com/isrcanalytics/streamledger/internal/store/schema"
)

// HealthStore is the slice of the store the tracker uses.
type HealthStore interface {
	GetTrackByID(ctx context.Context, tenantID uuid.UUID, trackID int64) (*schema.Track, error)
	UpsertCatalogueHealth(ctx context.Context, snapshot *schema.CatalogueHealthSnapshot) error
	HealthSnapshots(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]schema.CatalogueHealthSnapshot, error)
}

// HeatmapCell is one day's availability for one track.
type HeatmapCell struct {
	Day    string              `json:"day"`
	Status domain.HealthStatus `json:"status"`
}

// HeatmapRow is one track's availability over the requested window.
type HeatmapRow struct {
	TrackID int64         `json:"trackID"`
	ISRC    string        `json:"isrc"`
	Title   string        `json:"title"`
	Cells   []HeatmapCell `json:"cells"`
}

// Tracker records and serves catalogue availability.
type Tracker struct {
	store HealthStore
}

// NewTracker creates a health tracker backed by the given store
func NewTracker(s HealthStore) *Tracker {
	return &Tracker{store: s}
}

// Record writes one day's availability observation for a track. A repeated
// check for the same day overwrites the earlier one.
func (t *Tracker) Record(ctx context.Context, tenantID uuid.UUID, trackID int64, day domain.Day, status domain.HealthStatus) error {
	// reject checks against tracks the tenant does not own
	if _, err := t.store.GetTrackByID(ctx, tenantID, trackID); err != nil {
		return err
	}

	return t.store.UpsertCatalogueHealth(ctx, &schema.CatalogueHealthSnapshot{
		TenantID:            tenantID,
		TrackID:             trackID,
		CheckDate:           day.Time(),
		SpotifyAvailable:    status.SpotifyAvailable,
		AppleMusicAvailable: status.AppleMusicAvailable,
	})
}

// Heatmap groups a window of observations into per-track rows with ascending
// day cells. Days without a check are simply absent.
func (t *Tracker) Heatmap(ctx context.Context, tenantID uuid.UUID, from, to domain.Day) ([]HeatmapRow, error) {
	snapshots, err := t.store.HealthSnapshots(ctx, tenantID, from.Time(), to.Time())
	if err != nil {
		return nil, err
	}

	rows := make([]HeatmapRow, 0)
	index := make(map[int64]int)
	for _, s := range snapshots {
		i, ok := index[s.TrackID]
		if !ok {
			i = len(rows)
			index[s.TrackID] = i
			rows = append(rows, HeatmapRow{
				TrackID: s.TrackID,
				ISRC:    s.Track.ISRC,
				Title:   s.Track.Title,
			})
		}
		rows[i].Cells = append(rows[i].Cells, HeatmapCell{
			Day: domain.NewDay(s.CheckDate).String(),
			Status: domain.HealthStatus{
				SpotifyAvailable:    s.SpotifyAvailable,
				AppleMusicAvailable: s.AppleMusicAvailable,
			},
		})
	}
	return rows, nil
}
