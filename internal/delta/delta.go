// Package delta derives daily increments from cumulative platform counters.
//
// Platforms report lifetime totals, not per-day activity. The derivation walks
// an entity's snapshots in date order and attributes the difference between
// consecutive counters to the later day. The first snapshot ever seen for an
// entity contributes its full value, and a counter that moves backwards
// between two observed days yields a zero, never a negative delta.
package delta

import (
	"time"

	"github.com/isrcanalytics/streamledger/internal/store"
)

// Point is one cumulative observation for a single entity.
type Point struct {
	Day   time.Time
	Value int64
}

// ComputeDeltas derives the per-day increments for an ascending run of
// cumulative points. baseline is the counter value observed just before the
// run, or nil when the run starts at the entity's first snapshot ever.
func ComputeDeltas(baseline *int64, points []Point) []store.DeltaRow {
	rows := make([]store.DeltaRow, 0, len(points))
	prev := baseline
	for _, p := range points {
		var delta int64
		if prev == nil {
			// first observation ever counts in full
			delta = p.Value
		} else if diff := p.Value - *prev; diff > 0 {
			delta = diff
		}
		rows = append(rows, store.DeltaRow{Day: p.Day, Delta: delta})
		v := p.Value
		prev = &v
	}
	return rows
}
