package sweeper

import (
	"context"
)

// Sweeper is a long-running background loop that keeps the ledger maintained:
// scheduling finalize and retention passes, or re-deriving stale catalogues.
//
//go:generate mockgen -source=sweeper.go -destination=../mocks/sweeper.go -package=mocks -mock_names=Sweeper=MockSweeper
type Sweeper interface {
	// Start runs the sweep loop, blocking until the context is canceled
	Start(ctx context.Context) error

	// Stop shuts the loop down, waiting for in-progress sweeps to finish
	Stop(ctx context.Context) error

	// Name identifies the sweeper in logs
	Name() string
}
