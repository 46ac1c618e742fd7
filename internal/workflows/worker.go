package workflows

import (
	"go.temporal.io/sdk/workflow"

	"github.com/isrcanalytics/streamledger/internal/domain"
)

// Worker defines the interface for the analytics workflows
//
//go:generate mockgen -source=worker.go -destination=../mocks/worker.go -package=mocks -mock_names=Worker=MockWorker
type Worker interface {
	// ProcessSnapshot ingests one snapshot event and recomputes the affected entity
	ProcessSnapshot(ctx workflow.Context, event *domain.SnapshotEvent) error

	// RecomputeEntity rebuilds one entity's deltas from a day forward
	RecomputeEntity(ctx workflow.Context, input RecomputeInput) error

	// BackfillTenant recomputes every entity of one tenant and stream,
	// continuing as new between pages so histories of any size stay resumable
	BackfillTenant(ctx workflow.Context, input BackfillInput) error

	// FinalizeSweep closes days that aged out of the lag window and audits conservation
	FinalizeSweep(ctx workflow.Context) error

	// RetentionSweep ages out and compresses raw snapshot history
	RetentionSweep(ctx workflow.Context) error
}

// WorkerConfig holds tunables for the workflows
type WorkerConfig struct {
	// BackfillPageSize is how many entities one backfill run processes before
	// continuing as new
	BackfillPageSize int
}

const defaultBackfillPageSize = 200

// worker is the concrete implementation of Worker
type worker struct {
	config   WorkerConfig
	executor Executor
}

// NewWorker creates a new worker instance
func NewWorker(executor Executor, config WorkerConfig) Worker {
	if config.BackfillPageSize <= 0 {
		config.BackfillPageSize = defaultBackfillPageSize
	}
	return &worker{
		executor: executor,
		config:   config,
	}
}
