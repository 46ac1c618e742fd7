package workflows_test

import (
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.temporal.io/sdk/workflow"

	"github.com/isrcanalytics/streamledger/internal/domain"
	"github.com/isrcanalytics/streamledger/internal/store"
	"github.com/isrcanalytics/streamledger/internal/workflows"
)

// ====================================================================================
// BackfillTenant Tests
// ====================================================================================

func (s *SnapshotWorkflowTestSuite) TestBackfillTenant_EmptyPageCompletes() {
	input := workflows.BackfillInput{
		TenantID: uuid.New(),
		Kind:     domain.EntityKindTrack,
	}

	s.env.OnActivity(s.executor.ListEntityIDs, mock.Anything, workflows.ListEntitiesInput{
		TenantID: input.TenantID,
		Kind:     domain.EntityKindTrack,
		AfterID:  0,
		Limit:    2,
	}).Return([]int64{}, nil)

	s.env.ExecuteWorkflow(s.worker.BackfillTenant, input)

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *SnapshotWorkflowTestSuite) TestBackfillTenant_FullPageContinuesAsNew() {
	input := workflows.BackfillInput{
		TenantID: uuid.New(),
		Kind:     domain.EntityKindTrack,
	}

	s.env.OnActivity(s.executor.ListEntityIDs, mock.Anything, mock.Anything).
		Return([]int64{10, 11}, nil)

	// Two entities times two platforms
	s.env.OnActivity(s.executor.RecomputeEntity, mock.Anything, mock.Anything).
		Return(&store.RecomputeResult{}, nil).Times(4)

	s.env.ExecuteWorkflow(s.worker.BackfillTenant, input)

	s.True(s.env.IsWorkflowCompleted())
	err := s.env.GetWorkflowError()
	s.Error(err)
	s.True(workflow.IsContinueAsNewError(err))
}

func (s *SnapshotWorkflowTestSuite) TestBackfillTenant_RecomputesFromTheEpoch() {
	tenantID := uuid.New()
	input := workflows.BackfillInput{
		TenantID: tenantID,
		Kind:     domain.EntityKindPlaylist,
		AfterID:  6,
	}

	s.env.OnActivity(s.executor.ListEntityIDs, mock.Anything, workflows.ListEntitiesInput{
		TenantID: tenantID,
		Kind:     domain.EntityKindPlaylist,
		AfterID:  6,
		Limit:    2,
	}).Return([]int64{7}, nil)

	for _, platform := range []domain.Platform{domain.PlatformSpotify, domain.PlatformAppleMusic} {
		s.env.OnActivity(s.executor.RecomputeEntity, mock.Anything, workflows.RecomputeInput{
			TenantID: tenantID,
			Platform: platform,
			Kind:     domain.EntityKindPlaylist,
			EntityID: 7,
			FromDay:  "1970-01-01",
		}).Return(&store.RecomputeResult{}, nil)
	}

	s.env.ExecuteWorkflow(s.worker.BackfillTenant, input)

	s.True(s.env.IsWorkflowCompleted())
	// A short page still continues as new; the next run observes the empty
	// page and completes
	s.True(workflow.IsContinueAsNewError(s.env.GetWorkflowError()))
}
