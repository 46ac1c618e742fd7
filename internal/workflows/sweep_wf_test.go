package workflows_test

import (
	"errors"

	"github.com/stretchr/testify/mock"
)

// ====================================================================================
// FinalizeSweep Tests
// ====================================================================================

func (s *SnapshotWorkflowTestSuite) TestFinalizeSweep_Success() {
	s.env.OnActivity(s.executor.StartReconcilePass, mock.Anything).Return(nil)
	s.env.OnActivity(s.executor.FinalizeDueDays, mock.Anything).Return(int64(3), nil)
	s.env.OnActivity(s.executor.VerifyConservation, mock.Anything).Return(nil)

	s.env.ExecuteWorkflow(s.worker.FinalizeSweep)

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *SnapshotWorkflowTestSuite) TestFinalizeSweep_PassResetFailureStopsTheSweep() {
	s.env.OnActivity(s.executor.StartReconcilePass, mock.Anything).
		Return(errors.New("database unavailable"))

	s.env.ExecuteWorkflow(s.worker.FinalizeSweep)

	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

// ====================================================================================
// RetentionSweep Tests
// ====================================================================================

func (s *SnapshotWorkflowTestSuite) TestRetentionSweep_Success() {
	s.env.OnActivity(s.executor.ApplyRetention, mock.Anything).Return(int64(120), nil)
	s.env.OnActivity(s.executor.ApplyCompression, mock.Anything).Return(int64(40), nil)

	s.env.ExecuteWorkflow(s.worker.RetentionSweep)

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *SnapshotWorkflowTestSuite) TestRetentionSweep_RetentionFailureSkipsCompression() {
	s.env.OnActivity(s.executor.ApplyRetention, mock.Anything).
		Return(int64(0), errors.New("retention window still active"))

	s.env.ExecuteWorkflow(s.worker.RetentionSweep)

	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}
