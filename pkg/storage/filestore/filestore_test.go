package filestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alertflow/operator/pkg/storage"
	"github.com/alertflow/operator/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(t.TempDir())
	require.NoError(t, s.Init(context.Background()))
	return s
}

func TestDeduplicateAlert_InsertsNewOnFirstSeen(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	candidate := types.Alert{ID: "a1", Name: "PodCrashLooping", Status: types.AlertReceived}
	result, err := s.DeduplicateAlert(ctx, "fp-1", candidate)
	require.NoError(t, err)
	assert.Equal(t, storage.DedupNew, result.Kind)
	assert.False(t, result.Alert.ReceivedAt.IsZero())
	assert.False(t, result.Alert.UpdatedAt.IsZero())
}

func TestDeduplicateAlert_RefreshesUpdatedAtWhenNotResolved(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.DeduplicateAlert(ctx, "fp-2", types.Alert{ID: "a2", Status: types.AlertTriaging})
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	second, err := s.DeduplicateAlert(ctx, "fp-2", types.Alert{ID: "a2-ignored", Status: types.AlertReceived})
	require.NoError(t, err)

	assert.Equal(t, storage.DedupDuplicate, second.Kind)
	assert.Equal(t, first.Alert.ID, second.Alert.ID, "duplicate should retain original ID")
	assert.True(t, second.Alert.UpdatedAt.After(first.Alert.UpdatedAt), "expected UpdatedAt to advance")
	assert.Equal(t, types.AlertTriaging, second.Alert.Status, "non-resolved duplicate should keep original status")
}

func TestDeduplicateAlert_ReopensResolvedAlert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.DeduplicateAlert(ctx, "fp-3", types.Alert{ID: "a3", Status: types.AlertReceived})
	require.NoError(t, err)
	require.NoError(t, s.UpdateAlertStatus(ctx, first.Alert.ID, types.AlertResolved))

	starts := time.Now().Add(-time.Minute)
	reopened, err := s.DeduplicateAlert(ctx, "fp-3", types.Alert{ID: "ignored", Status: types.AlertReceived, StartsAt: starts})
	require.NoError(t, err)
	assert.Equal(t, storage.DedupDuplicate, reopened.Kind)
	assert.Equal(t, types.AlertReceived, reopened.Alert.Status, "resolved alert should reopen to Received")
	assert.True(t, reopened.Alert.StartsAt.Equal(starts))

	stored, found, err := s.GetAlert(ctx, first.Alert.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, types.AlertReceived, stored.Status)
}

func TestSaveAndUpdateWorkflow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	exec := &types.WorkflowExecution{
		ExecutionID: "exec-1",
		Workflow:    &types.Workflow{Name: "restart-pod"},
		State:       types.ExecutionRunning,
		TotalSteps:  3,
	}
	require.NoError(t, s.SaveWorkflow(ctx, exec))
	require.NoError(t, s.UpdateWorkflowProgress(ctx, "exec-1", "collect-logs"))
	require.NoError(t, s.UpdateWorkflowStatus(ctx, "exec-1", string(types.ExecutionSucceeded), ""))

	got, found, err := s.GetWorkflow(ctx, "exec-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, types.ExecutionSucceeded, got.State)
	assert.Equal(t, "collect-logs", got.Context.CurrentStepSnapshot())
	assert.Equal(t, "restart-pod", got.Workflow.Name)
}

func TestWorkflowSteps_SaveListAndUpdateStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	step := &types.WorkflowStep{ExecutionID: "exec-2", Name: "restart", Kind: types.StepKindCLI}
	require.NoError(t, s.SaveWorkflowStep(ctx, step))
	require.NoError(t, s.UpdateWorkflowStepStatus(ctx, "exec-2", "restart", true, ""))

	steps, err := s.ListWorkflowSteps(ctx, "exec-2")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.True(t, steps[0].Success)
}

func TestSourceEvents_SaveGetList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	event := &types.SourceEvent{ID: "evt-1", SourceName: "prometheus-webhook", SourceType: "webhook"}
	require.NoError(t, s.SaveSourceEvent(ctx, event))

	got, found, err := s.GetSourceEvent(ctx, "evt-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "prometheus-webhook", got.SourceName)

	all, err := s.ListSourceEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSinkOutputs_SaveListAndUpdateStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	output := &types.SinkOutput{SinkName: "slack-oncall", ExecutionID: "exec-3"}
	require.NoError(t, s.SaveSinkOutput(ctx, output))
	require.NoError(t, s.UpdateSinkOutputStatus(ctx, "slack-oncall", "exec-3", false, "rate limited"))

	outputs, err := s.ListSinkOutputs(ctx, "slack-oncall")
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.False(t, outputs[0].Success)
	assert.Equal(t, "rate limited", outputs[0].Error)
}

func TestCustomResources_SaveGetListAndUpdateStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cr := &types.CustomResource{Kind: "Workflow", Namespace: "ops", Name: "restart-pod"}
	require.NoError(t, s.SaveCustomResource(ctx, cr))
	require.NoError(t, s.UpdateCustomResourceStatus(ctx, "Workflow", "ops", "restart-pod", map[string]interface{}{"phase": "Active"}))

	got, found, err := s.GetCustomResource(ctx, "Workflow", "ops", "restart-pod")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Active", got.Status["phase"])

	list, err := s.ListCustomResources(ctx, "Workflow")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
