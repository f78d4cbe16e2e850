package filestore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/types"
)

// workflowRecord is the on-disk shape of a WorkflowExecution: the
// Context pointer is flattened to its current step name, and no other
// part of the types.WorkflowContext is stored. On read, Context is
// rebuilt holding only that step name.
type workflowRecord struct {
	ExecutionID    string                 `json:"execution_id"`
	WorkflowName   string                 `json:"workflow_name"`
	State          types.ExecutionState   `json:"state"`
	CurrentStep    string                 `json:"current_step"`
	Outputs        map[string]interface{} `json:"outputs"`
	Error          string                 `json:"error,omitempty"`
	FailedStep     string                 `json:"failed_step,omitempty"`
	TotalSteps     int                    `json:"total_steps"`
	StepsCompleted int                    `json:"steps_completed"`
	CreatedAt      time.Time              `json:"created_at"`
	StartedAt      time.Time              `json:"started_at"`
	CompletedAt    time.Time              `json:"completed_at"`
}

func toWorkflowRecord(exec *types.WorkflowExecution) workflowRecord {
	name := ""
	if exec.Workflow != nil {
		name = exec.Workflow.Name
	}
	currentStep := ""
	if exec.Context != nil {
		currentStep = exec.Context.CurrentStepSnapshot()
	}
	return workflowRecord{
		ExecutionID:    exec.ExecutionID,
		WorkflowName:   name,
		State:          exec.State,
		CurrentStep:    currentStep,
		Outputs:        exec.Outputs,
		Error:          exec.Error,
		FailedStep:     exec.FailedStep,
		TotalSteps:     exec.TotalSteps,
		StepsCompleted: exec.StepsCompleted,
		CreatedAt:      exec.CreatedAt,
		StartedAt:      exec.StartedAt,
		CompletedAt:    exec.CompletedAt,
	}
}

func (r workflowRecord) toExecution() types.WorkflowExecution {
	wfCtx := types.NewWorkflowContext(nil)
	wfCtx.SetCurrentStep(r.CurrentStep)
	return types.WorkflowExecution{
		ExecutionID:    r.ExecutionID,
		Workflow:       &types.Workflow{Name: r.WorkflowName},
		State:          r.State,
		Context:        wfCtx,
		Outputs:        r.Outputs,
		Error:          r.Error,
		FailedStep:     r.FailedStep,
		TotalSteps:     r.TotalSteps,
		StepsCompleted: r.StepsCompleted,
		CreatedAt:      r.CreatedAt,
		StartedAt:      r.StartedAt,
		CompletedAt:    r.CompletedAt,
	}
}

func (s *Store) SaveWorkflow(_ context.Context, exec *types.WorkflowExecution) error {
	return s.appendRecord(entityWorkflows, toWorkflowRecord(exec))
}

func (s *Store) loadWorkflowRecords() ([]workflowRecord, error) {
	raw, err := s.readAll(entityWorkflows)
	if err != nil {
		return nil, err
	}
	out := make([]workflowRecord, 0, len(raw))
	for _, r := range raw {
		var rec workflowRecord
		if err := json.Unmarshal(r, &rec); err != nil {
			return nil, errors.FailedTo("decode workflow record", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) GetWorkflow(_ context.Context, executionID string) (types.WorkflowExecution, bool, error) {
	records, err := s.loadWorkflowRecords()
	if err != nil {
		return types.WorkflowExecution{}, false, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].ExecutionID == executionID {
			return records[i].toExecution(), true, nil
		}
	}
	return types.WorkflowExecution{}, false, nil
}

func (s *Store) ListWorkflows(_ context.Context) ([]types.WorkflowExecution, error) {
	records, err := s.loadWorkflowRecords()
	if err != nil {
		return nil, err
	}
	out := make([]types.WorkflowExecution, 0, len(records))
	for _, r := range records {
		out = append(out, r.toExecution())
	}
	return out, nil
}

func (s *Store) UpdateWorkflowStatus(_ context.Context, executionID, state, errMsg string) error {
	return s.mutateWorkflow(executionID, func(r *workflowRecord) {
		r.State = types.ExecutionState(state)
		r.Error = errMsg
		r.CompletedAt = time.Now()
	})
}

func (s *Store) UpdateWorkflowProgress(_ context.Context, executionID, currentStep string) error {
	return s.mutateWorkflow(executionID, func(r *workflowRecord) {
		r.CurrentStep = currentStep
	})
}

func (s *Store) mutateWorkflow(executionID string, mutate func(*workflowRecord)) error {
	raw, err := s.readAll(entityWorkflows)
	if err != nil {
		return err
	}
	lastIdx := -1
	for i, r := range raw {
		var rec workflowRecord
		if err := json.Unmarshal(r, &rec); err != nil {
			return errors.FailedTo("decode workflow record", err)
		}
		if rec.ExecutionID == executionID {
			lastIdx = i
		}
	}
	if lastIdx < 0 {
		return errors.FailedTo("update workflow", errNotFound(executionID))
	}
	var rec workflowRecord
	if err := json.Unmarshal(raw[lastIdx], &rec); err != nil {
		return errors.FailedTo("decode workflow record", err)
	}
	mutate(&rec)
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.FailedTo("marshal workflow record", err)
	}
	raw[lastIdx] = data
	return s.rewriteAll(entityWorkflows, raw)
}
