package filestore

import (
	"context"
	"encoding/json"

	"github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/types"
)

func (s *Store) SaveWorkflowStep(_ context.Context, step *types.WorkflowStep) error {
	return s.appendRecord(entityWorkflowSteps, step)
}

func (s *Store) ListWorkflowSteps(_ context.Context, executionID string) ([]types.WorkflowStep, error) {
	raw, err := s.readAll(entityWorkflowSteps)
	if err != nil {
		return nil, err
	}
	out := make([]types.WorkflowStep, 0)
	for _, r := range raw {
		var step types.WorkflowStep
		if err := json.Unmarshal(r, &step); err != nil {
			return nil, errors.FailedTo("decode workflow step record", err)
		}
		if step.ExecutionID == executionID {
			out = append(out, step)
		}
	}
	return out, nil
}

// UpdateWorkflowStepStatus rewrites the most recent step record
// matching (executionID, name), mirroring the alert/workflow
// append-then-rewrite pattern.
func (s *Store) UpdateWorkflowStepStatus(_ context.Context, executionID, name string, success bool, errMsg string) error {
	raw, err := s.readAll(entityWorkflowSteps)
	if err != nil {
		return err
	}
	lastIdx := -1
	for i, r := range raw {
		var step types.WorkflowStep
		if err := json.Unmarshal(r, &step); err != nil {
			return errors.FailedTo("decode workflow step record", err)
		}
		if step.ExecutionID == executionID && step.Name == name {
			lastIdx = i
		}
	}
	if lastIdx < 0 {
		return errors.FailedTo("update workflow step", errNotFound(executionID+"/"+name))
	}
	var step types.WorkflowStep
	if err := json.Unmarshal(raw[lastIdx], &step); err != nil {
		return errors.FailedTo("decode workflow step record", err)
	}
	step.Success = success
	step.Error = errMsg
	data, err := json.Marshal(step)
	if err != nil {
		return errors.FailedTo("marshal workflow step record", err)
	}
	raw[lastIdx] = data
	return s.rewriteAll(entityWorkflowSteps, raw)
}
