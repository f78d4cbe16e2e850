package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/types"
)

type workflowStepRow struct {
	ExecutionID string       `db:"execution_id"`
	Name        string       `db:"name"`
	Kind        string       `db:"kind"`
	Success     bool         `db:"success"`
	Output      jsonMap      `db:"output"`
	Error       string       `db:"error"`
	StartedAt   sql.NullTime `db:"started_at"`
	CompletedAt sql.NullTime `db:"completed_at"`
}

func (r workflowStepRow) toStep() types.WorkflowStep {
	return types.WorkflowStep{
		ExecutionID: r.ExecutionID,
		Name:        r.Name,
		Kind:        types.StepKind(r.Kind),
		Success:     r.Success,
		Output:      map[string]interface{}(r.Output),
		Error:       r.Error,
		StartedAt:   r.StartedAt.Time,
		CompletedAt: r.CompletedAt.Time,
	}
}

const upsertWorkflowStepSQL = `
INSERT INTO workflow_steps (execution_id, name, kind, success, output, error, started_at, completed_at)
VALUES (:execution_id, :name, :kind, :success, :output, :error, :started_at, :completed_at)
ON CONFLICT (execution_id, name) DO UPDATE SET
	kind = EXCLUDED.kind,
	success = EXCLUDED.success,
	output = EXCLUDED.output,
	error = EXCLUDED.error,
	started_at = EXCLUDED.started_at,
	completed_at = EXCLUDED.completed_at
`

func (s *Store) SaveWorkflowStep(ctx context.Context, step *types.WorkflowStep) error {
	row := workflowStepRow{
		ExecutionID: step.ExecutionID,
		Name:        step.Name,
		Kind:        string(step.Kind),
		Success:     step.Success,
		Output:      toJSONMap(step.Output),
		Error:       step.Error,
		StartedAt:   nullTime(step.StartedAt),
		CompletedAt: nullTime(step.CompletedAt),
	}
	if _, err := s.db.NamedExecContext(ctx, upsertWorkflowStepSQL, row); err != nil {
		return errors.DatabaseError("save workflow step", err)
	}
	return nil
}

func (s *Store) ListWorkflowSteps(ctx context.Context, executionID string) ([]types.WorkflowStep, error) {
	var rows []workflowStepRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM workflow_steps WHERE execution_id = $1 ORDER BY started_at ASC`, executionID)
	if err != nil {
		return nil, errors.DatabaseError("list workflow steps", err)
	}
	out := make([]types.WorkflowStep, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toStep())
	}
	return out, nil
}

func (s *Store) UpdateWorkflowStepStatus(ctx context.Context, executionID, name string, success bool, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE workflow_steps SET success = $1, error = $2, completed_at = $3 WHERE execution_id = $4 AND name = $5`,
		success, errMsg, time.Now(), executionID, name)
	if err != nil {
		return errors.DatabaseError("update workflow step status", err)
	}
	return nil
}
