package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/types"
)

type workflowRow struct {
	ExecutionID    string       `db:"execution_id"`
	WorkflowName   string       `db:"workflow_name"`
	State          string       `db:"state"`
	CurrentStep    string       `db:"current_step"`
	Outputs        jsonMap      `db:"outputs"`
	Error          string       `db:"error"`
	FailedStep     string       `db:"failed_step"`
	TotalSteps     int          `db:"total_steps"`
	StepsCompleted int          `db:"steps_completed"`
	CreatedAt      time.Time    `db:"created_at"`
	StartedAt      sql.NullTime `db:"started_at"`
	CompletedAt    sql.NullTime `db:"completed_at"`
}

func (r workflowRow) toExecution() types.WorkflowExecution {
	return types.WorkflowExecution{
		ExecutionID:    r.ExecutionID,
		Workflow:       &types.Workflow{Name: r.WorkflowName},
		State:          types.ExecutionState(r.State),
		Outputs:        map[string]interface{}(r.Outputs),
		Error:          r.Error,
		FailedStep:     r.FailedStep,
		TotalSteps:     r.TotalSteps,
		StepsCompleted: r.StepsCompleted,
		CreatedAt:      r.CreatedAt,
		StartedAt:      r.StartedAt.Time,
		CompletedAt:    r.CompletedAt.Time,
	}
}

const insertWorkflowSQL = `
INSERT INTO workflow_executions (
	execution_id, workflow_name, state, current_step, outputs, error, failed_step,
	total_steps, steps_completed, created_at, started_at, completed_at
) VALUES (
	:execution_id, :workflow_name, :state, :current_step, :outputs, :error, :failed_step,
	:total_steps, :steps_completed, :created_at, :started_at, :completed_at
)
ON CONFLICT (execution_id) DO UPDATE SET
	state = EXCLUDED.state,
	current_step = EXCLUDED.current_step,
	outputs = EXCLUDED.outputs,
	error = EXCLUDED.error,
	failed_step = EXCLUDED.failed_step,
	total_steps = EXCLUDED.total_steps,
	steps_completed = EXCLUDED.steps_completed,
	started_at = EXCLUDED.started_at,
	completed_at = EXCLUDED.completed_at
`

func (s *Store) SaveWorkflow(ctx context.Context, exec *types.WorkflowExecution) error {
	name := ""
	if exec.Workflow != nil {
		name = exec.Workflow.Name
	}
	currentStep := ""
	if exec.Context != nil {
		currentStep = exec.Context.CurrentStepSnapshot()
	}
	row := workflowRow{
		ExecutionID:    exec.ExecutionID,
		WorkflowName:   name,
		State:          string(exec.State),
		CurrentStep:    currentStep,
		Outputs:        toJSONMap(exec.Outputs),
		Error:          exec.Error,
		FailedStep:     exec.FailedStep,
		TotalSteps:     exec.TotalSteps,
		StepsCompleted: exec.StepsCompleted,
		CreatedAt:      exec.CreatedAt,
		StartedAt:      nullTime(exec.StartedAt),
		CompletedAt:    nullTime(exec.CompletedAt),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	if _, err := s.db.NamedExecContext(ctx, insertWorkflowSQL, row); err != nil {
		return errors.DatabaseError("save workflow execution", err)
	}
	return nil
}

func (s *Store) GetWorkflow(ctx context.Context, executionID string) (types.WorkflowExecution, bool, error) {
	var row workflowRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM workflow_executions WHERE execution_id = $1`, executionID)
	if err == sql.ErrNoRows {
		return types.WorkflowExecution{}, false, nil
	}
	if err != nil {
		return types.WorkflowExecution{}, false, errors.DatabaseError("get workflow execution", err)
	}
	return row.toExecution(), true, nil
}

func (s *Store) ListWorkflows(ctx context.Context) ([]types.WorkflowExecution, error) {
	var rows []workflowRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM workflow_executions ORDER BY created_at DESC`); err != nil {
		return nil, errors.DatabaseError("list workflow executions", err)
	}
	out := make([]types.WorkflowExecution, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toExecution())
	}
	return out, nil
}

func (s *Store) UpdateWorkflowStatus(ctx context.Context, executionID, state, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE workflow_executions SET state = $1, error = $2, completed_at = $3 WHERE execution_id = $4`,
		state, errMsg, time.Now(), executionID)
	if err != nil {
		return errors.DatabaseError("update workflow status", err)
	}
	return nil
}

func (s *Store) UpdateWorkflowProgress(ctx context.Context, executionID, currentStep string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE workflow_executions SET current_step = $1 WHERE execution_id = $2`, currentStep, executionID)
	if err != nil {
		return errors.DatabaseError("update workflow progress", err)
	}
	return nil
}
