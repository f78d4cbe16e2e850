package postgres

import (
	"context"
	"time"

	"github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/types"
)

type sinkOutputRow struct {
	SinkName    string    `db:"sink_name"`
	ExecutionID string    `db:"execution_id"`
	Success     bool      `db:"success"`
	Error       string    `db:"error"`
	SentAt      time.Time `db:"sent_at"`
}

func (r sinkOutputRow) toOutput() types.SinkOutput {
	return types.SinkOutput{
		SinkName:    r.SinkName,
		ExecutionID: r.ExecutionID,
		Success:     r.Success,
		Error:       r.Error,
		SentAt:      r.SentAt,
	}
}

func (s *Store) SaveSinkOutput(ctx context.Context, output *types.SinkOutput) error {
	row := sinkOutputRow{
		SinkName:    output.SinkName,
		ExecutionID: output.ExecutionID,
		Success:     output.Success,
		Error:       output.Error,
		SentAt:      output.SentAt,
	}
	if row.SentAt.IsZero() {
		row.SentAt = time.Now()
	}
	const query = `
		INSERT INTO sink_outputs (sink_name, execution_id, success, error, sent_at)
		VALUES (:sink_name, :execution_id, :success, :error, :sent_at)
		ON CONFLICT (sink_name, execution_id) DO UPDATE SET
			success = EXCLUDED.success, error = EXCLUDED.error, sent_at = EXCLUDED.sent_at
	`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return errors.DatabaseError("save sink output", err)
	}
	return nil
}

func (s *Store) ListSinkOutputs(ctx context.Context, sinkName string) ([]types.SinkOutput, error) {
	var rows []sinkOutputRow
	var err error
	if sinkName == "" {
		err = s.db.SelectContext(ctx, &rows, `SELECT * FROM sink_outputs ORDER BY sent_at DESC`)
	} else {
		err = s.db.SelectContext(ctx, &rows,
			`SELECT * FROM sink_outputs WHERE sink_name = $1 ORDER BY sent_at DESC`, sinkName)
	}
	if err != nil {
		return nil, errors.DatabaseError("list sink outputs", err)
	}
	out := make([]types.SinkOutput, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toOutput())
	}
	return out, nil
}

func (s *Store) UpdateSinkOutputStatus(ctx context.Context, sinkName, executionID string, success bool, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sink_outputs SET success = $1, error = $2, sent_at = $3 WHERE sink_name = $4 AND execution_id = $5`,
		success, errMsg, time.Now(), sinkName, executionID)
	if err != nil {
		return errors.DatabaseError("update sink output status", err)
	}
	return nil
}
