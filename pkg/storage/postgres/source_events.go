package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/types"
)

type sourceEventRow struct {
	ID                string    `db:"id"`
	SourceName        string    `db:"source_name"`
	SourceType        string    `db:"source_type"`
	RawEvent          jsonMap   `db:"raw_event"`
	WorkflowTriggered string    `db:"workflow_triggered"`
	ReceivedAt        time.Time `db:"received_at"`
}

func (r sourceEventRow) toEvent() types.SourceEvent {
	return types.SourceEvent{
		ID:                r.ID,
		SourceName:        r.SourceName,
		SourceType:        r.SourceType,
		RawEvent:          map[string]interface{}(r.RawEvent),
		WorkflowTriggered: r.WorkflowTriggered,
		ReceivedAt:        r.ReceivedAt,
	}
}

func (s *Store) SaveSourceEvent(ctx context.Context, event *types.SourceEvent) error {
	row := sourceEventRow{
		ID:                event.ID,
		SourceName:        event.SourceName,
		SourceType:        event.SourceType,
		RawEvent:          toJSONMap(event.RawEvent),
		WorkflowTriggered: event.WorkflowTriggered,
		ReceivedAt:        event.ReceivedAt,
	}
	if row.ReceivedAt.IsZero() {
		row.ReceivedAt = time.Now()
	}
	const query = `
		INSERT INTO source_events (id, source_name, source_type, raw_event, workflow_triggered, received_at)
		VALUES (:id, :source_name, :source_type, :raw_event, :workflow_triggered, :received_at)
		ON CONFLICT (id) DO UPDATE SET workflow_triggered = EXCLUDED.workflow_triggered
	`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return errors.DatabaseError("save source event", err)
	}
	return nil
}

func (s *Store) GetSourceEvent(ctx context.Context, id string) (types.SourceEvent, bool, error) {
	var row sourceEventRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM source_events WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return types.SourceEvent{}, false, nil
	}
	if err != nil {
		return types.SourceEvent{}, false, errors.DatabaseError("get source event", err)
	}
	return row.toEvent(), true, nil
}

func (s *Store) ListSourceEvents(ctx context.Context) ([]types.SourceEvent, error) {
	var rows []sourceEventRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM source_events ORDER BY received_at DESC`); err != nil {
		return nil, errors.DatabaseError("list source events", err)
	}
	out := make([]types.SourceEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toEvent())
	}
	return out, nil
}
