package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/storage"
	"github.com/alertflow/operator/pkg/types"
)

type alertRow struct {
	ID                string         `db:"id"`
	Fingerprint       string         `db:"fingerprint"`
	ExternalID        string         `db:"external_id"`
	Status            string         `db:"status"`
	Severity          string         `db:"severity"`
	Name              string         `db:"name"`
	Summary           string         `db:"summary"`
	Description       string         `db:"description"`
	Labels            stringMap      `db:"labels"`
	Annotations       stringMap      `db:"annotations"`
	SourceID          string         `db:"source_id"`
	WorkflowID        string         `db:"workflow_id"`
	AIAnalysis        jsonMap        `db:"ai_analysis"`
	AIConfidence      float64        `db:"ai_confidence"`
	AutoResolved      bool           `db:"auto_resolved"`
	StartsAt          sql.NullTime   `db:"starts_at"`
	EndsAt            sql.NullTime   `db:"ends_at"`
	ReceivedAt        sql.NullTime   `db:"received_at"`
	TriageStartedAt   sql.NullTime   `db:"triage_started_at"`
	TriageCompletedAt sql.NullTime   `db:"triage_completed_at"`
	ResolvedAt        sql.NullTime   `db:"resolved_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func toAlertRow(a types.Alert) alertRow {
	return alertRow{
		ID:                a.ID,
		Fingerprint:       a.Fingerprint,
		ExternalID:        a.ExternalID,
		Status:            string(a.Status),
		Severity:          string(a.Severity),
		Name:              a.Name,
		Summary:           a.Summary,
		Description:       a.Description,
		Labels:            toStringMap(a.Labels),
		Annotations:       toStringMap(a.Annotations),
		SourceID:          a.SourceID,
		WorkflowID:        a.WorkflowID,
		AIAnalysis:        toJSONMap(a.AIAnalysis),
		AIConfidence:      a.AIConfidence,
		AutoResolved:      a.AutoResolved,
		StartsAt:          nullTime(a.StartsAt),
		EndsAt:            nullTime(a.EndsAt),
		ReceivedAt:        nullTime(a.ReceivedAt),
		TriageStartedAt:   nullTime(a.TriageStartedAt),
		TriageCompletedAt: nullTime(a.TriageCompletedAt),
		ResolvedAt:        nullTime(a.ResolvedAt),
		UpdatedAt:         a.UpdatedAt,
	}
}

func (r alertRow) toAlert() types.Alert {
	return types.Alert{
		ID:                r.ID,
		Fingerprint:       r.Fingerprint,
		ExternalID:        r.ExternalID,
		Status:            types.AlertStatus(r.Status),
		Severity:          types.Severity(r.Severity),
		Name:              r.Name,
		Summary:           r.Summary,
		Description:       r.Description,
		Labels:            map[string]string(r.Labels),
		Annotations:       map[string]string(r.Annotations),
		SourceID:          r.SourceID,
		WorkflowID:        r.WorkflowID,
		AIAnalysis:        map[string]interface{}(r.AIAnalysis),
		AIConfidence:      r.AIConfidence,
		AutoResolved:      r.AutoResolved,
		StartsAt:          r.StartsAt.Time,
		EndsAt:            r.EndsAt.Time,
		ReceivedAt:        r.ReceivedAt.Time,
		TriageStartedAt:   r.TriageStartedAt.Time,
		TriageCompletedAt: r.TriageCompletedAt.Time,
		ResolvedAt:        r.ResolvedAt.Time,
		UpdatedAt:         r.UpdatedAt,
	}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

const upsertAlertSQL = `
INSERT INTO alerts (
	id, fingerprint, external_id, status, severity, name, summary, description,
	labels, annotations, source_id, workflow_id, ai_analysis, ai_confidence, auto_resolved,
	starts_at, ends_at, received_at, triage_started_at, triage_completed_at, resolved_at, updated_at
) VALUES (
	:id, :fingerprint, :external_id, :status, :severity, :name, :summary, :description,
	:labels, :annotations, :source_id, :workflow_id, :ai_analysis, :ai_confidence, :auto_resolved,
	:starts_at, :ends_at, :received_at, :triage_started_at, :triage_completed_at, :resolved_at, :updated_at
)
ON CONFLICT (id) DO UPDATE SET
	fingerprint = EXCLUDED.fingerprint,
	status = EXCLUDED.status,
	severity = EXCLUDED.severity,
	name = EXCLUDED.name,
	summary = EXCLUDED.summary,
	description = EXCLUDED.description,
	labels = EXCLUDED.labels,
	annotations = EXCLUDED.annotations,
	source_id = EXCLUDED.source_id,
	workflow_id = EXCLUDED.workflow_id,
	ai_analysis = EXCLUDED.ai_analysis,
	ai_confidence = EXCLUDED.ai_confidence,
	auto_resolved = EXCLUDED.auto_resolved,
	starts_at = EXCLUDED.starts_at,
	ends_at = EXCLUDED.ends_at,
	received_at = EXCLUDED.received_at,
	triage_started_at = EXCLUDED.triage_started_at,
	triage_completed_at = EXCLUDED.triage_completed_at,
	resolved_at = EXCLUDED.resolved_at,
	updated_at = EXCLUDED.updated_at
`

func (s *Store) SaveAlert(ctx context.Context, alert *types.Alert) error {
	row := toAlertRow(*alert)
	if _, err := s.db.NamedExecContext(ctx, upsertAlertSQL, row); err != nil {
		return errors.DatabaseError("save alert", err)
	}
	return nil
}

func (s *Store) GetAlert(ctx context.Context, id string) (types.Alert, bool, error) {
	var row alertRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM alerts WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return types.Alert{}, false, nil
	}
	if err != nil {
		return types.Alert{}, false, errors.DatabaseError("get alert", err)
	}
	return row.toAlert(), true, nil
}

func (s *Store) ListAlerts(ctx context.Context) ([]types.Alert, error) {
	var rows []alertRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM alerts ORDER BY updated_at DESC`); err != nil {
		return nil, errors.DatabaseError("list alerts", err)
	}
	out := make([]types.Alert, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toAlert())
	}
	return out, nil
}

func (s *Store) GetAlertByFingerprint(ctx context.Context, fingerprint string) (types.Alert, bool, error) {
	var row alertRow
	err := s.db.GetContext(ctx, &row,
		`SELECT * FROM alerts WHERE fingerprint = $1 ORDER BY updated_at DESC LIMIT 1`, fingerprint)
	if err == sql.ErrNoRows {
		return types.Alert{}, false, nil
	}
	if err != nil {
		return types.Alert{}, false, errors.DatabaseError("get alert by fingerprint", err)
	}
	return row.toAlert(), true, nil
}

func (s *Store) UpdateAlertStatus(ctx context.Context, id string, status types.AlertStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET status = $1, updated_at = $2 WHERE id = $3`, string(status), time.Now(), id)
	if err != nil {
		return errors.DatabaseError("update alert status", err)
	}
	return nil
}

var alertTimingColumns = map[string]string{
	"starts_at":           "starts_at",
	"ends_at":             "ends_at",
	"received_at":         "received_at",
	"triage_started_at":   "triage_started_at",
	"triage_completed_at": "triage_completed_at",
	"resolved_at":         "resolved_at",
}

func (s *Store) UpdateAlertTiming(ctx context.Context, id string, field string, value interface{}) error {
	ts, ok := value.(time.Time)
	if !ok {
		return errors.ValidationError("value", "must be a time.Time")
	}
	column, ok := alertTimingColumns[field]
	if !ok {
		return errors.ValidationError("field", "unknown alert timing field "+field)
	}
	query := `UPDATE alerts SET ` + column + ` = $1, updated_at = $2 WHERE id = $3`
	if _, err := s.db.ExecContext(ctx, query, ts, time.Now(), id); err != nil {
		return errors.DatabaseError("update alert timing", err)
	}
	return nil
}

// DeduplicateAlert implements the same resolved-reopens / non-resolved
// refresh-only / not-found-inserts rule as filestore, as a single
// transaction so the read-then-write race is closed at the database
// level.
func (s *Store) DeduplicateAlert(ctx context.Context, fingerprint string, candidate types.Alert) (storage.DedupResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storage.DedupResult{}, errors.DatabaseError("begin dedup transaction", err)
	}
	defer tx.Rollback()

	var row alertRow
	err = tx.GetContext(ctx, &row,
		`SELECT * FROM alerts WHERE fingerprint = $1 ORDER BY updated_at DESC LIMIT 1 FOR UPDATE`, fingerprint)
	now := time.Now()

	switch {
	case err == sql.ErrNoRows:
		candidate.Fingerprint = fingerprint
		candidate.ReceivedAt = now
		candidate.UpdatedAt = now
		newRow := toAlertRow(candidate)
		if _, err := tx.NamedExecContext(ctx, upsertAlertSQL, newRow); err != nil {
			return storage.DedupResult{}, errors.DatabaseError("insert new alert", err)
		}
		if err := tx.Commit(); err != nil {
			return storage.DedupResult{}, errors.DatabaseError("commit dedup transaction", err)
		}
		return storage.DedupResult{Kind: storage.DedupNew, Alert: candidate}, nil

	case err != nil:
		return storage.DedupResult{}, errors.DatabaseError("query alert by fingerprint", err)
	}

	existing := row.toAlert()
	if existing.Status == types.AlertResolved {
		_, err = tx.ExecContext(ctx,
			`UPDATE alerts SET status = $1, starts_at = $2, ends_at = $3, updated_at = $4 WHERE id = $5`,
			string(types.AlertReceived), candidate.StartsAt, candidate.EndsAt, now, existing.ID)
		if err != nil {
			return storage.DedupResult{}, errors.DatabaseError("reopen alert", err)
		}
		existing.Status = types.AlertReceived
		existing.StartsAt = candidate.StartsAt
		existing.EndsAt = candidate.EndsAt
	} else {
		_, err = tx.ExecContext(ctx, `UPDATE alerts SET updated_at = $1 WHERE id = $2`, now, existing.ID)
		if err != nil {
			return storage.DedupResult{}, errors.DatabaseError("refresh alert", err)
		}
	}
	existing.UpdatedAt = now

	if err := tx.Commit(); err != nil {
		return storage.DedupResult{}, errors.DatabaseError("commit dedup transaction", err)
	}
	return storage.DedupResult{Kind: storage.DedupDuplicate, Alert: existing}, nil
}
