package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alertflow/operator/pkg/storage"
	"github.com/alertflow/operator/pkg/types"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newWithDB(sqlx.NewDb(db, "sqlmock"), logrus.New()), mock
}

func TestGetAlert_ReturnsNotFoundWhenMissing(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM alerts WHERE id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(nil))

	_, found, err := store.GetAlert(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAlert_ReturnsRowWhenFound(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	cols := []string{
		"id", "fingerprint", "external_id", "status", "severity", "name", "summary", "description",
		"labels", "annotations", "source_id", "workflow_id", "ai_analysis", "ai_confidence", "auto_resolved",
		"starts_at", "ends_at", "received_at", "triage_started_at", "triage_completed_at", "resolved_at", "updated_at",
	}
	rows := sqlmock.NewRows(cols).AddRow(
		"a1", "fp-1", "", string(types.AlertReceived), string(types.SeverityCritical), "PodCrashLooping", "", "",
		[]byte(`{}`), []byte(`{}`), "", "", []byte(`{}`), 0.0, false,
		nil, nil, now, nil, nil, nil, now,
	)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM alerts WHERE id = $1`)).WithArgs("a1").WillReturnRows(rows)

	alert, found, err := store.GetAlert(context.Background(), "a1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "PodCrashLooping", alert.Name)
	assert.Equal(t, types.AlertReceived, alert.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateWorkflowProgress_ExecutesUpdate(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE workflow_executions SET current_step = $1 WHERE execution_id = $2`)).
		WithArgs("collect-logs", "exec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.UpdateWorkflowProgress(context.Background(), "exec-1", "collect-logs"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeduplicateAlert_InsertsWhenNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM alerts WHERE fingerprint = \$1`).
		WithArgs("fp-new").
		WillReturnRows(sqlmock.NewRows(nil))
	mock.ExpectExec(`INSERT INTO alerts`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := store.DeduplicateAlert(context.Background(), "fp-new", types.Alert{ID: "a-new"})
	require.NoError(t, err)
	assert.Equal(t, storage.DedupNew, result.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}
