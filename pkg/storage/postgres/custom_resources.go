package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/types"
)

type customResourceRow struct {
	Kind      string    `db:"kind"`
	Namespace string    `db:"namespace"`
	Name      string    `db:"name"`
	Spec      jsonMap   `db:"spec"`
	Status    jsonMap   `db:"status"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r customResourceRow) toCR() types.CustomResource {
	return types.CustomResource{
		Kind:      r.Kind,
		Namespace: r.Namespace,
		Name:      r.Name,
		Spec:      map[string]interface{}(r.Spec),
		Status:    map[string]interface{}(r.Status),
		UpdatedAt: r.UpdatedAt,
	}
}

func (s *Store) SaveCustomResource(ctx context.Context, cr *types.CustomResource) error {
	row := customResourceRow{
		Kind:      cr.Kind,
		Namespace: cr.Namespace,
		Name:      cr.Name,
		Spec:      toJSONMap(cr.Spec),
		Status:    toJSONMap(cr.Status),
		UpdatedAt: cr.UpdatedAt,
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now()
	}
	const query = `
		INSERT INTO custom_resources (kind, namespace, name, spec, status, updated_at)
		VALUES (:kind, :namespace, :name, :spec, :status, :updated_at)
		ON CONFLICT (kind, namespace, name) DO UPDATE SET
			spec = EXCLUDED.spec, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return errors.DatabaseError("save custom resource", err)
	}
	return nil
}

func (s *Store) GetCustomResource(ctx context.Context, kind, namespace, name string) (types.CustomResource, bool, error) {
	var row customResourceRow
	err := s.db.GetContext(ctx, &row,
		`SELECT * FROM custom_resources WHERE kind = $1 AND namespace = $2 AND name = $3`, kind, namespace, name)
	if err == sql.ErrNoRows {
		return types.CustomResource{}, false, nil
	}
	if err != nil {
		return types.CustomResource{}, false, errors.DatabaseError("get custom resource", err)
	}
	return row.toCR(), true, nil
}

func (s *Store) ListCustomResources(ctx context.Context, kind string) ([]types.CustomResource, error) {
	var rows []customResourceRow
	var err error
	if kind == "" {
		err = s.db.SelectContext(ctx, &rows, `SELECT * FROM custom_resources ORDER BY updated_at DESC`)
	} else {
		err = s.db.SelectContext(ctx, &rows,
			`SELECT * FROM custom_resources WHERE kind = $1 ORDER BY updated_at DESC`, kind)
	}
	if err != nil {
		return nil, errors.DatabaseError("list custom resources", err)
	}
	out := make([]types.CustomResource, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toCR())
	}
	return out, nil
}

func (s *Store) UpdateCustomResourceStatus(ctx context.Context, kind, namespace, name string, status map[string]interface{}) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE custom_resources SET status = $1, updated_at = $2 WHERE kind = $3 AND namespace = $4 AND name = $5`,
		toJSONMap(status), time.Now(), kind, namespace, name)
	if err != nil {
		return errors.DatabaseError("update custom resource status", err)
	}
	return nil
}
