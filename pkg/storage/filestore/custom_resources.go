package filestore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/types"
)

func (s *Store) SaveCustomResource(_ context.Context, cr *types.CustomResource) error {
	return s.appendRecord(entityCustomResources, cr)
}

func crKey(kind, namespace, name string) string {
	return kind + "/" + namespace + "/" + name
}

func (s *Store) GetCustomResource(_ context.Context, kind, namespace, name string) (types.CustomResource, bool, error) {
	raw, err := s.readAll(entityCustomResources)
	if err != nil {
		return types.CustomResource{}, false, err
	}
	want := crKey(kind, namespace, name)
	for i := len(raw) - 1; i >= 0; i-- {
		var cr types.CustomResource
		if err := json.Unmarshal(raw[i], &cr); err != nil {
			return types.CustomResource{}, false, errors.FailedTo("decode custom resource record", err)
		}
		if crKey(cr.Kind, cr.Namespace, cr.Name) == want {
			return cr, true, nil
		}
	}
	return types.CustomResource{}, false, nil
}

func (s *Store) ListCustomResources(_ context.Context, kind string) ([]types.CustomResource, error) {
	raw, err := s.readAll(entityCustomResources)
	if err != nil {
		return nil, err
	}
	out := make([]types.CustomResource, 0)
	for _, r := range raw {
		var cr types.CustomResource
		if err := json.Unmarshal(r, &cr); err != nil {
			return nil, errors.FailedTo("decode custom resource record", err)
		}
		if kind == "" || cr.Kind == kind {
			out = append(out, cr)
		}
	}
	return out, nil
}

func (s *Store) UpdateCustomResourceStatus(_ context.Context, kind, namespace, name string, status map[string]interface{}) error {
	raw, err := s.readAll(entityCustomResources)
	if err != nil {
		return err
	}
	want := crKey(kind, namespace, name)
	lastIdx := -1
	for i, r := range raw {
		var cr types.CustomResource
		if err := json.Unmarshal(r, &cr); err != nil {
			return errors.FailedTo("decode custom resource record", err)
		}
		if crKey(cr.Kind, cr.Namespace, cr.Name) == want {
			lastIdx = i
		}
	}
	if lastIdx < 0 {
		return errors.FailedTo("update custom resource", errNotFound(want))
	}
	var cr types.CustomResource
	if err := json.Unmarshal(raw[lastIdx], &cr); err != nil {
		return errors.FailedTo("decode custom resource record", err)
	}
	cr.Status = status
	cr.UpdatedAt = time.Now()
	data, err := json.Marshal(cr)
	if err != nil {
		return errors.FailedTo("marshal custom resource record", err)
	}
	raw[lastIdx] = data
	return s.rewriteAll(entityCustomResources, raw)
}
