package filestore

import (
	"context"
	"encoding/json"

	"github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/types"
)

func (s *Store) SaveSourceEvent(_ context.Context, event *types.SourceEvent) error {
	return s.appendRecord(entitySourceEvents, event)
}

func (s *Store) GetSourceEvent(_ context.Context, id string) (types.SourceEvent, bool, error) {
	raw, err := s.readAll(entitySourceEvents)
	if err != nil {
		return types.SourceEvent{}, false, err
	}
	for i := len(raw) - 1; i >= 0; i-- {
		var event types.SourceEvent
		if err := json.Unmarshal(raw[i], &event); err != nil {
			return types.SourceEvent{}, false, errors.FailedTo("decode source event record", err)
		}
		if event.ID == id {
			return event, true, nil
		}
	}
	return types.SourceEvent{}, false, nil
}

func (s *Store) ListSourceEvents(_ context.Context) ([]types.SourceEvent, error) {
	raw, err := s.readAll(entitySourceEvents)
	if err != nil {
		return nil, err
	}
	out := make([]types.SourceEvent, 0, len(raw))
	for _, r := range raw {
		var event types.SourceEvent
		if err := json.Unmarshal(r, &event); err != nil {
			return nil, errors.FailedTo("decode source event record", err)
		}
		out = append(out, event)
	}
	return out, nil
}
