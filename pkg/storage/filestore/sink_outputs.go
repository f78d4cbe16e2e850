package filestore

import (
	"context"
	"encoding/json"

	"github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/types"
)

func (s *Store) SaveSinkOutput(_ context.Context, output *types.SinkOutput) error {
	return s.appendRecord(entitySinkOutputs, output)
}

func (s *Store) ListSinkOutputs(_ context.Context, sinkName string) ([]types.SinkOutput, error) {
	raw, err := s.readAll(entitySinkOutputs)
	if err != nil {
		return nil, err
	}
	out := make([]types.SinkOutput, 0)
	for _, r := range raw {
		var output types.SinkOutput
		if err := json.Unmarshal(r, &output); err != nil {
			return nil, errors.FailedTo("decode sink output record", err)
		}
		if sinkName == "" || output.SinkName == sinkName {
			out = append(out, output)
		}
	}
	return out, nil
}

// UpdateSinkOutputStatus rewrites the most recent record matching
// (sinkName, executionID).
func (s *Store) UpdateSinkOutputStatus(_ context.Context, sinkName, executionID string, success bool, errMsg string) error {
	raw, err := s.readAll(entitySinkOutputs)
	if err != nil {
		return err
	}
	lastIdx := -1
	for i, r := range raw {
		var output types.SinkOutput
		if err := json.Unmarshal(r, &output); err != nil {
			return errors.FailedTo("decode sink output record", err)
		}
		if output.SinkName == sinkName && output.ExecutionID == executionID {
			lastIdx = i
		}
	}
	if lastIdx < 0 {
		return errors.FailedTo("update sink output", errNotFound(sinkName+"/"+executionID))
	}
	var output types.SinkOutput
	if err := json.Unmarshal(raw[lastIdx], &output); err != nil {
		return errors.FailedTo("decode sink output record", err)
	}
	output.Success = success
	output.Error = errMsg
	data, err := json.Marshal(output)
	if err != nil {
		return errors.FailedTo("marshal sink output record", err)
	}
	raw[lastIdx] = data
	return s.rewriteAll(entitySinkOutputs, raw)
}
