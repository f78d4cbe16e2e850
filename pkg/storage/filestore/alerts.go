package filestore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/storage"
	"github.com/alertflow/operator/pkg/types"
)

func (s *Store) SaveAlert(_ context.Context, alert *types.Alert) error {
	return s.appendRecord(entityAlerts, alert)
}

func (s *Store) loadAlerts() ([]types.Alert, error) {
	raw, err := s.readAll(entityAlerts)
	if err != nil {
		return nil, err
	}
	out := make([]types.Alert, 0, len(raw))
	for _, r := range raw {
		var a types.Alert
		if err := json.Unmarshal(r, &a); err != nil {
			return nil, errors.FailedTo("decode alert record", err)
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) GetAlert(_ context.Context, id string) (types.Alert, bool, error) {
	alerts, err := s.loadAlerts()
	if err != nil {
		return types.Alert{}, false, err
	}
	for i := len(alerts) - 1; i >= 0; i-- {
		if alerts[i].ID == id {
			return alerts[i], true, nil
		}
	}
	return types.Alert{}, false, nil
}

func (s *Store) ListAlerts(_ context.Context) ([]types.Alert, error) {
	return s.loadAlerts()
}

// GetAlertByFingerprint returns the most recently updated alert record
// matching fingerprint.
func (s *Store) GetAlertByFingerprint(_ context.Context, fingerprint string) (types.Alert, bool, error) {
	alerts, err := s.loadAlerts()
	if err != nil {
		return types.Alert{}, false, err
	}
	var best types.Alert
	found := false
	for _, a := range alerts {
		if a.Fingerprint != fingerprint {
			continue
		}
		if !found || a.UpdatedAt.After(best.UpdatedAt) {
			best = a
			found = true
		}
	}
	return best, found, nil
}

func (s *Store) UpdateAlertStatus(ctx context.Context, id string, status types.AlertStatus) error {
	return s.mutateAlert(ctx, id, func(a *types.Alert) {
		a.Status = status
		a.UpdatedAt = time.Now()
	})
}

func (s *Store) UpdateAlertTiming(ctx context.Context, id string, field string, value interface{}) error {
	ts, ok := value.(time.Time)
	if !ok {
		return errors.ValidationError("value", "must be a time.Time")
	}
	return s.mutateAlert(ctx, id, func(a *types.Alert) {
		switch field {
		case "starts_at":
			a.StartsAt = ts
		case "ends_at":
			a.EndsAt = ts
		case "received_at":
			a.ReceivedAt = ts
		case "triage_started_at":
			a.TriageStartedAt = ts
		case "triage_completed_at":
			a.TriageCompletedAt = ts
		case "resolved_at":
			a.ResolvedAt = ts
		}
		a.UpdatedAt = time.Now()
	})
}

// mutateAlert rewrites the most recent record for id in place, leaving
// every other record untouched. Alerts are append-only, so the most
// recent matching line is the logical record.
func (s *Store) mutateAlert(_ context.Context, id string, mutate func(*types.Alert)) error {
	raw, err := s.readAll(entityAlerts)
	if err != nil {
		return err
	}
	lastIdx := -1
	for i, r := range raw {
		var a types.Alert
		if err := json.Unmarshal(r, &a); err != nil {
			return errors.FailedTo("decode alert record", err)
		}
		if a.ID == id {
			lastIdx = i
		}
	}
	if lastIdx < 0 {
		return errors.FailedTo("update alert", errNotFound(id))
	}
	var a types.Alert
	if err := json.Unmarshal(raw[lastIdx], &a); err != nil {
		return errors.FailedTo("decode alert record", err)
	}
	mutate(&a)
	data, err := json.Marshal(a)
	if err != nil {
		return errors.FailedTo("marshal alert record", err)
	}
	raw[lastIdx] = data
	return s.rewriteAll(entityAlerts, raw)
}

// DeduplicateAlert implements the §4.7 rule: a found, Resolved record
// reopens; a found, non-resolved record only refreshes updated_at;
// otherwise candidate is inserted as a new alert.
func (s *Store) DeduplicateAlert(ctx context.Context, fingerprint string, candidate types.Alert) (storage.DedupResult, error) {
	existing, found, err := s.GetAlertByFingerprint(ctx, fingerprint)
	if err != nil {
		return storage.DedupResult{}, err
	}
	now := time.Now()
	if !found {
		candidate.Fingerprint = fingerprint
		candidate.ReceivedAt = now
		candidate.UpdatedAt = now
		if err := s.SaveAlert(ctx, &candidate); err != nil {
			return storage.DedupResult{}, err
		}
		return storage.DedupResult{Kind: storage.DedupNew, Alert: candidate}, nil
	}

	if existing.Status == types.AlertResolved {
		if err := s.mutateAlert(ctx, existing.ID, func(a *types.Alert) {
			a.Status = types.AlertReceived
			a.StartsAt = candidate.StartsAt
			a.EndsAt = candidate.EndsAt
			a.UpdatedAt = now
		}); err != nil {
			return storage.DedupResult{}, err
		}
		existing.Status = types.AlertReceived
		existing.StartsAt = candidate.StartsAt
		existing.EndsAt = candidate.EndsAt
		existing.UpdatedAt = now
		return storage.DedupResult{Kind: storage.DedupDuplicate, Alert: existing}, nil
	}

	if err := s.mutateAlert(ctx, existing.ID, func(a *types.Alert) {
		a.UpdatedAt = now
	}); err != nil {
		return storage.DedupResult{}, err
	}
	existing.UpdatedAt = now
	return storage.DedupResult{Kind: storage.DedupDuplicate, Alert: existing}, nil
}

type notFoundError struct{ id string }

func (e notFoundError) Error() string { return "no record found for id " + e.id }

func errNotFound(id string) error { return notFoundError{id: id} }
