package alert

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alertflow/operator/pkg/types"
)

// DedupOutcome tags whether Deduplicate produced a fresh alert or
// matched an existing one.
type DedupOutcome int

const (
	OutcomeNew DedupOutcome = iota
	OutcomeDuplicate
)

// DedupResult is the outcome of deduplicating a candidate alert against
// a (possibly nil) previously-stored alert sharing its fingerprint.
type DedupResult struct {
	Outcome DedupOutcome
	Alert   *types.Alert
}

// Deduplicate implements the rule from spec.md §4.7 step 3 / §8
// property 6: a new fingerprint inserts a fresh Received alert; an
// existing Resolved alert transitions back to Received and refreshes
// starts_at/ends_at; any other existing alert only refreshes
// updated_at.
func Deduplicate(existing *types.Alert, candidate types.Alert, now time.Time) DedupResult {
	if existing == nil {
		candidate.ID = uuid.NewString()
		if candidate.Status == "" {
			candidate.Status = types.AlertReceived
		}
		candidate.ReceivedAt = now
		candidate.UpdatedAt = now
		return DedupResult{Outcome: OutcomeNew, Alert: &candidate}
	}

	updated := *existing
	if existing.Status == types.AlertResolved {
		updated.Status = types.AlertReceived
		updated.StartsAt = candidate.StartsAt
		updated.EndsAt = candidate.EndsAt
	}
	updated.UpdatedAt = now
	return DedupResult{Outcome: OutcomeDuplicate, Alert: &updated}
}

// DeriveSeverity maps a free-form severity label to the normalized
// Severity enum, defaulting to Warning when unrecognized (spec.md §4.7
// step 3).
func DeriveSeverity(label string) types.Severity {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "critical":
		return types.SeverityCritical
	case "info", "information", "informational":
		return types.SeverityInfo
	default:
		return types.SeverityWarning
	}
}
