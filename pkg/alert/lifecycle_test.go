package alert

import (
	"testing"
	"time"

	"github.com/alertflow/operator/pkg/types"
)

func TestDeduplicate_NewAlert(t *testing.T) {
	now := time.Now()
	candidate := types.Alert{Fingerprint: "abc", Name: "PodCrashLooping"}

	result := Deduplicate(nil, candidate, now)

	if result.Outcome != OutcomeNew {
		t.Fatalf("expected OutcomeNew, got %v", result.Outcome)
	}
	if result.Alert.ID == "" {
		t.Fatal("expected a freshly allocated ID")
	}
	if result.Alert.Status != types.AlertReceived {
		t.Fatalf("expected Received status, got %v", result.Alert.Status)
	}
}

func TestDeduplicate_ResolvedReopens(t *testing.T) {
	existing := &types.Alert{
		ID:          "a1",
		Fingerprint: "abc",
		Status:      types.AlertResolved,
		StartsAt:    time.Now().Add(-time.Hour),
	}
	now := time.Now()
	candidate := types.Alert{Fingerprint: "abc", StartsAt: now}

	result := Deduplicate(existing, candidate, now)

	if result.Outcome != OutcomeDuplicate {
		t.Fatalf("expected OutcomeDuplicate, got %v", result.Outcome)
	}
	if result.Alert.ID != "a1" {
		t.Fatal("identity should be unchanged across dedup")
	}
	if result.Alert.Status != types.AlertReceived {
		t.Fatalf("expected status to transition back to Received, got %v", result.Alert.Status)
	}
	if !result.Alert.StartsAt.Equal(now) {
		t.Fatal("expected starts_at to be refreshed")
	}
}

func TestDeduplicate_NonResolvedOnlyRefreshesUpdatedAt(t *testing.T) {
	originalStart := time.Now().Add(-time.Hour)
	existing := &types.Alert{
		ID:          "a1",
		Fingerprint: "abc",
		Status:      types.AlertTriaging,
		StartsAt:    originalStart,
	}
	now := time.Now()
	candidate := types.Alert{Fingerprint: "abc", StartsAt: now}

	result := Deduplicate(existing, candidate, now)

	if result.Alert.Status != types.AlertTriaging {
		t.Fatalf("expected status unchanged, got %v", result.Alert.Status)
	}
	if !result.Alert.StartsAt.Equal(originalStart) {
		t.Fatal("expected starts_at to remain unchanged for non-resolved duplicates")
	}
	if !result.Alert.UpdatedAt.Equal(now) {
		t.Fatal("expected updated_at to be refreshed")
	}
}

func TestDeriveSeverity(t *testing.T) {
	cases := map[string]types.Severity{
		"critical": types.SeverityCritical,
		"CRITICAL": types.SeverityCritical,
		"warning":  types.SeverityWarning,
		"info":     types.SeverityInfo,
		"":         types.SeverityWarning,
		"unknown":  types.SeverityWarning,
	}
	for in, want := range cases {
		if got := DeriveSeverity(in); got != want {
			t.Errorf("DeriveSeverity(%q) = %v, want %v", in, got, want)
		}
	}
}
