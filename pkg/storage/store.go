// Package storage defines the persistence contract the rest of the
// operator depends on: init/migrate plus per-entity save/get/list and
// status/timing updates for every persisted record kind, plus the two
// alert-deduplication operations (spec.md §4.9). Two concrete backends
// are provided: pkg/storage/filestore (file-local) and
// pkg/storage/postgres (relational, server-class).
package storage

import (
	"context"

	"github.com/alertflow/operator/pkg/types"
)

// DedupOutcomeKind classifies the result of DeduplicateAlert.
type DedupOutcomeKind string

const (
	DedupNew       DedupOutcomeKind = "new"
	DedupDuplicate DedupOutcomeKind = "duplicate"
)

// DedupResult is the outcome of DeduplicateAlert: either a freshly
// inserted Alert (New) or the pre-existing one it matched (Duplicate).
type DedupResult struct {
	Kind  DedupOutcomeKind
	Alert types.Alert
}

// Store is the single persistence interface every component depends on.
type Store interface {
	// Init runs pending migrations and otherwise prepares the backend
	// for use.
	Init(ctx context.Context) error

	SaveAlert(ctx context.Context, alert *types.Alert) error
	GetAlert(ctx context.Context, id string) (types.Alert, bool, error)
	ListAlerts(ctx context.Context) ([]types.Alert, error)
	UpdateAlertStatus(ctx context.Context, id string, status types.AlertStatus) error
	UpdateAlertTiming(ctx context.Context, id string, field string, value interface{}) error
	GetAlertByFingerprint(ctx context.Context, fingerprint string) (types.Alert, bool, error)
	DeduplicateAlert(ctx context.Context, fingerprint string, candidate types.Alert) (DedupResult, error)

	// SaveWorkflow persists the initial record for one workflow
	// execution. Subsequent progress and terminal state updates go
	// through UpdateWorkflowProgress/UpdateWorkflowStatus.
	SaveWorkflow(ctx context.Context, exec *types.WorkflowExecution) error
	GetWorkflow(ctx context.Context, executionID string) (types.WorkflowExecution, bool, error)
	ListWorkflows(ctx context.Context) ([]types.WorkflowExecution, error)
	UpdateWorkflowStatus(ctx context.Context, executionID, state, errMsg string) error
	UpdateWorkflowProgress(ctx context.Context, executionID, currentStep string) error

	SaveWorkflowStep(ctx context.Context, step *types.WorkflowStep) error
	ListWorkflowSteps(ctx context.Context, executionID string) ([]types.WorkflowStep, error)
	UpdateWorkflowStepStatus(ctx context.Context, executionID, name string, success bool, errMsg string) error

	SaveSourceEvent(ctx context.Context, event *types.SourceEvent) error
	GetSourceEvent(ctx context.Context, id string) (types.SourceEvent, bool, error)
	ListSourceEvents(ctx context.Context) ([]types.SourceEvent, error)

	SaveSinkOutput(ctx context.Context, output *types.SinkOutput) error
	ListSinkOutputs(ctx context.Context, sinkName string) ([]types.SinkOutput, error)
	UpdateSinkOutputStatus(ctx context.Context, sinkName, executionID string, success bool, errMsg string) error

	SaveCustomResource(ctx context.Context, cr *types.CustomResource) error
	GetCustomResource(ctx context.Context, kind, namespace, name string) (types.CustomResource, bool, error)
	ListCustomResources(ctx context.Context, kind string) ([]types.CustomResource, error)
	UpdateCustomResourceStatus(ctx context.Context, kind, namespace, name string, status map[string]interface{}) error
}
