package types

import "time"

// AlertStatus is the lifecycle status of an Alert.
type AlertStatus string

const (
	AlertReceived  AlertStatus = "Received"
	AlertTriaging  AlertStatus = "Triaging"
	AlertResolved  AlertStatus = "Resolved"
	AlertEscalated AlertStatus = "Escalated"
)

// Severity is the normalized severity of an Alert.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityWarning  Severity = "Warning"
	SeverityInfo     Severity = "Info"
)

// Alert is the deduplicated, lifecycle-tracked record of a fired alert.
type Alert struct {
	ID          string
	Fingerprint string
	ExternalID  string
	Status      AlertStatus
	Severity    Severity
	Name        string
	Summary     string
	Description string
	Labels      map[string]string
	Annotations map[string]string

	SourceID   string
	WorkflowID string

	AIAnalysis     map[string]interface{}
	AIConfidence   float64
	AutoResolved   bool

	StartsAt          time.Time
	EndsAt            time.Time
	ReceivedAt        time.Time
	TriageStartedAt   time.Time
	TriageCompletedAt time.Time
	ResolvedAt        time.Time

	UpdatedAt time.Time
}

// SourceEvent is the raw admitted event a Source produced, independent
// of whether it resolved to a new or duplicate Alert.
type SourceEvent struct {
	ID                string
	SourceName        string
	SourceType        string
	RawEvent          map[string]interface{}
	WorkflowTriggered string
	ReceivedAt        time.Time
}

// WorkflowStep is the persistence-only companion record mirroring one
// executed step of a WorkflowExecution.
type WorkflowStep struct {
	ExecutionID string
	Name        string
	Kind        StepKind
	Success     bool
	Output      map[string]interface{}
	Error       string
	StartedAt   time.Time
	CompletedAt time.Time
}

// SinkOutput is the persistence-only companion record of one sink
// delivery attempt.
type SinkOutput struct {
	SinkName    string
	ExecutionID string
	Success     bool
	Error       string
	SentAt      time.Time
}

// CustomResource is a persisted snapshot of a Source/Workflow/Sink
// custom resource as last observed by the (external) controller layer.
type CustomResource struct {
	Kind      string
	Name      string
	Namespace string
	Spec      map[string]interface{}
	Status    map[string]interface{}
	UpdatedAt time.Time
}
