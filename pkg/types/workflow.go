// Package types holds the declarative and runtime data model shared by
// the workflow engine, step executor, and agent runtime.
package types

import "time"

// StepKind enumerates the three step types a Workflow may declare.
type StepKind string

const (
	StepKindCLI         StepKind = "cli"
	StepKindAgent       StepKind = "agent"
	StepKindConditional StepKind = "conditional"
)

// Runtime describes the execution environment a workflow's cli/agent
// steps run against.
type Runtime struct {
	Image     string            `json:"image"`
	LLMConfig LLMStepConfig     `json:"llm_config"`
	Env       map[string]string `json:"env,omitempty"`
}

// LLMStepConfig is the workflow-declared LLM configuration threaded
// into agent steps via context metadata.
type LLMStepConfig struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// ToolReference names a tool an agent step may invoke, either by a bare
// name (resolved against the default tool set) or a detailed spec.
type ToolReference struct {
	Name string `json:"name"`
}

// Step is one unit of work within a Workflow.
type Step struct {
	Name string   `json:"name"`
	Kind StepKind `json:"kind"`

	// cli
	Command string        `json:"command,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty"`

	// agent
	Goal             string          `json:"goal,omitempty"`
	Tools            []ToolReference `json:"tools,omitempty"`
	MaxIterations    int             `json:"max_iterations,omitempty"`
	ApprovalRequired bool            `json:"approval_required,omitempty"`

	// conditional
	Condition string `json:"condition,omitempty"`
}

// OutputDeclaration names a final workflow output and the template
// expression that produces it.
type OutputDeclaration struct {
	Name     string `json:"name"`
	Template string `json:"template"`
}

// Workflow is the declarative, immutable-during-execution pipeline
// definition: Source -> Workflow -> Sink.
type Workflow struct {
	Name      string              `json:"name"`
	Namespace string              `json:"namespace"`
	Runtime   Runtime             `json:"runtime"`
	Steps     []Step              `json:"steps"`
	Outputs   []OutputDeclaration `json:"outputs,omitempty"`
	Sinks     []string            `json:"sinks,omitempty"`
}

// StepByName returns the step with the given name, or false if absent.
func (w *Workflow) StepByName(name string) (Step, bool) {
	for _, s := range w.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}

// ExecutionState is the lifecycle state of a WorkflowExecution.
type ExecutionState string

const (
	ExecutionPending         ExecutionState = "Pending"
	ExecutionRunning         ExecutionState = "Running"
	ExecutionSucceeded       ExecutionState = "Succeeded"
	ExecutionFailed          ExecutionState = "Failed"
	ExecutionPendingApproval ExecutionState = "PendingApproval"
)

// WorkflowExecution is a live instance of a Workflow: state, context
// and outputs allocated at enqueue time and retired once persisted.
type WorkflowExecution struct {
	ExecutionID    string
	Workflow       *Workflow
	State          ExecutionState
	Context        *WorkflowContext
	Outputs        map[string]interface{}
	Error          string
	FailedStep     string
	TotalSteps     int
	StepsCompleted int
	CreatedAt      time.Time
	StartedAt      time.Time
	CompletedAt    time.Time
}
