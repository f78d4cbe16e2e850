package types

import "sync"

// WorkflowContext is the mutable, per-execution data bag threaded
// across a workflow's steps. It is safe for concurrent reads while a
// single execution goroutine owns writes between steps.
type WorkflowContext struct {
	mu sync.RWMutex

	Input       map[string]interface{} `json:"input"`
	StepOutputs map[string]interface{} `json:"step_outputs"`
	CurrentStep string                  `json:"current_step,omitempty"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// NewWorkflowContext seeds an empty context ready for execution.
func NewWorkflowContext(input map[string]interface{}) *WorkflowContext {
	if input == nil {
		input = map[string]interface{}{}
	}
	return &WorkflowContext{
		Input:       input,
		StepOutputs: map[string]interface{}{},
		Metadata:    map[string]interface{}{},
	}
}

// SetCurrentStep records the step name currently executing.
func (c *WorkflowContext) SetCurrentStep(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CurrentStep = name
}

// SetStepOutput records a completed step's output.
func (c *WorkflowContext) SetStepOutput(name string, output interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.StepOutputs[name] = output
}

// SetMetadata sets a single metadata key.
func (c *WorkflowContext) SetMetadata(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Metadata[key] = value
}

// CurrentStepSnapshot safely reads the step name currently executing.
func (c *WorkflowContext) CurrentStepSnapshot() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.CurrentStep
}

// TemplateView is the read-only projection of a WorkflowContext exposed
// to template expressions: {input, outputs, metadata}.
type TemplateView struct {
	Input    map[string]interface{} `json:"input"`
	Outputs  map[string]interface{} `json:"outputs"`
	Metadata map[string]interface{} `json:"metadata"`
}

// View snapshots the context into its template-facing shape. The
// snapshot is shallow: nested maps are shared, not deep-copied, matching
// the engine's "snapshot before invoking the executor" step (§4.6).
func (c *WorkflowContext) View() TemplateView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return TemplateView{
		Input:    c.Input,
		Outputs:  c.StepOutputs,
		Metadata: c.Metadata,
	}
}
