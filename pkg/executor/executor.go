// Package executor runs one workflow Step against the current
// WorkflowContext: a one-shot pod for cli steps, an agent investigation
// for agent steps, or a string comparison for conditional steps
// (spec.md §4.5).
package executor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alertflow/operator/internal/config"
	"github.com/alertflow/operator/pkg/agent/tools"
	"github.com/alertflow/operator/pkg/ai/llm"
	"github.com/alertflow/operator/pkg/k8s"
	"github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/types"
)

// DefaultCLIStepTimeout is applied when a cli step does not declare its
// own timeout.
const DefaultCLIStepTimeout = 5 * time.Minute

// DefaultAgentStepTimeout is applied when an agent step does not
// declare its own timeout.
const DefaultAgentStepTimeout = 10 * time.Minute

// DefaultRuntimeImage is used for cli steps whose workflow does not
// declare a runtime image.
const DefaultRuntimeImage = "busybox:1.36"

// Executor runs individual workflow steps.
type Executor struct {
	k8sClient     k8s.Client
	namespace     string
	llmFactory    func(config.LLMConfig) (llm.Client, error)
	toolFactory   func(step types.Step, k8sClient k8s.Client, promURL string) tools.Registry
	promURL       string
	allowedVerbs  []string
	logger        *logrus.Logger
}

// Config wires an Executor.
type Config struct {
	K8sClient     k8s.Client
	Namespace     string
	PrometheusURL string
	AllowedVerbs  []string
	LLMFactory    func(config.LLMConfig) (llm.Client, error)
	Logger        *logrus.Logger
}

// New builds an Executor. LLMFactory defaults to llm.New when nil.
func New(cfg Config) *Executor {
	factory := cfg.LLMFactory
	if factory == nil {
		factory = func(llmCfg config.LLMConfig) (llm.Client, error) { return llm.New(llmCfg, cfg.Logger) }
	}
	return &Executor{
		k8sClient:    cfg.K8sClient,
		namespace:    cfg.Namespace,
		llmFactory:   factory,
		toolFactory:  buildStepTools,
		promURL:      cfg.PrometheusURL,
		allowedVerbs: cfg.AllowedVerbs,
		logger:       cfg.Logger,
	}
}

// Execute runs step against wfCtx's current snapshot and returns the
// step's output payload. The returned map always has a "success" key;
// callers persist it verbatim as the step's recorded output.
func (e *Executor) Execute(ctx context.Context, wf *types.Workflow, step types.Step, wfCtx *types.WorkflowContext) (map[string]interface{}, error) {
	switch step.Kind {
	case types.StepKindCLI:
		return e.executeCLI(ctx, wf, step, wfCtx)
	case types.StepKindAgent:
		return e.executeAgent(ctx, step, wfCtx)
	case types.StepKindConditional:
		return e.executeConditional(step, wfCtx)
	default:
		return nil, errors.ValidationError("step.kind", "unknown step kind "+string(step.Kind))
	}
}

func outputsToJSON(result types.AgentResult) map[string]interface{} {
	return structToJSON(result)
}

// structToJSON round-trips any JSON-serializable value into a plain
// map, the shape a step's output must be for the engine/storage layer.
func structToJSON(v interface{}) map[string]interface{} {
	data, _ := json.Marshal(v)
	var out map[string]interface{}
	_ = json.Unmarshal(data, &out)
	return out
}
