package executor

import (
	"context"

	"github.com/alertflow/operator/internal/config"
	"github.com/alertflow/operator/pkg/agent/behavior"
	"github.com/alertflow/operator/pkg/agent/tools"
	"github.com/alertflow/operator/pkg/ai/llm"
	"github.com/alertflow/operator/pkg/k8s"
	"github.com/alertflow/operator/pkg/types"
	"github.com/alertflow/operator/pkg/workflow/template"
)

// executeAgent runs an agent step over the Investigator behavior (C4),
// not the bare agent runtime directly: this is what lets
// step.ApprovalRequired reach InvestigationGoal.ApprovalRequired and
// gate the high-risk-verb pause (spec.md §2, §4.4, §4.5).
func (e *Executor) executeAgent(ctx context.Context, step types.Step, wfCtx *types.WorkflowContext) (map[string]interface{}, error) {
	view := wfCtx.View()
	goal := template.Render(step.Goal, view)

	llmCfg := resolveLLMStepConfig(view.Metadata["llm_config"])
	client, err := e.llmFactory(llmCfg)
	if err != nil {
		return map[string]interface{}{"error": err.Error(), "goal": goal, "success": false}, nil
	}

	reg := e.toolFactory(step, e.k8sClient, e.promURL)

	investigator := behavior.NewInvestigator(behavior.SharedContext{
		LLM:           client,
		Model:         llmCfg.Model,
		Tools:         reg,
		K8sClient:     e.k8sClient,
		PrometheusURL: e.promURL,
		AllowedVerbs:  e.allowedVerbs,
		MaxIterations: step.MaxIterations,
		Logger:        e.logger,
	})

	timeout := DefaultAgentStepTimeout
	if step.Timeout > 0 {
		timeout = step.Timeout
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	investigationContext := buildInvestigationContext(view)
	executionID, _ := view.Metadata["execution_id"].(string)

	outcome, err := investigator.Investigate(stepCtx, behavior.InvestigationGoal{
		Goal:             goal,
		InitialData:      investigationContext,
		WorkflowID:       executionID,
		ApprovalRequired: step.ApprovalRequired,
	})
	if err != nil {
		if stepCtx.Err() != nil {
			return map[string]interface{}{"error": "timed out running agent step", "goal": goal, "success": false}, nil
		}
		return map[string]interface{}{"error": err.Error(), "goal": goal, "success": false}, nil
	}

	if outcome.Pending != nil {
		out := structToJSON(outcome.Pending)
		out["success"] = true
		out["pending_approval"] = true
		return out, nil
	}

	out := outputsToJSON(outcome.Final.AgentResult)
	out["success"] = true
	out["report"] = outcome.Final.Summary
	return out, nil
}

// resolveLLMStepConfig reads a workflow's metadata.llm_config value,
// falling back to the mock provider when absent or malformed.
func resolveLLMStepConfig(raw interface{}) config.LLMConfig {
	switch v := raw.(type) {
	case types.LLMStepConfig:
		return config.LLMConfig{
			Provider:    v.Provider,
			Model:       llm.Canonicalize(v.Model),
			Temperature: v.Temperature,
			MaxTokens:   v.MaxTokens,
		}
	case map[string]interface{}:
		cfg := config.LLMConfig{}
		if s, ok := v["provider"].(string); ok {
			cfg.Provider = s
		}
		if s, ok := v["model"].(string); ok {
			cfg.Model = llm.Canonicalize(s)
		}
		if f, ok := v["temperature"].(float64); ok {
			cfg.Temperature = f
		}
		if f, ok := v["max_tokens"].(float64); ok {
			cfg.MaxTokens = int(f)
		}
		if s, ok := v["api_key"].(string); ok {
			cfg.APIKey = s
		}
		return cfg
	default:
		return config.LLMConfig{}
	}
}

// buildInvestigationContext assembles alert_name, severity (from
// metadata) and every string-valued entry under input into the flat
// context map the agent runtime expects.
func buildInvestigationContext(view types.TemplateView) map[string]string {
	ctx := map[string]string{}
	if v, ok := view.Metadata["alert_name"].(string); ok {
		ctx["alert_name"] = v
	}
	if v, ok := view.Metadata["severity"].(string); ok {
		ctx["severity"] = v
	}
	for k, v := range view.Input {
		if s, ok := v.(string); ok {
			ctx[k] = s
		}
	}
	return ctx
}

// buildStepTools registers only the tools named in step.Tools, mapping
// names to concrete implementations exactly as in the Kubernetes,
// Prometheus, HTTP, and script tool constructors.
func buildStepTools(step types.Step, k8sClient k8s.Client, promURL string) tools.Registry {
	reg := tools.NewRegistry()
	for _, ref := range step.Tools {
		switch ref.Name {
		case "kubernetes":
			if k8sClient != nil {
				reg.Register(tools.NewKubernetesTool(k8sClient, "", nil, nil))
			}
		case "prometheus":
			reg.Register(tools.NewPrometheusTool(promURL, ""))
		case "http":
			reg.Register(tools.NewHTTPTool(nil))
		case "script":
			reg.Register(tools.NewScriptTool(nil))
		}
	}
	return reg
}
