// Package runtime drives a tool-equipped LLM agent through a bounded
// investigation loop, parses its structured answer, and scores its
// confidence (spec.md §4.3).
package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/alertflow/operator/pkg/agent/tools"
	"github.com/alertflow/operator/pkg/ai/llm"
	"github.com/alertflow/operator/pkg/k8s"
	"github.com/alertflow/operator/pkg/types"
)

// DefaultMaxIterations bounds how many tool-calling turns one
// investigation may take.
const DefaultMaxIterations = 15

// Config wires one Runtime: an LLM client, an optional Kubernetes
// client used to build default tools, an optional Prometheus endpoint,
// an explicit tool registry, and loop bounds.
type Config struct {
	LLM           llm.Client
	K8sClient     k8s.Client
	PrometheusURL string
	AllowedVerbs  []string
	Tools         tools.Registry
	MaxIterations int
	Logger        *logrus.Logger
}

// Runtime is one configured agent: an LLM client plus the tools it may
// call during an investigation.
type Runtime struct {
	llm           llm.Client
	tools         tools.Registry
	maxIterations int
	logger        *logrus.Logger
}

// New builds a Runtime. When cfg.Tools is empty and a Kubernetes client
// is present, the default four tools (kubernetes, prometheus, http,
// script) are registered.
func New(cfg Config) *Runtime {
	reg := cfg.Tools
	if len(reg) == 0 && cfg.K8sClient != nil {
		reg = defaultTools(cfg)
	}
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	return &Runtime{llm: cfg.LLM, tools: reg, maxIterations: maxIter, logger: cfg.Logger}
}

func defaultTools(cfg Config) tools.Registry {
	reg := tools.NewRegistry()
	reg.Register(tools.NewKubernetesTool(cfg.K8sClient, "", cfg.AllowedVerbs, nil))
	reg.Register(tools.NewPrometheusTool(cfg.PrometheusURL, ""))
	reg.Register(tools.NewHTTPTool(nil))
	reg.Register(tools.NewScriptTool(nil))
	return reg
}

// Investigate runs one bounded multi-turn investigation over goal and
// context, returning a structured AgentResult. On a tool-verb
// validation failure it attempts one deterministic recovery before
// synthesizing a partial result rather than propagating the error.
func (r *Runtime) Investigate(ctx context.Context, goal string, investigationContext map[string]string) (types.AgentResult, error) {
	preamble := investigationPreamble(goal, investigationContext)

	answer, err := r.drive(ctx, preamble, r.maxIterations)
	if err != nil {
		if isVerbRestrictionError(err) {
			recovered, recErr := r.recover(ctx, goal, investigationContext)
			if recErr == nil {
				return recovered, nil
			}
			return partialResult(err), nil
		}
		return types.AgentResult{}, err
	}

	result := parseAnswer(answer)
	confidence, confErr := r.scoreConfidence(ctx, answer)
	if confErr != nil {
		confidence = 0.6
	}
	result.Confidence = confidence
	return result, nil
}

// recover issues one retry with a preamble enumerating the allowed
// verbs, at half the normal iteration budget.
func (r *Runtime) recover(ctx context.Context, goal string, investigationContext map[string]string) (types.AgentResult, error) {
	allowed := "get, describe, logs, top, events"
	if k8sTool, ok := r.tools["kubernetes"]; ok {
		if schema := k8sTool.Schema(); schema != nil {
			if props, ok := schema["properties"].(map[string]interface{}); ok {
				if verbProp, ok := props["verb"].(map[string]interface{}); ok {
					if enum, ok := verbProp["enum"].([]string); ok {
						allowed = strings.Join(enum, ", ")
					}
				}
			}
		}
	}
	preamble := investigationPreamble(goal, investigationContext) +
		fmt.Sprintf("\n\nThe allowed Kubernetes verbs are strictly: %s. Do not attempt any other verb.", allowed)

	answer, err := r.drive(ctx, preamble, r.maxIterations/2)
	if err != nil {
		return types.AgentResult{}, err
	}
	result := parseAnswer(answer)
	confidence, confErr := r.scoreConfidence(ctx, answer)
	if confErr != nil {
		confidence = 0.6
	}
	result.Confidence = confidence
	return result, nil
}

func partialResult(cause error) types.AgentResult {
	return types.AgentResult{
		Summary:        "Investigation could not be completed within the permitted tool scope.",
		RootCause:      "unable to complete",
		EscalationNote: fmt.Sprintf("Automatic recovery failed due to a permission limitation: %s", cause),
		Confidence:     0.0,
	}
}

func isVerbRestrictionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not allowed") || strings.Contains(msg, "allowed verbs are")
}

// drive invokes the underlying LLM against preamble, running the
// tool-calling loop for up to maxIterations turns, and returns the
// model's final text answer.
func (r *Runtime) drive(ctx context.Context, preamble string, maxIterations int) (string, error) {
	turn := newToolLoop(r.llm, r.tools, maxIterations, r.logger)
	return turn.run(ctx, preamble)
}

// scoreConfidence issues a second, separate prompt asking for a single
// integer 1-100 and divides it by 100.
func (r *Runtime) scoreConfidence(ctx context.Context, answer string) (float64, error) {
	prompt := fmt.Sprintf(
		"Given the following investigation answer, respond with a single integer from 1 to 100 "+
			"representing your confidence in the root cause and recommendations. Respond with only the number.\n\n%s",
		answer,
	)
	text, err := r.llm.Prompt(ctx, prompt)
	if err != nil {
		return 0, err
	}
	return parseConfidence(text), nil
}

func parseConfidence(text string) float64 {
	digits := strings.TrimFunc(text, func(r rune) bool { return r < '0' || r > '9' })
	var n int
	for _, c := range digits {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
		if n > 100 {
			break
		}
	}
	if n < 1 || n > 100 {
		return 0.6
	}
	return float64(n) / 100.0
}

// investigationTemplate is a pre-defined investigation approach for a
// recurring alert type, grounded on the original source's
// get_investigation_template: a short description and an ordered list
// of suggested initial steps guiding the agent's tool use before it
// free-forms the rest of the loop.
type investigationTemplate struct {
	description     string
	initialSteps    []string
	successCriteria string
}

// investigationTemplates mirrors the original source's
// create_templates() map, keyed by alert name. An alert name absent
// from this map falls back to defaultInvestigationTemplate.
var investigationTemplates = map[string]investigationTemplate{
	"PodCrashLooping": {
		description: "Investigate why a pod is crash looping.",
		initialSteps: []string{
			"Check pod status and recent events (describe).",
			"Get the previous container's logs (--previous, tail ~100).",
			"If OOMKilled, check container memory usage against its limit.",
		},
		successCriteria: "Identify root cause of crash (OOM, config error, dependency failure).",
	},
	"HighCPUUsage": {
		description: "Investigate high CPU usage in a service.",
		initialSteps: []string{
			"Check current CPU usage rate for the affected pods.",
			"Identify the hottest processes inside the pod.",
			"Check for a recent deployment that could explain the change.",
		},
		successCriteria: "Identify the process or change causing high CPU usage.",
	},
	"ServiceUnavailable": {
		description: "Investigate why a service is unavailable.",
		initialSteps: []string{
			"Check the service's endpoints for healthy backends.",
			"Check pod status and readiness for the service's selector.",
			"Test connectivity directly against the service.",
			"Check recent error logs for the service's pods.",
		},
		successCriteria: "The service is reachable, or a root cause is identified.",
	},
	"HighMemoryUsage": {
		description: "Investigate high memory usage in a pod.",
		initialSteps: []string{
			"Check current memory usage for the pod.",
			"Check the pod's configured memory limit.",
			"Look for memory/heap/OOM mentions in recent logs.",
		},
		successCriteria: "Determine whether memory usage is normal or indicates a leak.",
	},
}

// defaultInvestigationTemplate is used when the alert name is unknown
// or absent, matching get_investigation_template's None case: the
// agent still investigates, just without suggested initial steps.
var defaultInvestigationTemplate = investigationTemplate{
	description: "Investigate the reported issue using the available tools.",
}

func resolveInvestigationTemplate(alertName string) investigationTemplate {
	if tmpl, ok := investigationTemplates[alertName]; ok {
		return tmpl
	}
	return defaultInvestigationTemplate
}

func investigationPreamble(goal string, investigationContext map[string]string) string {
	var b strings.Builder
	b.WriteString("You are an expert Kubernetes and infrastructure engineer investigating a production alert. ")
	b.WriteString("Use the available tools to gather evidence, then respond with exactly four labeled sections:\n")
	b.WriteString("ROOT CAUSE:\nFINDINGS:\nRECOMMENDATIONS:\nAUTO-FIX:\n\n")
	b.WriteString("Goal: ")
	b.WriteString(goal)
	b.WriteString("\n")
	if len(investigationContext) > 0 {
		b.WriteString("Context:\n")
		for k, v := range investigationContext {
			fmt.Fprintf(&b, "- %s: %s\n", k, v)
		}
	}

	tmpl := resolveInvestigationTemplate(investigationContext["alert_name"])
	b.WriteString("\nSuggested investigation approach: ")
	b.WriteString(tmpl.description)
	if len(tmpl.initialSteps) > 0 {
		b.WriteString("\nRecommended initial steps:\n")
		for i, step := range tmpl.initialSteps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
	}
	if tmpl.successCriteria != "" {
		b.WriteString("Success criteria: ")
		b.WriteString(tmpl.successCriteria)
		b.WriteString("\n")
	}

	return b.String()
}
