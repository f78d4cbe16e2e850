package behavior

import (
	"context"
	"strings"

	"github.com/alertflow/operator/pkg/agent/runtime"
	"github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/types"
)

// InvestigationGoal is the Investigator behavior's initial-path input.
type InvestigationGoal struct {
	Goal         string
	InitialData  map[string]string
	WorkflowID   string
	AlertContext map[string]string

	// ApprovalRequired mirrors the originating Step's approval_required
	// flag (spec.md §4.5 agent-step declaration). It gates whether a
	// high-risk verb in the investigation's answer pauses for human
	// approval at all: steps that never declared approval_required run
	// straight through to a final result regardless of verb content.
	ApprovalRequired bool
}

// InvestigationState is the serializable state an investigation saves
// when it pauses for human approval, and resumes from.
type InvestigationState struct {
	Goal           string
	Response       types.AgentResult
	ProposedAction string
}

// ResumeInvestigation is the Investigator behavior's resume-path input.
type ResumeInvestigation struct {
	OriginalGoal string
	Approved     bool
	SavedState   InvestigationState
	WorkflowID   string
}

// PendingHumanApproval is emitted instead of a final result when the
// investigation's proposed action requires a human decision.
type PendingHumanApproval struct {
	RequestMessage            string
	Options                   []string
	CurrentInvestigationState InvestigationState
	WorkflowID                string
	RiskLevel                 string
	TimeoutSeconds            int
}

// FinalInvestigationResult is the Investigator behavior's terminal
// output, on both the initial and resume paths.
type FinalInvestigationResult struct {
	types.AgentResult
	WorkflowID string
}

// InvestigationOutcome is the sum type returned by Investigate: exactly
// one of Final or Pending is set.
type InvestigationOutcome struct {
	Final   *FinalInvestigationResult
	Pending *PendingHumanApproval
}

// defaultApprovalTimeoutSeconds is the timeout reported in
// PendingHumanApproval.TimeoutSeconds. Nothing in this package expires
// a pending approval when it elapses.
const defaultApprovalTimeoutSeconds = 3600

var highRiskVerbs = []string{"kubectl delete", "kubectl patch"}

// Investigator is a goal-driven strategy that runs the agent
// investigation loop and pauses for approval before high-risk actions.
type Investigator struct {
	ctx SharedContext
}

// NewInvestigator builds an Investigator over ctx.
func NewInvestigator(ctx SharedContext) *Investigator {
	return &Investigator{ctx: ctx}
}

// SupportedKinds reports the input kinds this behavior handles.
func (i *Investigator) SupportedKinds() []string {
	return []string{"InvestigationGoal", "ResumeInvestigation"}
}

// Investigate runs the initial investigation path: merge alert context
// into initial data, run the loop, and either return a final result or
// pause for human approval.
func (i *Investigator) Investigate(ctx context.Context, goal InvestigationGoal) (InvestigationOutcome, error) {
	merged := make(map[string]string, len(goal.InitialData)+len(goal.AlertContext))
	for k, v := range goal.InitialData {
		merged[k] = v
	}
	for k, v := range goal.AlertContext {
		merged[k] = v
	}

	rt := i.buildRuntime()
	result, err := rt.Investigate(ctx, goal.Goal, merged)
	if err != nil {
		return InvestigationOutcome{}, errors.FailedTo("run investigation", err)
	}

	if verb, found := findHighRiskVerb(result); found && goal.ApprovalRequired {
		risk := riskLevel(verb)
		state := InvestigationState{
			Goal:           goal.Goal,
			Response:       result,
			ProposedAction: result.FixCommand,
		}
		return InvestigationOutcome{
			Pending: &PendingHumanApproval{
				RequestMessage:            "This investigation proposes a " + risk + "-risk action that requires approval: " + result.FixCommand,
				Options:                   []string{"approve", "deny"},
				CurrentInvestigationState: state,
				WorkflowID:                goal.WorkflowID,
				RiskLevel:                 risk,
				TimeoutSeconds:            defaultApprovalTimeoutSeconds,
			},
		}, nil
	}

	return InvestigationOutcome{
		Final: &FinalInvestigationResult{AgentResult: result, WorkflowID: goal.WorkflowID},
	}, nil
}

// Resume continues a previously-paused investigation with the human's
// approval decision.
func (i *Investigator) Resume(_ context.Context, resume ResumeInvestigation) (FinalInvestigationResult, error) {
	result := resume.SavedState.Response
	if resume.Approved {
		result.ActionsTaken = append(result.ActionsTaken, types.ActionTaken{
			Tool:   "human_approval",
			Detail: resume.SavedState.ProposedAction,
		})
	} else {
		result.CanAutoFix = false
		result.Summary = strings.TrimSpace(result.Summary) + "\n\nThe proposed action was denied by an operator; no automated fix was applied."
	}
	return FinalInvestigationResult{AgentResult: result, WorkflowID: resume.WorkflowID}, nil
}

func (i *Investigator) buildRuntime() *runtime.Runtime {
	return runtime.New(runtime.Config{
		LLM:           i.ctx.LLM,
		K8sClient:     i.ctx.K8sClient,
		PrometheusURL: i.ctx.PrometheusURL,
		AllowedVerbs:  i.ctx.AllowedVerbs,
		Tools:         i.ctx.Tools,
		MaxIterations: i.ctx.MaxIterations,
		Logger:        i.ctx.Logger,
	})
}

func findHighRiskVerb(result types.AgentResult) (string, bool) {
	haystack := strings.ToLower(result.Summary + " " + result.FixCommand)
	for _, verb := range highRiskVerbs {
		if strings.Contains(haystack, verb) {
			return verb, true
		}
	}
	return "", false
}

func riskLevel(verb string) string {
	switch {
	case strings.Contains(verb, "delete"), strings.Contains(verb, "remove"):
		return "High"
	case strings.Contains(verb, "patch"), strings.Contains(verb, "scale"):
		return "Medium"
	case strings.Contains(verb, "describe"), strings.Contains(verb, "get"), strings.Contains(verb, "logs"):
		return "Low"
	default:
		return "Medium"
	}
}
