package behavior

import (
	"context"
	"testing"

	"github.com/alertflow/operator/pkg/ai/llm/mock"
	"github.com/alertflow/operator/pkg/types"
)

func TestInvestigator_ReturnsFinalResultForLowRiskAnswer(t *testing.T) {
	client := mock.NewWithResponses([]mock.CannedResponse{
		{Trigger: "confidence", Response: "80"},
		{Trigger: "disk pressure", Response: "ROOT CAUSE: disk pressure\nFINDINGS:\n- high usage\nRECOMMENDATIONS:\n- expand volume\nAUTO-FIX: no"},
	}, "ROOT CAUSE: unknown\nFINDINGS:\nRECOMMENDATIONS:\nAUTO-FIX: no")

	inv := NewInvestigator(SharedContext{LLM: client, MaxIterations: 3})
	outcome, err := inv.Investigate(context.Background(), InvestigationGoal{Goal: "diagnose disk pressure", WorkflowID: "wf-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Final == nil {
		t.Fatal("expected a final result, got a pending approval")
	}
	if outcome.Final.WorkflowID != "wf-1" {
		t.Fatalf("expected workflow id to round-trip, got %q", outcome.Final.WorkflowID)
	}
}

func TestInvestigator_PausesForApprovalOnHighRiskFix(t *testing.T) {
	client := mock.NewWithResponses([]mock.CannedResponse{
		{Trigger: "confidence", Response: "80"},
		{
			Trigger: "pod keeps crashing",
			Response: "ROOT CAUSE: bad state\nFINDINGS:\n- stuck pod\nRECOMMENDATIONS:\n- delete it\nAUTO-FIX: yes\n" +
				"kubectl delete pod api-0 -n production\n",
		},
	}, "ROOT CAUSE: unknown\nFINDINGS:\nRECOMMENDATIONS:\nAUTO-FIX: no")

	inv := NewInvestigator(SharedContext{LLM: client, MaxIterations: 3})
	outcome, err := inv.Investigate(context.Background(), InvestigationGoal{Goal: "the pod keeps crashing", WorkflowID: "wf-2", ApprovalRequired: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Pending == nil {
		t.Fatal("expected a pending approval")
	}
	if outcome.Pending.RiskLevel != "High" {
		t.Fatalf("expected High risk for a delete action, got %q", outcome.Pending.RiskLevel)
	}
}

func TestInvestigator_Resume_Approved_AppendsAction(t *testing.T) {
	inv := NewInvestigator(SharedContext{})
	result, err := inv.Resume(context.Background(), ResumeInvestigation{
		Approved: true,
		SavedState: InvestigationState{
			Response:       types.AgentResult{Summary: "pending"},
			ProposedAction: "kubectl delete pod api-0 -n production",
		},
		WorkflowID: "wf-3",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.ActionsTaken) != 1 || result.ActionsTaken[0].Tool != "human_approval" {
		t.Fatalf("expected a human_approval action entry, got %+v", result.ActionsTaken)
	}
}

func TestInvestigator_Resume_Denied_ClearsAutoFix(t *testing.T) {
	inv := NewInvestigator(SharedContext{})
	result, err := inv.Resume(context.Background(), ResumeInvestigation{
		Approved: false,
		SavedState: InvestigationState{
			Response: types.AgentResult{Summary: "pending", CanAutoFix: true},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CanAutoFix {
		t.Fatal("expected can_auto_fix to be cleared on denial")
	}
}
