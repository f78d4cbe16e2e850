package executor

import (
	"context"
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/alertflow/operator/internal/config"
	"github.com/alertflow/operator/pkg/ai/llm"
	"github.com/alertflow/operator/pkg/ai/llm/mock"
	"github.com/alertflow/operator/pkg/k8s"
	"github.com/alertflow/operator/pkg/types"
)

func newTestExecutor(clientset *fake.Clientset) *Executor {
	client := k8s.NewUnifiedClient(clientset, config.KubernetesConfig{Namespace: "default"})
	return New(Config{
		K8sClient: client,
		Namespace: "default",
		LLMFactory: func(config.LLMConfig) (llm.Client, error) {
			return mock.New(), nil
		},
	})
}

func TestExecuteCLI_SucceedsWhenPodSucceeds(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	exec := newTestExecutor(clientset)

	go func() {
		for i := 0; i < 50; i++ {
			time.Sleep(20 * time.Millisecond)
			pods, err := clientset.CoreV1().Pods("default").List(context.Background(), metav1.ListOptions{})
			if err == nil && len(pods.Items) > 0 {
				pod := pods.Items[0]
				pod.Status.Phase = corev1.PodSucceeded
				_, _ = clientset.CoreV1().Pods("default").UpdateStatus(context.Background(), &pod, metav1.UpdateOptions{})
				return
			}
		}
	}()

	wf := &types.Workflow{Runtime: types.Runtime{Image: "busybox"}}
	step := types.Step{Name: "echo", Kind: types.StepKindCLI, Command: "echo hello"}
	wfCtx := types.NewWorkflowContext(nil)

	out, err := exec.Execute(context.Background(), wf, step, wfCtx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["success"] != true {
		t.Fatalf("expected success, got %+v", out)
	}
}

func TestExecuteConditional_EqualityMatch(t *testing.T) {
	exec := newTestExecutor(fake.NewSimpleClientset())
	wfCtx := types.NewWorkflowContext(nil)
	wfCtx.SetMetadata("severity", "critical")
	step := types.Step{Name: "check", Kind: types.StepKindConditional, Condition: `metadata.severity == "critical"`}

	out, err := exec.Execute(context.Background(), nil, step, wfCtx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["branch"] != "then" {
		t.Fatalf("expected then branch, got %+v", out)
	}
}

func TestExecuteConditional_RejectsMalformedExpression(t *testing.T) {
	exec := newTestExecutor(fake.NewSimpleClientset())
	wfCtx := types.NewWorkflowContext(nil)
	step := types.Step{Name: "check", Kind: types.StepKindConditional, Condition: "too many tokens here indeed"}

	_, err := exec.Execute(context.Background(), nil, step, wfCtx)
	if err == nil {
		t.Fatal("expected a validation error")
	}
}

func TestExecuteAgent_ReturnsSuccessPayload(t *testing.T) {
	exec := newTestExecutor(fake.NewSimpleClientset())
	wfCtx := types.NewWorkflowContext(map[string]interface{}{})
	wfCtx.SetMetadata("alert_name", "PodCrashLooping")
	wfCtx.SetMetadata("severity", "critical")

	step := types.Step{Name: "investigate", Kind: types.StepKindAgent, Goal: "diagnose {{ metadata.alert_name }}", MaxIterations: 3}

	out, err := exec.Execute(context.Background(), nil, step, wfCtx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["success"] != true {
		t.Fatalf("expected success, got %+v", out)
	}
	if out["pending_approval"] == true {
		t.Fatalf("step did not declare approval_required, should not pause: %+v", out)
	}
}

func TestExecuteAgent_ApprovalRequiredPausesOnHighRiskFix(t *testing.T) {
	exec := newTestExecutor(fake.NewSimpleClientset())
	wfCtx := types.NewWorkflowContext(map[string]interface{}{})
	wfCtx.SetMetadata("alert_name", "PodCrashLooping")
	wfCtx.SetMetadata("execution_id", "exec-approval-1")

	step := types.Step{
		Name: "investigate", Kind: types.StepKindAgent,
		Goal: "diagnose {{ metadata.alert_name }}", MaxIterations: 3,
		ApprovalRequired: true,
	}

	out, err := exec.Execute(context.Background(), nil, step, wfCtx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["success"] != true {
		t.Fatalf("expected success, got %+v", out)
	}
	if out["pending_approval"] != true {
		t.Fatalf("expected pending_approval, got %+v", out)
	}
	if out["WorkflowID"] != "exec-approval-1" {
		t.Fatalf("expected WorkflowID to carry execution_id, got %+v", out)
	}
}
