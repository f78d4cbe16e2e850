package executor

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/types"
	"github.com/alertflow/operator/pkg/workflow/template"
)

const pollInterval = 2 * time.Second

func (e *Executor) executeCLI(ctx context.Context, wf *types.Workflow, step types.Step, wfCtx *types.WorkflowContext) (map[string]interface{}, error) {
	view := wfCtx.View()
	command := template.Render(step.Command, view)

	timeout := step.Timeout
	if timeout <= 0 {
		timeout = DefaultCLIStepTimeout
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	image := wf.Runtime.Image
	if image == "" {
		image = DefaultRuntimeImage
	}

	podName := fmt.Sprintf("step-%s-%d", sanitizePodName(step.Name), time.Now().UnixNano())
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      podName,
			Namespace: e.namespace,
			Labels: map[string]string{
				"app.kubernetes.io/managed-by": "alertflow-operator",
				"alertflow.io/step":            step.Name,
			},
		},
		Spec: corev1.PodSpec{
			RestartPolicy: corev1.RestartPolicyNever,
			Containers: []corev1.Container{
				{
					Name:    "step",
					Image:   image,
					Command: []string{"/bin/sh", "-c", command},
					Env:     envVars(wf.Runtime.Env),
				},
			},
		},
	}

	created, err := e.k8sClient.CreatePod(stepCtx, e.namespace, pod)
	if err != nil {
		return map[string]interface{}{"error": err.Error(), "command": command, "success": false}, nil
	}

	phase, err := e.watchPod(stepCtx, e.namespace, created.Name)
	if err != nil {
		if stepCtx.Err() != nil {
			return map[string]interface{}{"error": "timed out waiting for step pod", "command": command, "success": false}, nil
		}
		return map[string]interface{}{"error": err.Error(), "command": command, "success": false}, nil
	}

	switch phase {
	case corev1.PodSucceeded:
		logs, logErr := e.k8sClient.Logs(ctx, e.namespace, created.Name, 0)
		if logErr != nil {
			return map[string]interface{}{"error": logErr.Error(), "command": command, "success": false}, nil
		}
		return map[string]interface{}{"stdout": logs, "command": command, "success": true}, nil
	default:
		return map[string]interface{}{"error": fmt.Sprintf("pod ended in phase %s", phase), "command": command, "success": false}, nil
	}
}

// watchPod polls GetPodPhase until it reaches a terminal phase or the
// context is cancelled.
func (e *Executor) watchPod(ctx context.Context, namespace, name string) (corev1.PodPhase, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		phase, err := e.k8sClient.GetPodPhase(ctx, namespace, name)
		if err != nil {
			return "", errors.FailedTo("get step pod phase", err)
		}
		if phase == corev1.PodSucceeded || phase == corev1.PodFailed {
			return phase, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func envVars(env map[string]string) []corev1.EnvVar {
	if len(env) == 0 {
		return nil
	}
	out := make([]corev1.EnvVar, 0, len(env))
	for k, v := range env {
		out = append(out, corev1.EnvVar{Name: k, Value: v})
	}
	return out
}

func sanitizePodName(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-':
			out = append(out, c)
		case c >= 'A' && c <= 'Z':
			out = append(out, c-'A'+'a')
		default:
			out = append(out, '-')
		}
	}
	if len(out) == 0 {
		return "step"
	}
	return string(out)
}
