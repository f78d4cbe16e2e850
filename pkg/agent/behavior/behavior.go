// Package behavior implements the two agent strategies the operator
// exposes to callers: a conversational Chatbot and a goal-driven
// Investigator, both sharing one runtime context (spec.md §4.4).
package behavior

import (
	"github.com/sirupsen/logrus"

	"github.com/alertflow/operator/pkg/agent/tools"
	"github.com/alertflow/operator/pkg/ai/llm"
	"github.com/alertflow/operator/pkg/k8s"
)

// SharedContext carries everything a behavior needs to drive an
// investigation or a chat turn: the provider client, model name, tool
// map, Kubernetes client, Prometheus endpoint, and the verbs a safety
// validator permits.
type SharedContext struct {
	LLM           llm.Client
	Model         string
	Tools         tools.Registry
	K8sClient     k8s.Client
	PrometheusURL string
	AllowedVerbs  []string
	MaxIterations int
	Logger        *logrus.Logger
}
