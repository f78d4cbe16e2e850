package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/alertflow/operator/pkg/k8s"
)

// dangerousSubstrings is scanned against resource/name arguments before
// any Kubernetes call is made (spec.md §4.1 validation step 2, §8
// property 4). The original Rust source's safety.rs carried a couple of
// entries ("--force") the distilled spec dropped; SPEC_FULL.md restores
// them.
var dangerousSubstrings = []string{
	";", "&&", "||", "`", "$(",
	"rm -rf", "kubectl exec", "kubectl delete", "--force",
}

// KubernetesTool is the read-only Kubernetes tool surface. Verb and
// namespace validation run before any API call, independent of whether
// the call would ultimately have succeeded.
type KubernetesTool struct {
	client            k8s.Client
	allowedVerbs      map[string]bool
	allowedNamespaces map[string]bool
	defaultNamespace  string
}

// NewKubernetesTool builds the tool. An empty allowedVerbs list falls
// back to the default read-only set {get, describe, logs, top, events}.
// An empty allowedNamespaces list disables the namespace allow-list
// check entirely.
func NewKubernetesTool(client k8s.Client, defaultNamespace string, allowedVerbs, allowedNamespaces []string) *KubernetesTool {
	if len(allowedVerbs) == 0 {
		allowedVerbs = []string{"get", "describe", "logs", "top", "events"}
	}
	verbs := make(map[string]bool, len(allowedVerbs))
	for _, v := range allowedVerbs {
		verbs[v] = true
	}
	namespaces := make(map[string]bool, len(allowedNamespaces))
	for _, n := range allowedNamespaces {
		namespaces[n] = true
	}
	return &KubernetesTool{
		client:            client,
		allowedVerbs:      verbs,
		allowedNamespaces: namespaces,
		defaultNamespace:  defaultNamespace,
	}
}

func (t *KubernetesTool) Name() string { return "kubernetes" }

func (t *KubernetesTool) Description() string {
	return "Read-only Kubernetes cluster inspection: get, describe, logs, top, events."
}

func (t *KubernetesTool) Schema() map[string]interface{} {
	verbs := make([]string, 0, len(t.allowedVerbs))
	for v := range t.allowedVerbs {
		verbs = append(verbs, v)
	}
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"verb":            map[string]interface{}{"type": "string", "enum": verbs},
			"resource":        map[string]interface{}{"type": "string", "description": "resource kind, e.g. pod, deployment, all"},
			"name":            map[string]interface{}{"type": "string"},
			"namespace":       map[string]interface{}{"type": "string"},
			"tail_lines":      map[string]interface{}{"type": "integer"},
			"field_selector":  map[string]interface{}{"type": "string"},
			"label_selector":  map[string]interface{}{"type": "string"},
		},
		"required": []string{"verb"},
	}
}

func (t *KubernetesTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	verb, _ := args["verb"].(string)
	resource, _ := args["resource"].(string)
	name, _ := args["name"].(string)
	namespace, _ := args["namespace"].(string)

	if !t.allowedVerbs[verb] {
		allowed := make([]string, 0, len(t.allowedVerbs))
		for v := range t.allowedVerbs {
			allowed = append(allowed, v)
		}
		return validationError(fmt.Sprintf("verb %q is not allowed. Allowed verbs are: %s", verb, strings.Join(allowed, ", ")))
	}

	if reason := containsDangerousSubstring(resource); reason != "" {
		return validationError(fmt.Sprintf("resource argument rejected: contains %q", reason))
	}
	if reason := containsDangerousSubstring(name); reason != "" {
		return validationError(fmt.Sprintf("name argument rejected: contains %q", reason))
	}

	if len(t.allowedNamespaces) > 0 && namespace != "all" && namespace != "" && !t.allowedNamespaces[namespace] {
		return validationError(fmt.Sprintf("namespace %q is not in the configured allow-list", namespace))
	}

	if namespace == "" {
		namespace = t.defaultNamespace
	}

	// This runs on a task detached from the caller's context cancellation
	// so the tool can be invoked from any scheduler (spec.md §4.1); a
	// fresh background context is used for the actual API call, so
	// neither the caller's cancellation nor its deadline applies to it.
	execCtx := detach(ctx)

	switch verb {
	case "get":
		return t.get(execCtx, resource, name, namespace, false)
	case "describe":
		return t.get(execCtx, resource, name, namespace, true)
	case "logs":
		tail := int64(100)
		if v, ok := args["tail_lines"]; ok {
			tail = toInt64(v)
		}
		out, err := t.client.Logs(execCtx, namespace, name, tail)
		if err != nil {
			return executionError(err.Error())
		}
		return ok(out, map[string]interface{}{"pod": name, "namespace": namespace})
	case "events":
		return t.events(execCtx, namespace)
	case "top":
		out, err := t.client.Top(execCtx, namespace, name)
		if err != nil {
			return executionError(err.Error())
		}
		return ok(out, map[string]interface{}{"namespace": namespace, "pod": name})
	default:
		return validationError(fmt.Sprintf("verb %q is not allowed", verb))
	}
}

func (t *KubernetesTool) get(ctx context.Context, resource, name, namespace string, describe bool) *ToolResult {
	kind := k8s.ResourceKind(strings.ToLower(resource))

	if kind == k8s.KindAll {
		out, err := t.client.ListAll(ctx, namespace)
		if err != nil {
			return executionError(err.Error())
		}
		return ok(out, map[string]interface{}{"namespace": namespace})
	}

	if name == "" {
		items, err := t.client.List(ctx, kind, namespace)
		if err != nil {
			return executionError(err.Error())
		}
		var b strings.Builder
		for _, it := range items {
			fmt.Fprintf(&b, "%s\t%s\t%s\t%s\n", it.Namespace, it.Name, it.Status, it.Age)
		}
		return ok(b.String(), map[string]interface{}{"namespace": namespace, "count": len(items)})
	}

	obj, err := t.client.Get(ctx, kind, namespace, name)
	if err != nil {
		return executionError(err.Error())
	}
	if describe {
		y, err := k8s.ToYAML(obj)
		if err != nil {
			return executionError(err.Error())
		}
		return ok(y, map[string]interface{}{"namespace": namespace, "name": name})
	}
	y, err := k8s.ToYAML(obj)
	if err != nil {
		return executionError(err.Error())
	}
	return ok(y, map[string]interface{}{"namespace": namespace, "name": name})
}

func (t *KubernetesTool) events(ctx context.Context, namespace string) *ToolResult {
	events, err := t.client.Events(ctx, namespace)
	if err != nil {
		return executionError(err.Error())
	}
	var b strings.Builder
	for _, e := range events {
		fmt.Fprintf(&b, "%s, %s, %s, %s, %s, %s\n", e.Namespace, e.LastSeen, e.InvolvedObject, e.Reason, e.Message, e.Name)
	}
	return ok(b.String(), map[string]interface{}{"namespace": namespace, "count": len(events)})
}

func containsDangerousSubstring(s string) string {
	for _, sub := range dangerousSubstrings {
		if strings.Contains(s, sub) {
			return sub
		}
	}
	return ""
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	default:
		return 0
	}
}

// detach returns a fresh background context so the Kubernetes tool can
// be invoked from any scheduler without being tied to a non-Send-safe
// caller context (spec.md §4.1). The returned context carries no
// deadline: a step timeout set by the executor does not bound the
// Kubernetes API call itself.
func detach(_ context.Context) context.Context {
	return context.Background()
}
