// Package k8s wraps client-go behind a small read-oriented interface
// that the Kubernetes tool (pkg/agent/tools) and the CLI step executor
// (pkg/executor) depend on. The operator only ever reads cluster state
// through this package plus one-shot pod lifecycle management for CLI
// steps; there is no remediation/write surface here by design
// (spec.md §1 Non-goals).
package k8s

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
	metricsclientset "k8s.io/metrics/pkg/client/clientset/versioned"
	"sigs.k8s.io/yaml"

	"github.com/alertflow/operator/internal/config"
	"github.com/alertflow/operator/pkg/shared/errors"
)

// ResourceKind enumerates the resource vocabulary the tool surface
// understands (spec.md §4.1).
type ResourceKind string

const (
	KindPod         ResourceKind = "pod"
	KindNamespace   ResourceKind = "namespace"
	KindService     ResourceKind = "service"
	KindDeployment  ResourceKind = "deployment"
	KindStatefulSet ResourceKind = "statefulset"
	KindDaemonSet   ResourceKind = "daemonset"
	KindReplicaSet  ResourceKind = "replicaset"
	KindJob         ResourceKind = "job"
	KindCronJob     ResourceKind = "cronjob"
	KindConfigMap   ResourceKind = "configmap"
	KindSecret      ResourceKind = "secret"
	KindIngress     ResourceKind = "ingress"
	KindAll         ResourceKind = "all"
)

// WorkloadKinds is the union the synthetic "all" kind expands to.
var WorkloadKinds = []ResourceKind{KindPod, KindService, KindDeployment, KindStatefulSet, KindDaemonSet}

// ListItem is the table-ish row returned for an unnamed listing.
type ListItem struct {
	Namespace string
	Name      string
	Status    string
	Age       string
}

// EventRecord is one row of a formatted event listing.
type EventRecord struct {
	Namespace      string
	LastSeen       string
	InvolvedObject string
	Reason         string
	Message        string
	Name           string
}

// ClusterContext summarizes cluster shape for inclusion in agent
// preambles (spec.md §4.1 "helper can snapshot cluster context").
type ClusterContext struct {
	URL              string
	DefaultNamespace string
	Namespaces       []string
	SupportedKinds   []ResourceKind
}

// Client is the read-oriented Kubernetes surface used by the tool
// layer and the CLI step executor's one-shot pod lifecycle.
type Client interface {
	Get(ctx context.Context, kind ResourceKind, namespace, name string) (interface{}, error)
	List(ctx context.Context, kind ResourceKind, namespace string) ([]ListItem, error)
	ListAll(ctx context.Context, namespace string) (string, error)
	Logs(ctx context.Context, namespace, pod string, tailLines int64) (string, error)
	Events(ctx context.Context, namespace string) ([]EventRecord, error)

	CreatePod(ctx context.Context, namespace string, pod *corev1.Pod) (*corev1.Pod, error)
	GetPodPhase(ctx context.Context, namespace, name string) (corev1.PodPhase, error)
	DeletePod(ctx context.Context, namespace, name string) error

	// Top renders per-container CPU/memory usage for the "top" verb
	// (spec.md §4.1). It returns an error naming the missing dependency
	// when no metrics clientset was wired in (see NewUnifiedClientWithMetrics).
	Top(ctx context.Context, namespace, name string) (string, error)

	ClusterSnapshot(ctx context.Context) (ClusterContext, error)
	IsHealthy() bool
}

type unifiedClient struct {
	clientset kubernetes.Interface
	metrics   metricsclientset.Interface
	cfg       config.KubernetesConfig
}

// NewUnifiedClient builds a Client over an existing clientset (real or
// fake), scoped by the given KubernetesConfig. The "top" verb is
// accepted but returns an error until a metrics clientset is wired in
// via NewUnifiedClientWithMetrics.
func NewUnifiedClient(clientset kubernetes.Interface, cfg config.KubernetesConfig) Client {
	return &unifiedClient{clientset: clientset, cfg: cfg}
}

// NewUnifiedClientWithMetrics builds a Client that additionally serves
// the "top" verb from the metrics.k8s.io API (k8s.io/metrics), the way
// kubectl top does. metricsClient may be nil, in which case Top behaves
// exactly as it would under NewUnifiedClient.
func NewUnifiedClientWithMetrics(clientset kubernetes.Interface, metricsClient metricsclientset.Interface, cfg config.KubernetesConfig) Client {
	return &unifiedClient{clientset: clientset, metrics: metricsClient, cfg: cfg}
}

func (c *unifiedClient) IsHealthy() bool {
	_, err := c.clientset.Discovery().ServerVersion()
	return err == nil
}

func (c *unifiedClient) Get(ctx context.Context, kind ResourceKind, namespace, name string) (interface{}, error) {
	switch kind {
	case KindPod:
		return c.clientset.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
	case KindNamespace:
		return c.clientset.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	case KindService:
		return c.clientset.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
	case KindDeployment:
		return c.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	case KindStatefulSet:
		return c.clientset.AppsV1().StatefulSets(namespace).Get(ctx, name, metav1.GetOptions{})
	case KindDaemonSet:
		return c.clientset.AppsV1().DaemonSets(namespace).Get(ctx, name, metav1.GetOptions{})
	case KindReplicaSet:
		return c.clientset.AppsV1().ReplicaSets(namespace).Get(ctx, name, metav1.GetOptions{})
	case KindJob:
		return c.clientset.BatchV1().Jobs(namespace).Get(ctx, name, metav1.GetOptions{})
	case KindCronJob:
		return c.clientset.BatchV1().CronJobs(namespace).Get(ctx, name, metav1.GetOptions{})
	case KindConfigMap:
		return c.clientset.CoreV1().ConfigMaps(namespace).Get(ctx, name, metav1.GetOptions{})
	case KindSecret:
		return c.clientset.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
	case KindIngress:
		return c.clientset.NetworkingV1().Ingresses(namespace).Get(ctx, name, metav1.GetOptions{})
	default:
		return nil, errors.ValidationError("resource", fmt.Sprintf("unsupported kind %q", kind))
	}
}

func (c *unifiedClient) List(ctx context.Context, kind ResourceKind, namespace string) ([]ListItem, error) {
	switch kind {
	case KindPod:
		list, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, err
		}
		items := make([]ListItem, 0, len(list.Items))
		for _, p := range list.Items {
			items = append(items, ListItem{Namespace: p.Namespace, Name: p.Name, Status: string(p.Status.Phase), Age: age(p.CreationTimestamp.Time)})
		}
		return items, nil
	case KindService:
		list, err := c.clientset.CoreV1().Services(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, err
		}
		items := make([]ListItem, 0, len(list.Items))
		for _, s := range list.Items {
			items = append(items, ListItem{Namespace: s.Namespace, Name: s.Name, Status: string(s.Spec.Type), Age: age(s.CreationTimestamp.Time)})
		}
		return items, nil
	case KindDeployment:
		list, err := c.clientset.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, err
		}
		items := make([]ListItem, 0, len(list.Items))
		for _, d := range list.Items {
			items = append(items, ListItem{Namespace: d.Namespace, Name: d.Name, Status: fmt.Sprintf("%d/%d", d.Status.ReadyReplicas, d.Status.Replicas), Age: age(d.CreationTimestamp.Time)})
		}
		return items, nil
	case KindStatefulSet:
		list, err := c.clientset.AppsV1().StatefulSets(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, err
		}
		items := make([]ListItem, 0, len(list.Items))
		for _, s := range list.Items {
			items = append(items, ListItem{Namespace: s.Namespace, Name: s.Name, Status: fmt.Sprintf("%d/%d", s.Status.ReadyReplicas, s.Status.Replicas), Age: age(s.CreationTimestamp.Time)})
		}
		return items, nil
	case KindDaemonSet:
		list, err := c.clientset.AppsV1().DaemonSets(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, err
		}
		items := make([]ListItem, 0, len(list.Items))
		for _, d := range list.Items {
			items = append(items, ListItem{Namespace: d.Namespace, Name: d.Name, Status: fmt.Sprintf("%d/%d", d.Status.NumberReady, d.Status.DesiredNumberScheduled), Age: age(d.CreationTimestamp.Time)})
		}
		return items, nil
	case KindReplicaSet, KindJob, KindCronJob, KindConfigMap, KindSecret, KindIngress, KindNamespace:
		return nil, nil
	default:
		return nil, errors.ValidationError("resource", fmt.Sprintf("unsupported kind %q", kind))
	}
}

// ListAll concatenates the listings of the workload kinds the synthetic
// "all" verb unions, each under a "=== <KIND> ===" marker, omitting
// empty sections (spec.md §4.1 semantics for "get all").
func (c *unifiedClient) ListAll(ctx context.Context, namespace string) (string, error) {
	var b strings.Builder
	for _, kind := range WorkloadKinds {
		items, err := c.List(ctx, kind, namespace)
		if err != nil {
			return "", err
		}
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "=== %s ===\n", strings.ToUpper(string(kind)))
		for _, it := range items {
			fmt.Fprintf(&b, "%s\t%s\t%s\t%s\n", it.Namespace, it.Name, it.Status, it.Age)
		}
	}
	return b.String(), nil
}

func (c *unifiedClient) Logs(ctx context.Context, namespace, pod string, tailLines int64) (string, error) {
	if tailLines <= 0 {
		tailLines = 100
	}
	req := c.clientset.CoreV1().Pods(namespace).GetLogs(pod, &corev1.PodLogOptions{TailLines: &tailLines})
	stream, err := req.Stream(ctx)
	if err != nil {
		return "", errors.FailedToWithDetails("fetch pod logs", "kubernetes", pod, err)
	}
	defer stream.Close()
	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		n, err := stream.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if err != nil {
			break
		}
	}
	return string(buf), nil
}

func (c *unifiedClient) Events(ctx context.Context, namespace string) ([]EventRecord, error) {
	list, err := c.clientset.CoreV1().Events(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	out := make([]EventRecord, 0, len(list.Items))
	for _, e := range list.Items {
		out = append(out, EventRecord{
			Namespace:      e.Namespace,
			LastSeen:       e.LastTimestamp.Time.Format(time.RFC3339),
			InvolvedObject: fmt.Sprintf("%s/%s", e.InvolvedObject.Kind, e.InvolvedObject.Name),
			Reason:         e.Reason,
			Message:        e.Message,
			Name:           e.Name,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSeen < out[j].LastSeen })
	return out, nil
}

func (c *unifiedClient) CreatePod(ctx context.Context, namespace string, pod *corev1.Pod) (*corev1.Pod, error) {
	return c.clientset.CoreV1().Pods(namespace).Create(ctx, pod, metav1.CreateOptions{})
}

func (c *unifiedClient) GetPodPhase(ctx context.Context, namespace, name string) (corev1.PodPhase, error) {
	pod, err := c.clientset.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return "", err
	}
	return pod.Status.Phase, nil
}

func (c *unifiedClient) DeletePod(ctx context.Context, namespace, name string) error {
	return c.clientset.CoreV1().Pods(namespace).Delete(ctx, name, metav1.DeleteOptions{})
}

// Top lists pod metrics for namespace, or a single pod's metrics when
// name is non-empty, formatted as one line per container.
func (c *unifiedClient) Top(ctx context.Context, namespace, name string) (string, error) {
	if c.metrics == nil {
		return "", errors.FailedTo("query pod metrics", fmt.Errorf("no metrics.k8s.io client configured for this cluster"))
	}
	if name != "" {
		m, err := c.metrics.MetricsV1beta1().PodMetricses(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return "", err
		}
		return formatPodMetrics([]metricsv1beta1.PodMetrics{*m}), nil
	}
	list, err := c.metrics.MetricsV1beta1().PodMetricses(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return "", err
	}
	return formatPodMetrics(list.Items), nil
}

func formatPodMetrics(items []metricsv1beta1.PodMetrics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "NAMESPACE\tPOD\tCONTAINER\tCPU\tMEMORY\n")
	for _, p := range items {
		for _, c := range p.Containers {
			fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%s\n", p.Namespace, p.Name, c.Name, c.Usage.Cpu().String(), c.Usage.Memory().String())
		}
	}
	return b.String()
}

func (c *unifiedClient) ClusterSnapshot(ctx context.Context) (ClusterContext, error) {
	nsList, err := c.clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return ClusterContext{}, err
	}
	names := make([]string, 0, len(nsList.Items))
	for _, ns := range nsList.Items {
		names = append(names, ns.Name)
	}
	return ClusterContext{
		DefaultNamespace: c.cfg.Namespace,
		Namespaces:       names,
		SupportedKinds:   []ResourceKind{KindPod, KindNamespace, KindService, KindDeployment, KindStatefulSet, KindDaemonSet, KindReplicaSet, KindJob, KindCronJob, KindConfigMap, KindSecret, KindIngress, KindAll},
	}, nil
}

// ToYAML renders a retrieved object in its YAML-equivalent
// serialization, used by the "describe" verb (spec.md §4.1).
func ToYAML(obj interface{}) (string, error) {
	out, err := yaml.Marshal(obj)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func age(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
