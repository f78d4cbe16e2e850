package k8s

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
	metricsfake "k8s.io/metrics/pkg/client/clientset/versioned/fake"

	"github.com/alertflow/operator/internal/config"
)

var _ = Describe("UnifiedClient", func() {
	var (
		fakeClientset *fake.Clientset
		client        Client
		ctx           context.Context
	)

	BeforeEach(func() {
		fakeClientset = fake.NewSimpleClientset()
		client = NewUnifiedClient(fakeClientset, config.KubernetesConfig{Namespace: "test-namespace"})
		ctx = context.Background()
	})

	It("reports the fake client as healthy", func() {
		Expect(client.IsHealthy()).To(BeTrue())
	})

	Describe("Get", func() {
		It("fetches a named pod", func() {
			pod := &corev1.Pod{
				ObjectMeta: metav1.ObjectMeta{Name: "test-pod", Namespace: "test-namespace"},
			}
			_, err := fakeClientset.CoreV1().Pods("test-namespace").Create(ctx, pod, metav1.CreateOptions{})
			Expect(err).ToNot(HaveOccurred())

			obj, err := client.Get(ctx, KindPod, "test-namespace", "test-pod")
			Expect(err).ToNot(HaveOccurred())
			retrieved, ok := obj.(*corev1.Pod)
			Expect(ok).To(BeTrue())
			Expect(retrieved.Name).To(Equal("test-pod"))
		})

		It("rejects an unsupported kind", func() {
			_, err := client.Get(ctx, ResourceKind("widget"), "test-namespace", "x")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("List", func() {
		It("lists deployments with ready/total status", func() {
			replicas := int32(2)
			dep := &appsv1.Deployment{
				ObjectMeta: metav1.ObjectMeta{Name: "api", Namespace: "test-namespace"},
				Spec:       appsv1.DeploymentSpec{Replicas: &replicas},
				Status:     appsv1.DeploymentStatus{ReadyReplicas: 1, Replicas: 2},
			}
			_, err := fakeClientset.AppsV1().Deployments("test-namespace").Create(ctx, dep, metav1.CreateOptions{})
			Expect(err).ToNot(HaveOccurred())

			items, err := client.List(ctx, KindDeployment, "test-namespace")
			Expect(err).ToNot(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].Status).To(Equal("1/2"))
		})
	})

	Describe("ListAll", func() {
		It("omits empty sections and marks populated ones", func() {
			pod := &corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "p1", Namespace: "test-namespace"}}
			_, err := fakeClientset.CoreV1().Pods("test-namespace").Create(ctx, pod, metav1.CreateOptions{})
			Expect(err).ToNot(HaveOccurred())

			out, err := client.ListAll(ctx, "test-namespace")
			Expect(err).ToNot(HaveOccurred())
			Expect(out).To(ContainSubstring("=== POD ==="))
			Expect(out).ToNot(ContainSubstring("=== SERVICE ==="))
		})
	})

	Describe("Pod lifecycle for CLI steps", func() {
		It("creates, phases, and deletes a one-shot pod", func() {
			pod := &corev1.Pod{
				ObjectMeta: metav1.ObjectMeta{Name: "cli-step", Namespace: "test-namespace"},
				Spec: corev1.PodSpec{
					Containers:    []corev1.Container{{Name: "run", Image: "alpine:3.20"}},
					RestartPolicy: corev1.RestartPolicyNever,
				},
			}
			created, err := client.CreatePod(ctx, "test-namespace", pod)
			Expect(err).ToNot(HaveOccurred())
			Expect(created.Name).To(Equal("cli-step"))

			phase, err := client.GetPodPhase(ctx, "test-namespace", "cli-step")
			Expect(err).ToNot(HaveOccurred())
			Expect(phase).ToNot(BeEmpty())

			Expect(client.DeletePod(ctx, "test-namespace", "cli-step")).To(Succeed())
		})
	})

	Describe("Top", func() {
		It("errors when no metrics clientset was wired in", func() {
			_, err := client.Top(ctx, "test-namespace", "")
			Expect(err).To(HaveOccurred())
		})

		It("renders per-container usage once a metrics clientset is wired in", func() {
			podMetrics := &metricsv1beta1.PodMetrics{
				ObjectMeta: metav1.ObjectMeta{Name: "web-0", Namespace: "test-namespace"},
				Containers: []metricsv1beta1.ContainerMetrics{
					{Name: "app", Usage: corev1.ResourceList{
						corev1.ResourceCPU:    resource.MustParse("120m"),
						corev1.ResourceMemory: resource.MustParse("64Mi"),
					}},
				},
			}
			fakeMetrics := metricsfake.NewSimpleClientset(podMetrics)
			withMetrics := NewUnifiedClientWithMetrics(fakeClientset, fakeMetrics, config.KubernetesConfig{Namespace: "test-namespace"})

			out, err := withMetrics.Top(ctx, "test-namespace", "web-0")
			Expect(err).ToNot(HaveOccurred())
			Expect(out).To(ContainSubstring("web-0"))
			Expect(out).To(ContainSubstring("app"))
		})
	})
})
