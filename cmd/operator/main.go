// Command operator wires alert intake, workflow execution, and sink
// dispatch into a single running process: the full pipeline described
// by spec.md §4.6-§4.9.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	metricsclientset "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/alertflow/operator/internal/config"
	"github.com/alertflow/operator/pkg/ai/llm"
	"github.com/alertflow/operator/pkg/chat"
	"github.com/alertflow/operator/pkg/executor"
	"github.com/alertflow/operator/pkg/k8s"
	"github.com/alertflow/operator/pkg/metrics"
	"github.com/alertflow/operator/pkg/sink"
	"github.com/alertflow/operator/pkg/source/webhook"
	"github.com/alertflow/operator/pkg/storage"
	"github.com/alertflow/operator/pkg/storage/filestore"
	"github.com/alertflow/operator/pkg/storage/postgres"
	"github.com/alertflow/operator/pkg/types"
	"github.com/alertflow/operator/pkg/workflow/engine"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the operator configuration file")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clientset, metricsClientset, err := buildKubernetesClientset(cfg.Kubernetes)
	if err != nil {
		logger.WithError(err).Fatal("failed to build kubernetes client")
	}
	k8sClient := k8s.NewUnifiedClientWithMetrics(clientset, metricsClientset, cfg.Kubernetes)

	store, err := buildStore(cfg.Storage, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to build storage backend")
	}
	if err := store.Init(ctx); err != nil {
		logger.WithError(err).Fatal("failed to initialize storage backend")
	}

	exec := executor.New(executor.Config{
		K8sClient:     k8sClient,
		Namespace:     cfg.Kubernetes.Namespace,
		PrometheusURL: cfg.Kubernetes.PrometheusURL,
		AllowedVerbs:  cfg.Kubernetes.AllowedVerbs,
		Logger:        logger,
	})
	eng := engine.New(exec, store, logger)
	defer eng.Shutdown()

	dispatcher, err := sink.New(cfg.Sinks, store, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to build sink dispatcher")
	}

	registry := prometheus.NewRegistry()
	metrics.MustRegister(registry)

	lookup, registerWorkflow := staticWorkflowLookup()
	for _, wh := range cfg.Webhooks {
		if wh.TriggerWorkflow {
			logger.WithField("workflow", wh.WorkflowName).Warn("webhook references a workflow not registered with the static lookup; enqueue will fail until one is added")
		}
	}
	_ = registerWorkflow

	webhookHandler := webhook.New(cfg.Webhooks, store, eng, lookup, logger)

	chatHandler := chat.New(
		func(llmCfg config.LLMConfig) (llm.Client, error) { return llm.New(llmCfg, logger) },
		cfg.LLM, k8sClient, cfg.Kubernetes.PrometheusURL, cfg.Kubernetes.AllowedVerbs, logger,
	)

	rootMux := http.NewServeMux()
	rootMux.Handle("/chat", chatHandler.Router())
	rootMux.Handle("/", webhookHandler.Router())

	var wg sync.WaitGroup
	wg.Add(2)

	httpServer := &http.Server{Addr: cfg.ServerAddr, Handler: rootMux}
	go func() {
		defer wg.Done()
		logger.WithField("addr", cfg.ServerAddr).Info("starting webhook server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("webhook server error")
		}
	}()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}
	go func() {
		defer wg.Done()
		logger.WithField("addr", cfg.MetricsAddr).Info("starting metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("metrics server error")
		}
	}()

	_ = dispatcher // constructed here but not called by the engine or any step kind; workflow sinks receive no deliveries

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Info("received shutdown signal, gracefully shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	_ = httpServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all servers stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, forcing exit")
	}
}

// buildKubernetesClientset returns both the workload clientset and the
// metrics.k8s.io clientset backing the "top" tool verb (spec.md §4.1).
// The metrics API is not installed on every cluster (e.g. kind without
// metrics-server); a failure to build it is not fatal and is not logged:
// the metrics clientset is returned as nil and "top" degrades to the
// unconfigured-metrics error instead.
func buildKubernetesClientset(cfg config.KubernetesConfig) (kubernetes.Interface, metricsclientset.Interface, error) {
	var restCfg *rest.Config
	var err error
	if cfg.InCluster {
		restCfg, err = rest.InClusterConfig()
	} else {
		restCfg, err = clientcmd.BuildConfigFromFlags("", cfg.KubeconfigPath)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("build kubernetes rest config: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, nil, err
	}
	metricsClientset, err := metricsclientset.NewForConfig(restCfg)
	if err != nil {
		return clientset, nil, nil
	}
	return clientset, metricsClientset, nil
}

func buildStore(cfg config.StorageConfig, logger *logrus.Logger) (storage.Store, error) {
	switch cfg.Backend {
	case "postgres":
		return postgres.New(cfg.DSN, logger)
	case "file", "":
		dir := cfg.DataDir
		if dir == "" {
			dir = "./data"
		}
		return filestore.New(dir), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// staticWorkflowLookup returns an in-memory WorkflowLookup together
// with the function used to populate it. The operator's CRD-watching
// controller is out of this binary's scope; registerWorkflow is the
// seam it would call into.
func staticWorkflowLookup() (webhook.WorkflowLookup, func(*types.Workflow)) {
	var mu sync.RWMutex
	workflows := make(map[string]*types.Workflow)

	lookup := func(name string) (*types.Workflow, bool) {
		mu.RLock()
		defer mu.RUnlock()
		wf, ok := workflows[name]
		return wf, ok
	}
	register := func(wf *types.Workflow) {
		mu.Lock()
		defer mu.Unlock()
		workflows[wf.Name] = wf
	}
	return lookup, register
}
