// Package config defines the typed configuration surface for the
// operator's core runtime: LLM providers, the Kubernetes tool, storage
// backend, and webhook intake. Load (load.go) reads it from a single
// YAML file; environment variables are not consulted.
package config

import "time"

// LLMConfig configures a single LLM provider construction.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key,omitempty"`
	Endpoint    string        `yaml:"endpoint,omitempty"`
	Region      string        `yaml:"region,omitempty"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// KubernetesConfig scopes what the Kubernetes tool is allowed to touch.
type KubernetesConfig struct {
	Namespace         string   `yaml:"namespace"`
	AllowedNamespaces []string `yaml:"allowed_namespaces,omitempty"`
	AllowedVerbs      []string `yaml:"allowed_verbs,omitempty"`
	KubeconfigPath    string   `yaml:"kubeconfig_path,omitempty"`
	InCluster         bool     `yaml:"in_cluster"`
	// PrometheusURL is the query endpoint the Prometheus tool and the
	// agent/chat investigators use; empty disables Prometheus lookups.
	PrometheusURL string `yaml:"prometheus_url,omitempty"`
}

// DefaultAllowedVerbs is the strictly read-only verb allow-set used when
// a KubernetesConfig does not override it.
var DefaultAllowedVerbs = []string{"get", "describe", "logs", "top", "events"}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend string `yaml:"backend"` // "file" or "postgres"
	DSN     string `yaml:"dsn,omitempty"`
	DataDir string `yaml:"data_dir,omitempty"`
}

// WebhookConfig describes one registered webhook source route.
type WebhookConfig struct {
	SourceName      string              `yaml:"source_name"`
	Path            string              `yaml:"path"`
	Filters         map[string][]string `yaml:"filters,omitempty"`
	WorkflowName    string              `yaml:"workflow_name"`
	TriggerWorkflow bool                `yaml:"trigger_workflow"`
}

// SinkConfig is the namespaced, richly-typed sink-config shape (see
// DESIGN.md "Open Question" resolution for the original source's two
// overlapping sink-config variants).
type SinkConfig struct {
	Name      string      `yaml:"name"`
	Type      string      `yaml:"type"` // "stdout", "slack", "jira", "pagerduty", "workflow"
	Namespace string      `yaml:"namespace"`
	Stdout    *StdoutSink `yaml:"stdout,omitempty"`
	Slack     *SlackSink  `yaml:"slack,omitempty"`
}

// StdoutSink configures the reference stdout sink implementation.
type StdoutSink struct {
	Format   string `yaml:"format"` // "json", "yaml", "text"
	Pretty   bool   `yaml:"pretty"`
	Template string `yaml:"template,omitempty"`
}

// SlackSink configures the Slack delivery adapter.
type SlackSink struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}
