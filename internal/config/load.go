package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/alertflow/operator/pkg/shared/errors"
)

// Config aggregates every subsystem's configuration into the single
// document the operator binary loads at startup.
type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Kubernetes KubernetesConfig `yaml:"kubernetes"`
	Storage    StorageConfig    `yaml:"storage"`
	Webhooks   []WebhookConfig  `yaml:"webhooks,omitempty"`
	Sinks      []SinkConfig     `yaml:"sinks,omitempty"`

	ServerAddr  string `yaml:"server_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Load reads and parses a Config document from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FailedTo("read config file", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.FailedTo("parse config file", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = ":8080"
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = ":9090"
	}
	if len(cfg.Kubernetes.AllowedVerbs) == 0 {
		cfg.Kubernetes.AllowedVerbs = DefaultAllowedVerbs
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "file"
	}
}
