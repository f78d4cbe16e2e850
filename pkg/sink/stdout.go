package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"sigs.k8s.io/yaml"

	"github.com/alertflow/operator/pkg/types"
	"github.com/alertflow/operator/pkg/workflow/template"
)

// Stdout is the reference sink implementation: renders the workflow
// output context as json, yaml, or a rendered text template, and emits
// one line prefixed with "[<sink-name>]" (spec.md §4.8 step 2).
type Stdout struct {
	name     string
	format   string
	pretty   bool
	template string
}

// NewStdout builds a Stdout sink. format defaults to "json" when empty.
func NewStdout(name, format string, pretty bool, tmpl string) *Stdout {
	if format == "" {
		format = "json"
	}
	return &Stdout{name: name, format: format, pretty: pretty, template: tmpl}
}

func (s *Stdout) Send(_ context.Context, view types.TemplateView) error {
	rendered, err := s.render(view)
	if err != nil {
		return err
	}
	fmt.Printf("[%s] %s\n", s.name, rendered)
	return nil
}

func (s *Stdout) render(view types.TemplateView) (string, error) {
	switch s.format {
	case "yaml":
		out, err := yaml.Marshal(contextMap(view))
		if err != nil {
			return "", err
		}
		return string(out), nil
	case "text":
		if s.template == "" {
			return s.renderPrettyJSON(view)
		}
		return template.Render(s.template, view), nil
	default:
		if s.pretty {
			return s.renderPrettyJSON(view)
		}
		data, err := json.Marshal(contextMap(view))
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

func (s *Stdout) renderPrettyJSON(view types.TemplateView) (string, error) {
	data, err := json.MarshalIndent(contextMap(view), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func contextMap(view types.TemplateView) map[string]interface{} {
	return map[string]interface{}{
		"input":    view.Input,
		"outputs":  view.Outputs,
		"metadata": view.Metadata,
	}
}
