package template

import (
	"testing"

	"github.com/alertflow/operator/pkg/types"
)

func view() types.TemplateView {
	return types.TemplateView{
		Input: map[string]interface{}{
			"severity": "critical",
			"source": map[string]interface{}{
				"data": map[string]interface{}{"pod": "api-7d9f"},
			},
		},
		Outputs: map[string]interface{}{
			"investigate": map[string]interface{}{"stdout": "ok"},
		},
		Metadata: map[string]interface{}{
			"runtime_image": "alpine:3.20",
			"alert_name":    "PodCrashLooping",
		},
	}
}

func TestRender_BasicPath(t *testing.T) {
	out := Render("severity is {{ input.severity }}", view())
	if out != "severity is critical" {
		t.Fatalf("got %q", out)
	}
}

func TestRender_NestedPath(t *testing.T) {
	out := Render("{{ input.source.data.pod }}", view())
	if out != "api-7d9f" {
		t.Fatalf("got %q", out)
	}
}

func TestRender_OutputsAndMetadata(t *testing.T) {
	out := Render("{{ outputs.investigate.stdout }} on {{ metadata.alert_name }}", view())
	if out != "ok on PodCrashLooping" {
		t.Fatalf("got %q", out)
	}
}

func TestRender_DefaultFilter(t *testing.T) {
	out := Render(`{{ input.missing | default(value="fallback") }}`, view())
	if out != "fallback" {
		t.Fatalf("got %q", out)
	}
}

func TestRender_MissingNoDefault(t *testing.T) {
	out := Render("{{ input.missing }}", view())
	if out != "" {
		t.Fatalf("expected empty string, got %q", out)
	}
}

func TestNormalize_LegacyDotFormEquivalence(t *testing.T) {
	v := view()
	legacy := Render("{{ .input.severity }}", v)
	canonical := Render("{{ input.severity }}", v)
	if legacy != canonical {
		t.Fatalf("legacy form %q != canonical form %q", legacy, canonical)
	}
}
