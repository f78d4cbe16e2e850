// Package template implements the single expression language used
// everywhere a workflow's textual fields may reference prior context:
// {{ <path> }} dotted accessors into {input, outputs, metadata}, plus a
// default(value="...") filter. A legacy leading-dot form ({{ .a.b }})
// is normalized to the canonical form before evaluation.
//
// There is no third-party templating dependency in the pack that fits
// this narrow a contract (dotted-path + one filter, no control flow);
// see DESIGN.md for why this stays a small hand-rolled evaluator
// instead of reaching for text/template or a generic expression engine.
package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/alertflow/operator/pkg/types"
)

var exprPattern = regexp.MustCompile(`\{\{\s*(.*?)\s*\}\}`)
var defaultFilterPattern = regexp.MustCompile(`^(.*?)\s*\|\s*default\(\s*value\s*=\s*"([^"]*)"\s*\)\s*$`)

// Normalize rewrites the legacy leading-dot form ({{ .a.b }}) to the
// canonical dotted-path form ({{ a.b }}) without touching anything
// else, so both forms render identically (spec.md §8 property 8).
func Normalize(path string) string {
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, ".") {
		return strings.TrimPrefix(path, ".")
	}
	return path
}

// Render substitutes every {{ <path> }} expression in text against the
// given template view, returning the rendered string. A path that
// resolves to nothing renders as an empty string unless a
// default(value="...") filter supplies a fallback.
func Render(text string, view types.TemplateView) string {
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		inner := exprPattern.FindStringSubmatch(match)[1]
		path := inner
		fallback := ""
		hasFallback := false
		if m := defaultFilterPattern.FindStringSubmatch(inner); m != nil {
			path = strings.TrimSpace(m[1])
			fallback = m[2]
			hasFallback = true
		}
		path = Normalize(path)
		value, ok := Resolve(path, view)
		if !ok || value == nil {
			if hasFallback {
				return fallback
			}
			return ""
		}
		return stringify(value)
	})
}

// Resolve walks a dotted path ("input.source.data" / "outputs.step1.stdout"
// / "metadata.severity") against the template view's three top-level
// buckets.
func Resolve(path string, view types.TemplateView) (interface{}, bool) {
	parts := strings.Split(path, ".")
	if len(parts) == 0 {
		return nil, false
	}

	var root map[string]interface{}
	switch parts[0] {
	case "input":
		root = view.Input
	case "outputs":
		root = view.Outputs
	case "metadata":
		root = view.Metadata
	default:
		return nil, false
	}

	var current interface{} = root
	for _, p := range parts[1:] {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, exists := m[p]
		if !exists {
			return nil, false
		}
		current = v
	}
	return current, true
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
