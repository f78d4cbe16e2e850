package executor

import (
	"strings"

	"github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/types"
	"github.com/alertflow/operator/pkg/workflow/template"
)

// executeConditional parses "<path> <op> <literal>", renders the path,
// and compares it against the (quote-stripped) literal as a string.
func (e *Executor) executeConditional(step types.Step, wfCtx *types.WorkflowContext) (map[string]interface{}, error) {
	tokens := strings.Fields(step.Condition)
	if len(tokens) != 3 {
		return nil, errors.ValidationError("step.condition", "must be exactly three whitespace-separated tokens: <path> <op> <literal>")
	}
	path, op, literal := tokens[0], tokens[1], tokens[2]

	if op != "==" && op != "!=" {
		return nil, errors.ValidationError("step.condition", "unsupported operator "+op+", expected == or !=")
	}

	view := wfCtx.View()
	actual := template.Render("{{ "+path+" }}", view)
	literal = stripQuotes(literal)

	var conditionMet bool
	switch op {
	case "==":
		conditionMet = actual == literal
	case "!=":
		conditionMet = actual != literal
	}

	branch := "else"
	if conditionMet {
		branch = "then"
	}

	return map[string]interface{}{
		"condition_met": conditionMet,
		"branch":        branch,
		"message":       actual + " " + op + " " + literal,
		"success":       true,
	}, nil
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
