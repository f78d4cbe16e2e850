package sink

import (
	"context"

	"github.com/alertflow/operator/pkg/types"
)

// stub backs sink types the pack carries no SDK for (jira, pagerduty,
// workflow): it accepts the call and succeeds without side effects
// (spec.md §4.8 step 3).
type stub struct {
	kind string
}

func newStub(kind string) *stub {
	return &stub{kind: kind}
}

func (s *stub) Send(_ context.Context, _ types.TemplateView) error {
	return nil
}
