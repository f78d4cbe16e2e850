package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alertflow/operator/internal/config"
	"github.com/alertflow/operator/pkg/storage/filestore"
	"github.com/alertflow/operator/pkg/types"
)

func newTestDispatcher(t *testing.T, cfgs []config.SinkConfig) *Dispatcher {
	t.Helper()
	store := filestore.New(t.TempDir())
	require.NoError(t, store.Init(context.Background()))
	d, err := New(cfgs, store, logrus.New())
	require.NoError(t, err)
	return d
}

func TestDispatch_StdoutSinkSucceedsAndTracksStats(t *testing.T) {
	d := newTestDispatcher(t, []config.SinkConfig{
		{Name: "console", Type: "stdout", Stdout: &config.StdoutSink{Format: "json"}},
	})

	view := types.TemplateView{Outputs: map[string]interface{}{"step1": "ok"}}
	require.NoError(t, d.Dispatch(context.Background(), "console", "exec-1", view))

	stats := d.StatsFor("console")
	assert.Equal(t, 1, stats.MessagesSent)
	assert.False(t, stats.LastSentTime.IsZero())
}

func TestDispatch_UnknownSinkReturnsError(t *testing.T) {
	d := newTestDispatcher(t, nil)
	err := d.Dispatch(context.Background(), "missing", "exec-1", types.TemplateView{})
	assert.Error(t, err)
}

func TestDispatch_StubSinksAlwaysSucceed(t *testing.T) {
	d := newTestDispatcher(t, []config.SinkConfig{
		{Name: "tickets", Type: "jira"},
		{Name: "pages", Type: "pagerduty"},
	})

	for _, name := range []string{"tickets", "pages"} {
		assert.NoError(t, d.Dispatch(context.Background(), name, "exec-2", types.TemplateView{}))
	}
}

type failingSink struct{}

func (failingSink) Send(ctx context.Context, view types.TemplateView) error {
	return errors.New("channel unavailable")
}

func TestDispatch_CircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	d := newTestDispatcher(t, nil)
	d.sinks["flaky"] = failingSink{}
	d.breakers["flaky"] = newSinkBreaker("flaky", logrus.New())

	for i := 0; i < 3; i++ {
		err := d.Dispatch(context.Background(), "flaky", "exec-3", types.TemplateView{})
		assert.Error(t, err)
	}

	// The breaker has now seen three consecutive failures and trips;
	// the next call fails fast with gobreaker's own error rather than
	// reaching failingSink.Send again.
	err := d.Dispatch(context.Background(), "flaky", "exec-3", types.TemplateView{})
	assert.Error(t, err)
}

func TestStdoutRender_TextFallsBackToPrettyJSON(t *testing.T) {
	s := NewStdout("console", "text", false, "")
	view := types.TemplateView{Outputs: map[string]interface{}{"a": "b"}}
	rendered, err := s.render(view)
	require.NoError(t, err)
	assert.NotEmpty(t, rendered)
}

func TestStdoutRender_TextUsesTemplate(t *testing.T) {
	s := NewStdout("console", "text", false, "step1 said {{ outputs.step1 }}")
	view := types.TemplateView{Outputs: map[string]interface{}{"step1": "done"}}
	rendered, err := s.render(view)
	require.NoError(t, err)
	assert.Equal(t, "step1 said done", rendered)
}
