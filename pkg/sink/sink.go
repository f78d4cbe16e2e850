// Package sink implements sink dispatch (spec.md §4.8): a registry of
// named sinks resolved by declared type, a concrete stdout renderer, a
// real Slack delivery adapter, and stub implementations for sink types
// the pack carries no SDK for.
package sink

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/alertflow/operator/internal/config"
	"github.com/alertflow/operator/pkg/metrics"
	"github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/sink/slack"
	"github.com/alertflow/operator/pkg/storage"
	"github.com/alertflow/operator/pkg/types"
)

// Sink delivers a rendered workflow output context somewhere.
type Sink interface {
	Send(ctx context.Context, view types.TemplateView) error
}

// Stats tracks per-sink delivery counters (spec.md §4.8 step 4); there
// is no sink custom-resource status subresource in this package's
// scope, so these live in memory for the process lifetime.
type Stats struct {
	MessagesSent int
	LastSentTime time.Time
}

// Dispatcher resolves a configured sink by name and delivers to it,
// persisting the attempt via storage.Store. Each sink is isolated
// behind its own circuit breaker so a channel stuck failing (a Slack
// outage, a stub rejecting everything) cannot starve deliveries to the
// other configured sinks.
type Dispatcher struct {
	mu       sync.Mutex
	sinks    map[string]Sink
	breakers map[string]*gobreaker.CircuitBreaker
	stats    map[string]*Stats
	store    storage.Store
	log      *logrus.Logger
}

// New builds a Dispatcher from the operator's configured sinks.
func New(cfgs []config.SinkConfig, store storage.Store, logger *logrus.Logger) (*Dispatcher, error) {
	sinks := make(map[string]Sink, len(cfgs))
	breakers := make(map[string]*gobreaker.CircuitBreaker, len(cfgs))
	for _, cfg := range cfgs {
		s, err := build(cfg)
		if err != nil {
			return nil, err
		}
		sinks[cfg.Name] = s
		breakers[cfg.Name] = newSinkBreaker(cfg.Name, logger)
	}
	return &Dispatcher{
		sinks:    sinks,
		breakers: breakers,
		stats:    make(map[string]*Stats, len(cfgs)),
		store:    store,
		log:      logger,
	}, nil
}

func newSinkBreaker(name string, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.WithFields(logrus.Fields{"sink": name, "from": from, "to": to}).Warn("sink circuit breaker state change")
			}
		},
	})
}

func build(cfg config.SinkConfig) (Sink, error) {
	switch cfg.Type {
	case "stdout":
		format, pretty, tmpl := "json", false, ""
		if cfg.Stdout != nil {
			format, pretty, tmpl = cfg.Stdout.Format, cfg.Stdout.Pretty, cfg.Stdout.Template
		}
		return NewStdout(cfg.Name, format, pretty, tmpl), nil
	case "slack":
		if cfg.Slack == nil {
			return nil, errors.ConfigurationError("sinks."+cfg.Name+".slack", "slack sink requires a slack block")
		}
		return slack.New(cfg.Slack.Token, cfg.Slack.Channel), nil
	case "jira", "pagerduty", "workflow":
		return newStub(cfg.Type), nil
	default:
		return nil, errors.ConfigurationError("sinks."+cfg.Name+".type", "unknown sink type "+cfg.Type)
	}
}

// Dispatch implements process_sink_event: deliver to sinkName, persist
// a SinkOutput record, and update the sink's counters on success.
func (d *Dispatcher) Dispatch(ctx context.Context, sinkName, executionID string, view types.TemplateView) error {
	s, ok := d.sinks[sinkName]
	if !ok {
		return errors.ValidationError("sink_name", "no sink registered named "+sinkName)
	}
	breaker := d.breakers[sinkName]

	_, sendErr := breaker.Execute(func() (interface{}, error) {
		return nil, s.Send(ctx, view)
	})

	output := &types.SinkOutput{
		SinkName:    sinkName,
		ExecutionID: executionID,
		Success:     sendErr == nil,
		SentAt:      time.Now(),
	}
	if sendErr != nil {
		output.Error = sendErr.Error()
	}
	if d.store != nil {
		if err := d.store.SaveSinkOutput(ctx, output); err != nil {
			d.log.WithError(err).Error("failed to persist sink output")
		}
	}

	if sendErr != nil {
		metrics.SinkMessagesTotal.WithLabelValues(sinkName, "failure").Inc()
		return errors.FailedTo("deliver to sink "+sinkName, sendErr)
	}
	metrics.SinkMessagesTotal.WithLabelValues(sinkName, "success").Inc()

	d.mu.Lock()
	stats, ok := d.stats[sinkName]
	if !ok {
		stats = &Stats{}
		d.stats[sinkName] = stats
	}
	stats.MessagesSent++
	stats.LastSentTime = output.SentAt
	d.mu.Unlock()

	return nil
}

// StatsFor returns the in-memory delivery counters for a sink.
func (d *Dispatcher) StatsFor(sinkName string) Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.stats[sinkName]; ok {
		return *s
	}
	return Stats{}
}
