// Package metrics defines the Prometheus instrumentation the engine and
// sinks record against. This package only owns the collectors
// themselves; cmd/operator registers them and serves the /metrics
// endpoint through promhttp.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// WorkflowExecutionsTotal counts workflow executions that stopped
	// running, by state ("Succeeded" / "Failed" / "PendingApproval").
	WorkflowExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alertflow",
			Subsystem: "engine",
			Name:      "workflow_executions_total",
			Help:      "Total workflow executions by terminal state.",
		},
		[]string{"state"},
	)

	// WorkflowStepDuration observes step execution latency by kind.
	WorkflowStepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "alertflow",
			Subsystem: "engine",
			Name:      "workflow_step_duration_seconds",
			Help:      "Step execution latency by step kind.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// QueueDepth reports the number of workflow executions currently
	// waiting in the dispatcher's bounded queue.
	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "alertflow",
			Subsystem: "engine",
			Name:      "queue_depth",
			Help:      "Number of workflow executions queued for dispatch.",
		},
	)

	// SinkMessagesTotal counts sink deliveries by sink name and outcome.
	SinkMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alertflow",
			Subsystem: "sink",
			Name:      "messages_total",
			Help:      "Total sink deliveries by sink name and outcome.",
		},
		[]string{"sink", "outcome"},
	)

	// AlertsReceivedTotal counts admitted alerts by dedup outcome
	// ("new" / "duplicate").
	AlertsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alertflow",
			Subsystem: "source",
			Name:      "alerts_received_total",
			Help:      "Total alerts admitted through webhook intake by dedup outcome.",
		},
		[]string{"outcome"},
	)
)

// MustRegister registers every collector in this package against reg.
// Called once at startup by the binary wiring the operator together.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		WorkflowExecutionsTotal,
		WorkflowStepDuration,
		QueueDepth,
		SinkMessagesTotal,
		AlertsReceivedTotal,
	)
}
