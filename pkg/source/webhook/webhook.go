// Package webhook implements alert intake (spec.md §4.7): an
// Alertmanager-shaped HTTP webhook per configured source, deduplicating
// incoming alerts and enqueueing the configured workflow.
package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/alertflow/operator/internal/config"
	"github.com/alertflow/operator/pkg/alert"
	"github.com/alertflow/operator/pkg/metrics"
	"github.com/alertflow/operator/pkg/shared/errors"
	"github.com/alertflow/operator/pkg/storage"
	"github.com/alertflow/operator/pkg/types"
	"github.com/alertflow/operator/pkg/workflow/engine"
)

// WorkflowLookup resolves a workflow_name to its definition. The
// operator's CRD-watching controller layer owns populating this; the
// webhook handler only ever reads through it.
type WorkflowLookup func(name string) (*types.Workflow, bool)

// amAlert is one alert entry of an Alertmanager-shaped webhook payload.
type amAlert struct {
	Status      string            `json:"status"`
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
	StartsAt    time.Time         `json:"startsAt"`
	EndsAt      time.Time         `json:"endsAt"`
	Fingerprint string            `json:"fingerprint"`
}

type amPayload struct {
	Alerts []amAlert `json:"alerts"`
}

// Handler dispatches registered webhook routes to alert intake.
type Handler struct {
	routes map[string]config.WebhookConfig
	store  storage.Store
	engine *engine.Engine
	lookup WorkflowLookup
	logger *logrus.Logger
}

// New builds a Handler for the given webhook routes. engine and lookup
// may be nil: a nil engine means alerts are persisted but never
// triaged, matching spec.md §4.7 step 5's "if a workflow engine is
// attached" condition.
func New(routes []config.WebhookConfig, store storage.Store, eng *engine.Engine, lookup WorkflowLookup, logger *logrus.Logger) *Handler {
	byPath := make(map[string]config.WebhookConfig, len(routes))
	for _, r := range routes {
		byPath[r.Path] = r
	}
	return &Handler{routes: byPath, store: store, engine: eng, lookup: lookup, logger: logger}
}

// Router builds the chi mux serving every configured webhook path,
// wrapped in permissive CORS for browser-originated test clients.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost},
	}))
	for path, cfg := range h.routes {
		cfg := cfg
		r.Post(path, func(w http.ResponseWriter, req *http.Request) {
			h.serve(w, req, cfg)
		})
	}
	return r
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, cfg config.WebhookConfig) {
	ctx := r.Context()

	var payload amPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	accepted := 0
	for _, a := range payload.Alerts {
		if !matchesFilters(a.Labels, cfg.Filters) {
			continue
		}
		if err := h.admit(ctx, cfg, a); err != nil {
			h.logger.WithError(err).WithField("source", cfg.SourceName).Error("failed to admit alert")
			continue
		}
		accepted++
	}

	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]int{"accepted": accepted})
}

// matchesFilters applies spec.md §4.7 step 1: every configured
// (key, allowed-values) pair must match a present label, else the
// alert is dropped.
func matchesFilters(labels map[string]string, filters map[string][]string) bool {
	for key, allowed := range filters {
		value, ok := labels[key]
		if !ok {
			return false
		}
		matched := false
		for _, v := range allowed {
			if v == value {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func (h *Handler) admit(ctx context.Context, cfg config.WebhookConfig, a amAlert) error {
	name := a.Labels["alertname"]
	fingerprint := alert.Fingerprint(name, a.Labels)

	candidate := types.Alert{
		Name:        name,
		Severity:    alert.DeriveSeverity(a.Labels["severity"]),
		Summary:     a.Annotations["summary"],
		Description: a.Annotations["description"],
		Labels:      a.Labels,
		Annotations: a.Annotations,
		StartsAt:    a.StartsAt,
		EndsAt:      a.EndsAt,
		SourceID:    cfg.SourceName,
	}

	result, err := h.store.DeduplicateAlert(ctx, fingerprint, candidate)
	if err != nil {
		return errors.FailedTo("deduplicate alert", err)
	}
	metrics.AlertsReceivedTotal.WithLabelValues(string(result.Kind)).Inc()

	rawEvent := map[string]interface{}{
		"status":      a.Status,
		"labels":      a.Labels,
		"annotations": a.Annotations,
		"fingerprint": fingerprint,
	}
	event := &types.SourceEvent{
		ID:         result.Alert.ID,
		SourceName: cfg.SourceName,
		SourceType: "webhook",
		RawEvent:   rawEvent,
		ReceivedAt: time.Now(),
	}
	if err := h.store.SaveSourceEvent(ctx, event); err != nil {
		return errors.FailedTo("save source event", err)
	}

	if !cfg.TriggerWorkflow || h.engine == nil || h.lookup == nil {
		return nil
	}
	workflow, found := h.lookup(cfg.WorkflowName)
	if !found {
		return errors.FailedTo("enqueue workflow", errUnknownWorkflow(cfg.WorkflowName))
	}

	annotations := map[string]string{
		"alert.id":       result.Alert.ID,
		"alert.name":     result.Alert.Name,
		"alert.severity": string(result.Alert.Severity),
	}
	if err := h.engine.Enqueue(workflow, annotations); err != nil {
		return errors.FailedTo("enqueue workflow", err)
	}

	return h.store.UpdateAlertTiming(ctx, result.Alert.ID, "triage_started_at", time.Now())
}

type unknownWorkflowError struct{ name string }

func (e unknownWorkflowError) Error() string {
	return "unknown workflow " + strings.TrimSpace(e.name)
}

func errUnknownWorkflow(name string) error { return unknownWorkflowError{name: name} }
