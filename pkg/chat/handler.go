// Package chat gives the Chatbot behavior (pkg/agent/behavior) a
// production HTTP entrypoint, the way pkg/source/webhook gives alert
// intake one: a single chi route decoding a ChatMessage, dispatching
// it through behavior.Chatbot, and rendering the ChatResponse as JSON.
package chat

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/alertflow/operator/internal/config"
	"github.com/alertflow/operator/pkg/agent/behavior"
	"github.com/alertflow/operator/pkg/agent/tools"
	"github.com/alertflow/operator/pkg/ai/llm"
	"github.com/alertflow/operator/pkg/k8s"
)

// chatRequest is the wire shape of one inbound chat turn.
type chatRequest struct {
	Content   string             `json:"content"`
	History   []behavior.ChatTurn `json:"history,omitempty"`
	SessionID string             `json:"session_id,omitempty"`
	UserID    string             `json:"user_id,omitempty"`
}

// Handler serves the operator's chat endpoint. Each request builds its
// own behavior.Chatbot: chat sessions are not pinned to a connection,
// so there is no per-session state to hold here beyond the client's
// declared history.
type Handler struct {
	llmFactory   func(config.LLMConfig) (llm.Client, error)
	defaultLLM   config.LLMConfig
	k8sClient    k8s.Client
	promURL      string
	allowedVerbs []string
	logger       *logrus.Logger
}

// New builds a chat Handler.
func New(llmFactory func(config.LLMConfig) (llm.Client, error), defaultLLM config.LLMConfig, k8sClient k8s.Client, promURL string, allowedVerbs []string, logger *logrus.Logger) *Handler {
	return &Handler{
		llmFactory:   llmFactory,
		defaultLLM:   defaultLLM,
		k8sClient:    k8sClient,
		promURL:      promURL,
		allowedVerbs: allowedVerbs,
		logger:       logger,
	}
}

// Router builds the chi mux serving POST /chat.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost},
	}))
	r.Post("/chat", h.serve)
	return r
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	client, err := h.llmFactory(h.defaultLLM)
	if err != nil {
		http.Error(w, "llm provider unavailable", http.StatusServiceUnavailable)
		return
	}

	reg := tools.NewRegistry()
	if h.k8sClient != nil {
		reg.Register(tools.NewKubernetesTool(h.k8sClient, "", h.allowedVerbs, nil))
	}
	reg.Register(tools.NewPrometheusTool(h.promURL, ""))

	bot := behavior.NewChatbot(behavior.SharedContext{
		LLM:           client,
		Model:         h.defaultLLM.Model,
		Tools:         reg,
		K8sClient:     h.k8sClient,
		PrometheusURL: h.promURL,
		AllowedVerbs:  h.allowedVerbs,
		Logger:        h.logger,
	})

	resp, err := bot.Handle(r.Context(), behavior.ChatMessage{
		Content:   req.Content,
		History:   req.History,
		SessionID: req.SessionID,
		UserID:    req.UserID,
	})
	if err != nil {
		if h.logger != nil {
			h.logger.WithError(err).Error("chat handling failed")
		}
		http.Error(w, "chat handling failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
