package chat

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/alertflow/operator/internal/config"
	"github.com/alertflow/operator/pkg/agent/behavior"
	"github.com/alertflow/operator/pkg/ai/llm"
	"github.com/alertflow/operator/pkg/ai/llm/mock"
	"github.com/alertflow/operator/pkg/k8s"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	logger := logrus.New()
	logger.Out = bytes.NewBuffer(nil)
	k8sClient := k8s.NewUnifiedClient(fake.NewSimpleClientset(), config.KubernetesConfig{Namespace: "default"})
	return New(
		func(config.LLMConfig) (llm.Client, error) { return mock.New(), nil },
		config.LLMConfig{Model: "mock-model"},
		k8sClient, "", config.DefaultAllowedVerbs, logger,
	)
}

func TestServe_RespondsWithChatAnswer(t *testing.T) {
	h := newTestHandler(t)

	body, err := json.Marshal(chatRequest{Content: "is the pod crashing?", SessionID: "s1"})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)

	var resp behavior.ChatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Message)
}

func TestServe_RejectsMalformedPayload(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest("POST", "/chat", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	assert.Equal(t, 400, rec.Code)
}

func TestServe_CarriesHistoryThroughToBehavior(t *testing.T) {
	h := newTestHandler(t)

	body, err := json.Marshal(chatRequest{
		Content: "any update?",
		History: []behavior.ChatTurn{{Role: "user", Content: "is it crashing?"}},
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
}
