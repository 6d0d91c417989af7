package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/parleyio/parley/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	lastConversation string
	lastActivity     domain.Activity
	turnErr          error
	cleared          []string
}

func (s *stubEngine) OnTurn(_ context.Context, conversationID string, activity domain.Activity) ([]domain.Activity, error) {
	s.lastConversation = conversationID
	s.lastActivity = activity
	if s.turnErr != nil {
		return nil, s.turnErr
	}
	return []domain.Activity{domain.NewMessage("echo: " + activity.Text)}, nil
}

func (s *stubEngine) Invoke(_ context.Context, conversationID, eventName string, value any) (*domain.ActionResult, []domain.Activity, error) {
	s.lastConversation = conversationID
	return &domain.ActionResult{Success: true, Payload: value}, []domain.Activity{domain.NewMessage("done")}, nil
}

func (s *stubEngine) ClearConversation(_ context.Context, conversationID string) error {
	s.cleared = append(s.cleared, conversationID)
	return nil
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestPostTurn(t *testing.T) {
	eng := &stubEngine{}
	handler := NewHandler(eng)

	w := postJSON(t, handler, "/v1/conversations/conv-1/turns", TurnRequest{Text: "hello"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp TurnResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Activities, 1)
	assert.Equal(t, "echo: hello", resp.Activities[0].Text)
	assert.Equal(t, "conv-1", eng.lastConversation)
	assert.Equal(t, domain.ActivityMessage, eng.lastActivity.Type)
}

func TestPostTurnEvent(t *testing.T) {
	eng := &stubEngine{}
	handler := NewHandler(eng)

	w := postJSON(t, handler, "/v1/conversations/conv-1/turns", TurnRequest{
		Type:  "event",
		Name:  "tokens/response",
		Value: map[string]any{"value": "tok"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.ActivityEvent, eng.lastActivity.Type)
	assert.Equal(t, "tokens/response", eng.lastActivity.Name)
}

func TestPostTurnBadRequests(t *testing.T) {
	eng := &stubEngine{}
	handler := NewHandler(eng)

	req := httptest.NewRequest(http.MethodPost, "/v1/conversations/c/turns", bytes.NewReader([]byte("{nope")))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, handler, "/v1/conversations/c/turns", TurnRequest{Type: "event"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, handler, "/v1/conversations/c/turns", TurnRequest{Type: "carrierPigeon"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostTurnEngineErrors(t *testing.T) {
	eng := &stubEngine{turnErr: domain.ErrDialogNotFound}
	handler := NewHandler(eng)
	w := postJSON(t, handler, "/v1/conversations/c/turns", TurnRequest{Text: "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	eng.turnErr = errors.New("boom")
	w = postJSON(t, handler, "/v1/conversations/c/turns", TurnRequest{Text: "hi"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPostAction(t *testing.T) {
	eng := &stubEngine{}
	handler := NewHandler(eng, WithActions(eng))

	w := postJSON(t, handler, "/v1/conversations/conv-2/actions", ActionRequest{
		Event: "CreateTicket",
		Value: map[string]any{"title": "broken"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp ActionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Result)
	assert.True(t, resp.Result.Success)

	w = postJSON(t, handler, "/v1/conversations/conv-2/actions", ActionRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteConversation(t *testing.T) {
	eng := &stubEngine{}
	handler := NewHandler(eng, WithResetter(eng))

	req := httptest.NewRequest(http.MethodDelete, "/v1/conversations/conv-3/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"conv-3"}, eng.cleared)
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	handler := NewHandler(&stubEngine{}, WithMetricsGatherer(reg))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
