// Package httpapi exposes the turn driver over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/parleyio/parley/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TurnProcessor runs one conversation turn against the engine.
type TurnProcessor interface {
	OnTurn(ctx context.Context, conversationID string, activity domain.Activity) ([]domain.Activity, error)
}

// ActionInvoker runs a skill action end to end.
type ActionInvoker interface {
	Invoke(ctx context.Context, conversationID, eventName string, value any) (*domain.ActionResult, []domain.Activity, error)
}

// ConversationResetter wipes a conversation's persisted state.
type ConversationResetter interface {
	ClearConversation(ctx context.Context, conversationID string) error
}

// Server wires the engine into chi routes.
type Server struct {
	turns    TurnProcessor
	actions  ActionInvoker
	resetter ConversationResetter
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option configures the server.
type Option func(*Server)

// WithActions enables the POST .../actions route.
func WithActions(invoker ActionInvoker) Option {
	return func(s *Server) { s.actions = invoker }
}

// WithResetter enables the DELETE conversation route.
func WithResetter(r ConversationResetter) Option {
	return func(s *Server) { s.resetter = r }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetricsGatherer exposes /metrics from the given registry.
func WithMetricsGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// NewHandler builds the HTTP handler for the engine.
func NewHandler(turns TurnProcessor, opts ...Option) http.Handler {
	s := &Server{
		turns:  turns,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.health)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/v1/conversations/{conversationID}", func(r chi.Router) {
		r.Post("/turns", s.postTurn)
		if s.actions != nil {
			r.Post("/actions", s.postAction)
		}
		if s.resetter != nil {
			r.Delete("/", s.deleteConversation)
		}
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TurnRequest is the body of POST /turns.
type TurnRequest struct {
	Type  string `json:"type,omitempty"`
	Text  string `json:"text,omitempty"`
	Name  string `json:"name,omitempty"`
	Value any    `json:"value,omitempty"`
}

// TurnResponse is the body of a successful turn.
type TurnResponse struct {
	Activities []domain.Activity `json:"activities"`
}

// ActionRequest is the body of POST /actions.
type ActionRequest struct {
	Event string `json:"event"`
	Value any    `json:"value,omitempty"`
}

// ActionResponse carries the action outcome plus any surfaced activities.
type ActionResponse struct {
	Result     *domain.ActionResult `json:"result,omitempty"`
	Activities []domain.Activity    `json:"activities"`
}

func (s *Server) postTurn(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	var body TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("turn: invalid request body", "err", err)
		return
	}

	activity, err := body.toActivity()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	out, err := s.turns.OnTurn(r.Context(), conversationID, activity)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrDialogNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, fmt.Sprintf("Turn error: %v", err), status)
		s.logger.Error("turn failed", "conversation_id", conversationID, "err", err)
		return
	}

	writeJSON(w, s.logger, TurnResponse{Activities: nonNil(out)})
}

func (s *Server) postAction(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	var body ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("action: invalid request body", "err", err)
		return
	}
	if body.Event == "" {
		http.Error(w, "Missing event name", http.StatusBadRequest)
		return
	}

	result, out, err := s.actions.Invoke(r.Context(), conversationID, body.Event, body.Value)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrDialogNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, fmt.Sprintf("Action error: %v", err), status)
		s.logger.Error("action failed", "conversation_id", conversationID, "event", body.Event, "err", err)
		return
	}

	writeJSON(w, s.logger, ActionResponse{Result: result, Activities: nonNil(out)})
}

func (s *Server) deleteConversation(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	if err := s.resetter.ClearConversation(r.Context(), conversationID); err != nil {
		http.Error(w, fmt.Sprintf("Reset error: %v", err), http.StatusInternalServerError)
		s.logger.Error("reset failed", "conversation_id", conversationID, "err", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.logger, map[string]string{"status": "ok"})
}

func (b TurnRequest) toActivity() (domain.Activity, error) {
	switch domain.ActivityType(b.Type) {
	case "", domain.ActivityMessage:
		return domain.NewMessage(b.Text), nil
	case domain.ActivityEvent:
		if b.Name == "" {
			return domain.Activity{}, errors.New("event turns need a name")
		}
		return domain.NewEvent(b.Name, b.Value), nil
	case domain.ActivityConversationUpdate:
		return domain.Activity{Type: domain.ActivityConversationUpdate}, nil
	default:
		return domain.Activity{}, fmt.Errorf("unknown activity type %q", b.Type)
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "err", err)
	}
}

func nonNil(out []domain.Activity) []domain.Activity {
	if out == nil {
		return []domain.Activity{}
	}
	return out
}
