package parley

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/parleyio/parley/internal/metrics"
	"github.com/parleyio/parley/pkg/adapters/memory"
	"github.com/parleyio/parley/pkg/declarative"
	"github.com/parleyio/parley/pkg/dialog"
	"github.com/parleyio/parley/pkg/domain"
	"github.com/parleyio/parley/pkg/ports"
	"github.com/parleyio/parley/pkg/state"
	"github.com/parleyio/parley/pkg/turn"
	"github.com/prometheus/client_golang/prometheus"
)

// Version is the library version, reported by the CLI and the MCP adapter.
const Version = "0.1.0"

// Engine is the high-level entry point for the Parley library. It wraps the
// turn driver and provides a simplified API for hosts.
type Engine struct {
	registry *dialog.Registry
	states   *state.Manager
	driver   *turn.Driver
	actions  *turn.ActionAdapter

	store        ports.StateStore
	logger       *slog.Logger
	metricsReg   *prometheus.Registry
	driverOpts   []turn.Option
	actionNames  map[string]string
	rootOverride string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore injects a state store, bypassing the default in-memory store.
func WithStore(store ports.StateStore) Option {
	return func(e *Engine) { e.store = store }
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithRecognizer sets the intent recognizer applied to message turns.
func WithRecognizer(r ports.Recognizer) Option {
	return func(e *Engine) { e.driverOpts = append(e.driverOpts, turn.WithRecognizer(r)) }
}

// WithRouter sets the interruption router.
func WithRouter(router *turn.Router) Option {
	return func(e *Engine) { e.driverOpts = append(e.driverOpts, turn.WithRouter(router)) }
}

// WithCredentialProvider enables sign-in and sign-out handling.
func WithCredentialProvider(p ports.CredentialProvider) Option {
	return func(e *Engine) { e.driverOpts = append(e.driverOpts, turn.WithCredentialProvider(p)) }
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.Hooks) Option {
	return func(e *Engine) { e.driverOpts = append(e.driverOpts, turn.WithHooks(hooks)) }
}

// WithCallTimeout bounds recognizer, dialog and credential calls within a
// turn.
func WithCallTimeout(d time.Duration) Option {
	return func(e *Engine) { e.driverOpts = append(e.driverOpts, turn.WithCallTimeout(d)) }
}

// WithMessages overrides the engine's built-in reply texts.
func WithMessages(m turn.Messages) Option {
	return func(e *Engine) { e.driverOpts = append(e.driverOpts, turn.WithMessages(m)) }
}

// WithAction maps a skill-action event name onto a dialog.
func WithAction(eventName, dialogID string) Option {
	return func(e *Engine) { e.actionNames[eventName] = dialogID }
}

// WithRoot overrides the root dialog id, taking precedence over the id
// passed to New or declared by a dialog file.
func WithRoot(dialogID string) Option {
	return func(e *Engine) { e.rootOverride = dialogID }
}

// New initializes an Engine around an already-populated registry. rootID
// names the dialog started on the first message of a conversation.
func New(registry *dialog.Registry, rootID string, opts ...Option) (*Engine, error) {
	e := &Engine{
		registry:    registry,
		actionNames: make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.rootOverride != "" {
		rootID = e.rootOverride
	}
	if _, err := registry.Resolve(rootID); err != nil {
		return nil, fmt.Errorf("root dialog: %w", err)
	}

	if e.store == nil {
		e.store = memory.NewStore()
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	e.metricsReg = prometheus.NewRegistry()
	recorder := metrics.NewRecorder(e.metricsReg)

	e.states = state.NewManager(e.store, state.WithLogger(e.logger))

	driverOpts := append([]turn.Option{
		turn.WithLogger(e.logger),
		turn.WithMetrics(recorder),
	}, e.driverOpts...)

	e.driver = turn.NewDriver(e.registry, rootID, e.states, driverOpts...)
	for event, dialogID := range e.actionNames {
		e.driver.RegisterAction(event, dialogID)
	}
	e.actions = turn.NewActionAdapter(e.driver)

	return e, nil
}

// NewFromFile loads a declarative YAML dialog definition and builds an
// Engine around it. The file's root and action mappings are honored;
// WithRoot overrides the file's root.
func NewFromFile(path string, opts ...Option) (*Engine, error) {
	bundle, err := declarative.LoadFile(path)
	if err != nil {
		return nil, err
	}
	for event, dialogID := range bundle.Actions {
		opts = append(opts, WithAction(event, dialogID))
	}
	return New(bundle.Registry, bundle.Root, opts...)
}

// OnTurn runs one conversation turn and returns the outbound activities.
func (e *Engine) OnTurn(ctx context.Context, conversationID string, activity domain.Activity) ([]domain.Activity, error) {
	return e.driver.OnTurn(ctx, conversationID, activity)
}

// Invoke runs a named skill action end to end.
func (e *Engine) Invoke(ctx context.Context, conversationID, eventName string, value any) (*domain.ActionResult, []domain.Activity, error) {
	return e.actions.Invoke(ctx, conversationID, eventName, value)
}

// ClearConversation discards a conversation's persisted dialog state.
func (e *Engine) ClearConversation(ctx context.Context, conversationID string) error {
	return e.states.ClearConversation(ctx, conversationID)
}

// Registry returns the dialog registry backing the engine.
func (e *Engine) Registry() *dialog.Registry { return e.registry }

// States returns the persistence manager backing the engine.
func (e *Engine) States() *state.Manager { return e.states }

// Metrics returns the engine's metrics registry, for mounting a scrape
// endpoint.
func (e *Engine) Metrics() *prometheus.Registry { return e.metricsReg }
