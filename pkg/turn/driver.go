// Package turn drives one conversation turn end to end: load persisted
// state, recognize the input, route interruptions, dispatch the stack, and
// conditionally write the state back.
package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/parleyio/parley/internal/logging"
	"github.com/parleyio/parley/internal/metrics"
	"github.com/parleyio/parley/pkg/dialog"
	"github.com/parleyio/parley/pkg/domain"
	"github.com/parleyio/parley/pkg/ports"
	"github.com/parleyio/parley/pkg/state"
)

// Messages are the user-visible texts for the driver's own replies. Every
// failure path sends exactly one of these before cancelling.
type Messages struct {
	Greeting  string
	Cancelled string
	Help      string
	SignedOut string
	Error     string
}

// DefaultMessages returns the stock driver texts.
func DefaultMessages() Messages {
	return Messages{
		Greeting:  "Hello! How can I help?",
		Cancelled: "Okay, let's start over.",
		Help:      "I'm listening — let's pick up where we left off.",
		SignedOut: "You have been signed out.",
		Error:     "Something went wrong, so I had to stop. Please try again.",
	}
}

// Driver processes turns for any number of conversations. It holds no
// per-conversation state; everything it needs is reloaded from the state
// manager on every turn, which is what makes processing survive restarts.
type Driver struct {
	registry *dialog.Registry
	rootID   string
	states   *state.Manager

	recognizer  ports.Recognizer
	router      *Router
	credentials ports.CredentialProvider
	actions     map[string]string

	logger      *slog.Logger
	hooks       domain.Hooks
	recorder    *metrics.Recorder
	callTimeout time.Duration
	messages    Messages
}

// Option configures a Driver.
type Option func(*Driver)

// WithRecognizer installs the intent classifier for message turns.
func WithRecognizer(r ports.Recognizer) Option {
	return func(d *Driver) { d.recognizer = r }
}

// WithRouter replaces the default interruption router.
func WithRouter(r *Router) Option {
	return func(d *Driver) { d.router = r }
}

// WithCredentialProvider installs the provider the Handoff signal signs out of.
func WithCredentialProvider(p ports.CredentialProvider) Option {
	return func(d *Driver) { d.credentials = p }
}

// WithLogger configures a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) { d.logger = logger }
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.Hooks) Option {
	return func(d *Driver) { d.hooks = hooks }
}

// WithMetrics installs a Prometheus recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(d *Driver) { d.recorder = r }
}

// WithCallTimeout bounds every external call made during a turn. A timeout
// inside a step behaves exactly like a thrown step error.
func WithCallTimeout(timeout time.Duration) Option {
	return func(d *Driver) { d.callTimeout = timeout }
}

// WithMessages overrides the driver's user-visible texts.
func WithMessages(m Messages) Option {
	return func(d *Driver) { d.messages = m }
}

// NewDriver builds a turn driver that dispatches to rootID when the stack is
// empty.
func NewDriver(registry *dialog.Registry, rootID string, states *state.Manager, opts ...Option) *Driver {
	d := &Driver{
		registry:    registry,
		rootID:      rootID,
		states:      states,
		router:      NewRouter(),
		actions:     make(map[string]string),
		logger:      logging.NewNop(),
		callTimeout: 10 * time.Second,
		messages:    DefaultMessages(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RegisterAction maps a skill-action event name onto the dialog it invokes.
// Registration happens at startup, alongside dialog registration.
func (d *Driver) RegisterAction(eventName, dialogID string) {
	d.actions[eventName] = dialogID
}

// OnTurn processes one inbound activity for one conversation and returns the
// outbound activities. Turns for a single conversation must be delivered in
// arrival order; a racing stale write is detected by the store and the whole
// turn is retried once before failing.
func (d *Driver) OnTurn(ctx context.Context, conversationID string, activity domain.Activity) ([]domain.Activity, error) {
	start := time.Now()

	out, status, err := d.processTurn(ctx, conversationID, activity)
	if errors.Is(err, domain.ErrConflict) {
		d.recorder.ObserveConflict()
		d.logger.Warn("turn lost the state write race, retrying", "conversation", conversationID)
		out, status, err = d.processTurn(ctx, conversationID, activity)
	}

	d.recorder.ObserveTurn(string(status), time.Since(start))
	return out, err
}

func (d *Driver) processTurn(ctx context.Context, conversationID string, activity domain.Activity) ([]domain.Activity, domain.TurnStatus, error) {
	record, etag, err := d.states.LoadConversation(ctx, conversationID)
	if err != nil {
		return nil, domain.StatusEmpty, err
	}

	scratch := domain.NewTurnScratch(activity)
	var out []domain.Activity
	responder := dialog.ResponderFunc(func(a domain.Activity) { out = append(out, a) })

	dc := dialog.NewContext(d.registry, record.Stack, scratch, responder,
		dialog.WithRecord(record),
		dialog.WithConversationID(conversationID),
		dialog.WithLogger(d.logger),
		dialog.WithHooks(d.hooks),
	)

	if activity.Type == domain.ActivityMessage && strings.TrimSpace(activity.Text) != "" {
		rec, err := d.recognize(ctx, activity.Text)
		if err != nil {
			return d.failTurn(ctx, conversationID, record, etag, out, err)
		}
		scratch.Recognition = rec

		if decision := d.router.Route(scratch, dc); decision != DecideNone {
			return d.interrupt(ctx, conversationID, decision, dc, record, etag, out)
		}
	}

	res, err := d.dispatch(ctx, dc, record, activity)
	if err != nil {
		if errors.Is(err, domain.ErrDialogNotFound) || errors.Is(err, domain.ErrNoActiveDialog) {
			// Programmer error: fail fast, no retry, stack untouched.
			return nil, domain.StatusEmpty, err
		}
		return d.failTurn(ctx, conversationID, record, etag, out, err)
	}

	return d.commit(ctx, conversationID, record, etag, out, res)
}

// dispatch routes the activity into the stack.
func (d *Driver) dispatch(ctx context.Context, dc *dialog.Context, record *domain.ConversationRecord, activity domain.Activity) (domain.TurnResult, error) {
	// External calls made by steps inherit this deadline.
	ctx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	switch activity.Type {
	case domain.ActivityEvent:
		if dialogID, ok := d.actions[activity.Name]; ok {
			slots, err := DecodeSlots(activity.Value)
			if err != nil {
				return domain.TurnResult{Status: domain.StatusEmpty},
					fmt.Errorf("action %s: %w", activity.Name, err)
			}
			record.NonInteractive = true
			return dc.Begin(ctx, dialogID, slots)
		}
		if !record.Stack.Empty() {
			// An unrecognized event (a token response, for instance) is
			// delivered to whatever frame is suspended.
			return dc.Continue(ctx)
		}
		return domain.TurnResult{Status: domain.StatusEmpty}, nil

	case domain.ActivityConversationUpdate:
		if record.Stack.Empty() && d.messages.Greeting != "" {
			dc.SendText(d.messages.Greeting)
		}
		return domain.TurnResult{Status: domain.StatusEmpty}, nil

	default:
		if record.Stack.Empty() {
			return dc.Begin(ctx, d.rootID, nil)
		}
		return dc.Continue(ctx)
	}
}

// interrupt executes a router decision instead of normal dispatch.
func (d *Driver) interrupt(ctx context.Context, conversationID string, decision Decision, dc *dialog.Context, record *domain.ConversationRecord, etag string, out []domain.Activity) ([]domain.Activity, domain.TurnStatus, error) {
	d.recorder.ObserveInterruption(decision.signalName())
	if d.hooks.OnInterruption != nil {
		d.hooks.OnInterruption(ctx, conversationID, decision.signalName())
	}

	switch decision {
	case DecideReprompt:
		if d.messages.Help != "" {
			out = append(out, domain.NewMessage(d.messages.Help))
		}
		if err := dc.Reprompt(ctx); err != nil {
			return d.failTurn(ctx, conversationID, record, etag, out, err)
		}
		return d.commit(ctx, conversationID, record, etag, out, domain.Waiting())

	case DecideHelp:
		if d.messages.Help != "" {
			out = append(out, domain.NewMessage(d.messages.Help))
		}
		res := domain.TurnResult{Status: domain.StatusEmpty}
		if !record.Stack.Empty() {
			res = domain.Waiting()
		}
		return d.commit(ctx, conversationID, record, etag, out, res)

	case DecideHandoff:
		if d.credentials != nil {
			cctx, cancel := context.WithTimeout(ctx, d.callTimeout)
			err := d.credentials.SignOut(cctx, conversationID)
			cancel()
			if err != nil {
				return d.failTurn(ctx, conversationID, record, etag, out, fmt.Errorf("sign out: %w", err))
			}
		}
		out = append(out, domain.NewMessage(d.messages.SignedOut))

	default: // DecideCancel
		out = append(out, domain.NewMessage(d.messages.Cancelled))
	}

	res := dc.CancelAll()
	return d.commit(ctx, conversationID, record, etag, out, res)
}

// commit applies the end-of-turn persistence lifecycle: clear the record
// when the root stack has emptied, otherwise write it back conditionally.
func (d *Driver) commit(ctx context.Context, conversationID string, record *domain.ConversationRecord, etag string, out []domain.Activity, res domain.TurnResult) ([]domain.Activity, domain.TurnStatus, error) {
	if res.Status != domain.StatusWaiting && record.Stack.Empty() {
		if record.NonInteractive {
			out = append(out, domain.NewEvent(domain.EventActionResult, domain.ActionResult{
				Success: res.Status == domain.StatusComplete && res.Value != nil,
				Payload: res.Value,
			}))
		}
		if etag != "" {
			if err := d.states.ClearConversation(ctx, conversationID); err != nil {
				return nil, res.Status, err
			}
		}
		return out, res.Status, nil
	}

	if _, err := d.states.SaveConversation(ctx, conversationID, record, etag); err != nil {
		return nil, res.Status, err
	}
	return out, res.Status, nil
}

// failTurn implements the step-failure policy: emit a diagnostic, send one
// human-readable message, unwind the nested sub-stack down to (but not
// including) the root frame, drop the transient slots, and report Cancelled.
func (d *Driver) failTurn(ctx context.Context, conversationID string, record *domain.ConversationRecord, etag string, out []domain.Activity, cause error) ([]domain.Activity, domain.TurnStatus, error) {
	d.logger.Error("turn failed", "conversation", conversationID, "err", cause)
	if d.hooks.OnError != nil {
		d.hooks.OnError(ctx, conversationID, cause)
	}

	record.Stack.TruncateAbove(1)
	record.Slots = make(map[string]any)
	out = append(out, domain.NewMessage(d.messages.Error))

	return d.commit(ctx, conversationID, record, etag, out, domain.Cancelled(cause.Error()))
}

func (d *Driver) recognize(ctx context.Context, text string) (*domain.Recognition, error) {
	if d.recognizer == nil {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	rec, err := d.recognizer.Recognize(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}
	return rec, nil
}
