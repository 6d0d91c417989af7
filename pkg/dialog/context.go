package dialog

import (
	"context"
	"log/slog"

	"github.com/parleyio/parley/internal/logging"
	"github.com/parleyio/parley/pkg/domain"
)

// Context is the runtime handle bound to one stack (root or nested) plus the
// current turn's input. It offers the begin/continue/replace/end/cancel
// operations and is rebuilt from persisted state on every turn.
type Context struct {
	registry  *Registry
	stack     *domain.Stack
	scratch   *domain.TurnScratch
	responder Responder

	record         *domain.ConversationRecord
	conversationID string
	logger         *slog.Logger
	hooks          domain.Hooks
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithRecord binds the conversation record (for slots and the
// non-interactive flag).
func WithRecord(record *domain.ConversationRecord) ContextOption {
	return func(c *Context) { c.record = record }
}

// WithConversationID tags hook events with the conversation id.
func WithConversationID(id string) ContextOption {
	return func(c *Context) { c.conversationID = id }
}

// WithLogger configures a structured logger.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *Context) { c.logger = logger }
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.Hooks) ContextOption {
	return func(c *Context) { c.hooks = hooks }
}

// NewContext binds a registry and a stack to one turn.
func NewContext(registry *Registry, stack *domain.Stack, scratch *domain.TurnScratch, responder Responder, opts ...ContextOption) *Context {
	c := &Context{
		registry:  registry,
		stack:     stack,
		scratch:   scratch,
		responder: responder,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// scoped derives a context for a nested stack owned by a component frame.
// The turn input, responder and record are shared; the registry and stack
// are the component's own.
func (c *Context) scoped(stack *domain.Stack, registry *Registry) *Context {
	child := *c
	child.stack = stack
	child.registry = registry
	return &child
}

// Registry returns the registry this context resolves ids against.
func (c *Context) Registry() *Registry { return c.registry }

// Stack returns the stack this context operates on.
func (c *Context) Stack() *domain.Stack { return c.stack }

// Scratch returns the ephemeral turn state.
func (c *Context) Scratch() *domain.TurnScratch { return c.scratch }

// Record returns the conversation record, or nil when unbound.
func (c *Context) Record() *domain.ConversationRecord { return c.record }

// ConversationID returns the id this context is bound to.
func (c *Context) ConversationID() string { return c.conversationID }

// Logger returns the context logger.
func (c *Context) Logger() *slog.Logger { return c.logger }

// Send emits an outbound activity for this turn.
func (c *Context) Send(activity domain.Activity) {
	if c.responder != nil {
		c.responder.Send(activity)
	}
}

// SendText emits an outbound text message.
func (c *Context) SendText(text string) {
	c.Send(domain.NewMessage(text))
}

// Begin resolves id, pushes a new frame seeded with options, then drives it
// until it suspends or completes. The id is validated before the stack is
// touched, so a bad id never corrupts existing state.
func (c *Context) Begin(ctx context.Context, id string, options map[string]any) (domain.TurnResult, error) {
	d, err := c.registry.Resolve(id)
	if err != nil {
		return domain.TurnResult{Status: domain.StatusEmpty}, err
	}

	c.stack.Push(domain.NewFrame(id, options))
	c.fireBegin(ctx, id)
	return d.Begin(ctx, c, options)
}

// Continue resumes the top frame with the current turn's input.
func (c *Context) Continue(ctx context.Context) (domain.TurnResult, error) {
	top := c.stack.Top()
	if top == nil {
		return domain.TurnResult{Status: domain.StatusEmpty}, domain.ErrNoActiveDialog
	}

	d, err := c.registry.Resolve(top.DialogID)
	if err != nil {
		return domain.TurnResult{Status: domain.StatusEmpty}, err
	}
	return d.Continue(ctx, c)
}

// Replace atomically swaps the top frame for a new dialog without returning
// control to the caller frame. Used to loop a waterfall on itself without
// growing the stack.
func (c *Context) Replace(ctx context.Context, id string, options map[string]any) (domain.TurnResult, error) {
	if _, err := c.registry.Resolve(id); err != nil {
		return domain.TurnResult{Status: domain.StatusEmpty}, err
	}

	c.stack.Pop()
	return c.Begin(ctx, id, options)
}

// End pops the top frame and threads Completed{value} to the parent frame,
// or to the turn driver if the popped frame was the last one.
func (c *Context) End(ctx context.Context, value any) (domain.TurnResult, error) {
	return c.endWith(ctx, domain.Completed(value))
}

// endWith pops the top frame and delivers an arbitrary result to the parent.
// Components use this to propagate a normalized Cancelled upward.
func (c *Context) endWith(ctx context.Context, result domain.TurnResult) (domain.TurnResult, error) {
	popped := c.stack.Pop()
	if popped != nil {
		c.fireEnd(ctx, popped.DialogID, &result)
	}

	parent := c.stack.Top()
	if parent == nil {
		return result, nil
	}

	d, err := c.registry.Resolve(parent.DialogID)
	if err != nil {
		return domain.TurnResult{Status: domain.StatusEmpty}, err
	}
	return d.Resume(ctx, c, result)
}

// CancelAll pops every frame down to empty, discarding their values. Safe to
// call at any cursor position, including mid-prompt.
func (c *Context) CancelAll() domain.TurnResult {
	c.stack.Clear()
	return domain.Cancelled(nil)
}

// Reprompt re-emits the innermost active frame's pending question, if any.
func (c *Context) Reprompt(ctx context.Context) error {
	frame, owner := c.Active()
	if frame == nil {
		return domain.ErrNoActiveDialog
	}

	d, err := owner.registry.Resolve(frame.DialogID)
	if err != nil {
		return err
	}
	return d.Reprompt(ctx, owner)
}

// Active walks nested component stacks and returns the innermost active
// frame together with the context that owns it.
func (c *Context) Active() (*domain.Frame, *Context) {
	top := c.stack.Top()
	if top == nil {
		return nil, c
	}

	if top.Child != nil && !top.Child.Empty() {
		if d, err := c.registry.Resolve(top.DialogID); err == nil {
			if comp, ok := d.(*Component); ok {
				return comp.scoped(c, top).Active()
			}
		}
	}
	return top, c
}

// MidPrompt reports whether the innermost active frame is a suspended prompt.
func (c *Context) MidPrompt() bool {
	frame, owner := c.Active()
	if frame == nil {
		return false
	}
	d, err := owner.registry.Resolve(frame.DialogID)
	if err != nil {
		return false
	}
	_, ok := d.(*Prompt)
	return ok
}

func (c *Context) fireBegin(ctx context.Context, dialogID string) {
	if c.hooks.OnDialogBegin != nil {
		c.hooks.OnDialogBegin(ctx, &domain.DialogEvent{
			ConversationID: c.conversationID,
			DialogID:       dialogID,
		})
	}
}

func (c *Context) fireEnd(ctx context.Context, dialogID string, result *domain.TurnResult) {
	if c.hooks.OnDialogEnd != nil {
		c.hooks.OnDialogEnd(ctx, &domain.DialogEvent{
			ConversationID: c.conversationID,
			DialogID:       dialogID,
			Result:         result,
		})
	}
}

func (c *Context) fireStep(ctx context.Context, dialogID string, cursor int) {
	if c.hooks.OnStep != nil {
		c.hooks.OnStep(ctx, &domain.DialogEvent{
			ConversationID: c.conversationID,
			DialogID:       dialogID,
			Cursor:         cursor,
		})
	}
}
