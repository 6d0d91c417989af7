package dialog

import (
	"context"

	"github.com/parleyio/parley/pkg/domain"
)

// Component is a composite dialog owning its own registry and a nested stack
// scoped to its frame. Skill-specific behavior is injected as registered
// dialogs, not inherited; two components may register the same local id
// without collision.
//
// Failures inside a component never cross its boundary as errors: they are
// normalized to a Cancelled result carrying a diagnostic payload, and the
// parent decides whether to recover or cancel itself.
type Component struct {
	id       string
	registry *Registry
	entryID  string
}

// NewComponent builds a composite dialog around a child registry and the id
// of the dialog it begins with.
func NewComponent(id string, registry *Registry, entryID string) *Component {
	return &Component{id: id, registry: registry, entryID: entryID}
}

// ID implements Dialog.
func (c *Component) ID() string { return c.id }

// Registry returns the component's child registry.
func (c *Component) Registry() *Registry { return c.registry }

// scoped builds the inner context bound to the frame's nested stack.
func (c *Component) scoped(dc *Context, frame *domain.Frame) *Context {
	if frame.Child == nil {
		frame.Child = domain.NewStack()
	}
	return dc.scoped(frame.Child, c.registry)
}

// Begin implements Dialog: starts the entry dialog on the nested stack.
func (c *Component) Begin(ctx context.Context, dc *Context, options map[string]any) (domain.TurnResult, error) {
	frame := dc.Stack().Top()
	inner := c.scoped(dc, frame)

	res, err := inner.Begin(ctx, c.entryID, options)
	return c.bubble(ctx, dc, frame, res, err)
}

// Continue implements Dialog: resumes the nested stack with the turn input.
func (c *Component) Continue(ctx context.Context, dc *Context) (domain.TurnResult, error) {
	frame := dc.Stack().Top()
	inner := c.scoped(dc, frame)

	if frame.Child.Empty() {
		// The nested procedure already finished; nothing left to run.
		return dc.End(ctx, nil)
	}

	res, err := inner.Continue(ctx)
	return c.bubble(ctx, dc, frame, res, err)
}

// Resume implements Dialog: threads a sibling result into the nested stack.
func (c *Component) Resume(ctx context.Context, dc *Context, result domain.TurnResult) (domain.TurnResult, error) {
	frame := dc.Stack().Top()
	inner := c.scoped(dc, frame)

	top := frame.Child.Top()
	if top == nil {
		return dc.endWith(ctx, result)
	}

	d, err := c.registry.Resolve(top.DialogID)
	if err != nil {
		return c.bubble(ctx, dc, frame, domain.TurnResult{Status: domain.StatusEmpty}, err)
	}

	res, err := d.Resume(ctx, inner, result)
	return c.bubble(ctx, dc, frame, res, err)
}

// Reprompt implements Dialog: forwards to the innermost active frame.
func (c *Component) Reprompt(ctx context.Context, dc *Context) error {
	frame := dc.Stack().Top()
	return c.scoped(dc, frame).Reprompt(ctx)
}

// bubble maps the nested stack's outcome onto the component frame.
func (c *Component) bubble(ctx context.Context, dc *Context, frame *domain.Frame, res domain.TurnResult, err error) (domain.TurnResult, error) {
	if err != nil {
		dc.Logger().Error("component dialog failed", "component", c.id, "err", err)
		frame.Child = nil
		return dc.endWith(ctx, domain.Cancelled(err.Error()))
	}

	if res.Status == domain.StatusWaiting {
		return res, nil
	}

	// The nested stack ran dry: the component itself is done.
	frame.Child = nil
	return dc.endWith(ctx, res)
}
