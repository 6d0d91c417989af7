// Package dialog implements the reentrant, persisted, hierarchical dialog
// stack: registry, stack operations, the waterfall step executor, the
// suspend-for-input prompt and the component composite. Everything here
// operates on serializable state; the runtime holds nothing between turns.
package dialog

import (
	"context"

	"github.com/parleyio/parley/pkg/domain"
)

// Dialog is one registered dialog definition. Implementations are immutable
// after registration; all mutable state lives in the frame on the stack.
type Dialog interface {
	// ID returns the registry identifier.
	ID() string

	// Begin drives a freshly pushed frame until it suspends or completes.
	Begin(ctx context.Context, dc *Context, options map[string]any) (domain.TurnResult, error)

	// Continue resumes the frame with the current turn's input.
	Continue(ctx context.Context, dc *Context) (domain.TurnResult, error)

	// Resume re-enters the frame after a child frame popped, threading the
	// child's result.
	Resume(ctx context.Context, dc *Context, result domain.TurnResult) (domain.TurnResult, error)

	// Reprompt re-emits the frame's pending question, if it has one.
	Reprompt(ctx context.Context, dc *Context) error
}

// Responder collects the outbound activities of one turn.
type Responder interface {
	Send(activity domain.Activity)
}

// ResponderFunc adapts a function to the Responder interface.
type ResponderFunc func(activity domain.Activity)

func (f ResponderFunc) Send(activity domain.Activity) { f(activity) }
