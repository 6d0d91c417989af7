package dialog

import (
	"context"
	"fmt"

	"github.com/parleyio/parley/pkg/domain"
)

// StepFunc is one re-entrant waterfall step. Steps are closures keyed purely
// by (cursor, result, values): after a child frame completes, the *same*
// cursor is re-invoked with the child's result, and the step itself calls
// Next to advance.
type StepFunc func(ctx context.Context, step *StepContext) (domain.TurnResult, error)

// Waterfall is a dialog defined as an ordered list of step functions
// executed one per re-entry, with the cursor persisted between turns.
type Waterfall struct {
	id    string
	steps []StepFunc
}

// NewWaterfall builds a waterfall dialog from an ordered step list.
func NewWaterfall(id string, steps ...StepFunc) *Waterfall {
	return &Waterfall{id: id, steps: steps}
}

// ID implements Dialog.
func (w *Waterfall) ID() string { return w.id }

// Begin implements Dialog: runs the first step of a fresh frame.
func (w *Waterfall) Begin(ctx context.Context, dc *Context, options map[string]any) (domain.TurnResult, error) {
	return w.runStep(ctx, dc, 0, nil, false, false)
}

// Continue implements Dialog: re-enters the current step with the raw turn
// text as its result. This only happens when a step suspended without
// pushing a child frame.
func (w *Waterfall) Continue(ctx context.Context, dc *Context) (domain.TurnResult, error) {
	frame := dc.Stack().Top()
	var result any
	if text := dc.Scratch().Text(); text != "" {
		result = text
	}
	return w.runStep(ctx, dc, frame.Cursor, result, true, false)
}

// Resume implements Dialog: re-invokes the step at the persisted cursor with
// the child's result. Advancing is the step's own job.
func (w *Waterfall) Resume(ctx context.Context, dc *Context, result domain.TurnResult) (domain.TurnResult, error) {
	frame := dc.Stack().Top()
	cancelled := result.Status == domain.StatusCancelled
	return w.runStep(ctx, dc, frame.Cursor, result.Value, true, cancelled)
}

// Reprompt implements Dialog. A waterfall that is not mid-prompt has nothing
// to reprompt.
func (w *Waterfall) Reprompt(ctx context.Context, dc *Context) error { return nil }

func (w *Waterfall) runStep(ctx context.Context, dc *Context, index int, result any, resumed, childCancelled bool) (domain.TurnResult, error) {
	if index >= len(w.steps) {
		return domain.TurnResult{Status: domain.StatusEmpty},
			fmt.Errorf("waterfall %s at step %d: %w", w.id, index, domain.ErrStepsExhausted)
	}

	frame := dc.Stack().Top()
	frame.Cursor = index
	dc.fireStep(ctx, w.id, index)

	step := &StepContext{
		dc:             dc,
		waterfall:      w,
		frame:          frame,
		Result:         result,
		Resumed:        resumed,
		ChildCancelled: childCancelled,
	}
	return w.steps[index](ctx, step)
}

// StepContext is the per-invocation handle passed to a step function.
type StepContext struct {
	dc        *Context
	waterfall *Waterfall
	frame     *domain.Frame

	// Result carries the previous step's Next payload, the raw turn text on
	// a bare re-entry, or the completed child's value on a resume.
	Result any

	// Resumed is true when the step is re-entered after a suspension rather
	// than reached for the first time.
	Resumed bool

	// ChildCancelled is true when the resuming child was cancelled rather
	// than completed; Result then carries its diagnostic payload.
	ChildCancelled bool
}

// Values returns the frame's private scratch bag.
func (s *StepContext) Values() map[string]any { return s.frame.Values }

// Scratch returns the ephemeral turn state.
func (s *StepContext) Scratch() *domain.TurnScratch { return s.dc.Scratch() }

// Record returns the conversation record, or nil when unbound.
func (s *StepContext) Record() *domain.ConversationRecord { return s.dc.Record() }

// Send emits an outbound activity.
func (s *StepContext) Send(activity domain.Activity) { s.dc.Send(activity) }

// SendText emits an outbound text message.
func (s *StepContext) SendText(text string) { s.dc.SendText(text) }

// Next advances the cursor and runs the following step with value as its
// result.
func (s *StepContext) Next(ctx context.Context, value any) (domain.TurnResult, error) {
	return s.waterfall.runStep(ctx, s.dc, s.frame.Cursor+1, value, false, false)
}

// Waiting suspends the waterfall at the current cursor until the next turn.
func (s *StepContext) Waiting() (domain.TurnResult, error) {
	return domain.Waiting(), nil
}

// EndDialog pops this frame and threads value to the parent.
func (s *StepContext) EndDialog(ctx context.Context, value any) (domain.TurnResult, error) {
	return s.dc.End(ctx, value)
}

// ReplaceDialog swaps this frame for another dialog in place.
func (s *StepContext) ReplaceDialog(ctx context.Context, id string, options map[string]any) (domain.TurnResult, error) {
	return s.dc.Replace(ctx, id, options)
}

// CancelAll discards the whole stack.
func (s *StepContext) CancelAll() domain.TurnResult {
	return s.dc.CancelAll()
}

// BeginChild pushes a nested dialog. If the child suspends, this step will
// be re-invoked with the child's result once it completes.
func (s *StepContext) BeginChild(ctx context.Context, id string, options map[string]any) (domain.TurnResult, error) {
	return s.dc.Begin(ctx, id, options)
}

// Prompt begins a registered prompt with per-call option overrides.
func (s *StepContext) Prompt(ctx context.Context, promptID string, opts PromptOptions) (domain.TurnResult, error) {
	return s.dc.Begin(ctx, promptID, opts.toOptions())
}

// Slot returns a step that collects one named value through a prompt. The
// prompt is skipped when the value is already present in the frame, which is
// what lets a structured action payload pre-fill answers. A nil prompt
// result (retries exhausted, or a cancelled child) ends the waterfall with a
// nil value so the caller can see the slot could not be collected.
func Slot(name, promptID string, opts PromptOptions) StepFunc {
	return func(ctx context.Context, step *StepContext) (domain.TurnResult, error) {
		if step.Resumed {
			if step.ChildCancelled || step.Result == nil {
				return step.EndDialog(ctx, nil)
			}
			step.Values()[name] = step.Result
			return step.Next(ctx, step.Result)
		}

		if v, ok := step.Values()[name]; ok && v != nil {
			return step.Next(ctx, v)
		}
		return step.Prompt(ctx, promptID, opts)
	}
}
