package dialog_test

import (
	"context"
	"testing"

	"github.com/parleyio/parley/pkg/dialog"
	"github.com/parleyio/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaterfallRunsStepsInOrder(t *testing.T) {
	registry := dialog.NewRegistry().MustRegister(
		dialog.NewWaterfall("flow",
			func(ctx context.Context, step *dialog.StepContext) (domain.TurnResult, error) {
				step.SendText("one")
				return step.Next(ctx, "carried")
			},
			func(ctx context.Context, step *dialog.StepContext) (domain.TurnResult, error) {
				step.SendText("two")
				return step.EndDialog(ctx, step.Result)
			},
		),
	)

	h := newHarness(registry)
	res := h.begin(t, "flow", nil)

	require.Equal(t, domain.StatusComplete, res.Status)
	assert.Equal(t, "carried", res.Value)
	assert.Equal(t, []string{"one", "two"}, h.texts())
	assert.True(t, h.stack.Empty())
}

func TestWaterfallResumesSameStepAfterChild(t *testing.T) {
	var resumedAt []int

	registry := dialog.NewRegistry().MustRegister(
		dialog.NewPrompt("ask", "What is it?"),
		dialog.NewWaterfall("flow",
			func(ctx context.Context, step *dialog.StepContext) (domain.TurnResult, error) {
				if !step.Resumed {
					return step.Prompt(ctx, "ask", dialog.PromptOptions{})
				}
				resumedAt = append(resumedAt, 0)
				return step.Next(ctx, step.Result)
			},
			func(ctx context.Context, step *dialog.StepContext) (domain.TurnResult, error) {
				return step.EndDialog(ctx, step.Result)
			},
		),
	)

	h := newHarness(registry)
	res := h.begin(t, "flow", nil)
	require.Equal(t, domain.StatusWaiting, res.Status)
	assert.Equal(t, "What is it?", h.lastText(t))

	// The parent frame stays suspended at cursor 0 under the prompt frame.
	require.Equal(t, 2, h.stack.Depth())
	assert.Equal(t, 0, h.stack.Frames[0].Cursor)

	res = h.turn(t, "a gadget")
	require.Equal(t, domain.StatusComplete, res.Status)
	assert.Equal(t, "a gadget", res.Value)
	assert.Equal(t, []int{0}, resumedAt)
	assert.True(t, h.stack.Empty())
}

func TestWaterfallSuspendWithoutChildSeesRawText(t *testing.T) {
	registry := dialog.NewRegistry().MustRegister(
		dialog.NewWaterfall("flow",
			func(ctx context.Context, step *dialog.StepContext) (domain.TurnResult, error) {
				if !step.Resumed {
					step.SendText("say something")
					return step.Waiting()
				}
				return step.EndDialog(ctx, step.Result)
			},
		),
	)

	h := newHarness(registry)
	res := h.begin(t, "flow", nil)
	require.Equal(t, domain.StatusWaiting, res.Status)

	res = h.turn(t, "hello there")
	require.Equal(t, domain.StatusComplete, res.Status)
	assert.Equal(t, "hello there", res.Value)
}

func TestWaterfallStepsExhausted(t *testing.T) {
	registry := dialog.NewRegistry().MustRegister(
		dialog.NewWaterfall("flow",
			func(ctx context.Context, step *dialog.StepContext) (domain.TurnResult, error) {
				return step.Next(ctx, nil)
			},
		),
	)

	stack := &domain.Stack{}
	dc := dialog.NewContext(registry, stack, domain.NewTurnScratch(domain.NewMessage("")), nil)
	_, err := dc.Begin(context.Background(), "flow", nil)
	assert.ErrorIs(t, err, domain.ErrStepsExhausted)
}

func TestWaterfallReplaceDoesNotGrowStack(t *testing.T) {
	rounds := 0
	registry := dialog.NewRegistry().MustRegister(
		dialog.NewWaterfall("loop",
			func(ctx context.Context, step *dialog.StepContext) (domain.TurnResult, error) {
				if !step.Resumed {
					step.SendText("again?")
					return step.Waiting()
				}
				if rounds++; rounds < 3 {
					return step.ReplaceDialog(ctx, "loop", nil)
				}
				return step.EndDialog(ctx, rounds)
			},
		),
	)

	h := newHarness(registry)
	h.begin(t, "loop", nil)

	res := h.turn(t, "yes")
	require.Equal(t, domain.StatusWaiting, res.Status)
	assert.Equal(t, 1, h.stack.Depth())

	res = h.turn(t, "yes")
	require.Equal(t, domain.StatusWaiting, res.Status)
	assert.Equal(t, 1, h.stack.Depth())

	res = h.turn(t, "yes")
	require.Equal(t, domain.StatusComplete, res.Status)
	assert.Equal(t, 3, res.Value)
}

func TestSlotCollectsAndSkipsFilledValues(t *testing.T) {
	registry := dialog.NewRegistry().MustRegister(
		dialog.NewPrompt("ask-item", "Which item?"),
		dialog.NewPrompt("ask-qty", "How many?", dialog.WithValidator(dialog.NumberValidator())),
		dialog.NewWaterfall("order",
			dialog.Slot("item", "ask-item", dialog.PromptOptions{}),
			dialog.Slot("qty", "ask-qty", dialog.PromptOptions{}),
			func(ctx context.Context, step *dialog.StepContext) (domain.TurnResult, error) {
				return step.EndDialog(ctx, map[string]any{
					"item": step.Values()["item"],
					"qty":  step.Values()["qty"],
				})
			},
		),
	)

	// A prefilled slot is skipped without prompting.
	h := newHarness(registry)
	res := h.begin(t, "order", map[string]any{"item": "book"})
	require.Equal(t, domain.StatusWaiting, res.Status)
	assert.Equal(t, "How many?", h.lastText(t))

	res = h.turn(t, "4")
	require.Equal(t, domain.StatusComplete, res.Status)
	assert.Equal(t, map[string]any{"item": "book", "qty": 4}, res.Value)

	// Without prefills both slots prompt in order.
	h = newHarness(registry)
	h.begin(t, "order", nil)
	assert.Equal(t, "Which item?", h.lastText(t))
	h.turn(t, "pen")
	assert.Equal(t, "How many?", h.lastText(t))
	res = h.turn(t, "2")
	require.Equal(t, domain.StatusComplete, res.Status)
}

func TestSlotEndsDialogWhenPromptCollectsNothing(t *testing.T) {
	registry := dialog.NewRegistry().MustRegister(
		dialog.NewPrompt("ask", "Number?",
			dialog.WithValidator(dialog.NumberValidator()),
			dialog.WithMaxRetries(0),
		),
		dialog.NewWaterfall("flow",
			dialog.Slot("n", "ask", dialog.PromptOptions{}),
			func(ctx context.Context, step *dialog.StepContext) (domain.TurnResult, error) {
				t.Fatal("step after a failed slot must not run")
				return step.Waiting()
			},
		),
	)

	h := newHarness(registry)
	h.begin(t, "flow", nil)

	res := h.turn(t, "not a number")
	require.Equal(t, domain.StatusComplete, res.Status)
	assert.Nil(t, res.Value)
	assert.True(t, h.stack.Empty())
}

func TestSlotFillsAfterReloadOfBareFrame(t *testing.T) {
	registry := dialog.NewRegistry().MustRegister(
		dialog.NewPrompt("ask-name", "Who?"),
		dialog.NewWaterfall("flow",
			dialog.Slot("name", "ask-name", dialog.PromptOptions{}),
			func(ctx context.Context, step *dialog.StepContext) (domain.TurnResult, error) {
				return step.EndDialog(ctx, step.Values()["name"])
			},
		),
	)

	// Begin with no options: the frame saves with an empty Values bag, and
	// the harness round-trips it through JSON before the answer arrives.
	h := newHarness(registry)
	res := h.begin(t, "flow", nil)
	require.Equal(t, domain.StatusWaiting, res.Status)

	res = h.turn(t, "Alice")
	require.Equal(t, domain.StatusComplete, res.Status)
	assert.Equal(t, "Alice", res.Value)
}
