package dialog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/parleyio/parley/pkg/dialog"
	"github.com/parleyio/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptAcceptsValidInput(t *testing.T) {
	registry := dialog.NewRegistry().MustRegister(
		dialog.NewPrompt("ask", "Name?"),
	)

	h := newHarness(registry)
	res := h.begin(t, "ask", nil)
	require.Equal(t, domain.StatusWaiting, res.Status)
	assert.Equal(t, "Name?", h.lastText(t))

	res = h.turn(t, "  Ada  ")
	require.Equal(t, domain.StatusComplete, res.Status)
	assert.Equal(t, "Ada", res.Value)
}

func TestPromptRetryBudget(t *testing.T) {
	registry := dialog.NewRegistry().MustRegister(
		dialog.NewPrompt("ask", "Number?",
			dialog.WithValidator(dialog.NumberValidator()),
			dialog.WithRetryText("Digits only, please."),
			dialog.WithMaxRetries(2),
		),
	)

	h := newHarness(registry)
	h.begin(t, "ask", nil)

	// Two retries means three chances to answer in total.
	res := h.turn(t, "nope")
	require.Equal(t, domain.StatusWaiting, res.Status)
	assert.Equal(t, "Digits only, please.", h.lastText(t))

	res = h.turn(t, "still nope")
	require.Equal(t, domain.StatusWaiting, res.Status)

	res = h.turn(t, "42")
	require.Equal(t, domain.StatusComplete, res.Status)
	assert.Equal(t, 42, res.Value)
}

func TestPromptExhaustedRetriesCompletesWithNil(t *testing.T) {
	registry := dialog.NewRegistry().MustRegister(
		dialog.NewPrompt("ask", "Number?",
			dialog.WithValidator(dialog.NumberValidator()),
			dialog.WithMaxRetries(1),
		),
	)

	h := newHarness(registry)
	h.begin(t, "ask", nil)

	res := h.turn(t, "nope")
	require.Equal(t, domain.StatusWaiting, res.Status)

	res = h.turn(t, "nope again")
	require.Equal(t, domain.StatusComplete, res.Status)
	assert.Nil(t, res.Value)
	assert.True(t, h.stack.Empty())
}

func TestPromptPerCallOverrides(t *testing.T) {
	registry := dialog.NewRegistry().MustRegister(
		dialog.NewPrompt("ask", "Default question?", dialog.WithValidator(dialog.NumberValidator())),
		dialog.NewWaterfall("flow",
			func(ctx context.Context, step *dialog.StepContext) (domain.TurnResult, error) {
				if !step.Resumed {
					return step.Prompt(ctx, "ask", dialog.PromptOptions{
						Prompt:    "Special question?",
						RetryText: "Special retry.",
					})
				}
				return step.EndDialog(ctx, step.Result)
			},
		),
	)

	h := newHarness(registry)
	h.begin(t, "flow", nil)
	assert.Equal(t, "Special question?", h.lastText(t))

	res := h.turn(t, "nope")
	require.Equal(t, domain.StatusWaiting, res.Status)
	assert.Equal(t, "Special retry.", h.lastText(t))
}

func TestPromptSynthesizedAnswerSkipsValidation(t *testing.T) {
	registry := dialog.NewRegistry().MustRegister(
		dialog.NewPrompt("ask", "Number?", dialog.WithValidator(dialog.NumberValidator())),
	)

	h := newHarness(registry)
	h.begin(t, "ask", nil)

	// A router may synthesize the answer from recognition before dispatch.
	dc := h.context("three-ish")
	dc.Scratch().Synthesize(3)
	res, err := dc.Continue(context.Background())
	require.NoError(t, err)

	require.Equal(t, domain.StatusComplete, res.Status)
	assert.Equal(t, 3, res.Value)
}

func TestPromptValidatorErrorFailsTheTurn(t *testing.T) {
	boom := errors.New("lookup failed")
	registry := dialog.NewRegistry().MustRegister(
		dialog.NewPrompt("ask", "Name?",
			dialog.WithValidator(func(ctx context.Context, vc *dialog.ValidationContext) (any, bool, error) {
				return nil, false, boom
			}),
		),
	)

	h := newHarness(registry)
	h.begin(t, "ask", nil)

	_, err := h.context("anything").Continue(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestPromptRepromptRepeatsQuestion(t *testing.T) {
	registry := dialog.NewRegistry().MustRegister(
		dialog.NewPrompt("ask", "Name?"),
	)

	h := newHarness(registry)
	h.begin(t, "ask", nil)

	dc := h.context("")
	require.NoError(t, dc.Reprompt(context.Background()))
	assert.Equal(t, "Name?", h.lastText(t))
}

func TestConfirmValidator(t *testing.T) {
	v := dialog.ConfirmValidator()
	ctx := context.Background()

	value, ok, err := v(ctx, &dialog.ValidationContext{Input: "Yes"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, true, value)

	value, ok, err = v(ctx, &dialog.ValidationContext{Input: "no"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, false, value)

	_, ok, err = v(ctx, &dialog.ValidationContext{Input: "maybe"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNumberValidatorPrefersRecognitionSlot(t *testing.T) {
	v := dialog.NumberValidator()
	ctx := context.Background()

	value, ok, err := v(ctx, &dialog.ValidationContext{
		Input: "a couple",
		Recognition: &domain.Recognition{
			Slots: map[string]any{"number": float64(2)},
		},
	})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, value)

	value, ok, err = v(ctx, &dialog.ValidationContext{Input: " 7 "})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 7, value)
}
