package dialog_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/parleyio/parley/pkg/dialog"
	"github.com/parleyio/parley/pkg/domain"
	"github.com/stretchr/testify/require"
)

// harness drives a registry turn by turn against a single persisted stack,
// round-tripping the stack through JSON between turns the way the state
// store does.
type harness struct {
	registry *dialog.Registry
	stack    *domain.Stack
	sent     []domain.Activity
}

func newHarness(registry *dialog.Registry) *harness {
	return &harness{registry: registry, stack: &domain.Stack{}}
}

func (h *harness) context(text string) *dialog.Context {
	h.sent = nil
	scratch := domain.NewTurnScratch(domain.NewMessage(text))
	return dialog.NewContext(h.registry, h.stack, scratch, dialog.ResponderFunc(func(a domain.Activity) {
		h.sent = append(h.sent, a)
	}))
}

// begin starts the named dialog as the first turn.
func (h *harness) begin(t *testing.T, id string, options map[string]any) domain.TurnResult {
	t.Helper()
	res, err := h.context("").Begin(context.Background(), id, options)
	require.NoError(t, err)
	h.reload(t)
	return res
}

// turn delivers one user message to the suspended stack.
func (h *harness) turn(t *testing.T, text string) domain.TurnResult {
	t.Helper()
	res, err := h.context(text).Continue(context.Background())
	require.NoError(t, err)
	h.reload(t)
	return res
}

// reload serializes and re-hydrates the stack, as a store-backed deployment
// does between every turn.
func (h *harness) reload(t *testing.T) {
	t.Helper()
	raw, err := json.Marshal(h.stack)
	require.NoError(t, err)
	fresh := &domain.Stack{}
	require.NoError(t, json.Unmarshal(raw, fresh))
	h.stack = fresh
}

func (h *harness) texts() []string {
	var texts []string
	for _, a := range h.sent {
		if a.Type == domain.ActivityMessage {
			texts = append(texts, a.Text)
		}
	}
	return texts
}

func (h *harness) lastText(t *testing.T) string {
	t.Helper()
	texts := h.texts()
	require.NotEmpty(t, texts)
	return texts[len(texts)-1]
}
