package turn_test

import (
	"context"
	"testing"

	"github.com/parleyio/parley/pkg/adapters/memory"
	"github.com/parleyio/parley/pkg/domain"
	"github.com/parleyio/parley/pkg/ports"
	"github.com/parleyio/parley/pkg/state"
	"github.com/parleyio/parley/pkg/turn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newActionAdapter(store ports.StateStore) *turn.ActionAdapter {
	driver := newDriver(store)
	driver.RegisterAction("CreateTicket", "ticket")
	return turn.NewActionAdapter(driver)
}

func TestActionWithAllSlotsCompletesImmediately(t *testing.T) {
	adapter := newActionAdapter(memory.NewStore())

	result, out, err := adapter.Invoke(context.Background(), "a1", "CreateTicket", map[string]any{
		"title":   "Broken printer",
		"urgency": 2,
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Success)
	payload, ok := result.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Broken printer", payload["title"])
	// The result event is the whole reply; no free text leaks out.
	assert.Empty(t, out)
}

func TestActionWithMissingSlotsPromptsAndStaysNonInteractive(t *testing.T) {
	store := memory.NewStore()
	adapter := newActionAdapter(store)
	ctx := context.Background()

	result, out, err := adapter.Invoke(ctx, "a2", "CreateTicket", map[string]any{
		"title": "Broken printer",
	})
	require.NoError(t, err)

	// Still collecting: no result yet, just the prompt.
	assert.Nil(t, result)
	assert.Contains(t, texts(out), "How urgent, 1 to 3?")

	// The follow-up answer completes the action and yields the result event.
	result, out, err = adapter.Deliver(ctx, "a2", "2")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.Empty(t, out)
}

func TestActionCancellationReportsFailure(t *testing.T) {
	store := memory.NewStore()
	adapter := newActionAdapter(store)
	ctx := context.Background()

	_, _, err := adapter.Invoke(ctx, "a3", "CreateTicket", nil)
	require.NoError(t, err)

	result, _, err := adapter.Deliver(ctx, "a3", "cancel")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Success)
}

func TestActionUnknownEventReachesNoDialog(t *testing.T) {
	store := memory.NewStore()
	driver := newDriver(store)
	adapter := turn.NewActionAdapter(driver)

	result, out, err := adapter.Invoke(context.Background(), "a4", "NoSuchAction", nil)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Empty(t, out)

	// Nothing was persisted for the unknown event.
	_, _, err = store.Get(context.Background(), ports.ConversationKey("a4"))
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestDecodeSlots(t *testing.T) {
	slots, err := turn.DecodeSlots(map[string]any{"title": "x", "urgency": 2})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "x", "urgency": 2}, slots)

	slots, err = turn.DecodeSlots(nil)
	require.NoError(t, err)
	assert.Nil(t, slots)

	type payload struct {
		Title   string `mapstructure:"title"`
		Urgency int    `mapstructure:"urgency"`
	}
	slots, err = turn.DecodeSlots(payload{Title: "y", Urgency: 3})
	require.NoError(t, err)
	assert.Equal(t, "y", slots["title"])
}

func TestResultEventSurvivesRestartMidAction(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	adapter := newActionAdapter(store)
	_, _, err := adapter.Invoke(ctx, "a5", "CreateTicket", map[string]any{"title": "Flickering lights"})
	require.NoError(t, err)

	// A fresh process still knows the conversation is a non-interactive
	// action and emits the result event on completion.
	adapter = newActionAdapter(store)
	result, _, err := adapter.Deliver(ctx, "a5", "1")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Success)

	// The record was cleared with the result.
	_, _, err = state.NewManager(store).Store().Get(ctx, ports.ConversationKey("a5"))
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}
