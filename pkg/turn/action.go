package turn

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/parleyio/parley/pkg/domain"
)

// DecodeSlots normalizes a skill-action payload value (a decoded JSON map,
// or any struct a host hands over) into the slot map that seeds the target
// frame's values.
func DecodeSlots(value any) (map[string]any, error) {
	if value == nil {
		return nil, nil
	}

	slots := make(map[string]any)
	if err := mapstructure.Decode(value, &slots); err != nil {
		return nil, fmt.Errorf("decode action slots: %w", err)
	}
	return slots, nil
}

// ActionAdapter invokes registered procedures from a single structured
// payload instead of free-text turns. Known slots are pre-filled so prompts
// are skipped; any prompt whose slot was not supplied still suspends
// normally, degrading into interactive mode slot by slot.
type ActionAdapter struct {
	driver *Driver
}

// NewActionAdapter wraps a driver for non-interactive invocation.
func NewActionAdapter(driver *Driver) *ActionAdapter {
	return &ActionAdapter{driver: driver}
}

// Invoke runs the action named by eventName. When the procedure runs to
// completion it returns the fixed-shape result and no activities; when an
// unfilled slot suspends, it returns a nil result along with the prompt
// activities the caller must relay.
func (a *ActionAdapter) Invoke(ctx context.Context, conversationID, eventName string, value any) (*domain.ActionResult, []domain.Activity, error) {
	slots, err := DecodeSlots(value)
	if err != nil {
		return nil, nil, err
	}

	out, err := a.driver.OnTurn(ctx, conversationID, domain.NewEvent(eventName, slots))
	if err != nil {
		return nil, nil, err
	}
	return splitActionResult(out)
}

// Deliver feeds a follow-up interactive answer into a degraded invocation
// and reports the result the same way Invoke does.
func (a *ActionAdapter) Deliver(ctx context.Context, conversationID, text string) (*domain.ActionResult, []domain.Activity, error) {
	out, err := a.driver.OnTurn(ctx, conversationID, domain.Activity{
		Type: domain.ActivityMessage,
		Text: text,
	})
	if err != nil {
		return nil, nil, err
	}
	return splitActionResult(out)
}

func splitActionResult(out []domain.Activity) (*domain.ActionResult, []domain.Activity, error) {
	for _, act := range out {
		if act.Type == domain.ActivityEvent && act.Name == domain.EventActionResult {
			result, ok := act.Value.(domain.ActionResult)
			if !ok {
				return nil, nil, fmt.Errorf("malformed action result payload: %T", act.Value)
			}
			return &result, nil, nil
		}
	}
	return nil, out, nil
}
