package domain

// ConversationRecord is persisted per conversation id. It holds the root
// stack plus any slots that must outlive a single turn. It is created on
// first turn, mutated every turn, and cleared when the root stack empties
// or on explicit cancel.
type ConversationRecord struct {
	Stack *Stack `json:"stack"`

	// Slots holds skill-level values collected across turns (a ticket
	// title, a selected list). Cleared on every failure path.
	Slots map[string]any `json:"slots,omitempty"`

	// NonInteractive marks a conversation driven by a structured action
	// payload: ask steps skip prompts whose slot is already filled, and the
	// final result is delivered as a single actionResult event.
	NonInteractive bool `json:"non_interactive,omitempty"`
}

// NewConversationRecord returns a fresh record with an empty stack.
func NewConversationRecord() *ConversationRecord {
	return &ConversationRecord{
		Stack: NewStack(),
		Slots: make(map[string]any),
	}
}

// Reset discards the stack and transient slots, keeping the record usable
// for the next turn.
func (r *ConversationRecord) Reset() {
	r.Stack = NewStack()
	r.Slots = make(map[string]any)
	r.NonInteractive = false
}

// UserRecord is persisted per user id and outlives conversations. It holds
// cross-conversation caches (resolved backend identifiers and the like)
// invalidated only by explicit user action.
type UserRecord struct {
	Values map[string]any `json:"values,omitempty"`
}

// NewUserRecord returns an empty user record.
func NewUserRecord() *UserRecord {
	return &UserRecord{Values: make(map[string]any)}
}

// Invalidate drops a cached value by key.
func (r *UserRecord) Invalidate(key string) {
	delete(r.Values, key)
}

// Token is an opaque credential returned by a provider.
type Token struct {
	Value    string `json:"value"`
	Provider string `json:"provider,omitempty"`
}

// ActionResult is the fixed-shape reply of a non-interactive invocation.
type ActionResult struct {
	Success bool `json:"success"`
	Payload any  `json:"payload,omitempty"`
}
