package domain

import "context"

// DialogEvent describes a dialog lifecycle transition for observability.
type DialogEvent struct {
	ConversationID string
	DialogID       string
	Cursor         int
	Result         *TurnResult
}

// Hooks defines optional callbacks for engine observability. Nil fields are
// skipped; hooks must not mutate the stack.
type Hooks struct {
	OnDialogBegin  func(context.Context, *DialogEvent)
	OnDialogEnd    func(context.Context, *DialogEvent)
	OnStep         func(context.Context, *DialogEvent)
	OnInterruption func(ctx context.Context, conversationID, signal string)
	OnError        func(ctx context.Context, conversationID string, err error)
}
