package domain

import "encoding/json"

// TurnStatus describes what a stack operation left behind.
type TurnStatus string

const (
	// StatusEmpty means the stack had nothing to do with the turn.
	StatusEmpty TurnStatus = "empty"
	// StatusWaiting means a frame suspended and is awaiting the next turn's input.
	StatusWaiting TurnStatus = "waiting"
	// StatusComplete means the frame popped and Value threads to the parent.
	StatusComplete TurnStatus = "complete"
	// StatusCancelled means the frame (or the whole stack) was discarded.
	StatusCancelled TurnStatus = "cancelled"
)

// TurnResult is returned by every stack operation.
type TurnResult struct {
	Status TurnStatus `json:"status"`
	Value  any        `json:"value,omitempty"`
}

// Waiting is the result of a frame suspending for input.
func Waiting() TurnResult { return TurnResult{Status: StatusWaiting} }

// Completed wraps a value produced by a finished frame.
func Completed(value any) TurnResult {
	return TurnResult{Status: StatusComplete, Value: value}
}

// Cancelled wraps an optional diagnostic payload from a discarded frame.
func Cancelled(value any) TurnResult {
	return TurnResult{Status: StatusCancelled, Value: value}
}

// Frame is the persisted state of one active (possibly suspended) dialog
// instance. Values is a private scratch bag visible only to that frame's
// steps. Child holds the nested stack owned by a component frame; stacks
// form a tree, so sibling components never see each other's cursors.
type Frame struct {
	DialogID string         `json:"dialog_id"`
	Cursor   int            `json:"cursor"`
	Values   map[string]any `json:"values,omitempty"`
	Child    *Stack         `json:"child,omitempty"`
}

// NewFrame builds a frame at cursor zero with Values seeded from options.
func NewFrame(dialogID string, options map[string]any) *Frame {
	values := make(map[string]any, len(options))
	for k, v := range options {
		values[k] = v
	}
	return &Frame{DialogID: dialogID, Values: values}
}

// UnmarshalJSON rehydrates a frame. An empty Values bag is elided on save,
// so it must be re-allocated here; steps write to it without checking.
func (f *Frame) UnmarshalJSON(data []byte) error {
	type plain Frame
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*f = Frame(p)
	if f.Values == nil {
		f.Values = make(map[string]any)
	}
	return nil
}

// Stack is the ordered list of frames for one conversation scope.
// The last element is the top (innermost active dialog).
type Stack struct {
	Frames []*Frame `json:"frames"`
}

// NewStack returns an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Push places a frame on top.
func (s *Stack) Push(f *Frame) {
	s.Frames = append(s.Frames, f)
}

// Pop removes and returns the top frame, or nil if the stack is empty.
func (s *Stack) Pop() *Frame {
	if len(s.Frames) == 0 {
		return nil
	}
	top := s.Frames[len(s.Frames)-1]
	s.Frames = s.Frames[:len(s.Frames)-1]
	return top
}

// Top returns the top frame without removing it, or nil if empty.
func (s *Stack) Top() *Frame {
	if len(s.Frames) == 0 {
		return nil
	}
	return s.Frames[len(s.Frames)-1]
}

// Depth returns the number of frames.
func (s *Stack) Depth() int {
	return len(s.Frames)
}

// Empty reports whether the conversation has returned to its idle state.
func (s *Stack) Empty() bool {
	return len(s.Frames) == 0
}

// Clear discards every frame and its values.
func (s *Stack) Clear() {
	s.Frames = nil
}

// TruncateAbove discards every frame above depth n, leaving the bottom n
// frames in place. Used by the step-failure policy to unwind a nested
// sub-stack without touching the root conversation.
func (s *Stack) TruncateAbove(n int) {
	if n < 0 {
		n = 0
	}
	if len(s.Frames) > n {
		s.Frames = s.Frames[:n]
	}
}
