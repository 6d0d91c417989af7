package domain

// Recognition is the opaque classifier output for one utterance: a label,
// a confidence score and any extracted slot values.
type Recognition struct {
	Label      string         `json:"label"`
	Confidence float64        `json:"confidence"`
	Slots      map[string]any `json:"slots,omitempty"`
}

// TurnScratch is the ephemeral per-turn bag. It carries the inbound activity
// and the recognizer output into the router and the dialog context, and is
// never persisted.
type TurnScratch struct {
	Activity    Activity
	Recognition *Recognition

	// synthesized holds a value the interruption router injected so a
	// pending prompt can short-circuit accept it instead of rejecting the
	// raw text of an out-of-band signal.
	synthesized    any
	hasSynthesized bool
}

// NewTurnScratch wraps the inbound activity for one turn.
func NewTurnScratch(activity Activity) *TurnScratch {
	return &TurnScratch{Activity: activity}
}

// Text returns the inbound message text, if any.
func (t *TurnScratch) Text() string {
	return t.Activity.Text
}

// Synthesize stores an out-of-band value for the pending prompt to accept.
func (t *TurnScratch) Synthesize(value any) {
	t.synthesized = value
	t.hasSynthesized = true
}

// Synthesized returns the injected value, if one was set this turn.
func (t *TurnScratch) Synthesized() (any, bool) {
	return t.synthesized, t.hasSynthesized
}
