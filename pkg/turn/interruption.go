package turn

import (
	"github.com/parleyio/parley/pkg/dialog"
	"github.com/parleyio/parley/pkg/domain"
)

// Signal classifies a recognized global intent label.
type Signal string

const (
	SignalNone   Signal = "none"
	SignalCancel Signal = "cancel"
	SignalHelp   Signal = "help"
	SignalLogout Signal = "logout"
)

// Decision is the router's verdict for one turn. Decisions are mutually
// exclusive; the router evaluates the single top-scoring label only.
type Decision int

const (
	// DecideNone lets normal stack dispatch proceed.
	DecideNone Decision = iota
	// DecideCancel discards the whole stack before any frame-local logic runs.
	DecideCancel
	// DecideReprompt re-emits the pending question without touching the stack.
	DecideReprompt
	// DecideHelp sends the help text and ends the turn; the input is not
	// dispatched and no frame has a question to repeat.
	DecideHelp
	// DecideHandoff signs the user out of all credential providers, then cancels.
	DecideHandoff
)

// DefaultThreshold is the confidence a global intent must exceed to
// interrupt. Kept as a policy default, not a structural constant.
const DefaultThreshold = 0.5

// Synthesizer may turn a high-confidence non-global recognition that arrives
// mid-prompt into a value the pending prompt short-circuit accepts, letting
// the user change topic without the prompt rejecting the input.
type Synthesizer func(rec *domain.Recognition) (any, bool)

// Router decides, once per input-bearing turn and before Continue, whether a
// global signal should rewrite the stack.
type Router struct {
	threshold   float64
	signals     map[string]Signal
	synthesizer Synthesizer
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithThreshold overrides the interruption confidence threshold.
func WithThreshold(t float64) RouterOption {
	return func(r *Router) { r.threshold = t }
}

// WithSignalLabel maps a recognizer label to a global signal.
func WithSignalLabel(label string, signal Signal) RouterOption {
	return func(r *Router) { r.signals[label] = signal }
}

// WithSynthesizer installs the mid-prompt topic-change hook.
func WithSynthesizer(s Synthesizer) RouterOption {
	return func(r *Router) { r.synthesizer = s }
}

// NewRouter builds a router with the conventional Cancel/Help/Logout labels.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		threshold: DefaultThreshold,
		signals: map[string]Signal{
			"Cancel": SignalCancel,
			"Help":   SignalHelp,
			"Logout": SignalLogout,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route inspects the turn's recognition and the current stack top. It may
// mark the scratch with a synthesized prompt value as a side effect.
func (r *Router) Route(scratch *domain.TurnScratch, dc *dialog.Context) Decision {
	rec := scratch.Recognition
	if rec == nil || rec.Confidence <= r.threshold {
		return DecideNone
	}

	switch r.signals[rec.Label] {
	case SignalCancel:
		return DecideCancel
	case SignalLogout:
		return DecideHandoff
	case SignalHelp:
		// A frame that is not mid-prompt has nothing to reprompt; the help
		// text alone is still sent.
		if dc.MidPrompt() {
			return DecideReprompt
		}
		return DecideHelp
	}

	if r.synthesizer != nil && dc.MidPrompt() {
		if v, ok := r.synthesizer(rec); ok {
			scratch.Synthesize(v)
		}
	}
	return DecideNone
}

// signalName reports the metrics label for a decision.
func (d Decision) signalName() string {
	switch d {
	case DecideCancel:
		return string(SignalCancel)
	case DecideReprompt, DecideHelp:
		return string(SignalHelp)
	case DecideHandoff:
		return string(SignalLogout)
	default:
		return string(SignalNone)
	}
}
