package dialog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/parleyio/parley/pkg/domain"
)

// Frame value keys reserved by the prompt runner.
const (
	promptKeyAttempt  = "__attempt"
	promptKeyQuestion = "__question"
	promptKeyRetry    = "__retry"
)

// ValidationContext carries everything a validator may inspect.
type ValidationContext struct {
	Input       string
	Recognition *domain.Recognition
	Attempt     int
}

// Validator turns a candidate turn input into a typed value, or rejects it.
// A returned error is treated as a step failure, not a rejection.
type Validator func(ctx context.Context, vc *ValidationContext) (value any, ok bool, err error)

// Prompt is a one-step dialog specialized for suspend/recognize/validate/
// retry. On accept it completes with the typed value; when the retry budget
// is exhausted it completes with nil, which callers must treat as "could not
// collect", never as a valid empty answer.
type Prompt struct {
	id         string
	question   string
	retryText  string
	maxRetries int
	validator  Validator
}

// PromptOpt configures a Prompt definition.
type PromptOpt func(*Prompt)

// WithRetryText sets the re-ask text used after a rejected answer.
func WithRetryText(text string) PromptOpt {
	return func(p *Prompt) { p.retryText = text }
}

// WithMaxRetries bounds the number of re-asks after the initial question.
func WithMaxRetries(n int) PromptOpt {
	return func(p *Prompt) { p.maxRetries = n }
}

// WithValidator sets the accept/reject function.
func WithValidator(v Validator) PromptOpt {
	return func(p *Prompt) { p.validator = v }
}

// NewPrompt builds a prompt definition. The default validator accepts any
// non-empty text; the default retry budget is two re-asks.
func NewPrompt(id, question string, opts ...PromptOpt) *Prompt {
	p := &Prompt{
		id:         id,
		question:   question,
		maxRetries: 2,
		validator:  TextValidator(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PromptOptions are per-call overrides passed by the beginning step.
type PromptOptions struct {
	Prompt     string
	RetryText  string
	Attachment *domain.Attachment
}

func (o PromptOptions) toOptions() map[string]any {
	options := make(map[string]any)
	if o.Prompt != "" {
		options[promptKeyQuestion] = o.Prompt
	}
	if o.RetryText != "" {
		options[promptKeyRetry] = o.RetryText
	}
	return options
}

// ID implements Dialog.
func (p *Prompt) ID() string { return p.id }

// Begin implements Dialog: emits the question and suspends.
func (p *Prompt) Begin(ctx context.Context, dc *Context, options map[string]any) (domain.TurnResult, error) {
	frame := dc.Stack().Top()

	question := p.question
	if q, ok := frame.Values[promptKeyQuestion].(string); ok && q != "" {
		question = q
	}
	frame.Values[promptKeyQuestion] = question
	frame.Values[promptKeyAttempt] = 0

	dc.SendText(question)
	return domain.Waiting(), nil
}

// Continue implements Dialog: recognizes and validates the turn input,
// re-asking while the retry budget lasts.
func (p *Prompt) Continue(ctx context.Context, dc *Context) (domain.TurnResult, error) {
	frame := dc.Stack().Top()

	// An out-of-band signal may have synthesized an answer; accept it
	// without running the validator against the raw text.
	if v, ok := dc.Scratch().Synthesized(); ok {
		return dc.End(ctx, v)
	}

	attempt := intValue(frame.Values[promptKeyAttempt])
	vc := &ValidationContext{
		Input:       dc.Scratch().Text(),
		Recognition: dc.Scratch().Recognition,
		Attempt:     attempt,
	}

	value, ok, err := p.validator(ctx, vc)
	if err != nil {
		return domain.TurnResult{Status: domain.StatusEmpty},
			fmt.Errorf("prompt %s validation: %w", p.id, err)
	}
	if ok {
		return dc.End(ctx, value)
	}

	attempt++
	if attempt > p.maxRetries {
		dc.Logger().Debug("prompt retries exhausted", "prompt", p.id, "attempts", attempt)
		return dc.End(ctx, nil)
	}
	frame.Values[promptKeyAttempt] = attempt

	dc.SendText(p.currentRetryText(frame))
	return domain.Waiting(), nil
}

// Resume implements Dialog: a prompt resumed by a child re-asks its question.
func (p *Prompt) Resume(ctx context.Context, dc *Context, result domain.TurnResult) (domain.TurnResult, error) {
	if err := p.Reprompt(ctx, dc); err != nil {
		return domain.TurnResult{Status: domain.StatusEmpty}, err
	}
	return domain.Waiting(), nil
}

// Reprompt implements Dialog: re-emits the pending question unchanged.
func (p *Prompt) Reprompt(ctx context.Context, dc *Context) error {
	frame := dc.Stack().Top()
	if q, ok := frame.Values[promptKeyQuestion].(string); ok && q != "" {
		dc.SendText(q)
	}
	return nil
}

func (p *Prompt) currentRetryText(frame *domain.Frame) string {
	if r, ok := frame.Values[promptKeyRetry].(string); ok && r != "" {
		return r
	}
	if p.retryText != "" {
		return p.retryText
	}
	if q, ok := frame.Values[promptKeyQuestion].(string); ok && q != "" {
		return q
	}
	return p.question
}

// intValue tolerates the int-to-float64 conversion of a JSON reload.
func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// TextValidator accepts any non-empty trimmed text.
func TextValidator() Validator {
	return func(ctx context.Context, vc *ValidationContext) (any, bool, error) {
		text := strings.TrimSpace(vc.Input)
		if text == "" {
			return nil, false, nil
		}
		return text, true, nil
	}
}

// ConfirmValidator accepts the usual yes/no forms as a bool.
func ConfirmValidator() Validator {
	return func(ctx context.Context, vc *ValidationContext) (any, bool, error) {
		switch strings.ToLower(strings.TrimSpace(vc.Input)) {
		case "y", "yes", "true", "1", "ok", "sure":
			return true, true, nil
		case "n", "no", "false", "0":
			return false, true, nil
		}
		return nil, false, nil
	}
}

// NumberValidator accepts an extracted number slot, or parses the raw text.
func NumberValidator() Validator {
	return func(ctx context.Context, vc *ValidationContext) (any, bool, error) {
		if vc.Recognition != nil {
			switch n := vc.Recognition.Slots["number"].(type) {
			case int:
				return n, true, nil
			case float64:
				return int(n), true, nil
			}
		}

		text := strings.TrimSpace(vc.Input)
		if n, err := strconv.Atoi(text); err == nil {
			return n, true, nil
		}
		return nil, false, nil
	}
}
