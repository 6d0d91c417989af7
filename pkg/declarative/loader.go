// Package declarative loads dialog definitions from YAML, so simple skills
// can be authored without Go code. Waterfalls are described as step lists,
// prompts are generated per slot, and validators are expr-language
// expressions compiled at load time.
package declarative

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/mitchellh/mapstructure"
	"github.com/parleyio/parley/pkg/dialog"
	"github.com/parleyio/parley/pkg/domain"
	"gopkg.in/yaml.v3"
)

// File is the YAML document shape.
type File struct {
	Root       string          `yaml:"root"`
	Dialogs    []DialogSpec    `yaml:"dialogs"`
	Components []ComponentSpec `yaml:"components"`
	Actions    []ActionSpec    `yaml:"actions"`
}

// DialogSpec declares one waterfall.
type DialogSpec struct {
	ID    string           `yaml:"id"`
	Steps []map[string]any `yaml:"steps"`
}

// ComponentSpec declares a composite dialog with its own registry.
type ComponentSpec struct {
	ID      string       `yaml:"id"`
	Entry   string       `yaml:"entry"`
	Dialogs []DialogSpec `yaml:"dialogs"`
}

// ActionSpec maps a skill-action event onto a dialog.
type ActionSpec struct {
	Event  string `yaml:"event"`
	Dialog string `yaml:"dialog"`
}

// StepSpec is one decoded waterfall step. Exactly one of Say, Slot or Done
// must be set.
type StepSpec struct {
	Say        string `mapstructure:"say"`
	Slot       string `mapstructure:"slot"`
	Prompt     string `mapstructure:"prompt"`
	Retry      string `mapstructure:"retry"`
	Kind       string `mapstructure:"kind"`
	Validate   string `mapstructure:"validate"`
	MaxRetries *int   `mapstructure:"max_retries"`
	Done       string `mapstructure:"done"`
}

// Bundle is the loaded result: a populated registry plus routing metadata.
type Bundle struct {
	Registry *dialog.Registry
	Root     string
	Actions  map[string]string
}

// LoadFile reads and loads a YAML dialog definition from disk.
func LoadFile(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dialog file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a YAML dialog definition and builds the registry.
func Load(r io.Reader) (*Bundle, error) {
	var file File
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("parse dialog yaml: %w", err)
	}

	registry := dialog.NewRegistry()
	for _, spec := range file.Dialogs {
		if err := buildDialog(registry, spec); err != nil {
			return nil, err
		}
	}

	for _, spec := range file.Components {
		child := dialog.NewRegistry()
		for _, d := range spec.Dialogs {
			if err := buildDialog(child, d); err != nil {
				return nil, fmt.Errorf("component %s: %w", spec.ID, err)
			}
		}
		if _, err := child.Resolve(spec.Entry); err != nil {
			return nil, fmt.Errorf("component %s: entry %q: %w", spec.ID, spec.Entry, err)
		}
		if err := registry.Register(dialog.NewComponent(spec.ID, child, spec.Entry)); err != nil {
			return nil, err
		}
	}

	if file.Root != "" {
		if _, err := registry.Resolve(file.Root); err != nil {
			return nil, fmt.Errorf("root dialog: %w", err)
		}
	}

	actions := make(map[string]string, len(file.Actions))
	for _, a := range file.Actions {
		if _, err := registry.Resolve(a.Dialog); err != nil {
			return nil, fmt.Errorf("action %s: %w", a.Event, err)
		}
		actions[a.Event] = a.Dialog
	}

	return &Bundle{Registry: registry, Root: file.Root, Actions: actions}, nil
}

func buildDialog(registry *dialog.Registry, spec DialogSpec) error {
	if spec.ID == "" {
		return fmt.Errorf("dialog with empty id")
	}
	if len(spec.Steps) == 0 {
		return fmt.Errorf("dialog %s: no steps", spec.ID)
	}

	var steps []dialog.StepFunc
	sawDone := false

	for i, raw := range spec.Steps {
		var step StepSpec
		if err := mapstructure.Decode(raw, &step); err != nil {
			return fmt.Errorf("dialog %s step %d: %w", spec.ID, i, err)
		}

		switch {
		case step.Slot != "":
			promptID := spec.ID + "." + step.Slot
			prompt, err := buildPrompt(promptID, step)
			if err != nil {
				return fmt.Errorf("dialog %s step %d: %w", spec.ID, i, err)
			}
			if err := registry.Register(prompt); err != nil {
				return err
			}
			steps = append(steps, dialog.Slot(step.Slot, promptID, dialog.PromptOptions{}))

		case step.Say != "":
			steps = append(steps, sayStep(step.Say))

		case step.Done != "" || i == len(spec.Steps)-1:
			steps = append(steps, doneStep(step.Done))
			sawDone = true

		default:
			return fmt.Errorf("dialog %s step %d: needs one of say, slot or done", spec.ID, i)
		}
	}

	if !sawDone {
		// Running off the end of a waterfall is an authoring error, so every
		// declarative dialog must finish with an explicit done step.
		return fmt.Errorf("dialog %s: missing done step", spec.ID)
	}

	return registry.Register(dialog.NewWaterfall(spec.ID, steps...))
}

func buildPrompt(id string, step StepSpec) (*dialog.Prompt, error) {
	if step.Prompt == "" {
		return nil, fmt.Errorf("slot %s: missing prompt text", step.Slot)
	}

	validator, err := buildValidator(step)
	if err != nil {
		return nil, err
	}

	opts := []dialog.PromptOpt{dialog.WithValidator(validator)}
	if step.Retry != "" {
		opts = append(opts, dialog.WithRetryText(step.Retry))
	}
	if step.MaxRetries != nil {
		opts = append(opts, dialog.WithMaxRetries(*step.MaxRetries))
	}
	return dialog.NewPrompt(id, step.Prompt, opts...), nil
}

func buildValidator(step StepSpec) (dialog.Validator, error) {
	var base dialog.Validator
	switch step.Kind {
	case "", "text":
		base = dialog.TextValidator()
	case "number":
		base = dialog.NumberValidator()
	case "confirm":
		base = dialog.ConfirmValidator()
	default:
		return nil, fmt.Errorf("slot %s: unknown kind %q", step.Slot, step.Kind)
	}

	if step.Validate == "" {
		return base, nil
	}

	// No typed env here: input/value/attempt stay dynamic so comparisons
	// against whatever the kind validator produced resolve at run time.
	program, err := expr.Compile(step.Validate,
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("slot %s: compile %q: %w", step.Slot, step.Validate, err)
	}
	return exprValidator(program, base), nil
}

// exprValidator layers a compiled expression on top of the kind validator:
// the kind produces the typed candidate, the expression accepts or rejects.
func exprValidator(program *vm.Program, base dialog.Validator) dialog.Validator {
	return func(ctx context.Context, vc *dialog.ValidationContext) (any, bool, error) {
		value, ok, err := base(ctx, vc)
		if err != nil || !ok {
			return nil, false, err
		}

		out, err := expr.Run(program, validatorEnv(vc.Input, value, vc.Attempt))
		if err != nil {
			return nil, false, fmt.Errorf("run validator: %w", err)
		}
		if accepted, isBool := out.(bool); isBool && accepted {
			return value, true, nil
		}
		return nil, false, nil
	}
}

func validatorEnv(input string, value any, attempt int) map[string]any {
	return map[string]any{
		"input":   input,
		"value":   value,
		"attempt": attempt,
	}
}

func sayStep(text string) dialog.StepFunc {
	return func(ctx context.Context, step *dialog.StepContext) (domain.TurnResult, error) {
		step.SendText(interpolate(text, step.Values()))
		return step.Next(ctx, step.Result)
	}
}

func doneStep(text string) dialog.StepFunc {
	return func(ctx context.Context, step *dialog.StepContext) (domain.TurnResult, error) {
		collected := collectedValues(step.Values())
		if text != "" {
			step.SendText(interpolate(text, step.Values()))
		}
		return step.EndDialog(ctx, collected)
	}
}

// collectedValues strips the engine's reserved keys from a frame's values.
func collectedValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if strings.HasPrefix(k, "__") {
			continue
		}
		out[k] = v
	}
	return out
}

// interpolate substitutes {name} references with frame values.
func interpolate(text string, values map[string]any) string {
	for k, v := range values {
		if strings.HasPrefix(k, "__") {
			continue
		}
		text = strings.ReplaceAll(text, "{"+k+"}", fmt.Sprintf("%v", v))
	}
	return text
}
