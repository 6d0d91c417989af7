// Package recognize provides a small pattern-based Recognizer useful for
// demos and tests. Production hosts plug in a real classifier behind the
// same port; the engine never looks past the label, score and slots.
package recognize

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/parleyio/parley/pkg/domain"
)

var numberPattern = regexp.MustCompile(`-?\d+`)

// Rule maps a set of trigger phrases onto a label with a fixed confidence.
type Rule struct {
	Label      string
	Phrases    []string
	Confidence float64
}

// Keyword is a deterministic substring recognizer. The first matching rule
// wins; unmatched input yields the None label at zero confidence.
type Keyword struct {
	rules []Rule
}

// NewKeyword builds a recognizer from ordered rules.
func NewKeyword(rules ...Rule) *Keyword {
	return &Keyword{rules: rules}
}

// DefaultRules cover the conventional global signals.
func DefaultRules() []Rule {
	return []Rule{
		{Label: "Cancel", Phrases: []string{"cancel", "never mind", "stop", "forget it"}, Confidence: 0.9},
		{Label: "Help", Phrases: []string{"help", "what can you do"}, Confidence: 0.9},
		{Label: "Logout", Phrases: []string{"log out", "logout", "sign out"}, Confidence: 0.9},
	}
}

// Recognize implements ports.Recognizer.
func (k *Keyword) Recognize(ctx context.Context, text string) (*domain.Recognition, error) {
	lowered := strings.ToLower(strings.TrimSpace(text))

	rec := &domain.Recognition{
		Label: "None",
		Slots: make(map[string]any),
	}
	for _, rule := range k.rules {
		for _, phrase := range rule.Phrases {
			if strings.Contains(lowered, phrase) {
				rec.Label = rule.Label
				rec.Confidence = rule.Confidence
				break
			}
		}
		if rec.Label != "None" {
			break
		}
	}

	if match := numberPattern.FindString(lowered); match != "" {
		if n, err := strconv.Atoi(match); err == nil {
			rec.Slots["number"] = n
		}
	}
	return rec, nil
}
