package recognize_test

import (
	"context"
	"testing"

	"github.com/parleyio/parley/pkg/recognize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordMatchesDefaultRules(t *testing.T) {
	k := recognize.NewKeyword(recognize.DefaultRules()...)

	cases := []struct {
		input string
		label string
	}{
		{"cancel", "Cancel"},
		{"Never mind, forget it", "Cancel"},
		{"  HELP  ", "Help"},
		{"what can you do?", "Help"},
		{"please log out", "Logout"},
		{"sign out now", "Logout"},
	}
	for _, tc := range cases {
		rec, err := k.Recognize(context.Background(), tc.input)
		require.NoError(t, err)
		assert.Equal(t, tc.label, rec.Label, "input %q", tc.input)
		assert.Equal(t, 0.9, rec.Confidence)
	}
}

func TestKeywordUnmatchedYieldsNone(t *testing.T) {
	k := recognize.NewKeyword(recognize.DefaultRules()...)

	rec, err := k.Recognize(context.Background(), "book me a table")
	require.NoError(t, err)
	assert.Equal(t, "None", rec.Label)
	assert.Zero(t, rec.Confidence)
}

func TestKeywordFirstRuleWins(t *testing.T) {
	k := recognize.NewKeyword(
		recognize.Rule{Label: "First", Phrases: []string{"go"}, Confidence: 0.7},
		recognize.Rule{Label: "Second", Phrases: []string{"go"}, Confidence: 0.8},
	)

	rec, err := k.Recognize(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "First", rec.Label)
	assert.Equal(t, 0.7, rec.Confidence)
}

func TestKeywordExtractsNumberSlot(t *testing.T) {
	k := recognize.NewKeyword(recognize.DefaultRules()...)

	rec, err := k.Recognize(context.Background(), "make it 3 please")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Slots["number"])

	rec, err = k.Recognize(context.Background(), "about -2 degrees")
	require.NoError(t, err)
	assert.Equal(t, -2, rec.Slots["number"])

	rec, err = k.Recognize(context.Background(), "no digits here")
	require.NoError(t, err)
	assert.NotContains(t, rec.Slots, "number")
}
