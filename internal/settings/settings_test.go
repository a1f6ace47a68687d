package settings

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayeredLookupPrefersFirstHit(t *testing.T) {
	g := WithDefaults(Settings{KeyDateTrigger: "%"})
	assert.Equal(t, "%", String(g, KeyDateTrigger))
	assert.Equal(t, "!", String(g, KeyPriorityTrigger))
	assert.False(t, Bool(g, KeyLinkDates))
	assert.Equal(t, "", String(g, "missing"))
}

func TestBoolAcceptsStrings(t *testing.T) {
	assert.True(t, Bool(Settings{KeyLinkDates: "true"}, KeyLinkDates))
	assert.True(t, Bool(Settings{KeyLinkDates: true}, KeyLinkDates))
	assert.False(t, Bool(Settings{KeyLinkDates: "nope"}, KeyLinkDates))
}

func TestCategories(t *testing.T) {
	s := Settings{KeyCategories: []any{
		map[string]any{"name": "work", "color": "#ff0000"},
		map[string]any{"name": "  "},
		map[string]any{"name": "home"},
	}}
	cats := Categories(s)
	require.Len(t, cats, 2)
	assert.Equal(t, "work", cats[0].Name)
	assert.Equal(t, "#ff0000", cats[0].Color)
	assert.Equal(t, "home", cats[1].Name)
	assert.Nil(t, Categories(Settings{}))
}

func TestFingerprintChangesWithValues(t *testing.T) {
	a := Settings{KeyDateTrigger: "@", KeyLinkDates: false}
	b := Settings{KeyDateTrigger: "@", KeyLinkDates: true}
	keys := []string{KeyDateTrigger, KeyLinkDates}
	assert.Equal(t, Fingerprint(a, keys...), Fingerprint(Merge(a, nil), keys...))
	assert.NotEqual(t, Fingerprint(a, keys...), Fingerprint(b, keys...))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(Defaults()))
	require.NoError(t, Validate(Settings{"unknown-key": 42}))

	err := Validate(Settings{KeyDateTrigger: ""})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	assert.Equal(t, KeyDateTrigger, ve.Key)

	err = Validate(Settings{KeyPriorityTrigger: "a b"})
	require.Error(t, err)

	err = Validate(Settings{KeyInsertionMethod: "sideways"})
	require.Error(t, err)

	err = Validate(Settings{KeyLinkDates: "yes"})
	require.Error(t, err)
}
