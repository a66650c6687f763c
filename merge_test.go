package classmodel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Facepunch/react-class-model/classmodel_errors"
)

func TestMergeOmissionPreserves(t *testing.T) {
	p := &Point{X: 10}
	changed, err := MergePlain(p, map[string]any{})
	assert.Nil(t, err)
	assert.False(t, changed)
	assert.Equal(t, 10, p.X)
}

func TestMergeExplicitNullClears(t *testing.T) {
	p := &Point{X: 10}
	changed, err := MergePlain(p, map[string]any{"x": nil})
	assert.Nil(t, err)
	assert.True(t, changed)
	assert.Nil(t, p.X)

	// clearing an already-null field is not a change
	changed, err = MergePlain(p, map[string]any{"x": nil})
	assert.Nil(t, err)
	assert.False(t, changed)
}

func TestMergeIdempotence(t *testing.T) {
	incoming := map[string]any{
		"name": "reds",
		"players": []any{
			map[string]any{"id": float64(1), "name": "One"},
			map[string]any{"id": float64(2), "name": "Two"},
		},
		"stats":   map[string]any{"wins": map[string]any{"value": float64(3)}},
		"created": float64(1700000000),
	}
	team := &Team{}
	changed, err := MergePlain(team, incoming)
	require.Nil(t, err)
	assert.True(t, changed)

	changed, err = MergePlain(team, incoming)
	require.Nil(t, err)
	assert.False(t, changed, "second application of the same data must be a no-op")
}

func TestMergeLeafChangeDetection(t *testing.T) {
	team := &Team{Name: "reds"}
	changed, err := MergePlain(team, map[string]any{"name": "reds"})
	assert.Nil(t, err)
	assert.False(t, changed)

	changed, err = MergePlain(team, map[string]any{"name": "blues"})
	assert.Nil(t, err)
	assert.True(t, changed)
	assert.Equal(t, "blues", team.Name)
}

func TestMergeCopyOnlyAlwaysChanged(t *testing.T) {
	team := &Team{Meta: map[string]any{"a": 1.0}}
	changed, err := MergePlain(team, map[string]any{"meta": map[string]any{"a": 1.0}})
	assert.Nil(t, err)
	assert.True(t, changed, "copy-only assignment is conservatively a change")
}

func TestMergeNestedKeepsIdentity(t *testing.T) {
	team := &Team{}
	_, err := MergePlain(team, map[string]any{
		"players": []any{map[string]any{"id": float64(5), "name": "Five"}},
	})
	require.Nil(t, err)
	require.Len(t, team.Players, 1)
	first := team.Players[0]

	changed, err := MergePlain(team, map[string]any{
		"players": []any{map[string]any{"id": float64(5), "name": "Cinq"}},
	})
	require.Nil(t, err)
	assert.True(t, changed)
	assert.Same(t, first, team.Players[0], "matching entry keeps its identity")
	assert.Equal(t, "Cinq", first.Name)
}

func TestMergeUnkeyedListByIndex(t *testing.T) {
	team := &Team{Medals: []*Medal{{Title: "gold"}, {Title: "silver"}, {Title: "bronze"}}}
	keep := team.Medals[0]
	changed, err := MergePlain(team, map[string]any{
		"medals": []any{
			map[string]any{"title": "gold"},
			map[string]any{"title": "wood"},
		},
	})
	require.Nil(t, err)
	assert.True(t, changed)
	require.Len(t, team.Medals, 2, "excess entries beyond incoming length are dropped")
	assert.Same(t, keep, team.Medals[0])
	assert.Equal(t, "wood", team.Medals[1].Title)
}

func TestMergeMapNeverDeletes(t *testing.T) {
	team := &Team{Stats: map[string]*Stat{"x": {Value: 1}}}
	existing := team.Stats["x"]
	changed, err := MergePlain(team, map[string]any{
		"stats": map[string]any{"y": map[string]any{"value": float64(2)}},
	})
	require.Nil(t, err)
	assert.True(t, changed)
	assert.Same(t, existing, team.Stats["x"], "keys absent from incoming stay untouched")
	assert.Equal(t, int64(2), team.Stats["y"].Value)
}

func TestMergeMapInPlace(t *testing.T) {
	team := &Team{Stats: map[string]*Stat{"x": {Value: 1}}}
	existing := team.Stats["x"]
	changed, err := MergePlain(team, map[string]any{
		"stats": map[string]any{"x": map[string]any{"value": float64(9)}},
	})
	require.Nil(t, err)
	assert.True(t, changed)
	assert.Same(t, existing, team.Stats["x"])
	assert.Equal(t, int64(9), existing.Value)
}

func TestMergeMapInitialized(t *testing.T) {
	team := &Team{}
	changed, err := MergePlain(team, map[string]any{
		"stats": map[string]any{"x": map[string]any{"value": float64(1)}},
	})
	require.Nil(t, err)
	assert.True(t, changed)
	require.NotNil(t, team.Stats)
	assert.Equal(t, int64(1), team.Stats["x"].Value)
}

func TestMergeUnkeyedListNullEntry(t *testing.T) {
	team := &Team{Medals: []*Medal{{Title: "gold"}, {Title: "silver"}}}
	keep := team.Medals[0]
	changed, err := MergePlain(team, map[string]any{
		"medals": []any{map[string]any{"title": "gold"}, nil},
	})
	require.Nil(t, err)
	assert.True(t, changed)
	require.Len(t, team.Medals, 2)
	assert.Same(t, keep, team.Medals[0])
	assert.Nil(t, team.Medals[1], "a null entry clears its slot")

	// an already-null slot stays a non-change
	changed, err = MergePlain(team, map[string]any{
		"medals": []any{map[string]any{"title": "gold"}, nil},
	})
	require.Nil(t, err)
	assert.False(t, changed)
}

func TestMergeMapNullValue(t *testing.T) {
	team := &Team{Stats: map[string]*Stat{"x": {Value: 1}, "y": {Value: 2}}}
	changed, err := MergePlain(team, map[string]any{
		"stats": map[string]any{"x": nil},
	})
	require.Nil(t, err)
	assert.True(t, changed)
	assert.Nil(t, team.Stats["x"], "a null value clears the key in place")
	assert.Equal(t, int64(2), team.Stats["y"].Value)

	// clearing a missing or already-cleared key is a no-op
	changed, err = MergePlain(team, map[string]any{
		"stats": map[string]any{"x": nil, "z": nil},
	})
	require.Nil(t, err)
	assert.False(t, changed)
}

func TestMergeMapAllNullKeepsNilMap(t *testing.T) {
	team := &Team{}
	changed, err := MergePlain(team, map[string]any{
		"stats": map[string]any{"x": nil},
	})
	require.Nil(t, err)
	assert.False(t, changed)
	assert.Nil(t, team.Stats, "clearing keys of a nil map does not materialize one")
}

func TestMergeNilInstance(t *testing.T) {
	_, err := MergePlain(nil, map[string]any{"x": 1.0})
	assert.ErrorIs(t, err, classmodel_errors.ErrNoMetadata)
}

func TestMergeScalarConverter(t *testing.T) {
	team := &Team{}
	changed, err := MergePlain(team, map[string]any{"created": float64(1700000000)})
	require.Nil(t, err)
	assert.True(t, changed)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), team.Created)

	// the same instant expressed again is not a change
	changed, err = MergePlain(team, map[string]any{"created": float64(1700000000)})
	require.Nil(t, err)
	assert.False(t, changed)
}

func TestMergeUnregisteredType(t *testing.T) {
	type stray struct{}
	_, err := MergePlain(&stray{}, map[string]any{})
	assert.ErrorIs(t, err, classmodel_errors.ErrNoMetadata)
}

func TestRoundTrip(t *testing.T) {
	team := &Team{
		Name: "reds",
		Players: []*Player{
			{ID: 1, Name: "One"},
			{ID: 2, Name: "Two"},
		},
		Stats:   map[string]*Stat{"wins": {Value: 3}},
		Created: time.Unix(1700000000, 0).UTC(),
	}
	data, err := Serialize(team)
	require.Nil(t, err)

	back, err := FromJSON[Team](data)
	require.Nil(t, err)

	changed, err := MergePlain(back, map[string]any{})
	require.Nil(t, err)
	assert.False(t, changed, "an empty merge leaves a round-tripped instance clean")

	assert.Equal(t, team.Name, back.Name)
	require.Len(t, back.Players, 2)
	assert.Equal(t, team.Players[1].Name, back.Players[1].Name)
	assert.Equal(t, team.Created, back.Created)
	assert.True(t, Equal(team, back))
}

func TestDeserializeInto(t *testing.T) {
	team := &Team{Name: "reds"}
	changed, err := DeserializeInto(team, []byte(`{"name":"blues"}`))
	assert.Nil(t, err)
	assert.True(t, changed)
	assert.Equal(t, "blues", team.Name)
}
