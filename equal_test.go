package classmodel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type money struct {
	cents int64
}

func (m money) Equal(other any) bool {
	o, ok := other.(money)
	return ok && o.cents == m.cents
}

func TestEqualNumbers(t *testing.T) {
	assert.True(t, Equal(int64(10), float64(10)))
	assert.True(t, Equal(10, uint64(10)))
	assert.False(t, Equal(int64(10), float64(10.5)))
	assert.False(t, Equal(int64(10), "10"))
}

func TestEqualNilAndAbsent(t *testing.T) {
	assert.True(t, Equal(nil, nil))
	assert.True(t, Equal(Absent, Absent))
	assert.False(t, Equal(Absent, nil))
	var p *Player
	assert.True(t, Equal(p, nil), "a typed nil pointer is null")
}

func TestEqualTimestampAgainstEpochSeconds(t *testing.T) {
	at := time.Unix(1700000000, 0)
	assert.True(t, Equal(at, float64(1700000000)))
	assert.True(t, Equal(float64(1700000000), at))
	assert.True(t, Equal(at, at.UTC()))
	assert.False(t, Equal(at, float64(1700000001)))
}

func TestEqualValueObjects(t *testing.T) {
	assert.True(t, Equal(money{100}, money{100}))
	assert.False(t, Equal(money{100}, money{200}))
}

func TestEqualStructural(t *testing.T) {
	assert.True(t, Equal([]any{1.0, "a"}, []any{1.0, "a"}))
	assert.False(t, Equal([]any{1.0}, []any{1.0, 2.0}))
	assert.True(t, Equal(
		map[string]any{"a": 1.0, "b": []any{true}},
		map[string]any{"a": 1.0, "b": []any{true}}))
	assert.False(t, Equal(
		map[string]any{"a": 1.0},
		map[string]any{"a": 2.0}))
}

func TestEqualRegisteredModels(t *testing.T) {
	assert.True(t, Equal(&Player{ID: 1, Name: "x"}, &Player{ID: 1, Name: "x"}))
	assert.False(t, Equal(&Player{ID: 1, Name: "x"}, &Player{ID: 1, Name: "y"}))
}

func TestEqualCrossWidthInSlices(t *testing.T) {
	assert.True(t, Equal([]any{int64(1)}, []any{float64(1)}))
}
