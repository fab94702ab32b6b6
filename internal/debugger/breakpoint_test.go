package debugger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakpoint_Matches(t *testing.T) {
	pos := Position{Line: 5, Column: 3}
	assert.True(t, AtLine(5).Matches(pos))
	assert.True(t, At(5, 3).Matches(pos))
	assert.False(t, At(5, 4).Matches(pos))
	assert.False(t, AtLine(6).Matches(pos))
	// column 0 is a real column, not a wildcard
	assert.False(t, At(5, 0).Matches(pos))
}

func TestBreakpoint_String(t *testing.T) {
	assert.Equal(t, "10:*", AtLine(10).String())
	assert.Equal(t, "10:5", At(10, 5).String())
	assert.Equal(t, "3:* i > 2", AtLine(3).When("i > 2").String())
}

func TestBreakpoints_AddRemove(t *testing.T) {
	var bps Breakpoints
	assert.Equal(t, 0, bps.Add(AtLine(1)))
	assert.Equal(t, 1, bps.Add(AtLine(2)))
	assert.Equal(t, 2, bps.Add(AtLine(1)))
	require.Equal(t, 3, bps.Len())

	removed, err := bps.RemoveAt(0)
	require.NoError(t, err)
	assert.Equal(t, AtLine(1), removed)
	assert.Equal(t, []Breakpoint{AtLine(2), AtLine(1)}, bps.List())

	_, err = bps.RemoveAt(2)
	assert.ErrorIs(t, err, ErrBreakpointIndex)
	_, err = bps.RemoveAt(-1)
	assert.ErrorIs(t, err, ErrBreakpointIndex)
	assert.Equal(t, 2, bps.Len())
}

func TestBreakpoints_ListIsCopy(t *testing.T) {
	var bps Breakpoints
	bps.Add(AtLine(1))
	list := bps.List()
	list[0].Line = 99
	assert.Equal(t, 1, bps.List()[0].Line)
}

func TestBreakpoints_Matching(t *testing.T) {
	var bps Breakpoints
	bps.Add(AtLine(4))
	bps.Add(At(4, 2).When("x"))
	bps.Add(At(4, 7))
	bps.Add(AtLine(5))
	got := bps.Matching(Position{Line: 4, Column: 2})
	assert.Equal(t, []Breakpoint{AtLine(4), At(4, 2).When("x")}, got)
	assert.Empty(t, bps.Matching(Position{Line: 1, Column: 1}))
}
