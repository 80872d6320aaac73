package logentry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDirection(t *testing.T) {
	t.Parallel()

	fwd, err := ParseDirection("forward")
	require.NoError(t, err)
	require.Equal(t, Forward, fwd)
	require.Equal(t, "ASC", fwd.Order())
	require.Equal(t, ">=", fwd.Operator())

	bwd, err := ParseDirection("backward")
	require.NoError(t, err)
	require.Equal(t, Backward, bwd)
	require.Equal(t, "DESC", bwd.Order())
	require.Equal(t, "<=", bwd.Operator())

	for _, raw := range []string{"sideways", "", "FORWARDS", "asc"} {
		_, err := ParseDirection(raw)
		require.ErrorIs(t, err, ErrInvalidDirection, raw)
	}
}

func TestDirection_StringRoundTrip(t *testing.T) {
	t.Parallel()

	for _, d := range []Direction{Forward, Backward} {
		parsed, err := ParseDirection(d.String())
		require.NoError(t, err)
		require.Equal(t, d, parsed)
	}
	require.False(t, Direction(0).Valid())
	require.Equal(t, "invalid", Direction(7).String())
}

func TestNewCursor(t *testing.T) {
	t.Parallel()

	c, err := NewCursor(10, 5, "backward")
	require.NoError(t, err)
	require.Equal(t, Cursor{Offset: 10, Limit: 5, Direction: Backward}, c)

	_, err = NewCursor(10, 5, "sideways")
	require.ErrorIs(t, err, ErrInvalidDirection)

	_, err = NewCursor(10, 0, "forward")
	require.ErrorIs(t, err, ErrInvalidLimit)

	require.ErrorIs(t, Cursor{Limit: 1}.Validate(), ErrInvalidDirection)
}

func TestCursor_Next(t *testing.T) {
	t.Parallel()

	page := []LogEntry{{ID: 3}, {ID: 4}, {ID: 7}}

	next, ok := Cursor{Offset: 3, Limit: 3, Direction: Forward}.Next(page)
	require.True(t, ok)
	require.Equal(t, int64(8), next.Offset)

	back := []LogEntry{{ID: 7}, {ID: 4}}
	next, ok = Cursor{Offset: 7, Limit: 2, Direction: Backward}.Next(back)
	require.True(t, ok)
	require.Equal(t, int64(3), next.Offset)

	_, ok = Cursor{Offset: 1, Limit: 1, Direction: Forward}.Next(nil)
	require.False(t, ok)
}
