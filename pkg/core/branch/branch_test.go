package branch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfig_ID(t *testing.T) {
	c := Config{GroupCount: 64, Timespan: 10000, StartTime: 0}

	testCases := []struct {
		time     int64
		expected uint64
	}{
		{0, 1},
		{1, 1},
		{5000, 1},
		{9999, 1},
		{10000, 2},
		{10001, 2},
		{20000, 3},
	}

	for _, tc := range testCases {
		actual, err := c.ID(tc.time)
		require.NoError(t, err)
		require.Equal(t, tc.expected, actual, "time %d", tc.time)
	}

	t.Run("before start", func(t *testing.T) {
		c := Config{GroupCount: 64, Timespan: 10000, StartTime: 100}
		_, err := c.ID(99)
		require.ErrorIs(t, err, ErrTimeOutOfRange)
	})
}

func TestConfig_Parent(t *testing.T) {
	c := Config{GroupCount: 4, Timespan: 1}

	testCases := []struct {
		id, parent uint64
	}{
		{0, 1},
		{1, 1},
		{3, 1},
		{4, 2},
		{7, 2},
		{8, 3},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.parent, c.Parent(tc.id), "id %d", tc.id)
	}
}

func TestConfig_ChildRange(t *testing.T) {
	c := Config{GroupCount: 4, Timespan: 1}

	for parent := uint64(1); parent < 10; parent++ {
		start, end := c.ChildRange(parent)
		require.Equal(t, uint64(c.GroupCount)-1, end-start)
		for id := start; id <= end; id++ {
			require.Equal(t, parent, c.Parent(id))
		}
		require.NotEqual(t, parent, c.Parent(end+1))
	}
}

func TestConfig_Height(t *testing.T) {
	c := Config{GroupCount: 4, Timespan: 1}

	require.Equal(t, 0, c.Height(1))
	require.Equal(t, 1, c.Height(2))
	require.Equal(t, 1, c.Height(3))
	require.Equal(t, 2, c.Height(4))
	require.Equal(t, 3, c.Height(16))
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, Config{GroupCount: 2, Timespan: 1}.Validate())
	require.Error(t, Config{GroupCount: 1, Timespan: 1}.Validate())
	require.Error(t, Config{GroupCount: 64}.Validate())
}
