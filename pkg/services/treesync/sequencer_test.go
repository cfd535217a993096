package treesync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTask(id uint64) task {
	return task{frame: &Frame{ReqID: id}}
}

func TestSequencer(t *testing.T) {
	s := newSequencer(3)

	require.True(t, s.push(1, newTask(1)))
	require.True(t, s.push(2, newTask(2)))
	require.False(t, s.push(2, newTask(2)), "duplicate id")
	require.True(t, s.push(3, newTask(3)))
	require.False(t, s.push(4, newTask(4)), "queue is full")
	require.Equal(t, 3, s.len())

	require.True(t, s.abort(2))
	require.False(t, s.abort(2))

	ctx := context.Background()
	for _, id := range []uint64{1, 3} {
		tk, tctx, err := s.pop(ctx)
		require.NoError(t, err)
		require.Equal(t, id, tk.frame.ReqID)

		if id == 3 {
			require.False(t, s.abort(1))
			require.True(t, s.abort(3))
			require.ErrorIs(t, tctx.Err(), context.Canceled)
		} else {
			require.NoError(t, tctx.Err())
		}
		s.done()
	}
	require.Equal(t, 0, s.len())
	require.False(t, s.abort(3))

	t.Run("wait", func(t *testing.T) {
		go func() {
			time.Sleep(10 * time.Millisecond)
			s.push(5, newTask(5))
		}()

		tk, _, err := s.pop(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 5, tk.frame.ReqID)
		s.done()
	})
	t.Run("cancel", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()

		_, _, err := s.pop(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
