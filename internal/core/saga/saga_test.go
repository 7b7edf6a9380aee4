package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/tx"
)

func TestSaga_UndoInReverseOrder(t *testing.T) {
	ctx := context.Background()
	var log []string

	step := func(name string, fail bool) Step {
		return Step{
			Name: name,
			Do: func(context.Context) error {
				if fail {
					return errors.New(name + " failed")
				}
				log = append(log, "do "+name)
				return nil
			},
			Undo: func(context.Context) error {
				log = append(log, "undo "+name)
				return nil
			},
		}
	}

	s := New("test")
	require.NoError(t, s.Run(ctx, step("a", false)))
	require.NoError(t, s.Run(ctx, step("b", false)))
	err := s.Run(ctx, step("c", true))

	require.Error(t, err)
	assert.EqualError(t, errors.Unwrap(err), "c failed")
	assert.True(t, IsClean(err))
	assert.Equal(t, []string{"do a", "do b", "undo b", "undo a"}, log)
	assert.Equal(t, 0, s.Completed())
}

func TestSaga_UndoFailureKeepsOriginalError(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("boom")

	s := New("test")
	require.NoError(t, s.Run(ctx, Step{
		Name: "first",
		Do:   func(context.Context) error { return nil },
		Undo: func(context.Context) error { return errors.New("cannot undo") },
	}))
	err := s.Run(ctx, Step{Name: "second", Do: func(context.Context) error { return cause }})

	assert.ErrorIs(t, err, cause)
	assert.False(t, IsClean(err))

	var aborted *AbortedError
	require.ErrorAs(t, err, &aborted)
	assert.Equal(t, "second", aborted.Step)
	assert.Len(t, aborted.UndoErrors, 1)
}

func TestSaga_UndoRunsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	undone := false

	s := New("test")
	require.NoError(t, s.Run(ctx, Step{
		Name: "first",
		Do:   func(context.Context) error { return nil },
		Undo: func(c context.Context) error {
			undone = c.Err() == nil
			return nil
		},
	}))
	cancel()

	err := s.Abort(ctx, context.Canceled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, undone)
}

func TestSaga_AtomicContextSkipsUndo(t *testing.T) {
	ctx := tx.WithAtomic(context.Background())
	undone := false

	s := New("test")
	require.NoError(t, s.Run(ctx, Step{
		Name: "write",
		Do:   func(context.Context) error { return nil },
		Undo: func(context.Context) error {
			undone = true
			return errors.New("current transaction is aborted")
		},
	}))
	err := s.Run(ctx, Step{Name: "fail", Do: func(context.Context) error { return errors.New("unique violation") }})

	require.Error(t, err)
	assert.False(t, undone)
	assert.True(t, IsClean(err))
	assert.Equal(t, 0, s.Completed())
}
