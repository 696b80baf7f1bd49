package behavior

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunToCompletion(t *testing.T) {
	t.Parallel()

	var seen []Status
	root := count(Sequence(runThen(StatusSuccess, 2)))
	status, err := Run(context.Background(), root, NewBlackboard(), time.Millisecond, func(s Status) {
		seen = append(seen, s)
	})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, status)
	require.Equal(t, []Status{StatusRunning, StatusRunning, StatusSuccess}, seen)
	require.Equal(t, 1, root.enters)
	require.Equal(t, 1, root.exits)
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	root := count(alwaysRunning())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	status, err := Run(ctx, root, NewBlackboard(), time.Millisecond, nil)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, StatusRunning, status)
	require.Equal(t, 1, root.exits)
}

// An action error aborts the run; the root is still exited exactly once.
func TestRunPropagatesError(t *testing.T) {
	t.Parallel()

	boom := errors.New("motor fault")
	root := count(Action("fault", func(ctx context.Context, bb *Blackboard) (Status, error) {
		return StatusFailure, boom
	}))
	_, err := Run(context.Background(), root, NewBlackboard(), time.Millisecond, nil)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, root.enters)
	require.Equal(t, 1, root.exits)
}

func TestRunRejectsBadInterval(t *testing.T) {
	t.Parallel()

	root := count(alwaysOK())
	_, err := Run(context.Background(), root, NewBlackboard(), 0, nil)
	require.Error(t, err)
	require.Equal(t, 0, root.enters)
}
