package behavior

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

const keyCount = "count"

func guardTrue(ctx context.Context, bb *Blackboard) bool  { return true }
func guardFalse(ctx context.Context, bb *Blackboard) bool { return false }

// falseAfter fails the guard once the blackboard counter reaches max.
func falseAfter(max int) Predicate {
	return func(ctx context.Context, bb *Blackboard) bool {
		n, _ := bb.Get(keyCount).(int)
		return n < max
	}
}

func TestFailsafe(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		guard    Predicate
		primary  func(t *testing.T) Node
		fallback func(t *testing.T) Node
		expected []Status
	}{
		{"guard holds, primary succeeds", guardTrue,
			func(t *testing.T) Node { return alwaysOK() },
			func(t *testing.T) Node { return neverRuns(t) },
			[]Status{StatusSuccess}},
		{"guard holds, primary fails", guardTrue,
			func(t *testing.T) Node { return alwaysFail() },
			func(t *testing.T) Node { return neverRuns(t) },
			[]Status{StatusFailure}},
		{"guard holds, primary runs", guardTrue,
			func(t *testing.T) Node { return alwaysRunning() },
			func(t *testing.T) Node { return neverRuns(t) },
			[]Status{StatusRunning, StatusRunning}},
		{"guard fails immediately, fallback succeeds", guardFalse,
			func(t *testing.T) Node { return neverRuns(t) },
			func(t *testing.T) Node { return alwaysOK() },
			[]Status{StatusSuccess}},
		{"guard fails immediately, fallback fails", guardFalse,
			func(t *testing.T) Node { return neverRuns(t) },
			func(t *testing.T) Node { return alwaysFail() },
			[]Status{StatusFailure}},
		{"guard fails immediately, fallback runs", guardFalse,
			func(t *testing.T) Node { return neverRuns(t) },
			func(t *testing.T) Node { return alwaysRunning() },
			[]Status{StatusRunning, StatusRunning}},
		{"primary terminal before guard flips", falseAfter(1),
			func(t *testing.T) Node { return alwaysFail() },
			func(t *testing.T) Node { return neverRuns(t) },
			[]Status{StatusFailure}},
		{"guard flips mid-run", falseAfter(1),
			func(t *testing.T) Node { return runThenFail() },
			func(t *testing.T) Node { return alwaysOK() },
			[]Status{StatusRunning, StatusSuccess}},
		{"guard flips, slow fallback", falseAfter(1),
			func(t *testing.T) Node { return runThenFail() },
			func(t *testing.T) Node { return runThenOK() },
			[]Status{StatusRunning, StatusRunning, StatusSuccess}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			root := Failsafe(tc.guard, tc.primary(t), tc.fallback(t))
			bb := NewBlackboard()
			tick := root.Enter()
			defer root.Exit()
			for i, want := range tc.expected {
				got, err := tick(context.Background(), bb)
				require.NoError(t, err)
				require.Equalf(t, want, got, "tick %d", i)
				n, _ := bb.Get(keyCount).(int)
				bb.Set(keyCount, n+1)
			}
		})
	}
}

// The switch to the fallback exits the primary's resources, and the guard
// is not consulted again while the fallback is active.
func TestFailsafeSwitchLifecycle(t *testing.T) {
	t.Parallel()

	guardCalls := 0
	guard := func(ctx context.Context, bb *Blackboard) bool {
		guardCalls++
		return guardCalls == 1
	}
	primary := count(alwaysRunning())
	fallback := count(runThen(StatusSuccess, 2))

	root := Failsafe(guard, primary, fallback)
	bb := NewBlackboard()
	tick := root.Enter()

	status, err := tick(context.Background(), bb)
	require.NoError(t, err)
	require.Equal(t, StatusRunning, status)
	require.Equal(t, 0, primary.exits)

	// Guard flips: primary exited on the spot, fallback from here on.
	status, err = tick(context.Background(), bb)
	require.NoError(t, err)
	require.Equal(t, StatusRunning, status)
	require.Equal(t, 1, primary.exits)

	for _, want := range []Status{StatusRunning, StatusSuccess} {
		status, err = tick(context.Background(), bb)
		require.NoError(t, err)
		require.Equal(t, want, status)
	}
	root.Exit()

	require.Equal(t, 2, guardCalls)
	require.Equal(t, 1, primary.enters)
	require.Equal(t, 1, primary.exits)
	require.Equal(t, 1, fallback.enters)
	require.Equal(t, 1, fallback.exits)
}

// A guard that fails on the very first tick means the primary is never
// entered at all.
func TestFailsafePrimaryNeverEntered(t *testing.T) {
	t.Parallel()

	primary := count(alwaysOK())
	root := Failsafe(guardFalse, primary, alwaysOK())
	tickAll(t, root, []Status{StatusSuccess})
	require.Equal(t, 0, primary.enters)
	require.Equal(t, 0, primary.exits)
}

func TestFailsafePanicsWhenTickedAfterComplete(t *testing.T) {
	t.Parallel()

	root := Failsafe(guardTrue, alwaysOK(), alwaysFail())
	tick := root.Enter()
	defer root.Exit()
	status, err := tick(context.Background(), NewBlackboard())
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, status)

	require.PanicsWithValue(t, ErrComplete, func() {
		_, _ = tick(context.Background(), NewBlackboard())
	})
}
