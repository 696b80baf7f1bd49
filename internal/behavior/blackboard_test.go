package behavior

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlackboardBasics(t *testing.T) {
	t.Parallel()

	bb := NewBlackboard()
	require.Nil(t, bb.Get("missing"))
	require.False(t, bb.Has("missing"))

	bb.Set("speed", 0.25)
	bb.Set("name", "tb-1")
	bb.Set("charging", true)

	require.Equal(t, 0.25, bb.GetFloat64("speed"))
	require.Equal(t, "tb-1", bb.GetString("name"))
	require.True(t, bb.GetBool("charging"))
	require.ElementsMatch(t, []string{"speed", "name", "charging"}, bb.Keys())

	// Typed getters fall back to zero values on mismatch.
	require.Zero(t, bb.GetFloat64("name"))
	require.Empty(t, bb.GetString("speed"))

	bb.Delete("speed")
	require.False(t, bb.Has("speed"))
}

func TestBlackboardConcurrentAccess(t *testing.T) {
	t.Parallel()

	bb := NewBlackboard()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bb.Set("k", j)
				_ = bb.Get("k")
				_ = bb.Keys()
			}
		}()
	}
	wg.Wait()
	require.True(t, bb.Has("k"))
}
