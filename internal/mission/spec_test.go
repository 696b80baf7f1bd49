package mission

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	spec, err := Parse(`
name: patrol
description: loop the perimeter
destinations: [north, east, south, west, home]
speed: 0.3
`)
	require.NoError(t, err)
	require.Equal(t, "patrol", spec.Name)
	require.Len(t, spec.Destinations, 5)

	cmd := spec.ToStartMission()
	require.Equal(t, spec.Destinations, cmd.Destinations)
	require.Equal(t, 0.3, cmd.Speed)
}

func TestParseRejectsInvalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"bad yaml", "destinations: ["},
		{"missing name", "destinations: [north]"},
		{"no destinations", "name: x\ndestinations: []"},
		{"unknown destination", "name: x\ndestinations: [atlantis]"},
		{"negative speed", "name: x\ndestinations: [north]\nspeed: -1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(tc.raw)
			require.Error(t, err)
		})
	}
}
