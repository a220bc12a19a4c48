package queue

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func approvedFixture(t *testing.T, count int) (*Store, *Engine, []string) {
	t.Helper()
	s := NewStore()
	m := NewMachine(s)
	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		r := s.Create(newTestMeta(fmt.Sprintf("R%d", i+1), fmt.Sprintf("ref%d", i+1)))
		_, err := m.Approve(r.ID)
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}
	return s, NewEngine(s), ids
}

func TestEngine_ReorderPreservesNowPlaying(t *testing.T) {
	s, e, ids := approvedFixture(t, 3)
	r1, r2, r3 := ids[0], ids[1], ids[2]

	// reorder([R3, R2]) while R1 is now-playing -> R1, R3, R2.
	require.NoError(t, e.Reorder([]string{r3, r2}))

	now, ok := s.NowPlaying()
	require.True(t, ok)
	assert.Equal(t, r1, now.ID)

	upcoming := s.Upcoming()
	require.Len(t, upcoming, 2)
	assert.Equal(t, r3, upcoming[0].ID)
	assert.Equal(t, r2, upcoming[1].ID)
	assert.Greater(t, upcoming[0].Order, now.Order)
}

func TestEngine_ReorderRejectsMismatchedSets(t *testing.T) {
	tests := []struct {
		name string
		ids  func(upcoming []string) []string
	}{
		{
			name: "partial set",
			ids:  func(up []string) []string { return up[:1] },
		},
		{
			name: "foreign id",
			ids:  func(up []string) []string { return []string{up[0], "foreign-id"} },
		},
		{
			name: "duplicate id",
			ids:  func(up []string) []string { return []string{up[0], up[0]} },
		},
		{
			name: "includes now-playing",
			ids:  func(up []string) []string { return append([]string{"now-playing"}, up...) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, e, _ := approvedFixture(t, 3)
			before := s.Upcoming()
			up := []string{before[0].ID, before[1].ID}

			ids := tt.ids(up)
			if tt.name == "includes now-playing" {
				now, _ := s.NowPlaying()
				ids = append([]string{now.ID}, up...)
			}

			err := e.Reorder(ids)
			assert.ErrorIs(t, err, ErrInvalidArgument)

			// Order is unchanged on failure.
			after := s.Upcoming()
			require.Len(t, after, len(before))
			for i := range before {
				assert.Equal(t, before[i].ID, after[i].ID)
			}
		})
	}
}

func TestEngine_ShuffleTrivialCases(t *testing.T) {
	// Empty queue.
	s := NewStore()
	e := NewEngine(s)
	assert.NoError(t, e.Shuffle())

	// Single upcoming request.
	s2, e2, ids := approvedFixture(t, 2)
	require.NoError(t, e2.Shuffle())
	upcoming := s2.Upcoming()
	require.Len(t, upcoming, 1)
	assert.Equal(t, ids[1], upcoming[0].ID)
}

func TestEngine_ShuffleIsRoughlyUniform(t *testing.T) {
	s, e, ids := approvedFixture(t, 4)
	r1 := ids[0]

	const trials = 600
	counts := make(map[string]int)
	for i := 0; i < trials; i++ {
		require.NoError(t, e.Shuffle())

		now, ok := s.NowPlaying()
		require.True(t, ok)
		assert.Equal(t, r1, now.ID)

		upcoming := s.Upcoming()
		require.Len(t, upcoming, 3)
		key := make([]string, 3)
		for j, r := range upcoming {
			key[j] = r.ID
		}
		counts[strings.Join(key, ",")]++
	}

	// All 6 permutations of the 3 upcoming requests should appear, each
	// with a frequency not wildly far from trials/6.
	require.Len(t, counts, 6)
	for perm, n := range counts {
		assert.Greater(t, n, trials/18, "permutation %s underrepresented", perm)
	}
}
