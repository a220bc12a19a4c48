package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/vibeq/internal/domain/request"
)

func TestMachine_ApproveAppendsToQueue(t *testing.T) {
	s := NewStore()
	m := NewMachine(s)

	r1 := s.Create(newTestMeta("R1", "ref1"))
	r2 := s.Create(newTestMeta("R2", "ref2"))
	r3 := s.Create(newTestMeta("R3", "ref3"))

	for _, id := range []string{r1.ID, r2.ID, r3.ID} {
		_, err := m.Approve(id)
		require.NoError(t, err)
	}

	// Approving 3 pending requests in order yields R1 now-playing
	// and [R2, R3] upcoming.
	now, ok := m.NowPlaying()
	require.True(t, ok)
	assert.Equal(t, r1.ID, now.ID)

	upcoming := s.Upcoming()
	require.Len(t, upcoming, 2)
	assert.Equal(t, r2.ID, upcoming[0].ID)
	assert.Equal(t, r3.ID, upcoming[1].ID)
}

func TestMachine_ApproveErrors(t *testing.T) {
	s := NewStore()
	m := NewMachine(s)

	_, err := m.Approve("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	r := s.Create(newTestMeta("R", "ref"))
	other := s.Create(newTestMeta("Other", "refO"))
	approved, err := m.Approve(r.ID)
	require.NoError(t, err)
	_, err = m.Approve(other.ID)
	require.NoError(t, err)

	// A second approve of r lost the race for the PENDING check: it must
	// not commit, so r keeps its order and stays now-playing.
	_, err = m.Approve(r.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	got, err := s.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, approved.Order, got.Order)

	now, ok := m.NowPlaying()
	require.True(t, ok)
	assert.Equal(t, r.ID, now.ID)
}

func TestMachine_DenyAndRemove(t *testing.T) {
	s := NewStore()
	m := NewMachine(s)

	pending := s.Create(newTestMeta("P", "refP"))
	approved := s.Create(newTestMeta("A", "refA"))
	_, err := m.Approve(approved.ID)
	require.NoError(t, err)

	// Deny works on PENDING only.
	_, err = m.Deny(approved.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	denied, err := m.Deny(pending.ID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusRejected, denied.Status)

	// Remove works on APPROVED only.
	_, err = m.Remove(pending.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	removed, err := m.Remove(approved.ID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusRejected, removed.Status)

	_, ok := m.NowPlaying()
	assert.False(t, ok)
}

func TestMachine_MarkPlayed(t *testing.T) {
	s := NewStore()
	m := NewMachine(s)

	r1 := s.Create(newTestMeta("R1", "ref1"))
	r2 := s.Create(newTestMeta("R2", "ref2"))
	for _, id := range []string{r1.ID, r2.ID} {
		_, err := m.Approve(id)
		require.NoError(t, err)
	}

	// Only the now-playing request can be marked played.
	_, err := m.MarkPlayed(r2.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	played, err := m.MarkPlayed(r1.ID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusCompleted, played.Status)

	// A duplicate completion signal for the same request is rejected.
	_, err = m.MarkPlayed(r1.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	now, ok := m.NowPlaying()
	require.True(t, ok)
	assert.Equal(t, r2.ID, now.ID)

	_, err = m.MarkPlayed("unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMachine_ClearAll(t *testing.T) {
	s := NewStore()
	m := NewMachine(s)

	r := s.Create(newTestMeta("R", "ref"))
	_, err := m.Approve(r.ID)
	require.NoError(t, err)

	m.ClearAll()
	assert.Equal(t, 0, s.Len())

	// Idempotent: a second reset of an empty store is fine.
	m.ClearAll()
	assert.Equal(t, 0, s.Len())
}
