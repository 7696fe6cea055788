package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordoff/server/internal/game"
)

func TestAdd_NoMatchWithOnePlayer(t *testing.T) {
	q := New()
	m := q.Add("c1", game.Player{ID: "p1", Username: "alice"})
	assert.Nil(t, m)
	assert.Equal(t, 1, q.Len())
}

func TestAdd_PairsTwoOldestFIFO(t *testing.T) {
	q := New()
	require.Nil(t, q.Add("c1", game.Player{Username: "alice"}))
	m := q.Add("c2", game.Player{Username: "bob"})

	require.NotNil(t, m)
	assert.NotEmpty(t, m.ID)
	require.Len(t, m.Players, 2)
	assert.Equal(t, "c1", m.Players[0].ConnID, "oldest entry dequeues first")
	assert.Equal(t, "c2", m.Players[1].ConnID)
	assert.Equal(t, 0, q.Len())
}

func TestAdd_ThirdPlayerWaits(t *testing.T) {
	q := New()
	q.Add("c1", game.Player{Username: "alice"})
	q.Add("c2", game.Player{Username: "bob"})
	m := q.Add("c3", game.Player{Username: "carol"})
	assert.Nil(t, m)
	assert.Equal(t, 1, q.Len())
}

// Re-joining replaces the stale entry; a player can never match themselves.
func TestAdd_IdempotentRejoin(t *testing.T) {
	q := New()
	require.Nil(t, q.Add("c1", game.Player{Username: "alice"}))
	m := q.Add("c1", game.Player{Username: "alice"})
	assert.Nil(t, m)
	assert.Equal(t, 1, q.Len())
}

// A re-join refreshes the entry rather than duplicating it.
func TestAdd_RejoinStillPairs(t *testing.T) {
	q := New()
	require.Nil(t, q.Add("a", game.Player{Username: "a"}))
	require.Nil(t, q.Add("a", game.Player{Username: "a"}))
	m := q.Add("b", game.Player{Username: "b"})
	require.NotNil(t, m)
	assert.Equal(t, "a", m.Players[0].ConnID)
}

func TestRemove_NoOpWhenAbsent(t *testing.T) {
	q := New()
	q.Remove("ghost")
	assert.Equal(t, 0, q.Len())
}

func TestRemove_DropsEntry(t *testing.T) {
	q := New()
	q.Add("c1", game.Player{Username: "alice"})
	q.Remove("c1")
	assert.Equal(t, 0, q.Len())

	// With c1 gone, c2 should wait rather than match.
	m := q.Add("c2", game.Player{Username: "bob"})
	assert.Nil(t, m)
}

func TestMatchIDsAreUnique(t *testing.T) {
	q := New()
	q.Add("c1", game.Player{})
	m1 := q.Add("c2", game.Player{})
	q.Add("c3", game.Player{})
	m2 := q.Add("c4", game.Player{})
	require.NotNil(t, m1)
	require.NotNil(t, m2)
	assert.NotEqual(t, m1.ID, m2.ID)
}
