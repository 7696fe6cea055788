// internal/queue/queue.go
//
// FIFO matchmaking queue. Pairing is strictly oldest-two-first: no rank
// weighting, no timeout widening. The queue owns nothing beyond waiting
// entries; formed matches are handed back to the caller.
package queue

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wordoff/server/internal/game"
)

// Entry is one waiting participant.
type Entry struct {
	Participant game.Participant
	JoinedAt    time.Time
}

// Match is a formed pairing: a fresh id plus the two dequeued entries,
// oldest first.
type Match struct {
	ID      string
	Players []game.Participant
}

// Queue is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	waiting []Entry
}

// New constructs an empty queue.
func New() *Queue {
	return &Queue{}
}

// Add enqueues a participant and attempts a match. Re-joining with the
// same connection id first drops the stale entry, so Add is idempotent
// per connection.
func (q *Queue) Add(connID string, p game.Player) *Match {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.removeLocked(connID)
	q.waiting = append(q.waiting, Entry{
		Participant: game.Participant{ConnID: connID, Player: p},
		JoinedAt:    time.Now(),
	})
	return q.findMatchLocked()
}

// Remove drops connID's entry if present. Never fails.
func (q *Queue) Remove(connID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeLocked(connID)
}

func (q *Queue) removeLocked(connID string) {
	for i, e := range q.waiting {
		if e.Participant.ConnID == connID {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return
		}
	}
}

// Len reports the number of waiting participants.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

// findMatchLocked dequeues the two oldest entries when at least two are
// waiting; otherwise reports no match.
func (q *Queue) findMatchLocked() *Match {
	if len(q.waiting) < 2 {
		return nil
	}
	p1, p2 := q.waiting[0], q.waiting[1]
	q.waiting = q.waiting[2:]
	return &Match{
		ID:      uuid.NewString(),
		Players: []game.Participant{p1.Participant, p2.Participant},
	}
}
