// internal/game/game.go
//
// Core engine for a single timed duel session.
// Responsibilities:
//   - Track per-participant score, word progress, and finished flags.
//   - Validate and apply guesses (case-insensitive, trimmed, +10 per hit).
//   - State transitions: active → finished (terminal, monotonic).
//   - Produce the authoritative result with winner/draw and RP changes.
//
// Notes:
//   - A Game never talks to the network; the gateway owns all broadcast
//     and timer concerns and mutates the game through these methods.
//   - Participants are keyed by connection id; identities are forwarded
//     opaquely from the client and never validated here.
package game

import (
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wordoff/server/internal/words"
)

const (
	// PointsPerWord is awarded for each correct guess.
	PointsPerWord = 10

	// ConcededScore ranks an explicit concession below any earned score.
	ConcededScore = -1

	// ForfeitScore is applied on disconnect. Distinct from ConcededScore:
	// a disconnector can still draw at 0-0, a conceder cannot.
	ForfeitScore = 0
)

// RP reward bounds for a ranked two-player result. Winner gains a draw
// from [RPMin, RPMax]; each loser independently loses one.
const (
	RPMin  = 18
	RPMax  = 23
	RPDraw = 5
)

// Player is the identity forwarded by the client for one participant.
// The engine stores and echoes it; the identity store owns its truth.
type Player struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	RankPoints int    `json:"rank_points"`
	RankTier   string `json:"rank_tier,omitempty"`
}

// Participant pairs a live connection id with its player identity.
type Participant struct {
	ConnID string `json:"connectionId"`
	Player Player `json:"player"`
}

// GuessResult is returned by ProcessGuess.
type GuessResult struct {
	Correct      bool `json:"correct"`
	Score        int  `json:"score"`
	WordsCorrect int  `json:"wordsCorrect"`
}

// PlayerSummary is one participant's line in the final result.
type PlayerSummary struct {
	ConnID       string `json:"connectionId"`
	Username     string `json:"username"`
	PlayerID     string `json:"playerId"`
	Score        int    `json:"score"`
	WordsCorrect int    `json:"wordsCorrect"`
}

// Result is the immutable outcome of a session, produced once.
type Result struct {
	GameID    string          `json:"gameId"`
	Players   []PlayerSummary `json:"players"`
	Winner    string          `json:"winner,omitempty"`
	IsDraw    bool            `json:"isDraw"`
	RPChanges map[string]int  `json:"rpChanges"`
	Duration  int             `json:"duration"`
}

// Game holds the state of one duel session. All methods are safe for
// concurrent use; the mutex is session-scoped so unrelated sessions
// never serialize on each other.
type Game struct {
	mu sync.Mutex

	id           string
	participants []Participant
	words        []words.Entry
	duration     time.Duration
	private      bool

	startedAt time.Time
	endsAt    time.Time

	scores   map[string]int
	progress map[string]int
	finished map[string]bool
	over     bool
	result   *Result

	now     func() time.Time
	randInt func(n int) int
}

// New constructs an active session over the given word list.
func New(id string, participants []Participant, list []words.Entry, duration time.Duration, private bool) *Game {
	g := &Game{
		id:           id,
		participants: participants,
		words:        list,
		duration:     duration,
		private:      private,
		scores:       make(map[string]int, len(participants)),
		progress:     make(map[string]int, len(participants)),
		finished:     make(map[string]bool, len(participants)),
		now:          time.Now,
		randInt:      rand.Intn,
	}
	g.startedAt = g.now()
	g.endsAt = g.startedAt.Add(duration)
	for _, p := range participants {
		g.scores[p.ConnID] = 0
		g.progress[p.ConnID] = 0
		g.finished[p.ConnID] = false
	}
	return g
}

// ID returns the session id.
func (g *Game) ID() string { return g.id }

// Participants returns the ordered participant list.
func (g *Game) Participants() []Participant { return g.participants }

// Words returns the session's ordered word list.
func (g *Game) Words() []words.Entry { return g.words }

// StartedAt reports the construction time.
func (g *Game) StartedAt() time.Time { return g.startedAt }

// HasParticipant reports whether connID belongs to this session.
func (g *Game) HasParticipant(connID string) bool {
	for _, p := range g.participants {
		if p.ConnID == connID {
			return true
		}
	}
	return false
}

// Finished reports whether the session is over, either by explicit
// termination or because the wall clock passed the end time.
func (g *Game) Finished() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.finishedLocked()
}

func (g *Game) finishedLocked() bool {
	return g.over || !g.now().Before(g.endsAt)
}

// ProcessGuess compares the guess against the participant's current
// word. A hit scores PointsPerWord and advances progress; a miss
// changes nothing. Finished sessions and exhausted word lists are
// silent no-ops.
func (g *Game) ProcessGuess(connID, guess string) GuessResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.finishedLocked() {
		return GuessResult{}
	}
	idx, ok := g.progress[connID]
	if !ok || idx >= len(g.words) {
		return GuessResult{}
	}

	target := strings.ToLower(g.words[idx].Word)
	if strings.ToLower(strings.TrimSpace(guess)) != target {
		return GuessResult{}
	}

	g.scores[connID] += PointsPerWord
	g.progress[connID]++
	return GuessResult{Correct: true, Score: g.scores[connID], WordsCorrect: g.progress[connID]}
}

// PlayerFinished records that connID's local timer elapsed and reports
// whether every participant has now finished.
func (g *Game) PlayerFinished(connID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.finished[connID]; ok {
		g.finished[connID] = true
	}
	for _, p := range g.participants {
		if !g.finished[p.ConnID] {
			return false
		}
	}
	return true
}

// Concede forces connID's score to ConcededScore and ends the session.
func (g *Game) Concede(connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.scores[connID]; ok {
		g.scores[connID] = ConcededScore
	}
	g.over = true
}

// Forfeit zeroes connID's score without ending the session; the caller
// terminates it. Used for disconnects.
func (g *Game) Forfeit(connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.scores[connID]; ok {
		g.scores[connID] = ForfeitScore
	}
}

// End forces termination. Once over, a session never becomes active again.
func (g *Game) End() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.over = true
}

// ShortenBy shrinks the remaining time, backing hint penalties.
// Non-positive adjustments are ignored; time is never given back.
func (g *Game) ShortenBy(d time.Duration) {
	if d <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.endsAt = g.endsAt.Add(-d)
}

// Results computes the canonical result, at most once: later calls
// return the cached value, so duplicate termination paths can never
// re-roll the RP outcome. Callers must not invoke it on a live session.
func (g *Game) Results() *Result {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.result != nil {
		return g.result
	}

	players := make([]PlayerSummary, 0, len(g.participants))
	for _, p := range g.participants {
		players = append(players, PlayerSummary{
			ConnID:       p.ConnID,
			Username:     p.Player.Username,
			PlayerID:     p.Player.ID,
			Score:        g.scores[p.ConnID],
			WordsCorrect: g.progress[p.ConnID],
		})
	}
	sort.SliceStable(players, func(i, j int) bool { return players[i].Score > players[j].Score })

	res := &Result{
		GameID:    g.id,
		Players:   players,
		RPChanges: make(map[string]int, len(players)),
		Duration:  int(g.duration.Seconds()),
	}

	// Winner and draw only make sense for exactly two participants.
	if len(players) == 2 {
		if players[0].Score == players[1].Score {
			res.IsDraw = true
		} else {
			res.Winner = players[0].ConnID
		}
	}

	switch {
	case len(players) < 2 || g.private:
		for _, p := range players {
			res.RPChanges[p.ConnID] = 0
		}
	case res.IsDraw:
		for _, p := range players {
			res.RPChanges[p.ConnID] = RPDraw
		}
	default:
		for _, p := range players {
			if p.ConnID == res.Winner {
				res.RPChanges[p.ConnID] = g.rpRoll()
			} else {
				// Each loser's penalty is rolled independently; the RP
				// sum across a match need not be zero.
				res.RPChanges[p.ConnID] = -g.rpRoll()
			}
		}
	}

	g.result = res
	return res
}

// rpRoll draws a uniform integer in [RPMin, RPMax].
func (g *Game) rpRoll() int {
	return RPMin + g.randInt(RPMax-RPMin+1)
}
