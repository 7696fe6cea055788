package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordoff/server/internal/words"
)

var testWords = []words.Entry{
	{Word: "atlas", Definition: "A book of maps."},
	{Word: "echo", Definition: "A repeated sound."},
	{Word: "ember", Definition: "A glowing coal."},
}

func duel(t *testing.T) *Game {
	t.Helper()
	return New("room-1", []Participant{
		{ConnID: "c1", Player: Player{ID: "p1", Username: "alice"}},
		{ConnID: "c2", Player: Player{ID: "p2", Username: "bob"}},
	}, testWords, time.Minute, false)
}

func solo(t *testing.T) *Game {
	t.Helper()
	return New("sprint-1", []Participant{
		{ConnID: "c1", Player: Player{ID: "p1", Username: "alice"}},
	}, testWords, time.Minute, false)
}

func TestProcessGuess_CorrectCaseAndSpaceInsensitive(t *testing.T) {
	g := duel(t)

	res := g.ProcessGuess("c1", "  Atlas ")
	require.True(t, res.Correct)
	assert.Equal(t, 10, res.Score)
	assert.Equal(t, 1, res.WordsCorrect)

	// Next word for c1 is "echo"; c2 is still on "atlas".
	res = g.ProcessGuess("c2", "ATLAS")
	require.True(t, res.Correct)
	assert.Equal(t, 10, res.Score)
}

func TestProcessGuess_MismatchChangesNothing(t *testing.T) {
	g := duel(t)

	res := g.ProcessGuess("c1", "echo") // c1's current word is "atlas"
	assert.False(t, res.Correct)

	res = g.ProcessGuess("c1", "atlas")
	require.True(t, res.Correct)
	assert.Equal(t, 10, res.Score, "miss must not have consumed score or progress")
	assert.Equal(t, 1, res.WordsCorrect)
}

func TestProcessGuess_NoOpWhenFinished(t *testing.T) {
	g := duel(t)
	g.End()
	res := g.ProcessGuess("c1", "atlas")
	assert.False(t, res.Correct)
}

func TestProcessGuess_NoOpWhenWordsExhausted(t *testing.T) {
	g := duel(t)
	for _, w := range testWords {
		require.True(t, g.ProcessGuess("c1", w.Word).Correct)
	}
	res := g.ProcessGuess("c1", "atlas")
	assert.False(t, res.Correct)
}

func TestProcessGuess_UnknownParticipantIgnored(t *testing.T) {
	g := duel(t)
	assert.False(t, g.ProcessGuess("stranger", "atlas").Correct)
}

// Score and progress never decrease across any sequence of guesses.
func TestProcessGuess_Monotonic(t *testing.T) {
	g := duel(t)
	lastScore, lastWords := 0, 0
	for _, guess := range []string{"wrong", "atlas", "nope", "echo", "echo", "ember", "x"} {
		res := g.ProcessGuess("c1", guess)
		if res.Correct {
			assert.GreaterOrEqual(t, res.Score, lastScore)
			assert.GreaterOrEqual(t, res.WordsCorrect, lastWords)
			lastScore, lastWords = res.Score, res.WordsCorrect
		}
	}
}

func TestFinished_Monotonic(t *testing.T) {
	g := duel(t)
	require.False(t, g.Finished())
	g.End()
	require.True(t, g.Finished())
	g.ProcessGuess("c1", "atlas")
	g.PlayerFinished("c1")
	assert.True(t, g.Finished(), "gameOver must never revert")
}

func TestFinished_WallClock(t *testing.T) {
	g := duel(t)
	base := g.startedAt

	g.now = func() time.Time { return base.Add(59 * time.Second) }
	assert.False(t, g.Finished())

	g.now = func() time.Time { return base.Add(61 * time.Second) }
	assert.True(t, g.Finished())
}

func TestShortenBy_ShrinksOnly(t *testing.T) {
	g := duel(t)
	base := g.startedAt
	g.now = func() time.Time { return base.Add(55 * time.Second) }

	g.ShortenBy(-10 * time.Second) // ignored; time is never given back
	assert.False(t, g.Finished())

	g.ShortenBy(10 * time.Second)
	assert.True(t, g.Finished())
}

func TestPlayerFinished_AllMustSignal(t *testing.T) {
	g := duel(t)
	assert.False(t, g.PlayerFinished("c1"))
	assert.True(t, g.PlayerFinished("c2"))
}

func TestPlayerFinished_Solo(t *testing.T) {
	g := solo(t)
	assert.True(t, g.PlayerFinished("c1"))
}

func TestResults_WinnerAndLoserRPRanges(t *testing.T) {
	g := duel(t)
	require.True(t, g.ProcessGuess("c1", "atlas").Correct)
	g.End()

	res := g.Results()
	require.Len(t, res.Players, 2)
	assert.Equal(t, "c1", res.Winner)
	assert.False(t, res.IsDraw)
	assert.Equal(t, "c1", res.Players[0].ConnID, "players sorted by score descending")

	win := res.RPChanges["c1"]
	assert.GreaterOrEqual(t, win, RPMin)
	assert.LessOrEqual(t, win, RPMax)

	loss := res.RPChanges["c2"]
	assert.GreaterOrEqual(t, loss, -RPMax)
	assert.LessOrEqual(t, loss, -RPMin)
}

func TestResults_DrawAwardsFiveEach(t *testing.T) {
	g := duel(t)
	g.End()
	res := g.Results()
	assert.True(t, res.IsDraw)
	assert.Empty(t, res.Winner)
	assert.Equal(t, RPDraw, res.RPChanges["c1"])
	assert.Equal(t, RPDraw, res.RPChanges["c2"])
}

func TestResults_SoloHasNoRP(t *testing.T) {
	g := solo(t)
	require.True(t, g.ProcessGuess("c1", "atlas").Correct)
	g.End()
	res := g.Results()
	assert.Empty(t, res.Winner)
	assert.False(t, res.IsDraw)
	assert.Equal(t, 0, res.RPChanges["c1"])
}

func TestResults_PrivateHasNoRP(t *testing.T) {
	g := New("lobby_ABC234", []Participant{
		{ConnID: "c1", Player: Player{ID: "p1", Username: "alice"}},
		{ConnID: "c2", Player: Player{ID: "p2", Username: "bob"}},
	}, testWords, time.Minute, true)
	require.True(t, g.ProcessGuess("c1", "atlas").Correct)
	g.End()

	res := g.Results()
	assert.Equal(t, "c1", res.Winner, "private matches still have a winner")
	assert.Equal(t, 0, res.RPChanges["c1"])
	assert.Equal(t, 0, res.RPChanges["c2"])
}

// Conceding ranks last regardless of the opponent's score, even 0.
func TestConcede_LosesToZeroScore(t *testing.T) {
	g := duel(t)
	g.Concede("c1")
	require.True(t, g.Finished())

	res := g.Results()
	assert.Equal(t, "c2", res.Winner)
	assert.False(t, res.IsDraw)
	assert.Equal(t, ConcededScore, res.Players[1].Score)
}

// A disconnect forfeit zeroes the score instead; at 0-0 that is a draw.
func TestForfeit_ZeroSentinelCanStillDraw(t *testing.T) {
	g := duel(t)
	g.Forfeit("c1")
	g.End()

	res := g.Results()
	assert.True(t, res.IsDraw)
	assert.Equal(t, ForfeitScore, res.Players[0].Score)
	assert.Equal(t, ForfeitScore, res.Players[1].Score)
}

func TestForfeit_DiscardsEarnedScore(t *testing.T) {
	g := duel(t)
	require.True(t, g.ProcessGuess("c1", "atlas").Correct)
	require.True(t, g.ProcessGuess("c2", "atlas").Correct)
	require.True(t, g.ProcessGuess("c2", "echo").Correct)

	g.Forfeit("c2")
	g.End()

	res := g.Results()
	assert.Equal(t, "c1", res.Winner)
}

// The canonical result is produced once; duplicate termination paths
// must never re-roll the RP outcome.
func TestResults_ComputedOnce(t *testing.T) {
	g := duel(t)
	require.True(t, g.ProcessGuess("c1", "atlas").Correct)
	g.End()

	first := g.Results()
	second := g.Results()
	assert.Same(t, first, second)
}

func TestResults_DurationSeconds(t *testing.T) {
	g := duel(t)
	g.End()
	assert.Equal(t, 60, g.Results().Duration)
}
