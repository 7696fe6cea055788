package identity

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// One in-memory database per connection; keep the pool on it.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	s := NewStore(db)
	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	s := testStore(t)
	assert.NoError(t, s.EnsureSchema(context.Background()))
}

func TestCreateUser_AndAuthenticate(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "alice_01", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, 0, u.RankPoints)
	assert.Equal(t, "Lead III", u.RankTier)
	assert.NotEqual(t, "correct horse", u.PasswordHash)

	got, err := s.Authenticate(ctx, "alice_01", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.Authenticate(ctx, "alice_01", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Authenticate(ctx, "nobody99", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateUser_DuplicateUsernameCaseInsensitive(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "alice", "password123")
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, "ALICE", "password456")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestCreateUser_Validation(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "ab", "password123")
	assert.Error(t, err, "username too short")
	_, err = s.CreateUser(ctx, "has space", "password123")
	assert.Error(t, err, "username charset")
	_, err = s.CreateUser(ctx, "alice", "short")
	assert.Error(t, err, "password too short")
}

func TestUserByID_NotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.UserByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordMatch_AppliesRPAndStats(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "alice", "password123")
	require.NoError(t, err)

	require.NoError(t, s.RecordMatch(ctx, MatchRecord{
		GameID: "g1", PlayerID: u.ID, Result: "win",
		Score: 40, WordsCorrect: 4, RPChange: 20, Duration: 60,
	}))

	got, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, got.RankPoints)
	assert.Equal(t, 1, got.GamesPlayed)
	assert.Equal(t, 1, got.Wins)
}

// Losses near the floor clamp at zero instead of going negative.
func TestRecordMatch_ClampsRPAtZero(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "alice", "password123")
	require.NoError(t, err)

	require.NoError(t, s.RecordMatch(ctx, MatchRecord{
		GameID: "g1", PlayerID: u.ID, Result: "loss",
		Score: 0, WordsCorrect: 0, RPChange: -21, Duration: 60,
	}))

	got, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.RankPoints)
	assert.Equal(t, 0, got.Wins)
}

// Replaying the same (game, player) pair must not double-apply RP.
func TestRecordMatch_ReplayIsNoOp(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "alice", "password123")
	require.NoError(t, err)

	rec := MatchRecord{
		GameID: "g1", PlayerID: u.ID, Result: "win",
		Score: 10, WordsCorrect: 1, RPChange: 19, Duration: 60,
	}
	require.NoError(t, s.RecordMatch(ctx, rec))
	require.NoError(t, s.RecordMatch(ctx, rec))

	got, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 19, got.RankPoints)
	assert.Equal(t, 1, got.GamesPlayed)
}

func TestLeaderboard_Ordering(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	a, _ := s.CreateUser(ctx, "alice", "password123")
	b, _ := s.CreateUser(ctx, "bob", "password123")
	c, _ := s.CreateUser(ctx, "carol", "password123")

	require.NoError(t, s.RecordMatch(ctx, MatchRecord{GameID: "g1", PlayerID: a.ID, Result: "win", RPChange: 20}))
	require.NoError(t, s.RecordMatch(ctx, MatchRecord{GameID: "g1", PlayerID: b.ID, Result: "loss", RPChange: 0}))
	require.NoError(t, s.RecordMatch(ctx, MatchRecord{GameID: "g2", PlayerID: c.ID, Result: "win", RPChange: 120}))

	rows, err := s.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "carol", rows[0].Username)
	assert.Equal(t, "Lead II", rows[0].RankTier)
	assert.Equal(t, "alice", rows[1].Username)
	assert.Equal(t, "bob", rows[2].Username)
}
