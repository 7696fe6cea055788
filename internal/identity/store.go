// internal/identity/store.go
//
// SQLite-backed player identity store.
// Responsibilities:
//   - Player accounts: bcrypt credentials, username uniqueness, lookup.
//   - Rank points: read for the realtime core (which only forwards
//     identities, never writes rank), written when a finished match's
//     result is persisted.
//   - Match history rows and the RP leaderboard.
package identity

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"
)

var (
	ErrUsernameTaken      = errors.New("username taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotFound           = errors.New("player not found")
)

// User is one player account row.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	RankPoints   int       `json:"rank_points"`
	RankTier     string    `json:"rank_tier"`
	GamesPlayed  int       `json:"gamesPlayed"`
	Wins         int       `json:"wins"`
}

// MatchRecord persists one participant's view of a finished match.
type MatchRecord struct {
	GameID       string `json:"gameId"`
	PlayerID     string `json:"playerId"`
	Result       string `json:"result"` // "win" | "loss" | "draw"
	Score        int    `json:"score"`
	WordsCorrect int    `json:"wordsCorrect"`
	RPChange     int    `json:"rpChange"`
	Duration     int    `json:"duration"`
}

// LeaderboardRow is one line of the RP leaderboard.
type LeaderboardRow struct {
	Username   string `json:"username"`
	RankPoints int    `json:"rank_points"`
	RankTier   string `json:"rank_tier"`
	Wins       int    `json:"wins"`
}

// Store wraps the players/matches tables.
type Store struct {
	db *sql.DB
}

// NewStore constructs a Store over an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the tables if missing. Idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS players (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TEXT NOT NULL,
		rank_points   INTEGER NOT NULL DEFAULT 0,
		games_played  INTEGER NOT NULL DEFAULT 0,
		wins          INTEGER NOT NULL DEFAULT 0
	);
	CREATE UNIQUE INDEX IF NOT EXISTS players_username ON players (lower(username));
	CREATE TABLE IF NOT EXISTS matches (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		game_id       TEXT NOT NULL,
		player_id     TEXT NOT NULL REFERENCES players(id),
		result        TEXT NOT NULL,
		score         INTEGER NOT NULL,
		words_correct INTEGER NOT NULL,
		rp_change     INTEGER NOT NULL,
		duration      INTEGER NOT NULL,
		created_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
		UNIQUE(game_id, player_id)
	);`)
	return err
}

func normalizeUsername(u string) string {
	return strings.TrimSpace(u)
}

func validateSignup(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return errors.New("username must be 3-24 chars")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	if len(p) < 8 || len(p) > 100 {
		return errors.New("password must be 8-100 chars")
	}
	return nil
}

// CreateUser validates input, enforces uniqueness, hashes the password,
// and inserts a new player starting at 0 RP.
func (s *Store) CreateUser(ctx context.Context, username, password string) (*User, error) {
	username = normalizeUsername(username)
	if err := validateSignup(username, password); err != nil {
		return nil, err
	}
	var exists int
	_ = s.db.QueryRowContext(ctx, `SELECT 1 FROM players WHERE lower(username)=lower(?)`, username).Scan(&exists)
	if exists == 1 {
		return nil, ErrUsernameTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	u.RankTier = TierFor(u.RankPoints)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO players (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate verifies credentials and returns the account.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.userByUsername(ctx, username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// UserByID loads one player.
func (s *Store) UserByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at, rank_points, games_played, wins
		FROM players WHERE id=?`, id)
	return scanUser(row)
}

func (s *Store) userByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at, rank_points, games_played, wins
		FROM players WHERE lower(username)=lower(?)`, normalizeUsername(username))
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created, &u.RankPoints, &u.GamesPlayed, &u.Wins); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, created)
	u.RankTier = TierFor(u.RankPoints)
	return &u, nil
}

// RecordMatch inserts one participant's match row and applies the RP
// delta, clamped so rank points never drop below zero. Re-recording
// the same (game, player) pair is ignored.
func (s *Store) RecordMatch(ctx context.Context, rec MatchRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO matches (game_id, player_id, result, score, words_correct, rp_change, duration)
		VALUES (?,?,?,?,?,?,?)`,
		rec.GameID, rec.PlayerID, rec.Result, rec.Score, rec.WordsCorrect, rec.RPChange, rec.Duration)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil // already recorded
	}

	wins := 0
	if rec.Result == "win" {
		wins = 1
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE players
		SET rank_points = max(0, rank_points + ?),
		    games_played = games_played + 1,
		    wins = wins + ?
		WHERE id=?`, rec.RPChange, wins, rec.PlayerID); err != nil {
		return err
	}
	return tx.Commit()
}

// Leaderboard returns the top players by rank points.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, rank_points, wins
		FROM players
		ORDER BY rank_points DESC, wins DESC, lower(username) ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LeaderboardRow, 0, limit)
	for rows.Next() {
		var r LeaderboardRow
		if err := rows.Scan(&r.Username, &r.RankPoints, &r.Wins); err != nil {
			return nil, err
		}
		r.RankTier = TierFor(r.RankPoints)
		out = append(out, r)
	}
	return out, rows.Err()
}
