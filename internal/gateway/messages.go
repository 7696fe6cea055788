// internal/gateway/messages.go
//
// Wire protocol for the realtime gateway. Every frame is a JSON
// envelope {type, data}; payload shapes below mirror what the web
// client consumes.
package gateway

import (
	"encoding/json"

	"github.com/wordoff/server/internal/game"
	"github.com/wordoff/server/internal/words"
)

// Envelope frames every message in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client → server message types.
const (
	MsgJoinQueue      = "join_queue"
	MsgLeaveQueue     = "leave_queue"
	MsgCreateLobby    = "create_lobby"
	MsgJoinLobby      = "join_lobby"
	MsgCancelLobby    = "cancel_lobby"
	MsgStartSprint    = "start_sprint"
	MsgGetDaily       = "get_daily"
	MsgGetWord        = "get_word"
	MsgSubmitGuess    = "submit_guess"
	MsgPlayerFinished = "player_finished"
	MsgGiveUp         = "give_up"
	MsgUseHint        = "use_hint"
)

// Server → client message types.
const (
	MsgConnected    = "connected"
	MsgQueueUpdate  = "queue_update"
	MsgLobbyCreated = "lobby_created"
	MsgLobbyError   = "lobby_error"
	MsgMatchStart   = "match_start"
	MsgMatchInit    = "match_init"
	MsgScoreUpdate  = "score_update"
	MsgDailyPuzzle  = "daily_puzzle"
	MsgWordData     = "word_data"
	MsgMatchResult  = "match_result"
)

// Connected tells a client its connection id; score updates and RP
// changes are keyed by it.
type Connected struct {
	ConnectionID string `json:"connectionId"`
}

// QueueUpdate reports matchmaking status ("searching" or "idle").
type QueueUpdate struct {
	Status string `json:"status"`
}

// JoinLobby is the join_lobby request payload.
type JoinLobby struct {
	Code   string      `json:"code"`
	Player game.Player `json:"player"`
}

// LobbyCreated carries the shareable 6-character code.
type LobbyCreated struct {
	Code string `json:"code"`
}

// LobbyError is a user-facing lobby failure (not found, self join).
type LobbyError struct {
	Message string `json:"message"`
}

// MatchStart is broadcast to the whole session group.
type MatchStart struct {
	RoomID    string        `json:"roomId"`
	Words     []words.Entry `json:"words"`
	StartTime int64         `json:"startTime"` // unix milliseconds
	Opponent  *game.Player  `json:"opponent,omitempty"`
}

// MatchInit names each participant's opponent individually.
type MatchInit struct {
	RoomID    string      `json:"roomId"`
	Opponent  game.Player `json:"opponent"`
	StartTime int64       `json:"startTime"`
}

// SubmitGuess is the submit_guess request payload.
type SubmitGuess struct {
	RoomID string `json:"roomId"`
	Guess  string `json:"guess"`
}

// RoomRef addresses a session (player_finished, give_up, use_hint).
type RoomRef struct {
	RoomID string `json:"roomId"`
}

// ScoreUpdate is broadcast after every correct guess; the submitter's
// own client treats it as confirmation rather than predicting locally.
type ScoreUpdate struct {
	ConnectionID string `json:"connectionId"`
	Score        int    `json:"score"`
	WordsCorrect int    `json:"wordsCorrect"`
}

// DailyPuzzle is the reply to get_daily.
type DailyPuzzle struct {
	Date  string        `json:"date"`
	Words []words.Entry `json:"words"`
}
