// internal/gateway/gateway.go
//
// Realtime gateway: binds the dictionary, matchmaking queue, and duel
// sessions into a live websocket protocol.
// Responsibilities:
//   - Own the registries: connections, active sessions, private lobbies,
//     and the per-session end timers.
//   - Dispatch incoming protocol messages to the owning session/queue.
//   - Broadcast session-scoped events to the participant group.
//   - Guarantee exactly one match_result per session: every termination
//     path funnels through endSession, which is idempotent by registry
//     removal and cancels the scheduled timer.
//
// Locking: one registry mutex for the maps plus a session-level mutex
// inside each Game. The registry lock is never held across a network
// write or a call into a session.
package gateway

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/wordoff/server/internal/game"
	"github.com/wordoff/server/internal/queue"
	"github.com/wordoff/server/internal/words"
)

// Lobby failures reported to the client over lobby_error.
var (
	ErrLobbyNotFound = errors.New("lobby not found")
	ErrSelfJoin      = errors.New("you cannot join your own lobby")
)

// Config carries the tunables of a match. Tests shrink the durations.
type Config struct {
	MatchDuration    time.Duration // playable window per session
	EndGrace         time.Duration // server timer slack past the window
	SprintStartDelay time.Duration // solo sessions start sooner than duels
	WordsPerMatch    int
	DailyWordCount   int
	HintPenalty      time.Duration
}

// DefaultConfig matches the live game: 60s matches, 2s grace, 110 words.
func DefaultConfig() Config {
	return Config{
		MatchDuration:    60 * time.Second,
		EndGrace:         2 * time.Second,
		SprintStartDelay: time.Second,
		WordsPerMatch:    110,
		DailyWordCount:   3,
		HintPenalty:      time.Second,
	}
}

// lobby is a code-gated private pairing request.
type lobby struct {
	code string
	host game.Participant
}

// Gateway owns all mutable realtime state for one process.
type Gateway struct {
	cfg      Config
	dict     *words.Dictionary
	queue    *queue.Queue
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    map[string]*client
	sessions map[string]*game.Game
	timers   map[string]*time.Timer
	lobbies  map[string]lobby
}

// New constructs a gateway over an already-loaded dictionary and queue.
func New(dict *words.Dictionary, q *queue.Queue, cfg Config) *Gateway {
	return &Gateway{
		cfg:   cfg,
		dict:  dict,
		queue: q,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns:    make(map[string]*client),
		sessions: make(map[string]*game.Game),
		timers:   make(map[string]*time.Timer),
		lobbies:  make(map[string]lobby),
	}
}

// ServeWS upgrades the request and runs the connection's read loop
// until disconnect.
func (gw *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := gw.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{id: uuid.NewString(), conn: conn}
	gw.mu.Lock()
	gw.conns[c.id] = c
	gw.mu.Unlock()

	log.Info().Str("connId", c.id).Msg("client connected")
	c.send(MsgConnected, Connected{ConnectionID: c.id})

	defer gw.disconnect(c)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Debug().Err(err).Str("connId", c.id).Msg("invalid frame")
			continue
		}
		gw.dispatch(c, env)
	}
}

// dispatch routes one incoming envelope. Handlers run to completion on
// the connection's read goroutine; unknown types are ignored.
func (gw *Gateway) dispatch(c *client, env Envelope) {
	switch env.Type {
	case MsgJoinQueue:
		var p game.Player
		_ = json.Unmarshal(env.Data, &p)
		gw.handleJoinQueue(c, p)
	case MsgLeaveQueue:
		gw.queue.Remove(c.id)
		c.send(MsgQueueUpdate, QueueUpdate{Status: "idle"})
	case MsgCreateLobby:
		var p game.Player
		_ = json.Unmarshal(env.Data, &p)
		gw.handleCreateLobby(c, p)
	case MsgJoinLobby:
		var req JoinLobby
		_ = json.Unmarshal(env.Data, &req)
		gw.handleJoinLobby(c, req)
	case MsgCancelLobby:
		gw.removeLobbiesHostedBy(c.id)
	case MsgStartSprint:
		var p game.Player
		_ = json.Unmarshal(env.Data, &p)
		gw.handleStartSprint(c, p)
	case MsgGetDaily:
		date := time.Now().UTC().Format("2006-01-02")
		c.send(MsgDailyPuzzle, DailyPuzzle{Date: date, Words: gw.dict.Daily(date, gw.cfg.DailyWordCount)})
	case MsgGetWord:
		c.send(MsgWordData, gw.dict.Random())
	case MsgSubmitGuess:
		var req SubmitGuess
		_ = json.Unmarshal(env.Data, &req)
		gw.handleSubmitGuess(c, req)
	case MsgPlayerFinished:
		var req RoomRef
		_ = json.Unmarshal(env.Data, &req)
		gw.handlePlayerFinished(c, req.RoomID)
	case MsgGiveUp:
		var req RoomRef
		_ = json.Unmarshal(env.Data, &req)
		gw.handleGiveUp(c, req.RoomID)
	case MsgUseHint:
		var req RoomRef
		_ = json.Unmarshal(env.Data, &req)
		if g := gw.session(req.RoomID); g != nil && g.HasParticipant(c.id) {
			g.ShortenBy(gw.cfg.HintPenalty)
		}
	default:
		log.Debug().Str("type", env.Type).Str("connId", c.id).Msg("unknown message type")
	}
}

// ------------------------------ matchmaking --------------------------------

func (gw *Gateway) handleJoinQueue(c *client, p game.Player) {
	match := gw.queue.Add(c.id, p)
	if match == nil {
		c.send(MsgQueueUpdate, QueueUpdate{Status: "searching"})
		return
	}
	log.Info().Str("roomId", match.ID).
		Str("p1", match.Players[0].Player.Username).
		Str("p2", match.Players[1].Player.Username).
		Msg("match found")
	gw.startMatch(match.ID, match.Players, false, 0)
}

func (gw *Gateway) handleStartSprint(c *client, p game.Player) {
	if p.Username == "" {
		p = game.Player{ID: "guest", Username: "Guest"}
	}
	roomID := "sprint_" + c.id
	gw.startMatch(roomID, []game.Participant{{ConnID: c.id, Player: p}}, false, gw.cfg.SprintStartDelay)
}

// startMatch draws the word list, registers the session, announces it,
// and schedules the end timer.
func (gw *Gateway) startMatch(roomID string, parts []game.Participant, private bool, startDelay time.Duration) {
	list := gw.dict.Sample(gw.cfg.WordsPerMatch)
	g := game.New(roomID, parts, list, gw.cfg.MatchDuration, private)

	gw.mu.Lock()
	gw.sessions[roomID] = g
	gw.timers[roomID] = time.AfterFunc(startDelay+gw.cfg.MatchDuration+gw.cfg.EndGrace, func() {
		gw.endSession(roomID)
	})
	gw.mu.Unlock()

	start := time.Now().Add(startDelay).UnixMilli()
	gw.broadcast(g, MsgMatchStart, MatchStart{RoomID: roomID, Words: list, StartTime: start})
	if len(parts) == 2 {
		for i, p := range parts {
			opponent := parts[1-i].Player
			if cl := gw.client(p.ConnID); cl != nil {
				cl.send(MsgMatchInit, MatchInit{RoomID: roomID, Opponent: opponent, StartTime: start})
			}
		}
	}
	log.Info().Str("roomId", roomID).Bool("private", private).
		Int("words", len(list)).Msg("session started")
}

// -------------------------------- lobbies ----------------------------------

// lobbyCodeAlphabet excludes visually ambiguous glyphs (I, O, 0, 1).
const lobbyCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const lobbyCodeLen = 6

func randomLobbyCode() string {
	b := make([]byte, lobbyCodeLen)
	for i := range b {
		nBig, _ := rand.Int(rand.Reader, big.NewInt(int64(len(lobbyCodeAlphabet))))
		b[i] = lobbyCodeAlphabet[nBig.Int64()]
	}
	return string(b)
}

func (gw *Gateway) handleCreateLobby(c *client, p game.Player) {
	gw.mu.Lock()
	var code string
	for {
		code = randomLobbyCode()
		if _, taken := gw.lobbies[code]; !taken {
			break
		}
	}
	gw.lobbies[code] = lobby{code: code, host: game.Participant{ConnID: c.id, Player: p}}
	gw.mu.Unlock()

	log.Info().Str("code", code).Str("host", p.Username).Msg("lobby created")
	c.send(MsgLobbyCreated, LobbyCreated{Code: code})
}

func (gw *Gateway) handleJoinLobby(c *client, req JoinLobby) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))

	gw.mu.Lock()
	lb, ok := gw.lobbies[code]
	if ok && lb.host.ConnID != c.id {
		delete(gw.lobbies, code)
	}
	gw.mu.Unlock()

	if !ok {
		c.send(MsgLobbyError, LobbyError{Message: ErrLobbyNotFound.Error()})
		return
	}
	if lb.host.ConnID == c.id {
		c.send(MsgLobbyError, LobbyError{Message: ErrSelfJoin.Error()})
		return
	}

	roomID := "lobby_" + code
	parts := []game.Participant{lb.host, {ConnID: c.id, Player: req.Player}}
	gw.startMatch(roomID, parts, true, 0)
}

func (gw *Gateway) removeLobbiesHostedBy(connID string) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	for code, lb := range gw.lobbies {
		if lb.host.ConnID == connID {
			delete(gw.lobbies, code)
		}
	}
}

// -------------------------------- gameplay ---------------------------------

func (gw *Gateway) handleSubmitGuess(c *client, req SubmitGuess) {
	g := gw.session(req.RoomID)
	if g == nil || g.Finished() {
		// Late guesses after termination are expected; ignore silently.
		return
	}
	res := g.ProcessGuess(c.id, req.Guess)
	if !res.Correct {
		return
	}
	gw.broadcast(g, MsgScoreUpdate, ScoreUpdate{
		ConnectionID: c.id,
		Score:        res.Score,
		WordsCorrect: res.WordsCorrect,
	})
}

func (gw *Gateway) handlePlayerFinished(c *client, roomID string) {
	g := gw.session(roomID)
	if g == nil {
		return
	}
	if g.PlayerFinished(c.id) {
		// All participants done; do not wait for the scheduled timeout.
		gw.endSession(roomID)
	}
}

func (gw *Gateway) handleGiveUp(c *client, roomID string) {
	g := gw.session(roomID)
	if g == nil || !g.HasParticipant(c.id) {
		return
	}
	log.Info().Str("roomId", roomID).Str("connId", c.id).Msg("player conceded")
	g.Concede(c.id)
	gw.endSession(roomID)
}

// disconnect runs when a read loop exits: leave the queue, drop hosted
// lobbies, and forfeit any live multi-participant sessions.
func (gw *Gateway) disconnect(c *client) {
	_ = c.conn.Close()
	log.Info().Str("connId", c.id).Msg("client disconnected")

	gw.queue.Remove(c.id)
	gw.removeLobbiesHostedBy(c.id)

	gw.mu.Lock()
	delete(gw.conns, c.id)
	var affected []string
	for id, g := range gw.sessions {
		if g.HasParticipant(c.id) && len(g.Participants()) >= 2 && !g.Finished() {
			affected = append(affected, id)
		}
	}
	gw.mu.Unlock()

	for _, roomID := range affected {
		log.Info().Str("roomId", roomID).Str("connId", c.id).Msg("forfeit on disconnect")
		if g := gw.session(roomID); g != nil {
			g.Forfeit(c.id)
			gw.endSession(roomID)
		}
	}
}

// ------------------------------ termination --------------------------------

// endSession is the single shared termination path. Removing the
// session from the registry first makes it idempotent: a timer firing
// after an early termination finds nothing and does nothing.
func (gw *Gateway) endSession(roomID string) {
	gw.mu.Lock()
	g, ok := gw.sessions[roomID]
	if !ok {
		gw.mu.Unlock()
		return
	}
	delete(gw.sessions, roomID)
	if t := gw.timers[roomID]; t != nil {
		t.Stop()
		delete(gw.timers, roomID)
	}
	gw.mu.Unlock()

	g.End()
	res := g.Results()
	ev := log.Info().Str("roomId", roomID).Bool("draw", res.IsDraw)
	if res.Winner != "" {
		ev = ev.Str("winner", res.Winner)
	}
	ev.Msg("session ended")

	gw.broadcast(g, MsgMatchResult, res)
}

// -------------------------------- plumbing ---------------------------------

func (gw *Gateway) session(roomID string) *game.Game {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	return gw.sessions[roomID]
}

func (gw *Gateway) client(connID string) *client {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	return gw.conns[connID]
}

// broadcast sends one payload to every participant of g that is still
// connected. Writes happen outside the registry lock.
func (gw *Gateway) broadcast(g *game.Game, msgType string, payload any) {
	parts := g.Participants()
	targets := make([]*client, 0, len(parts))
	gw.mu.Lock()
	for _, p := range parts {
		if cl, ok := gw.conns[p.ConnID]; ok {
			targets = append(targets, cl)
		}
	}
	gw.mu.Unlock()

	for _, cl := range targets {
		cl.send(msgType, payload)
	}
}

// SessionCount reports the number of live sessions (diagnostics).
func (gw *Gateway) SessionCount() int {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	return len(gw.sessions)
}
