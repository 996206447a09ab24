// Package lobby implements the room lifecycle described in spec.md §4.2:
// membership, readiness, the waiting→starting→playing→finished state machine,
// broadcast fan-out, and post-game rankings. It is grounded on the teacher's
// internal/lobby/lobby.go — the Connections/ReadyStates maps, the *Unsafe
// convention, and the stale-timer re-validation idiom are carried over
// directly, generalized from a card-game room to a snake arena.
package lobby

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/snakearena/server/internal/engine"
	"github.com/snakearena/server/internal/models"
)

// State is one of the four lobby lifecycle states from spec.md §3.
type State string

const (
	StateWaiting  State = "waiting"
	StateStarting State = "starting"
	StatePlaying  State = "playing"
	StateFinished State = "finished"
)

const (
	autoStartDelay    = 2 * time.Second
	countdownInterval = 1 * time.Second
	postGameResetWait = 10 * time.Second
	minPlayersToStart = 2
)

// Lobby is a single room: its configuration, membership, and (while playing)
// the authoritative simulation World. All mutation happens under Mu, per the
// single-writer-per-lobby scheduling model (spec.md §5).
type Lobby struct {
	ID         uuid.UUID
	Name       string
	MaxPlayers int
	IsPrivate  bool
	Password   string
	CreatedBy  uuid.UUID
	CreatedAt  time.Time

	State    State
	Settings models.GameSettings

	// playerOrder is join order — the iteration order spec.md §3 requires
	// for the players map.
	playerOrder []uuid.UUID
	players     map[uuid.UUID]*models.Player

	World         *engine.World
	GameStartTime time.Time

	ticker         *time.Ticker
	autoStartTimer *time.Timer
	// epoch invalidates timers/goroutines scheduled before a reset or
	// destruction, mirroring the teacher's CountdownTimer-identity check.
	epoch int

	rng *rand.Rand

	// OnEmpty is invoked (outside Mu) once RemovePlayer leaves the lobby with
	// zero members, so the owning store can delete it.
	OnEmpty func(lobbyID uuid.UUID)

	Mu sync.Mutex
}

// New creates a lobby in the waiting state with no members.
func New(id uuid.UUID, name string, maxPlayers int, isPrivate bool, password string, settings models.GameSettings, rng *rand.Rand) *Lobby {
	if maxPlayers < 2 {
		maxPlayers = 2
	}
	if maxPlayers > 8 {
		maxPlayers = 8
	}
	return &Lobby{
		ID:         id,
		Name:       name,
		MaxPlayers: maxPlayers,
		IsPrivate:  isPrivate,
		Password:   password,
		CreatedAt:  time.Now(),
		State:      StateWaiting,
		Settings:   settings,
		players:    make(map[uuid.UUID]*models.Player),
		rng:        rng,
	}
}

// PlayerCount returns the current membership size.
func (l *Lobby) PlayerCount() int {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	return len(l.players)
}

// AddPlayer attaches p to the lobby, per spec.md §4.2 "addPlayer".
func (l *Lobby) AddPlayer(p *models.Player) error {
	l.Mu.Lock()
	defer l.Mu.Unlock()

	if len(l.players) >= l.MaxPlayers {
		return errFull
	}
	if l.State == StatePlaying {
		return errInGame
	}

	p.ResetForGame()
	l.players[p.ID] = p
	l.playerOrder = append(l.playerOrder, p.ID)
	if l.CreatedBy == uuid.Nil {
		l.CreatedBy = p.ID
	}

	l.broadcastAllUnsafe(map[string]interface{}{
		"type":   "player_joined",
		"player": publicPlayerInfo(p),
	}, uuid.Nil)
	return nil
}

// RemovePlayer detaches playerID, per spec.md §4.2 "removePlayer". If the
// creator left, ownership passes to the next member in join order. If the
// game is playing and at most one player remains alive, the game ends
// immediately rather than waiting for the next tick.
func (l *Lobby) RemovePlayer(playerID uuid.UUID) {
	l.Mu.Lock()

	if _, ok := l.players[playerID]; !ok {
		l.Mu.Unlock()
		return
	}
	delete(l.players, playerID)
	for i, id := range l.playerOrder {
		if id == playerID {
			l.playerOrder = append(l.playerOrder[:i], l.playerOrder[i+1:]...)
			break
		}
	}
	if l.autoStartTimer != nil {
		l.autoStartTimer.Stop()
		l.autoStartTimer = nil
	}

	if l.CreatedBy == playerID && len(l.playerOrder) > 0 {
		l.CreatedBy = l.playerOrder[0]
	}

	l.broadcastAllUnsafe(map[string]interface{}{
		"type":     "player_left",
		"playerId": playerID.String(),
	}, uuid.Nil)

	if l.State == StatePlaying && l.World != nil {
		removeFromWorldUnsafe(l.World, playerID)
		if l.World.AliveCount() <= 1 {
			if l.ticker != nil {
				l.ticker.Stop()
				l.ticker = nil
			}
			l.endGameUnsafe()
		}
	}

	isEmpty := len(l.players) == 0
	onEmpty := l.OnEmpty
	l.Mu.Unlock()

	if isEmpty && onEmpty != nil {
		onEmpty(l.ID)
	}
}

func removeFromWorldUnsafe(w *engine.World, playerID uuid.UUID) {
	for i, p := range w.Players {
		if p.ID == playerID {
			w.Players = append(w.Players[:i], w.Players[i+1:]...)
			return
		}
	}
}

// SetReady flips playerID's ready flag and, if the lobby now satisfies the
// auto-start condition, schedules the 2 s auto-start delay.
func (l *Lobby) SetReady(playerID uuid.UUID, ready bool) {
	l.Mu.Lock()
	defer l.Mu.Unlock()

	p, ok := l.players[playerID]
	if !ok || p.IsReady == ready {
		return
	}
	p.IsReady = ready

	readyCount := 0
	for _, id := range l.playerOrder {
		if l.players[id].IsReady {
			readyCount++
		}
	}
	l.broadcastAllUnsafe(map[string]interface{}{
		"type":       "player_ready_changed",
		"playerId":   playerID.String(),
		"isReady":    ready,
		"readyCount": readyCount,
		"totalCount": len(l.playerOrder),
	}, uuid.Nil)

	if !ready {
		if l.autoStartTimer != nil {
			l.autoStartTimer.Stop()
			l.autoStartTimer = nil
		}
		return
	}

	if l.canStartGameUnsafe() {
		l.scheduleAutoStartUnsafe()
	}
}

func (l *Lobby) canStartGameUnsafe() bool {
	if l.State != StateWaiting || len(l.playerOrder) < minPlayersToStart {
		return false
	}
	for _, id := range l.playerOrder {
		if !l.players[id].IsReady {
			return false
		}
	}
	return true
}

// scheduleAutoStartUnsafe arms the 2 s auto-start delay. The fired callback
// re-validates canStartGameUnsafe before starting, per spec.md §4.2
// "Auto-start is idempotent".
func (l *Lobby) scheduleAutoStartUnsafe() {
	if l.autoStartTimer != nil {
		l.autoStartTimer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(autoStartDelay, func() {
		l.Mu.Lock()
		if l.autoStartTimer != timer {
			l.Mu.Unlock()
			return
		}
		l.autoStartTimer = nil
		start := l.canStartGameUnsafe()
		l.Mu.Unlock()
		if start {
			l.StartGame()
		}
	})
	l.autoStartTimer = timer
}

// UpdateSettings merges in into the lobby's game settings. Caller must have
// already verified the requester is the creator and the lobby is waiting
// (spec.md §4.1 update_lobby_settings preconditions).
func (l *Lobby) UpdateSettings(in map[string]interface{}) error {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	if err := l.Settings.Update(in); err != nil {
		return err
	}
	l.broadcastAllUnsafe(map[string]interface{}{
		"type":     "lobby_settings_updated",
		"settings": l.Settings,
	}, uuid.Nil)
	return nil
}

// Snapshot returns a JSON-safe public view for lobby listings.
func (l *Lobby) Snapshot() map[string]interface{} {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	return map[string]interface{}{
		"id":           l.ID.String(),
		"name":         l.Name,
		"maxPlayers":   l.MaxPlayers,
		"playerCount":  len(l.playerOrder),
		"isPrivate":    l.IsPrivate,
		"createdBy":    l.CreatedBy.String(),
		"createdAt":    l.CreatedAt,
		"gameState":    l.State,
		"gameSettings": l.Settings,
	}
}

// IsPublicWaiting reports whether this lobby belongs in get_lobbies' listing.
func (l *Lobby) IsPublicWaiting() bool {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	return !l.IsPrivate && l.State == StateWaiting
}

// CreatorID returns the current creator/owner player id.
func (l *Lobby) CreatorID() uuid.UUID {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	return l.CreatedBy
}

// StateNow returns the current lifecycle state.
func (l *Lobby) StateNow() State {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	return l.State
}

// CheckPassword reports whether pw unlocks this lobby (always true for
// non-private lobbies).
func (l *Lobby) CheckPassword(pw string) bool {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	return !l.IsPrivate || l.Password == pw
}

// Notify broadcasts msg to every current member.
func (l *Lobby) Notify(msg map[string]interface{}) {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	l.broadcastAllUnsafe(msg, uuid.Nil)
}

// HasMember reports whether playerID currently belongs to this lobby.
func (l *Lobby) HasMember(playerID uuid.UUID) bool {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	_, ok := l.players[playerID]
	return ok
}

// SetPlayerName updates playerID's display name under Mu, the same lock the
// tick loop holds while reading Player.Name into every game_update broadcast
// (spec.md §5's single-writer-per-lobby model). A no-op if playerID isn't a
// current member.
func (l *Lobby) SetPlayerName(playerID uuid.UUID, name string) {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	if p, ok := l.players[playerID]; ok {
		p.Name = name
	}
}

var (
	errFull     = lobbyError("lobby is full")
	errInGame   = lobbyError("lobby is already playing")
	errNotFound = lobbyError("player not in lobby")
)

type lobbyError string

func (e lobbyError) Error() string { return string(e) }

func publicPlayerInfo(p *models.Player) map[string]interface{} {
	return map[string]interface{}{
		"id":          p.ID.String(),
		"name":        p.Name,
		"color":       p.Color,
		"isAlive":     p.IsAlive,
		"isReady":     p.IsReady,
		"score":       p.Score,
		"kills":       p.Kills,
		"deaths":      p.Deaths,
		"gamesPlayed": p.GamesPlayed,
		"gamesWon":    p.GamesWon,
	}
}

// broadcastAllUnsafe sends msg to every member's sink except excludePlayer
// (pass uuid.Nil to exclude nobody). Assumes Mu is held. Grounded on the
// teacher's BroadcastAllUnsafe: snapshot recipients, send failures to one
// sink never abort delivery to the rest (spec.md §4.2 "Broadcast").
func (l *Lobby) broadcastAllUnsafe(msg map[string]interface{}, excludePlayer uuid.UUID) {
	msg["timestamp"] = time.Now().UnixMilli()
	for _, id := range l.playerOrder {
		if id == excludePlayer {
			continue
		}
		l.players[id].Send(msg)
	}
}

// sortedRankingsUnsafe returns members ordered alive-before-dead, then higher
// score, then higher kills (spec.md §4.2 "Rankings ordering").
func (l *Lobby) sortedRankingsUnsafe() []map[string]interface{} {
	players := make([]*models.Player, 0, len(l.playerOrder))
	for _, id := range l.playerOrder {
		players = append(players, l.players[id])
	}
	sort.SliceStable(players, func(i, j int) bool {
		a, b := players[i], players[j]
		if a.IsAlive != b.IsAlive {
			return a.IsAlive
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Kills > b.Kills
	})
	out := make([]map[string]interface{}, 0, len(players))
	for _, p := range players {
		out = append(out, publicPlayerInfo(p))
	}
	return out
}
