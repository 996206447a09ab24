// Package session implements the Connection & Session Manager from spec.md
// §4.1: session identity/activity bookkeeping, inbound command routing,
// the idle sweep, and process-wide registries. It is grounded on the
// teacher's internal/handlers/game_ws.go read-loop dispatch and
// internal/handlers/api_server.go composition-root shape, generalized into
// an explicit injected SessionManager value rather than ambient globals
// (spec.md §9 design notes).
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/snakearena/server/internal/models"
)

// Sink delivers outbound frames to whatever transport backs a session and
// can tear the connection down. internal/transport.Conn satisfies this.
type Sink interface {
	Send(msg interface{})
	Close(reason string)
}

// Session is one connected participant: a stable id, activity bookkeeping,
// and the lobby (if any) it currently belongs to. Gameplay state lives on
// the embedded Player; Session owns everything connection-shaped spec.md §3
// groups under "Player/Session".
type Session struct {
	ID          uuid.UUID
	Player      *models.Player
	ConnectedAt time.Time

	mu           sync.Mutex
	lastActivity time.Time
	lobbyID      uuid.UUID
	sink         Sink
}

func newSession(id uuid.UUID, player *models.Player, sink Sink) *Session {
	s := &Session{
		ID:           id,
		Player:       player,
		ConnectedAt:  time.Now(),
		lastActivity: time.Now(),
		sink:         sink,
	}
	player.Sink = s
	return s
}

// Send implements models.Sender by forwarding to the transport sink, so a
// Session can be assigned directly as a Player's outbound sink.
func (s *Session) Send(msg interface{}) {
	s.sink.Send(msg)
}

// Close tears down the underlying transport connection with the given
// close reason (spec.md §6: "Inactive" or "Manual disconnect").
func (s *Session) Close(reason string) {
	s.sink.Close(reason)
}

// Touch bumps lastActivity to now. Called for every inbound message
// (spec.md §4.1: "Every inbound message bumps lastActivity").
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// IdleSince returns how long it has been since the last inbound message.
func (s *Session) IdleSince() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity)
}

// LobbyID returns the id of the lobby this session currently belongs to, or
// uuid.Nil if it isn't in one.
func (s *Session) LobbyID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lobbyID
}

func (s *Session) setLobbyID(id uuid.UUID) {
	s.mu.Lock()
	s.lobbyID = id
	s.mu.Unlock()
}

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
