package models

import "github.com/google/uuid"

// Sender delivers an outbound message to whatever transport backs a player's session.
// Lobby and engine code depend only on this interface, never on the transport package.
type Sender interface {
	Send(msg interface{})
}

// ColorPalette is the fixed, read-only set of colors assigned to players in connection order.
var ColorPalette = []string{
	"#e74c3c", "#3498db", "#2ecc71", "#f1c40f",
	"#9b59b6", "#1abc9c", "#e67e22", "#ecf0f1",
}

// Player is the authoritative per-lobby gameplay state for one participant.
// Connection bookkeeping (lastActivity, lobby membership, the transport sink)
// lives on the session that owns this player; Player holds the display identity
// (id, name, color), the gameplay state, and a Sink for per-player events.
type Player struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color"`

	Snake     []Position `json:"snake"`
	Direction Direction  `json:"direction"`
	IsAlive   bool       `json:"isAlive"`
	IsReady   bool       `json:"isReady"`

	Score  int `json:"score"`
	Kills  int `json:"kills"`
	Deaths int `json:"deaths"`

	Weapon *string `json:"weapon,omitempty"`

	SpeedMultiplier float64 `json:"speedMultiplier"`
	IsInvincible    bool    `json:"isInvincible"`
	CanPhaseThrough bool    `json:"canPhaseThrough"`
	ScoreMultiplier int     `json:"scoreMultiplier"`

	GamesPlayed int `json:"gamesPlayed"`
	GamesWon    int `json:"gamesWon"`

	// MoveAccumulator carries fractional extra-steps earned by SpeedMultiplier
	// across ticks; see internal/engine for how it is consumed.
	MoveAccumulator float64 `json:"-"`

	// Sink delivers events addressed to this player alone (e.g. weapon_acquired, killed).
	Sink Sender `json:"-"`
}

// NewPlayer creates a player in its default, pre-game gameplay state.
func NewPlayer(id uuid.UUID, name, color string) *Player {
	return &Player{
		ID:              id,
		Name:            name,
		Color:           color,
		Direction:       DirRight,
		ScoreMultiplier: 1,
	}
}

// ResetForGame clears all per-game gameplay state, ready for a new round.
// Cumulative counters (GamesPlayed, GamesWon) are left untouched.
func (p *Player) ResetForGame() {
	p.Snake = nil
	p.Direction = DirRight
	p.IsAlive = true
	p.IsReady = false
	p.Score = 0
	p.Kills = 0
	p.Deaths = 0
	p.Weapon = nil
	p.SpeedMultiplier = 1
	p.IsInvincible = false
	p.CanPhaseThrough = false
	p.ScoreMultiplier = 1
	p.MoveAccumulator = 0
}

// Head returns the player's current head position, or the zero position if the
// snake hasn't been placed yet.
func (p *Player) Head() Position {
	if len(p.Snake) == 0 {
		return Position{}
	}
	return p.Snake[0]
}

// Occupies reports whether pos is any segment of this snake.
func (p *Player) Occupies(pos Position) bool {
	for _, seg := range p.Snake {
		if seg == pos {
			return true
		}
	}
	return false
}

// Send forwards a message to the player's sink, if attached.
func (p *Player) Send(msg interface{}) {
	if p.Sink != nil {
		p.Sink.Send(msg)
	}
}
