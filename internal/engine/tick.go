package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/snakearena/server/internal/models"
)

// KillEvent records a fatal collision resolved during a tick. KillerID is the
// zero UUID when nobody is credited (wall, self, or a head-on-head double KO).
type KillEvent struct {
	VictimID uuid.UUID
	KillerID uuid.UUID
}

// FoodEvent records a food pickup resolved during a tick.
type FoodEvent struct {
	PlayerID uuid.UUID
	Value    int
}

// WeaponEvent records a weapon pickup resolved during a tick.
type WeaponEvent struct {
	PlayerID   uuid.UUID
	WeaponType string
}

// TickResult summarizes everything that happened in one Tick call, for the
// lobby to translate into outbound events and broadcasts.
type TickResult struct {
	Kills         []KillEvent
	FoodPickups   []FoodEvent
	WeaponPickups []WeaponEvent
	GameOver      bool
}

// Tick advances the simulation by one fixed step, in the order fixed by
// spec.md §4.3: advance heads, resolve collisions per player in lobby
// iteration order, maintain items, then check the win condition.
//
// SpeedMultiplier is honored via a per-player fractional accumulator: each
// player accrues SpeedMultiplier "movement credit" per call, and spends it one
// whole unit at a time, each spend running a full advance-then-resolve round
// for every player who still has a whole unit banked. A 1.0 multiplier always
// produces exactly one round; a 1.5 multiplier produces a second round every
// other tick. This keeps every movement decision inside one Tick call, so one
// game_update broadcast per tick still holds regardless of any player's speed.
func (w *World) Tick() TickResult {
	result := TickResult{}
	resolved := make(map[uuid.UUID]bool)

	for _, p := range w.Players {
		if p.IsAlive {
			p.MoveAccumulator += p.SpeedMultiplier
		}
	}

	for round := 0; round < 2; round++ {
		var moving []*models.Player
		for _, p := range w.Players {
			if !p.IsAlive || resolved[p.ID] {
				continue
			}
			if p.MoveAccumulator >= 1 {
				p.MoveAccumulator -= 1
				p.Snake = append([]models.Position{p.Head().Add(p.Direction)}, p.Snake...)
				moving = append(moving, p)
			}
		}
		if len(moving) == 0 {
			break
		}
		for _, p := range moving {
			if resolved[p.ID] {
				continue
			}
			w.resolvePlayerCollision(p, resolved, &result)
		}
	}

	w.MaybeSpawnItems()

	result.GameOver = w.checkWinCondition()
	return result
}

// resolvePlayerCollision runs the fixed if/elif chain from spec.md §4.3 step 3
// for a single player that just advanced its head this round.
func (w *World) resolvePlayerCollision(p *models.Player, resolved map[uuid.UUID]bool, result *TickResult) {
	head := p.Head()

	if !p.IsInvincible {
		if !head.InBounds(w.Settings.BoardSize) {
			w.killNoCredit(p, resolved, result)
			return
		}
		for _, seg := range p.Snake[1:] {
			if seg == head {
				w.killNoCredit(p, resolved, result)
				return
			}
		}
		if !p.CanPhaseThrough {
			for _, other := range w.Players {
				if other.ID == p.ID || !other.IsAlive || len(other.Snake) == 0 {
					continue
				}
				if other.Snake[0] == head {
					// Head-on-head: both die, neither credited.
					p.IsAlive = false
					other.IsAlive = false
					p.Deaths++
					other.Deaths++
					resolved[p.ID] = true
					resolved[other.ID] = true
					result.Kills = append(result.Kills,
						KillEvent{VictimID: p.ID, KillerID: uuid.Nil},
						KillEvent{VictimID: other.ID, KillerID: uuid.Nil},
					)
					return
				}
				for _, seg := range other.Snake[1:] {
					if seg == head {
						p.IsAlive = false
						p.Deaths++
						other.Score += killScoreBonus
						other.Kills++
						resolved[p.ID] = true
						result.Kills = append(result.Kills, KillEvent{VictimID: p.ID, KillerID: other.ID})
						return
					}
				}
			}
		}
	}

	for i, f := range w.Food {
		if f.Pos() == head {
			gain := f.Value * p.ScoreMultiplier
			p.Score += gain
			w.Food = append(w.Food[:i:i], w.Food[i+1:]...)
			result.FoodPickups = append(result.FoodPickups, FoodEvent{PlayerID: p.ID, Value: gain})
			return // growth: tail is not trimmed this sub-step
		}
	}

	for i, wp := range w.Weapons {
		if wp.Pos() == head {
			t := wp.Type
			p.Weapon = &t
			w.Weapons = append(w.Weapons[:i:i], w.Weapons[i+1:]...)
			result.WeaponPickups = append(result.WeaponPickups, WeaponEvent{PlayerID: p.ID, WeaponType: t})
			return
		}
	}

	// Plain move: trim the tail to keep snake length constant.
	p.Snake = p.Snake[:len(p.Snake)-1]
}

func (w *World) killNoCredit(p *models.Player, resolved map[uuid.UUID]bool, result *TickResult) {
	p.IsAlive = false
	p.Deaths++
	resolved[p.ID] = true
	result.Kills = append(result.Kills, KillEvent{VictimID: p.ID, KillerID: uuid.Nil})
}

// checkWinCondition evaluates spec.md §4.3 step 5 against the current world.
func (w *World) checkWinCondition() bool {
	switch w.Settings.WinCondition {
	case models.WinTimeLimit:
		return time.Since(w.GameStartTime) >= time.Duration(w.Settings.MaxGameTimeMs)*time.Millisecond
	default: // last_standing
		return w.AliveCount() <= 1
	}
}

// SoleSurvivor returns the one remaining alive player, or nil if zero or more
// than one player is alive. Used by the lobby to decide game_ended.winner —
// "sole survivor (if any)" per spec.md §4.2.
func (w *World) SoleSurvivor() *models.Player {
	var survivor *models.Player
	count := 0
	for _, p := range w.Players {
		if p.IsAlive {
			survivor = p
			count++
		}
	}
	if count != 1 {
		return nil
	}
	return survivor
}
