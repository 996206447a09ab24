// Package engine implements the fixed-tick simulation described in spec.md §4.3:
// movement, collision resolution, item spawning, and win-condition checks for a
// single lobby's active game.
package engine

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/snakearena/server/internal/models"
	"github.com/snakearena/server/internal/weapons"
)

const (
	foodSpawnChance   = 0.10
	weaponSpawnChance = 0.05
	maxSpawnAttempts  = 100
	killScoreBonus    = 50
)

// World is the authoritative per-lobby simulation state: the board, the
// players in join order, and the items currently in play. It is grounded on
// the teacher's sync_state.go ObfGameState snapshot-building pattern, adapted
// from a per-request read view into the mutated-in-place simulation itself.
type World struct {
	Settings models.GameSettings
	Players  []*models.Player // join order; iteration order throughout per spec.md §3
	Food     []*models.Food
	Weapons  []*models.WeaponPickup

	GameStartTime time.Time

	rng       *rand.Rand
	scheduler *weapons.Scheduler
}

// NewWorld creates an empty simulation for the given settings. locker is the
// owning lobby's Mu: weapon-effect reverts fire on their own timer goroutine
// and must hold the same lock the tick loop holds while reading the fields
// they mutate (SpeedMultiplier, IsInvincible, CanPhaseThrough, ScoreMultiplier).
func NewWorld(settings models.GameSettings, rng *rand.Rand, locker sync.Locker) *World {
	return &World{
		Settings:  settings,
		rng:       rng,
		scheduler: weapons.NewScheduler(locker),
	}
}

// Scheduler exposes the weapon-effect scheduler so lobby code can cancel
// timers when a game ends early.
func (w *World) Scheduler() *weapons.Scheduler {
	return w.scheduler
}

// boardView adapts World to weapons.Board for effect activation (food_bomb, teleport).
func (w *World) boardView() weapons.Board {
	return weapons.Board{
		Size:        w.Settings.BoardSize,
		IsOccupied:  w.IsOccupied,
		SpawnFoodAt: func(pos models.Position) { w.Food = append(w.Food, models.NewFood(pos.X, pos.Y)) },
	}
}

// ActivateWeapon applies player's currently-held weapon effect and clears it,
// per spec.md §4.4's explicit pickup-then-activate model.
func (w *World) ActivateWeapon(player *models.Player) error {
	if player.Weapon == nil {
		return nil
	}
	return w.scheduler.Activate(player, *player.Weapon, w.boardView(), w.rng)
}

// IsOccupied reports whether pos is covered by any alive snake segment or any
// existing food/weapon item — the shared occupancy predicate spawn placement
// and weapon effects both reject against (spec.md §3 invariant).
func (w *World) IsOccupied(pos models.Position) bool {
	for _, p := range w.Players {
		if !p.IsAlive {
			continue
		}
		if p.Occupies(pos) {
			return true
		}
	}
	for _, f := range w.Food {
		if f.Pos() == pos {
			return true
		}
	}
	for _, wp := range w.Weapons {
		if wp.Pos() == pos {
			return true
		}
	}
	return false
}

// PlacePlayerStart seeds a fresh 3-segment snake for player at a random cell,
// such that head and the two following segments all lie within
// [3, boardSize-4] on each axis (spec.md §4.2 countdown step).
func (w *World) PlacePlayerStart(player *models.Player) {
	size := w.Settings.BoardSize
	lo, hi := 3, size-4
	if hi-lo < 2 {
		lo, hi = 0, size-1
	}
	for attempt := 0; attempt < maxSpawnAttempts; attempt++ {
		hx := lo + 2 + w.rng.Intn(hi-lo-1)
		hy := lo + w.rng.Intn(hi-lo+1)
		head := models.Position{X: hx, Y: hy}
		snake := []models.Position{
			head,
			{X: hx - 1, Y: hy},
			{X: hx - 2, Y: hy},
		}
		if w.IsOccupied(head) {
			continue
		}
		player.Snake = snake
		player.Direction = models.DirRight
		player.IsAlive = true
		return
	}
	// Fallback: place deterministically if repeated random placement collided
	// (pathological for a near-full board at game start).
	player.Snake = []models.Position{{X: lo + 2, Y: lo}, {X: lo + 1, Y: lo}, {X: lo, Y: lo}}
	player.Direction = models.DirRight
	player.IsAlive = true
}

// SpawnFood places one food item at a uniformly random unoccupied cell,
// rejection-sampling up to maxSpawnAttempts times before giving up silently
// (spec.md §4.3 item maintenance / §7 "spawn exhaustion").
func (w *World) SpawnFood() {
	pos, ok := w.randomFreeCell()
	if !ok {
		return
	}
	w.Food = append(w.Food, models.NewFood(pos.X, pos.Y))
}

// SpawnWeapon places one random-catalog weapon pickup at a free cell.
func (w *World) SpawnWeapon() {
	pos, ok := w.randomFreeCell()
	if !ok {
		return
	}
	wt := weapons.GetRandomWeapon(w.rng)
	if wt == "" {
		return
	}
	w.Weapons = append(w.Weapons, models.NewWeaponPickup(pos.X, pos.Y, wt))
}

func (w *World) randomFreeCell() (models.Position, bool) {
	size := w.Settings.BoardSize
	for attempt := 0; attempt < maxSpawnAttempts; attempt++ {
		pos := models.Position{X: w.rng.Intn(size), Y: w.rng.Intn(size)}
		if !w.IsOccupied(pos) {
			return pos, true
		}
	}
	return models.Position{}, false
}

// SpawnInitialItems places the standard pre-game item set: 5 food and, if
// weapons are enabled, 3 weapon pickups (spec.md §4.2).
func (w *World) SpawnInitialItems() {
	for i := 0; i < 5; i++ {
		w.SpawnFood()
	}
	if w.Settings.WeaponsEnabled {
		for i := 0; i < 3; i++ {
			w.SpawnWeapon()
		}
	}
}

// MaybeSpawnItems runs the independent Bernoulli spawn trials for one tick
// (spec.md §4.3 step 4).
func (w *World) MaybeSpawnItems() {
	if w.rng.Float64() < foodSpawnChance {
		w.SpawnFood()
	}
	if w.Settings.WeaponsEnabled && w.rng.Float64() < weaponSpawnChance {
		w.SpawnWeapon()
	}
}

// RemoveFood deletes the food item with the given id, if present.
func (w *World) RemoveFood(id uuid.UUID) {
	for i, f := range w.Food {
		if f.ID == id {
			w.Food = append(w.Food[:i], w.Food[i+1:]...)
			return
		}
	}
}

// RemoveWeapon deletes the weapon pickup with the given id, if present.
func (w *World) RemoveWeapon(id uuid.UUID) {
	for i, wp := range w.Weapons {
		if wp.ID == id {
			w.Weapons = append(w.Weapons[:i], w.Weapons[i+1:]...)
			return
		}
	}
}

// AliveCount returns how many players currently have IsAlive set.
func (w *World) AliveCount() int {
	n := 0
	for _, p := range w.Players {
		if p.IsAlive {
			n++
		}
	}
	return n
}
