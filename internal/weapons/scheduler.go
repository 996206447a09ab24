package weapons

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/snakearena/server/internal/models"
)

// Board is the minimal world view a weapon effect needs to place items.
// internal/engine's World builds one from its own state in boardView.
type Board struct {
	Size        int
	IsOccupied  func(models.Position) bool
	SpawnFoodAt func(models.Position)
}

// Scheduler tracks pending effect-revert timers per player, grounded on the
// teacher's time.AfterFunc-driven preGameTimer/turnTimer idiom
// (internal/game/game.go BeginPreGame). One Scheduler serves one lobby.
//
// Reverts mutate Player fields the tick loop reads every tick under the
// owning lobby's lock, so a revert firing on its own timer goroutine must
// re-acquire that same lock first — the teacher does this inside its
// CountdownTimer callback (lobby.Mu.Lock()) and Scheduler follows the same
// idiom via locker.
type Scheduler struct {
	locker sync.Locker

	mu     sync.Mutex
	timers map[uuid.UUID]*time.Timer
}

// NewScheduler creates an empty effect scheduler whose reverts run under locker
// — the owning lobby's Mu, so a timer-fired revert never races the tick loop's
// reads of the same player fields.
func NewScheduler(locker sync.Locker) *Scheduler {
	return &Scheduler{locker: locker, timers: make(map[uuid.UUID]*time.Timer)}
}

// Activate applies the named weapon's effect to player, per the table in
// spec.md §4.4. Instant effects (food_bomb, teleport) resolve immediately;
// timed effects schedule a revert and cancel any prior pending revert for
// this player. The weapon is always cleared from the player's held slot.
func (s *Scheduler) Activate(player *models.Player, weaponType string, board Board, rng *rand.Rand) error {
	def, ok := Catalog[weaponType]
	if !ok {
		return fmt.Errorf("unknown weapon type %q", weaponType)
	}
	player.Weapon = nil

	switch weaponType {
	case TypeSpeedBoost:
		player.SpeedMultiplier = 1.5
		s.scheduleRevert(player.ID, def.Duration, func() { player.SpeedMultiplier = 1 })
	case TypeShield:
		player.IsInvincible = true
		s.scheduleRevert(player.ID, def.Duration, func() { player.IsInvincible = false })
	case TypeGhost:
		player.CanPhaseThrough = true
		s.scheduleRevert(player.ID, def.Duration, func() { player.CanPhaseThrough = false })
	case TypeDoubleScore:
		player.ScoreMultiplier = 2
		s.scheduleRevert(player.ID, def.Duration, func() { player.ScoreMultiplier = 1 })
	case TypeFoodBomb:
		spawnFoodRing(player, board)
	case TypeTeleport:
		teleportPlayer(player, board, rng)
	case TypeLaser, TypeShrink, TypeFreeze, TypeMagnet:
		// Reserved: catalog entry exists and activation consumes the weapon,
		// but no gameplay effect is implemented (spec.md §4.4).
	}
	return nil
}

// scheduleRevert cancels any existing timer for playerID and starts a new one.
// revert is invoked under s.locker — the instant (d<=0) case runs it inline on
// the assumption that Activate's caller already holds that same lock (true for
// every call site: HandlePlayerInput holds Mu for the whole handler); the
// timer-fired case re-acquires it explicitly, since it runs on its own
// goroutine well after the caller released the lock.
func (s *Scheduler) scheduleRevert(playerID uuid.UUID, d time.Duration, revert func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[playerID]; ok {
		t.Stop()
	}
	if d <= 0 {
		revert()
		delete(s.timers, playerID)
		return
	}
	s.timers[playerID] = time.AfterFunc(d, func() {
		s.locker.Lock()
		revert()
		s.locker.Unlock()
		s.mu.Lock()
		delete(s.timers, playerID)
		s.mu.Unlock()
	})
}

// CancelAll stops every pending revert timer. Callers must still reset each
// player's effect flags themselves (see ResetForGame) since CancelAll does not
// know which flags each timer would have reverted.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// Cancel stops the pending revert timer for a single player, e.g. on death.
func (s *Scheduler) Cancel(playerID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[playerID]; ok {
		t.Stop()
		delete(s.timers, playerID)
	}
}

const foodBombCount = 5

// spawnFoodRing scatters foodBombCount food items on a circle of radius 2
// around the player's head, at angles 2*pi*i/foodBombCount, rounded to the grid.
func spawnFoodRing(player *models.Player, board Board) {
	head := player.Head()
	const radius = 2.0
	for i := 0; i < foodBombCount; i++ {
		angle := 2 * math.Pi * float64(i) / float64(foodBombCount)
		x := head.X + int(math.Round(radius*math.Cos(angle)))
		y := head.Y + int(math.Round(radius*math.Sin(angle)))
		pos := models.Position{X: x, Y: y}
		if !pos.InBounds(board.Size) || board.IsOccupied(pos) {
			continue
		}
		board.SpawnFoodAt(pos)
	}
}

// teleportPlayer moves the player's head to a uniformly random unoccupied cell,
// rejection-sampling like the tick engine's item spawner (spec.md §4.3).
func teleportPlayer(player *models.Player, board Board, rng *rand.Rand) {
	for attempt := 0; attempt < 100; attempt++ {
		pos := models.Position{X: rng.Intn(board.Size), Y: rng.Intn(board.Size)}
		if board.IsOccupied(pos) {
			continue
		}
		if len(player.Snake) > 0 {
			player.Snake[0] = pos
		} else {
			player.Snake = []models.Position{pos}
		}
		return
	}
}
