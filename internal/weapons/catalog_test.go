package weapons

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snakearena/server/internal/models"
)

func TestCatalog_EveryRarityHasAtLeastOneEntry(t *testing.T) {
	for _, rw := range rarityWeights {
		assert.NotEmpty(t, byRarity[rw.rarity], "rarity %s should have at least one weapon", rw.rarity)
	}
}

func TestGetRandomWeapon_AlwaysReturnsCatalogType(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		wt := GetRandomWeapon(rng)
		_, ok := Catalog[wt]
		require.True(t, ok, "GetRandomWeapon returned unknown type %q", wt)
	}
}

func TestGetRandomWeapon_RoughlyMatchesRarityWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	counts := map[string]int{}
	const trials = 20000
	for i := 0; i < trials; i++ {
		wt := GetRandomWeapon(rng)
		counts[Catalog[wt].Rarity]++
	}
	// 50/30/15/5 split; allow generous tolerance since this is a statistical check.
	assert.InDelta(t, 0.50, float64(counts[RarityCommon])/trials, 0.05)
	assert.InDelta(t, 0.30, float64(counts[RarityUncommon])/trials, 0.05)
	assert.InDelta(t, 0.15, float64(counts[RarityRare])/trials, 0.05)
	assert.InDelta(t, 0.05, float64(counts[RarityLegendary])/trials, 0.03)
}

func testBoard() Board {
	occupied := map[models.Position]bool{}
	return Board{
		Size:        20,
		IsOccupied:  func(p models.Position) bool { return occupied[p] },
		SpawnFoodAt: func(p models.Position) { occupied[p] = true },
	}
}

func newActivationPlayer() *models.Player {
	p := models.NewPlayer(uuid.New(), "A", "#fff")
	p.Snake = []models.Position{{X: 10, Y: 10}, {X: 9, Y: 10}, {X: 8, Y: 10}}
	p.Direction = models.DirRight
	p.IsAlive = true
	p.ScoreMultiplier = 1
	return p
}

func TestActivate_SpeedBoostSetsMultiplierAndClearsWeapon(t *testing.T) {
	s := NewScheduler(&sync.Mutex{})
	p := newActivationPlayer()
	p.Weapon = ptr(TypeSpeedBoost)

	require.NoError(t, s.Activate(p, TypeSpeedBoost, testBoard(), rand.New(rand.NewSource(1))))
	assert.Equal(t, 1.5, p.SpeedMultiplier)
	assert.Nil(t, p.Weapon, "weapon slot is cleared after activation")

	s.CancelAll()
}

// scheduleRevert is exercised directly (rather than through Activate) with a
// short duration so the test doesn't have to wait out a real catalog
// duration (the catalog itself stays immutable, per spec.md §5).
func TestScheduler_RevertFiresAfterDuration(t *testing.T) {
	s := NewScheduler(&sync.Mutex{})
	id := uuid.New()
	reverted := make(chan struct{})

	s.scheduleRevert(id, 20*time.Millisecond, func() { close(reverted) })

	select {
	case <-reverted:
	case <-time.After(time.Second):
		t.Fatal("revert callback never fired")
	}
}

func TestScheduler_CancelStopsPendingRevert(t *testing.T) {
	s := NewScheduler(&sync.Mutex{})
	id := uuid.New()
	reverted := false

	s.scheduleRevert(id, 50*time.Millisecond, func() { reverted = true })
	s.Cancel(id)

	time.Sleep(100 * time.Millisecond)
	assert.False(t, reverted, "cancelled revert must not fire")
}

func TestActivate_FoodBombIsInstantAndInBounds(t *testing.T) {
	s := NewScheduler(&sync.Mutex{})
	p := newActivationPlayer()
	board := testBoard()
	var spawned []models.Position
	spawnFoodAt := board.SpawnFoodAt
	board.SpawnFoodAt = func(pos models.Position) {
		spawned = append(spawned, pos)
		spawnFoodAt(pos)
	}

	require.NoError(t, s.Activate(p, TypeFoodBomb, board, rand.New(rand.NewSource(3))))
	assert.Len(t, spawned, foodBombCount)
	for _, pos := range spawned {
		assert.True(t, pos.InBounds(board.Size), "food bomb placed %v off the board", pos)
	}
	// Instant effect: nothing left pending to cancel.
	s.mu.Lock()
	assert.Empty(t, s.timers)
	s.mu.Unlock()
	s.CancelAll()
}

func TestActivate_TeleportMovesHead(t *testing.T) {
	s := NewScheduler(&sync.Mutex{})
	p := newActivationPlayer()
	originalHead := p.Head()
	board := testBoard()

	require.NoError(t, s.Activate(p, TypeTeleport, board, rand.New(rand.NewSource(9))))
	assert.True(t, p.Head().InBounds(board.Size))
	assert.NotEqual(t, originalHead, p.Head(), "teleport should move the head")
}

func TestActivate_UnknownWeaponErrors(t *testing.T) {
	s := NewScheduler(&sync.Mutex{})
	p := newActivationPlayer()
	err := s.Activate(p, "not_a_real_weapon", testBoard(), rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestActivate_ReservedWeaponsStillClearSlot(t *testing.T) {
	s := NewScheduler(&sync.Mutex{})
	for _, wt := range []string{TypeLaser, TypeShrink, TypeFreeze, TypeMagnet} {
		p := newActivationPlayer()
		p.Weapon = ptr(wt)
		require.NoError(t, s.Activate(p, wt, testBoard(), rand.New(rand.NewSource(1))))
		assert.Nil(t, p.Weapon, "activating %s must still clear the held weapon", wt)
	}
}

func ptr(s string) *string { return &s }
