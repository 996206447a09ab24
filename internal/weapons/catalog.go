// Package weapons implements the weapon effects catalog and timed-effect
// scheduler described in spec.md §4.4.
package weapons

import (
	"math/rand"
	"time"
)

// Rarity tiers and their selection weights (spec.md §4.4: 50/30/15/5).
const (
	RarityCommon    = "common"
	RarityUncommon  = "uncommon"
	RarityRare      = "rare"
	RarityLegendary = "legendary"
)

// Weapon types, used as keys into the catalog and as Player.Weapon values.
const (
	TypeSpeedBoost  = "speed_boost"
	TypeShield      = "shield"
	TypeGhost       = "ghost"
	TypeDoubleScore = "double_score"
	TypeFoodBomb    = "food_bomb"
	TypeTeleport    = "teleport"
	TypeLaser       = "laser"
	TypeShrink      = "shrink"
	TypeFreeze      = "freeze"
	TypeMagnet      = "magnet"
)

// Definition describes one catalog entry. Duration is the effect's lifetime once
// activated; instant effects (food_bomb, teleport) leave it zero.
type Definition struct {
	Name        string
	Type        string
	Description string
	Duration    time.Duration
	Color       string
	Icon        string
	Rarity      string
}

// Catalog is the immutable, process-wide weapon table (spec.md §5: "immutable once
// initialized"). It is initialized at package load and never mutated afterward;
// init only derives the byRarity index from it.
var Catalog = map[string]Definition{
	TypeSpeedBoost: {
		Name: "Speed Boost", Type: TypeSpeedBoost,
		Description: "Move 1.5x faster for a short time.",
		Duration:    8 * time.Second, Color: "#f1c40f", Icon: "bolt", Rarity: RarityCommon,
	},
	TypeShield: {
		Name: "Shield", Type: TypeShield,
		Description: "Become invincible to collisions.",
		Duration:    6 * time.Second, Color: "#3498db", Icon: "shield", Rarity: RarityUncommon,
	},
	TypeGhost: {
		Name: "Ghost", Type: TypeGhost,
		Description: "Phase through other snakes.",
		Duration:    6 * time.Second, Color: "#9b59b6", Icon: "ghost", Rarity: RarityUncommon,
	},
	TypeDoubleScore: {
		Name: "Double Score", Type: TypeDoubleScore,
		Description: "Earn double points from food.",
		Duration:    10 * time.Second, Color: "#2ecc71", Icon: "star", Rarity: RarityRare,
	},
	TypeFoodBomb: {
		Name: "Food Bomb", Type: TypeFoodBomb,
		Description: "Scatter food around you.",
		Duration:    0, Color: "#e67e22", Icon: "bomb", Rarity: RarityCommon,
	},
	TypeTeleport: {
		Name: "Teleport", Type: TypeTeleport,
		Description: "Blink to a random free cell.",
		Duration:    0, Color: "#1abc9c", Icon: "portal", Rarity: RarityRare,
	},
	TypeLaser: {
		Name: "Laser", Type: TypeLaser,
		Description: "Reserved for a future ranged attack.",
		Duration:    0, Color: "#e74c3c", Icon: "laser", Rarity: RarityLegendary,
	},
	TypeShrink: {
		Name: "Shrink", Type: TypeShrink,
		Description: "Reserved for a future length reset.",
		Duration:    0, Color: "#95a5a6", Icon: "shrink", Rarity: RarityRare,
	},
	TypeFreeze: {
		Name: "Freeze", Type: TypeFreeze,
		Description: "Reserved for a future opponent freeze.",
		Duration:    4 * time.Second, Color: "#00bcd4", Icon: "snowflake", Rarity: RarityLegendary,
	},
	TypeMagnet: {
		Name: "Magnet", Type: TypeMagnet,
		Description: "Reserved for a future food-attraction effect.",
		Duration:    6 * time.Second, Color: "#d35400", Icon: "magnet", Rarity: RarityCommon,
	},
}

// byRarity indexes catalog keys by rarity tier for GetRandomWeapon.
var byRarity = map[string][]string{}

func init() {
	for t, def := range Catalog {
		byRarity[def.Rarity] = append(byRarity[def.Rarity], t)
	}
}

// rarityWeights mirrors the catalog's documented 50/30/15/5 split.
var rarityWeights = []struct {
	rarity string
	weight int
}{
	{RarityCommon, 50},
	{RarityUncommon, 30},
	{RarityRare, 15},
	{RarityLegendary, 5},
}

// GetRandomWeapon picks a rarity by weight, then a weapon uniformly within it.
// Returns "" if the catalog has no entries for the chosen rarity (defensive; the
// static catalog above always has at least one per tier).
func GetRandomWeapon(rng *rand.Rand) string {
	total := 0
	for _, rw := range rarityWeights {
		total += rw.weight
	}
	roll := rng.Intn(total)
	var chosen string
	for _, rw := range rarityWeights {
		if roll < rw.weight {
			chosen = rw.rarity
			break
		}
		roll -= rw.weight
	}
	pool := byRarity[chosen]
	if len(pool) == 0 {
		return ""
	}
	return pool[rng.Intn(len(pool))]
}
