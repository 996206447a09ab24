package models

import "github.com/google/uuid"

// Food is a consumable item that grows a snake and increments score on pickup.
type Food struct {
	ID    uuid.UUID `json:"id"`
	X     int       `json:"x"`
	Y     int       `json:"y"`
	Type  string    `json:"type"`
	Value int       `json:"value"`
}

// NewFood creates a standard food item at the given cell.
func NewFood(x, y int) *Food {
	id, _ := uuid.NewRandom()
	return &Food{ID: id, X: x, Y: y, Type: "normal", Value: 10}
}

// Pos returns the food's grid position.
func (f *Food) Pos() Position {
	return Position{X: f.X, Y: f.Y}
}

// WeaponPickup is a board item that, once traversed, grants a stored weapon.
type WeaponPickup struct {
	ID   uuid.UUID `json:"id"`
	X    int       `json:"x"`
	Y    int       `json:"y"`
	Type string    `json:"type"`
}

// NewWeaponPickup creates a weapon item of the given catalog type at the given cell.
func NewWeaponPickup(x, y int, weaponType string) *WeaponPickup {
	id, _ := uuid.NewRandom()
	return &WeaponPickup{ID: id, X: x, Y: y, Type: weaponType}
}

// Pos returns the weapon pickup's grid position.
func (w *WeaponPickup) Pos() Position {
	return Position{X: w.X, Y: w.Y}
}
