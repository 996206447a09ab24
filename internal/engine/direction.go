package engine

import "github.com/snakearena/server/internal/models"

// SetDirection applies a direction update for player immediately (spec.md §4.3:
// "applied on the receiving goroutine/handler, not deferred to tick start").
// It rejects an update that exactly negates the current direction, and returns
// whether the update was accepted. At most one net effective change survives
// per tick since a later accepted update simply overwrites the field again
// before the next tick reads it.
func SetDirection(player *models.Player, dir models.Direction) bool {
	if !models.IsValidDirection(dir) {
		return false
	}
	if dir.Equal(player.Direction.Opposite()) {
		return false
	}
	player.Direction = dir
	return true
}
