package lobby

import (
	"github.com/google/uuid"
	"github.com/snakearena/server/internal/engine"
	"github.com/snakearena/server/internal/models"
)

// HandlePlayerInput applies a player_input command forwarded by the Session
// Manager (spec.md §4.1). It is a no-op for any player who is absent, not
// alive, or whose lobby isn't currently playing — the session layer is
// expected to have already checked these preconditions, but the engine must
// never panic on a stale or racing input.
func (l *Lobby) HandlePlayerInput(playerID uuid.UUID, inputType string, direction *models.Direction) {
	l.Mu.Lock()
	defer l.Mu.Unlock()

	if l.State != StatePlaying || l.World == nil {
		return
	}
	p, ok := l.players[playerID]
	if !ok || !p.IsAlive {
		return
	}

	switch inputType {
	case "direction":
		if direction != nil {
			engine.SetDirection(p, *direction)
		}
	case "use_weapon":
		_ = l.World.ActivateWeapon(p)
	}
}
