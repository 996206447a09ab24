package lobby

import (
	"time"

	"github.com/google/uuid"
	"github.com/snakearena/server/internal/engine"
	"github.com/snakearena/server/internal/models"
)

// StartGame transitions the lobby waiting → starting, places every member's
// snake, seeds initial items, and runs the 3-2-1 countdown before the tick
// engine takes over (spec.md §4.2 "Countdown").
func (l *Lobby) StartGame() {
	l.Mu.Lock()
	if l.State != StateWaiting || len(l.playerOrder) < minPlayersToStart {
		l.Mu.Unlock()
		return
	}

	l.State = StateStarting
	l.GameStartTime = time.Now()

	world := engine.NewWorld(l.Settings, l.rng, &l.Mu)
	for _, id := range l.playerOrder {
		world.Players = append(world.Players, l.players[id])
	}
	for _, p := range world.Players {
		world.PlacePlayerStart(p)
	}
	world.SpawnInitialItems()
	l.World = world

	l.broadcastAllUnsafe(map[string]interface{}{
		"type":      "game_starting",
		"countdown": 3,
	}, uuid.Nil)

	epoch := l.epoch
	l.Mu.Unlock()

	go l.runCountdown(epoch)
}

// runCountdown broadcasts the remaining counts and flips the lobby to
// playing, starting the tick loop. epoch must still match at each step or the
// countdown is stale (lobby was reset/destroyed/reused) and aborts silently —
// mirrors the teacher's CountdownTimer identity re-check.
func (l *Lobby) runCountdown(epoch int) {
	for _, count := range []int{2, 1} {
		time.Sleep(countdownInterval)
		l.Mu.Lock()
		if l.epoch != epoch || l.State != StateStarting {
			l.Mu.Unlock()
			return
		}
		l.broadcastAllUnsafe(map[string]interface{}{"type": "countdown", "count": count}, uuid.Nil)
		l.Mu.Unlock()
	}

	time.Sleep(countdownInterval)
	l.Mu.Lock()
	defer l.Mu.Unlock()
	if l.epoch != epoch || l.State != StateStarting {
		return
	}
	l.State = StatePlaying
	l.broadcastAllUnsafe(map[string]interface{}{"type": "game_started"}, uuid.Nil)
	l.startTickLoopUnsafe(epoch)
}

// startTickLoopUnsafe spawns the per-lobby goroutine driving engine.World.Tick
// at Settings.GameSpeedMs, grounded on the tankio per-lobby-goroutine-plus-
// ticker idiom. Assumes Mu is held.
func (l *Lobby) startTickLoopUnsafe(epoch int) {
	l.ticker = time.NewTicker(time.Duration(l.Settings.GameSpeedMs) * time.Millisecond)
	go l.tickLoop(l.ticker, epoch)
}

func (l *Lobby) tickLoop(ticker *time.Ticker, epoch int) {
	for range ticker.C {
		l.Mu.Lock()
		if l.epoch != epoch || l.State != StatePlaying {
			l.Mu.Unlock()
			return
		}

		result := l.World.Tick()
		l.handleTickEventsUnsafe(result)

		if result.GameOver {
			ticker.Stop()
			l.ticker = nil
			l.endGameUnsafe()
			l.Mu.Unlock()
			return
		}

		l.broadcastAllUnsafe(l.gameUpdatePayloadUnsafe(), uuid.Nil)
		l.Mu.Unlock()
	}
}

// handleTickEventsUnsafe translates one tick's engine.TickResult into the
// per-player notifications spec.md §4.3 names (killed, kill_awarded,
// weapon_acquired). Assumes Mu is held.
func (l *Lobby) handleTickEventsUnsafe(result engine.TickResult) {
	for _, k := range result.Kills {
		if victim, ok := l.players[k.VictimID]; ok {
			victim.Send(map[string]interface{}{
				"type":      "killed",
				"killerId":  nilableUUID(k.KillerID),
				"timestamp": time.Now().UnixMilli(),
			})
		}
		if k.KillerID != uuid.Nil {
			if killer, ok := l.players[k.KillerID]; ok {
				killer.Send(map[string]interface{}{
					"type":      "kill_awarded",
					"victimId":  k.VictimID.String(),
					"timestamp": time.Now().UnixMilli(),
				})
			}
		}
	}
	for _, wp := range result.WeaponPickups {
		if p, ok := l.players[wp.PlayerID]; ok {
			p.Send(map[string]interface{}{
				"type":       "weapon_acquired",
				"weaponType": wp.WeaponType,
				"timestamp":  time.Now().UnixMilli(),
			})
		}
	}
}

func nilableUUID(id uuid.UUID) interface{} {
	if id == uuid.Nil {
		return nil
	}
	return id.String()
}

// gameUpdatePayloadUnsafe builds the game_update broadcast (spec.md §4.3
// step 6). Assumes Mu is held.
func (l *Lobby) gameUpdatePayloadUnsafe() map[string]interface{} {
	players := make([]map[string]interface{}, 0, len(l.World.Players))
	for _, p := range l.World.Players {
		info := publicPlayerInfo(p)
		info["snake"] = p.Snake
		info["direction"] = p.Direction
		info["weapon"] = p.Weapon
		players = append(players, info)
	}
	return map[string]interface{}{
		"type": "game_update",
		"gameState": map[string]interface{}{
			"players":   players,
			"food":      l.World.Food,
			"weapons":   l.World.Weapons,
			"gameTime":  time.Since(l.GameStartTime).Milliseconds(),
			"boardSize": l.Settings.BoardSize,
		},
	}
}

// endGameUnsafe stops the tick engine, awards gamesWon to a sole survivor (if
// any), broadcasts game_ended, and schedules the 10 s post-game reset
// (spec.md §4.2 "Ending"). Assumes Mu is held; caller must have already
// stopped l.ticker if one was running.
func (l *Lobby) endGameUnsafe() {
	l.State = StateFinished
	if l.World != nil {
		l.World.Scheduler().CancelAll()
	}

	var winner interface{}
	if l.World != nil {
		if survivor := l.World.SoleSurvivor(); survivor != nil {
			survivor.GamesWon++
			winner = publicPlayerInfo(survivor)
		}
	}
	for _, id := range l.playerOrder {
		l.players[id].GamesPlayed++
	}

	l.broadcastAllUnsafe(map[string]interface{}{
		"type":    "game_ended",
		"winner":  winner,
		"rankings": l.sortedRankingsUnsafe(),
		"gameStats": map[string]interface{}{
			"durationMs": time.Since(l.GameStartTime).Milliseconds(),
		},
	}, uuid.Nil)

	l.epoch++
	epoch := l.epoch
	time.AfterFunc(postGameResetWait, func() { l.resetAfterGame(epoch) })
}

// resetAfterGame implements spec.md §4.2 "resetLobby". epoch guards against a
// reset firing for a lobby already reused or torn down since.
func (l *Lobby) resetAfterGame(epoch int) {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	if l.epoch != epoch || l.State != StateFinished {
		return
	}

	l.World = nil
	for _, id := range l.playerOrder {
		l.players[id].ResetForGame()
	}
	l.State = StateWaiting
	l.broadcastAllUnsafe(map[string]interface{}{"type": "lobby_reset"}, uuid.Nil)
}

// Destroy invalidates any in-flight timers/goroutines for this lobby (called
// by the store when the lobby is swept or emptied) and stops its tick engine.
func (l *Lobby) Destroy() {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	if l.ticker != nil {
		l.ticker.Stop()
		l.ticker = nil
	}
	if l.autoStartTimer != nil {
		l.autoStartTimer.Stop()
		l.autoStartTimer = nil
	}
	if l.World != nil {
		l.World.Scheduler().CancelAll()
	}
	l.epoch++
}
