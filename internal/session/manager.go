package session

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/snakearena/server/internal/lobby"
	"github.com/snakearena/server/internal/models"
)

const (
	minNameLen        = 1
	maxNameLen        = 20
	defaultMaxPlayers = 4
)

// Manager is the process-wide registry of sessions and lobbies, instantiated
// once at startup and injected into the transport layer (spec.md §9: "no
// ambient globals"). It routes every inbound command named in spec.md §4.1's
// command table and runs the idle sweep.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	nextName int

	lobbies   *lobby.Store
	rng       *rand.Rand
	logger    *logrus.Logger
	startedAt time.Time

	idleTimeout     time.Duration
	defaultSettings models.GameSettings
}

// NewManager creates an empty manager. defaultSettings seeds every newly
// created lobby's GameSettings before any per-lobby overrides are applied.
func NewManager(logger *logrus.Logger, idleTimeout time.Duration, defaultSettings models.GameSettings) *Manager {
	return &Manager{
		sessions:        make(map[uuid.UUID]*Session),
		lobbies:         lobby.NewStore(),
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:          logger,
		startedAt:       time.Now(),
		idleTimeout:     idleTimeout,
		defaultSettings: defaultSettings,
	}
}

// Connect registers a brand new session backed by sink, assigns it a default
// generated name and palette color, and sends the initial welcome/player_info
// frames a fresh transport connection gets before any command is received.
func (m *Manager) Connect(sink Sink) *Session {
	id, _ := uuid.NewRandom()

	m.mu.Lock()
	m.nextName++
	name := fmt.Sprintf("Player%d", m.nextName)
	color := models.ColorPalette[(m.nextName-1)%len(models.ColorPalette)]
	m.mu.Unlock()

	player := models.NewPlayer(id, name, color)
	s := newSession(id, player, sink)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	s.Send(map[string]interface{}{"type": "welcome", "playerId": id.String()})
	s.Send(map[string]interface{}{"type": "player_info", "player": publicPlayerInfo(player)})
	return s
}

// Disconnect removes s from any lobby it belongs to and from the registry.
// Called when a transport connection closes, for any reason.
func (m *Manager) Disconnect(s *Session) {
	m.leaveLobbyIfAny(s)
	m.mu.Lock()
	delete(m.sessions, s.ID)
	m.mu.Unlock()
}

// Dispatch decodes one inbound frame and routes it to the matching handler.
// Unknown types and malformed JSON both reply with an error frame and never
// close the connection (spec.md §6, §7).
func (m *Manager) Dispatch(s *Session, raw []byte) {
	s.Touch()

	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.Send(errFrame("Invalid message format"))
		return
	}

	switch env.Type {
	case "connect_player":
		m.handleConnectPlayer(s, env.Data)
	case "update_player_name":
		m.handleUpdatePlayerName(s, env.Data)
	case "create_lobby":
		m.handleCreateLobby(s, env.Data)
	case "join_lobby":
		m.handleJoinLobby(s, env.Data)
	case "leave_lobby":
		m.handleLeaveLobby(s)
	case "set_ready":
		m.handleSetReady(s, env.Data)
	case "player_input":
		m.handlePlayerInput(s, env.Data)
	case "chat_message":
		m.handleChatMessage(s, env.Data)
	case "get_lobbies":
		m.handleGetLobbies(s)
	case "get_player_stats":
		m.handleGetPlayerStats(s)
	case "update_lobby_settings":
		m.handleUpdateLobbySettings(s, env.Data)
	default:
		s.Send(errFrame(fmt.Sprintf("unknown command type %q", env.Type)))
	}
}

func (m *Manager) handleConnectPlayer(s *Session, data json.RawMessage) {
	var p connectPlayerPayload
	_ = json.Unmarshal(data, &p)
	if n := utf8.RuneCountInString(p.Name); n >= minNameLen && n <= maxNameLen {
		m.setPlayerName(s, p.Name)
	}
	s.Send(map[string]interface{}{
		"type":   "connection_confirmed",
		"player": publicPlayerInfo(s.Player),
	})
}

func (m *Manager) handleUpdatePlayerName(s *Session, data json.RawMessage) {
	var p updatePlayerNamePayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.Send(errFrame("name must be 1-20 characters"))
		return
	}
	if n := utf8.RuneCountInString(p.Name); n < minNameLen || n > maxNameLen {
		s.Send(errFrame("name must be 1-20 characters"))
		return
	}
	m.setPlayerName(s, p.Name)
	s.Send(map[string]interface{}{"type": "name_updated", "name": p.Name})
	if lb := m.lobbyOf(s); lb != nil {
		lb.Notify(map[string]interface{}{
			"type":     "player_name_changed",
			"playerId": s.ID.String(),
			"name":     p.Name,
		})
	}
}

// setPlayerName writes name to the player's Name field. If the session
// currently belongs to a lobby, the write is routed through that lobby's Mu
// (Lobby.SetPlayerName) since the tick loop reads Name under the same lock
// for every game_update broadcast — renaming mid-game must not race it
// (spec.md §5). Outside a lobby there is no concurrent reader to race.
func (m *Manager) setPlayerName(s *Session, name string) {
	if lb := m.lobbyOf(s); lb != nil {
		lb.SetPlayerName(s.ID, name)
		return
	}
	s.Player.Name = name
}

func (m *Manager) handleCreateLobby(s *Session, data json.RawMessage) {
	if s.LobbyID() != uuid.Nil {
		s.Send(errFrame("already in a lobby"))
		return
	}
	var p createLobbyPayload
	_ = json.Unmarshal(data, &p)

	name := p.Name
	if name == "" {
		name = fmt.Sprintf("%s's Lobby", s.Player.Name)
	}
	maxPlayers := p.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = defaultMaxPlayers
	}

	settings := m.defaultSettings
	if p.GameSettings != nil {
		if err := settings.Update(p.GameSettings); err != nil {
			s.Send(errFrame(err.Error()))
			return
		}
	}

	lb := m.lobbies.Create(name, maxPlayers, p.IsPrivate, p.Password, settings, m.rng)
	if err := lb.AddPlayer(s.Player); err != nil {
		m.lobbies.Remove(lb.ID)
		s.Send(errFrame(err.Error()))
		return
	}
	s.setLobbyID(lb.ID)
	s.Send(map[string]interface{}{"type": "lobby_created", "lobby": lb.Snapshot()})
}

func (m *Manager) handleJoinLobby(s *Session, data json.RawMessage) {
	if s.LobbyID() != uuid.Nil {
		s.Send(errFrame("already in a lobby"))
		return
	}
	var p joinLobbyPayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.Send(errFrame("invalid join_lobby payload"))
		return
	}
	lobbyID, err := uuid.Parse(p.LobbyID)
	if err != nil {
		s.Send(errFrame("invalid lobbyId"))
		return
	}
	lb, ok := m.lobbies.Get(lobbyID)
	if !ok {
		s.Send(errFrame("lobby not found"))
		return
	}
	if !lb.CheckPassword(p.Password) {
		s.Send(errFrame("incorrect password"))
		return
	}
	if err := lb.AddPlayer(s.Player); err != nil {
		s.Send(errFrame(err.Error()))
		return
	}
	s.setLobbyID(lb.ID)
	s.Send(map[string]interface{}{"type": "lobby_joined", "lobby": lb.Snapshot()})
}

func (m *Manager) handleLeaveLobby(s *Session) {
	lb := m.lobbyOf(s)
	if lb == nil {
		s.Send(errFrame("not in a lobby"))
		return
	}
	lb.RemovePlayer(s.ID)
	s.setLobbyID(uuid.Nil)
	s.Send(map[string]interface{}{"type": "lobby_left"})
}

func (m *Manager) handleSetReady(s *Session, data json.RawMessage) {
	lb := m.lobbyOf(s)
	if lb == nil {
		s.Send(errFrame("not in a lobby"))
		return
	}
	var p setReadyPayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.Send(errFrame("invalid set_ready payload"))
		return
	}
	lb.SetReady(s.ID, p.Ready)
}

func (m *Manager) handlePlayerInput(s *Session, data json.RawMessage) {
	lb := m.lobbyOf(s)
	if lb == nil {
		s.Send(errFrame("not in a lobby"))
		return
	}
	if lb.StateNow() != lobby.StatePlaying {
		s.Send(errFrame("game is not in progress"))
		return
	}
	var p playerInputPayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.Send(errFrame("invalid player_input payload"))
		return
	}
	lb.HandlePlayerInput(s.ID, p.Type, p.Direction)
}

func (m *Manager) handleChatMessage(s *Session, data json.RawMessage) {
	lb := m.lobbyOf(s)
	if lb == nil {
		s.Send(errFrame("not in a lobby"))
		return
	}
	var p chatMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.Send(errFrame("invalid chat_message payload"))
		return
	}
	lb.Notify(map[string]interface{}{
		"type":     "chat_message",
		"playerId": s.ID.String(),
		"name":     s.Player.Name,
		"message":  p.Message,
	})
}

func (m *Manager) handleGetLobbies(s *Session) {
	s.Send(map[string]interface{}{
		"type":    "lobbies_list",
		"lobbies": m.lobbies.PublicWaiting(),
	})
}

func (m *Manager) handleGetPlayerStats(s *Session) {
	s.Send(map[string]interface{}{
		"type":   "player_stats",
		"player": publicPlayerInfo(s.Player),
		"server": m.Stats(),
	})
}

func (m *Manager) handleUpdateLobbySettings(s *Session, data json.RawMessage) {
	lb := m.lobbyOf(s)
	if lb == nil {
		s.Send(errFrame("not in a lobby"))
		return
	}
	if lb.CreatorID() != s.ID {
		s.Send(errFrame("only the creator can update lobby settings"))
		return
	}
	if lb.StateNow() != lobby.StateWaiting {
		s.Send(errFrame("cannot update settings once the game has started"))
		return
	}
	var p updateLobbySettingsPayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.Send(errFrame("invalid update_lobby_settings payload"))
		return
	}
	if err := lb.UpdateSettings(p.Settings); err != nil {
		s.Send(errFrame(err.Error()))
		return
	}
}

func (m *Manager) lobbyOf(s *Session) *lobby.Lobby {
	id := s.LobbyID()
	if id == uuid.Nil {
		return nil
	}
	lb, ok := m.lobbies.Get(id)
	if !ok {
		return nil
	}
	return lb
}

func (m *Manager) leaveLobbyIfAny(s *Session) {
	if lb := m.lobbyOf(s); lb != nil {
		lb.RemovePlayer(s.ID)
		s.setLobbyID(uuid.Nil)
	}
}

// SweepIdle evicts every session whose last inbound message is older than
// idleTimeout (spec.md §4.1's 30s idle sweep) and backstops any lobby left
// empty without its OnEmpty callback firing.
func (m *Manager) SweepIdle() {
	m.mu.RLock()
	stale := make([]*Session, 0)
	for _, s := range m.sessions {
		if s.IdleSince() >= m.idleTimeout {
			stale = append(stale, s)
		}
	}
	m.mu.RUnlock()

	for _, s := range stale {
		m.logger.WithField("session", s.ID).Info("evicting idle session")
		m.leaveLobbyIfAny(s)
		m.mu.Lock()
		delete(m.sessions, s.ID)
		m.mu.Unlock()
		s.Close("Inactive")
	}

	m.lobbies.SweepEmpty()
}

// RunSweeper runs SweepIdle every interval until ctx is canceled. Intended to
// be started once, in its own goroutine, from cmd/server.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SweepIdle()
		}
	}
}

// Stats returns the read-only server stats spec.md §4.1 names.
func (m *Manager) Stats() map[string]interface{} {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return map[string]interface{}{
		"totalPlayers": m.PlayerCount(),
		"totalLobbies": m.lobbies.Count(),
		"activeGames":  m.lobbies.ActiveGames(),
		"uptime":       time.Since(m.startedAt).Seconds(),
		"memoryUsage":  mem.Alloc,
	}
}

// PlayerCount returns the number of currently connected sessions.
func (m *Manager) PlayerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// LobbyCount returns the number of registered lobbies.
func (m *Manager) LobbyCount() int {
	return m.lobbies.Count()
}

// Shutdown broadcasts server_shutdown to every connected session and closes
// each connection, per spec.md §7's explicit shutdown-signal carve-out.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		s.Send(map[string]interface{}{"type": "server_shutdown"})
		s.Close("Manual disconnect")
	}
}

func errFrame(msg string) map[string]interface{} {
	return map[string]interface{}{"type": "error", "message": msg}
}
