package session

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snakearena/server/internal/lobby"
	"github.com/snakearena/server/internal/models"
)

// mockSink captures outbound frames and close calls instead of writing to a
// real socket, grounded on the teacher's mockBroadcaster test idiom
// (internal/game/game_test.go).
type mockSink struct {
	mu       sync.Mutex
	messages []map[string]interface{}
	closed   bool
	reason   string
}

func (m *mockSink) Send(msg interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mm, ok := msg.(map[string]interface{}); ok {
		m.messages = append(m.messages, mm)
	}
}

func (m *mockSink) Close(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.reason = reason
}

func (m *mockSink) last() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return nil
	}
	return m.messages[len(m.messages)-1]
}

func (m *mockSink) lastOfType(t string) map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i]["type"] == t {
			return m.messages[i]
		}
	}
	return nil
}

func newTestManager() *Manager {
	logger := logrus.New()
	logger.SetOutput(discardWriter{})
	return NewManager(logger, 5*time.Minute, models.DefaultGameSettings())
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func envelope(t *testing.T, typ string, data interface{}) []byte {
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	out, err := json.Marshal(map[string]interface{}{"type": typ, "data": json.RawMessage(raw)})
	require.NoError(t, err)
	return out
}

func TestConnect_SendsWelcomeAndPlayerInfo(t *testing.T) {
	m := newTestManager()
	sink := &mockSink{}
	s := m.Connect(sink)

	require.Len(t, sink.messages, 2)
	assert.Equal(t, "welcome", sink.messages[0]["type"])
	assert.Equal(t, "player_info", sink.messages[1]["type"])
	assert.NotEmpty(t, s.Player.Name)
}

func TestDispatch_UnknownCommandRepliesError(t *testing.T) {
	m := newTestManager()
	sink := &mockSink{}
	s := m.Connect(sink)

	m.Dispatch(s, []byte(`{"type":"not_a_real_command"}`))

	last := sink.last()
	require.NotNil(t, last)
	assert.Equal(t, "error", last["type"])
}

func TestDispatch_MalformedJSONRepliesErrorAndStaysOpen(t *testing.T) {
	m := newTestManager()
	sink := &mockSink{}
	s := m.Connect(sink)

	m.Dispatch(s, []byte(`not json at all`))

	last := sink.last()
	require.NotNil(t, last)
	assert.Equal(t, "error", last["type"])
	assert.False(t, sink.closed, "a malformed frame must not close the connection")
}

func TestDispatch_ConnectPlayerSetsNameWithinRange(t *testing.T) {
	m := newTestManager()
	sink := &mockSink{}
	s := m.Connect(sink)

	m.Dispatch(s, envelope(t, "connect_player", map[string]string{"name": "Aria"}))
	assert.Equal(t, "Aria", s.Player.Name)
	assert.Equal(t, "connection_confirmed", sink.last()["type"])

	m.Dispatch(s, envelope(t, "connect_player", map[string]string{"name": ""}))
	assert.Equal(t, "Aria", s.Player.Name, "empty name is rejected, keeping the prior name")
}

func TestDispatch_CreateAndJoinLobby(t *testing.T) {
	m := newTestManager()
	creatorSink, joinerSink := &mockSink{}, &mockSink{}
	creator := m.Connect(creatorSink)
	joiner := m.Connect(joinerSink)

	m.Dispatch(creator, envelope(t, "create_lobby", map[string]interface{}{"name": "Room", "maxPlayers": 4}))
	created := creatorSink.lastOfType("lobby_created")
	require.NotNil(t, created)
	lobbyPayload := created["lobby"].(map[string]interface{})
	lobbyID := lobbyPayload["id"].(string)

	m.Dispatch(joiner, envelope(t, "join_lobby", map[string]interface{}{"lobbyId": lobbyID}))
	joined := joinerSink.lastOfType("lobby_joined")
	require.NotNil(t, joined, "joiner should receive lobby_joined")

	notified := creatorSink.lastOfType("player_joined")
	require.NotNil(t, notified, "creator should be notified of the new member")
}

func TestDispatch_CreateLobbyRejectsSecondLobby(t *testing.T) {
	m := newTestManager()
	sink := &mockSink{}
	s := m.Connect(sink)

	m.Dispatch(s, envelope(t, "create_lobby", map[string]interface{}{"name": "A"}))
	m.Dispatch(s, envelope(t, "create_lobby", map[string]interface{}{"name": "B"}))

	last := sink.last()
	assert.Equal(t, "error", last["type"])
}

func TestDispatch_GetLobbiesExcludesPrivateAndNonWaiting(t *testing.T) {
	m := newTestManager()
	pubSink, privSink := &mockSink{}, &mockSink{}
	pub := m.Connect(pubSink)
	priv := m.Connect(privSink)

	m.Dispatch(pub, envelope(t, "create_lobby", map[string]interface{}{"name": "Public"}))
	m.Dispatch(priv, envelope(t, "create_lobby", map[string]interface{}{"name": "Private", "isPrivate": true}))

	busy := m.Connect(&mockSink{})
	m.Dispatch(busy, envelope(t, "create_lobby", map[string]interface{}{"name": "Busy"}))
	busyLobby, ok := m.lobbies.Get(busy.LobbyID())
	require.True(t, ok)
	busyLobby.Mu.Lock()
	busyLobby.State = lobby.StatePlaying
	busyLobby.Mu.Unlock()

	reader := &mockSink{}
	readerSess := m.Connect(reader)
	m.Dispatch(readerSess, envelope(t, "get_lobbies", nil))

	list := reader.lastOfType("lobbies_list")
	require.NotNil(t, list)
	lobbies := list["lobbies"].([]map[string]interface{})
	require.Len(t, lobbies, 1)
	assert.Equal(t, "Public", lobbies[0]["name"])
}

func TestDispatch_LeaveLobby(t *testing.T) {
	m := newTestManager()
	sink := &mockSink{}
	s := m.Connect(sink)
	m.Dispatch(s, envelope(t, "create_lobby", map[string]interface{}{"name": "A"}))

	m.Dispatch(s, envelope(t, "leave_lobby", nil))
	assert.Equal(t, "lobby_left", sink.last()["type"])

	// leaving an empty lobby should have swept it from the registry.
	assert.Equal(t, 0, m.LobbyCount())
}

func TestDispatch_UpdateLobbySettingsRequiresCreator(t *testing.T) {
	m := newTestManager()
	creatorSink, otherSink := &mockSink{}, &mockSink{}
	creator := m.Connect(creatorSink)
	other := m.Connect(otherSink)

	m.Dispatch(creator, envelope(t, "create_lobby", map[string]interface{}{"name": "A"}))
	lobbyID := creatorSink.lastOfType("lobby_created")["lobby"].(map[string]interface{})["id"].(string)
	m.Dispatch(other, envelope(t, "join_lobby", map[string]interface{}{"lobbyId": lobbyID}))

	m.Dispatch(other, envelope(t, "update_lobby_settings", map[string]interface{}{
		"settings": map[string]interface{}{"boardSize": float64(30)},
	}))
	assert.Equal(t, "error", otherSink.last()["type"])

	m.Dispatch(creator, envelope(t, "update_lobby_settings", map[string]interface{}{
		"settings": map[string]interface{}{"boardSize": float64(30)},
	}))
	assert.NotEqual(t, "error", creatorSink.last()["type"])
}

// Scenario 6 (spec.md §8): idle eviction removes the session and, if it was
// in a lobby, removes it from membership and broadcasts player_left.
func TestSweepIdle_EvictsStaleSessionsAndUpdatesLobby(t *testing.T) {
	m := NewManager(quietLogger(), time.Millisecond, models.DefaultGameSettings())

	ownerSink, peerSink := &mockSink{}, &mockSink{}
	owner := m.Connect(ownerSink)
	peer := m.Connect(peerSink)

	m.Dispatch(owner, envelope(t, "create_lobby", map[string]interface{}{"name": "A"}))
	lobbyID := ownerSink.lastOfType("lobby_created")["lobby"].(map[string]interface{})["id"].(string)
	m.Dispatch(peer, envelope(t, "join_lobby", map[string]interface{}{"lobbyId": lobbyID}))

	time.Sleep(5 * time.Millisecond)
	m.SweepIdle()

	assert.True(t, ownerSink.closed, "idle owner session should be closed")
	assert.Equal(t, "Inactive", ownerSink.reason)
	assert.True(t, peerSink.closed)
	assert.Equal(t, 0, m.PlayerCount())

	// Whichever session is evicted first, the one still in the lobby is told
	// it left; the lobby emptied by the second eviction is removed.
	leftNotified := ownerSink.lastOfType("player_left") != nil || peerSink.lastOfType("player_left") != nil
	assert.True(t, leftNotified, "remaining member should receive player_left")
	assert.Equal(t, 0, m.LobbyCount())
}

func TestStats_ReflectsRegisteredState(t *testing.T) {
	m := newTestManager()
	sink := &mockSink{}
	s := m.Connect(sink)
	m.Dispatch(s, envelope(t, "create_lobby", map[string]interface{}{"name": "A"}))

	stats := m.Stats()
	assert.Equal(t, 1, stats["totalPlayers"])
	assert.Equal(t, 1, stats["totalLobbies"])
	assert.Equal(t, 0, stats["activeGames"])
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(discardWriter{})
	return l
}
