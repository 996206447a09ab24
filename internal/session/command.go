package session

import (
	"encoding/json"

	"github.com/snakearena/server/internal/models"
)

// inboundEnvelope is the outer {type, data} shape every inbound frame carries
// (spec.md §6). data is decoded per-type into one of the payload structs
// below, the statically typed analogue of the teacher's switch-on-string-type
// dispatch in internal/handlers/game_ws.go and internal/handlers/lobby_ws.go.
type inboundEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type connectPlayerPayload struct {
	Name string `json:"name"`
}

type updatePlayerNamePayload struct {
	Name string `json:"name"`
}

type createLobbyPayload struct {
	Name         string                 `json:"name"`
	MaxPlayers   int                    `json:"maxPlayers"`
	IsPrivate    bool                   `json:"isPrivate"`
	Password     string                 `json:"password"`
	GameSettings map[string]interface{} `json:"gameSettings"`
}

type joinLobbyPayload struct {
	LobbyID  string `json:"lobbyId"`
	Password string `json:"password"`
}

type setReadyPayload struct {
	Ready bool `json:"ready"`
}

type playerInputPayload struct {
	Type      string            `json:"type"`
	Direction *models.Direction `json:"direction"`
}

type chatMessagePayload struct {
	Message string `json:"message"`
}

type updateLobbySettingsPayload struct {
	Settings map[string]interface{} `json:"settings"`
}
