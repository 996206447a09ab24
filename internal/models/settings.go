package models

import "fmt"

// Win conditions a lobby can be configured with.
const (
	WinLastStanding = "last_standing"
	WinTimeLimit    = "time_limit"
)

// GameSettings holds the per-lobby tunables from spec.md §3.
type GameSettings struct {
	BoardSize      int    `json:"boardSize"`
	GameSpeedMs    int    `json:"gameSpeed"`
	WeaponsEnabled bool   `json:"weaponsEnabled"`
	MaxGameTimeMs  int    `json:"maxGameTime"`
	WinCondition   string `json:"winCondition"`
}

// DefaultGameSettings returns the spec's documented defaults.
func DefaultGameSettings() GameSettings {
	return GameSettings{
		BoardSize:      20,
		GameSpeedMs:    150,
		WeaponsEnabled: true,
		MaxGameTimeMs:  300_000,
		WinCondition:   WinLastStanding,
	}
}

// Update merges a partial settings payload (as decoded from client JSON) into s,
// validating ranges. Unknown or absent keys are left untouched.
// Mirrors the teacher's HouseRules.Update map-driven merge idiom.
func (s *GameSettings) Update(in map[string]interface{}) error {
	assignIntRange := func(field *int, key string, min, max int) error {
		raw, ok := in[key]
		if !ok || raw == nil {
			return nil
		}
		f, ok := raw.(float64)
		if !ok {
			return fmt.Errorf("invalid type for %s, expected number", key)
		}
		v := int(f)
		if v < min || v > max {
			return fmt.Errorf("%s must be between %d and %d", key, min, max)
		}
		*field = v
		return nil
	}

	if err := assignIntRange(&s.BoardSize, "boardSize", 10, 40); err != nil {
		return err
	}
	if err := assignIntRange(&s.GameSpeedMs, "gameSpeed", 50, 500); err != nil {
		return err
	}
	if err := assignIntRange(&s.MaxGameTimeMs, "maxGameTime", 1000, 3_600_000); err != nil {
		return err
	}
	if raw, ok := in["weaponsEnabled"]; ok && raw != nil {
		b, ok := raw.(bool)
		if !ok {
			return fmt.Errorf("invalid type for weaponsEnabled, expected boolean")
		}
		s.WeaponsEnabled = b
	}
	if raw, ok := in["winCondition"]; ok && raw != nil {
		wc, ok := raw.(string)
		if !ok {
			return fmt.Errorf("invalid type for winCondition, expected string")
		}
		if wc != WinLastStanding && wc != WinTimeLimit {
			return fmt.Errorf("invalid winCondition %q", wc)
		}
		s.WinCondition = wc
	}
	return nil
}
