package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// GameConfig holds tunables loaded from the data folder at module init.
type GameConfig struct {
	// Avatars is the per-room avatar catalog players draw from on join.
	Avatars []string `json:"avatars"`
	// RoomCodeLength controls generated room codes.
	RoomCodeLength int `json:"room_code_length"`
	// PlayerTokenTTLHours bounds how long a reconnect token stays valid.
	PlayerTokenTTLHours int `json:"player_token_ttl_hours"`
}

var defaultAvatars = []string{
	"barbarian", "bard", "druid", "knight", "mage",
	"monk", "paladin", "ranger", "rogue", "squire",
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path once.
// A missing or partial file falls back to defaults.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		var c GameConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// Avatars returns the avatar catalog, falling back to the built-in set.
func Avatars() []string {
	if cfg == nil || len(cfg.Avatars) == 0 {
		return defaultAvatars
	}
	return cfg.Avatars
}

// RoomCodeLength returns the configured room code length or the default of 4.
func RoomCodeLength() int {
	if cfg == nil || cfg.RoomCodeLength <= 0 {
		return 4
	}
	return cfg.RoomCodeLength
}

// PlayerTokenTTLHours returns the reconnect token lifetime, default 24h.
func PlayerTokenTTLHours() int {
	if cfg == nil || cfg.PlayerTokenTTLHours <= 0 {
		return 24
	}
	return cfg.PlayerTokenTTLHours
}
