package bot

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Identity is one entry of the bot persona pool.
type Identity struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
}

// SessionPrefix marks bot session ids so the rest of the server can tell
// bot seats from live presences.
const SessionPrefix = "bot:"

var defaultNames = []string{
	"Sir Ector", "Dame Brusen", "Sir Kay", "Lady Lunete", "Sir Bedivere",
	"Dame Ragnell", "Sir Dinadan", "Lady Enide", "Sir Palamedes",
}

var (
	identities []Identity
	loadOnce   sync.Once
	loadErr    error
)

// LoadIdentities loads the bot persona pool from the given path once.
// A missing file falls back to the built-in pool.
func LoadIdentities(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read bot identities: %w", err)
			return
		}
		var loaded []Identity
		if err := json.Unmarshal(data, &loaded); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal bot identities: %w", err)
			return
		}
		identities = loaded
	})
	return loadErr
}

// IdentityFor returns a stable persona for the given bot seat index.
func IdentityFor(index int) Identity {
	if len(identities) > 0 {
		id := identities[index%len(identities)]
		if id.SessionID == "" {
			id.SessionID = fmt.Sprintf("%s%d", SessionPrefix, index)
		}
		return id
	}
	return Identity{
		SessionID: fmt.Sprintf("%s%d", SessionPrefix, index),
		Name:      defaultNames[index%len(defaultNames)],
	}
}

// IsBot reports whether the given session id belongs to a bot seat.
func IsBot(sessionID string) bool {
	return strings.HasPrefix(sessionID, SessionPrefix)
}
