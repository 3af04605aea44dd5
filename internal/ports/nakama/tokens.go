package nakama

import (
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

// playerClaims binds a room code and the player's persistent room
// identity into a signed reconnect token.
type playerClaims struct {
	jwt.StandardClaims
	RoomCode string `json:"room"`
	PlayerID string `json:"pid"`
}

// signPlayerToken wraps the room-scoped player identity in an HS256 JWT
// so clients can present it across connections without the server
// trusting client storage.
func signPlayerToken(secret []byte, roomCode, playerID string, ttl time.Duration) (string, error) {
	claims := playerClaims{
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(ttl).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
		RoomCode: roomCode,
		PlayerID: playerID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// parsePlayerToken verifies a reconnect token and returns the room code
// and room-scoped player identity it carries.
func parsePlayerToken(secret []byte, signed string) (roomCode, playerID string, err error) {
	token, err := jwt.ParseWithClaims(signed, &playerClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return "", "", err
	}
	claims, ok := token.Claims.(*playerClaims)
	if !ok || !token.Valid {
		return "", "", fmt.Errorf("invalid player token")
	}
	return claims.RoomCode, claims.PlayerID, nil
}
