package ports

import (
	"context"
	"errors"

	"avalon/internal/domain"
)

var (
	// ErrRoomNotFound is returned for lookups against an unknown room code.
	ErrRoomNotFound = errors.New("room not found")
	// ErrPlayerNotFound is returned for lookups against an unknown player.
	ErrPlayerNotFound = errors.New("player not found")
)

// RoomStore is the persistence boundary of the room engine. One
// authoritative implementation backs every room; the engine relies on
// per-room serialization of its callers, so read-modify-write through
// this interface needs no extra locking at the call site.
//
// Implementations must not alias stored state with returned values:
// a caller mutation becomes visible only through a Save call.
type RoomStore interface {
	CreateRoom(ctx context.Context, room *domain.Room) error
	GetRoom(ctx context.Context, roomCode string) (*domain.Room, error)
	SaveRoom(ctx context.Context, room *domain.Room) error
	DeleteRoom(ctx context.Context, roomCode string) error

	CreatePlayer(ctx context.Context, player *domain.Player) error
	// Players returns the room's seated players ordered by seat index.
	Players(ctx context.Context, roomCode string) ([]*domain.Player, error)
	PlayerBySession(ctx context.Context, roomCode, sessionID string) (*domain.Player, error)
	// PlayerByToken resolves the stable identity used for reconnects.
	PlayerByToken(ctx context.Context, roomCode, token string) (*domain.Player, error)
	SavePlayer(ctx context.Context, player *domain.Player) error
	SavePlayers(ctx context.Context, players []*domain.Player) error
	DeletePlayer(ctx context.Context, roomCode, sessionID string) error

	// ReplaceQuests atomically swaps the room's quest list; quests are
	// recreated wholesale at every game start.
	ReplaceQuests(ctx context.Context, roomCode string, quests []*domain.Quest) error
	// Quests returns the room's quests ordered by quest number.
	Quests(ctx context.Context, roomCode string) ([]*domain.Quest, error)
	ActiveQuest(ctx context.Context, roomCode string) (*domain.Quest, error)
	SaveQuest(ctx context.Context, quest *domain.Quest) error
}
