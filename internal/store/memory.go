package store

import (
	"context"
	"sort"
	"sync"

	"avalon/internal/domain"
	"avalon/internal/ports"
)

// Memory is an in-process RoomStore. A single RWMutex guards the maps;
// all values are copied on the way in and out so callers never alias
// stored state.
type Memory struct {
	mu      sync.RWMutex
	rooms   map[string]*domain.Room
	players map[string]map[string]*domain.Player // roomCode -> sessionID -> player
	quests  map[string][]*domain.Quest           // roomCode -> quests ordered by number
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		rooms:   make(map[string]*domain.Room),
		players: make(map[string]map[string]*domain.Player),
		quests:  make(map[string][]*domain.Quest),
	}
}

var _ ports.RoomStore = (*Memory)(nil)

func copyRoom(r *domain.Room) *domain.Room {
	out := *r
	out.ExtraRoles = append([]domain.RoleKey(nil), r.ExtraRoles...)
	if r.TakenAvatars != nil {
		out.TakenAvatars = make(map[string]bool, len(r.TakenAvatars))
		for k, v := range r.TakenAvatars {
			out.TakenAvatars[k] = v
		}
	}
	return &out
}

func copyPlayer(p *domain.Player) *domain.Player {
	out := *p
	return &out
}

func copyQuest(q *domain.Quest) *domain.Quest {
	out := *q
	return &out
}

func (m *Memory) CreateRoom(ctx context.Context, room *domain.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[room.Code]; ok {
		return nil // findOrCreate semantics: an existing room is kept as is
	}
	m.rooms[room.Code] = copyRoom(room)
	m.players[room.Code] = make(map[string]*domain.Player)
	return nil
}

func (m *Memory) GetRoom(ctx context.Context, roomCode string) (*domain.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[roomCode]
	if !ok {
		return nil, ports.ErrRoomNotFound
	}
	return copyRoom(room), nil
}

func (m *Memory) SaveRoom(ctx context.Context, room *domain.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[room.Code]; !ok {
		return ports.ErrRoomNotFound
	}
	m.rooms[room.Code] = copyRoom(room)
	return nil
}

func (m *Memory) DeleteRoom(ctx context.Context, roomCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomCode)
	delete(m.players, roomCode)
	delete(m.quests, roomCode)
	return nil
}

func (m *Memory) CreatePlayer(ctx context.Context, player *domain.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	roomPlayers, ok := m.players[player.RoomCode]
	if !ok {
		return ports.ErrRoomNotFound
	}
	roomPlayers[player.SessionID] = copyPlayer(player)
	return nil
}

func (m *Memory) Players(ctx context.Context, roomCode string) ([]*domain.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roomPlayers, ok := m.players[roomCode]
	if !ok {
		return nil, ports.ErrRoomNotFound
	}
	out := make([]*domain.Player, 0, len(roomPlayers))
	for _, p := range roomPlayers {
		out = append(out, copyPlayer(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (m *Memory) PlayerBySession(ctx context.Context, roomCode, sessionID string) (*domain.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roomPlayers, ok := m.players[roomCode]
	if !ok {
		return nil, ports.ErrRoomNotFound
	}
	player, ok := roomPlayers[sessionID]
	if !ok {
		return nil, ports.ErrPlayerNotFound
	}
	return copyPlayer(player), nil
}

func (m *Memory) PlayerByToken(ctx context.Context, roomCode, token string) (*domain.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roomPlayers, ok := m.players[roomCode]
	if !ok {
		return nil, ports.ErrRoomNotFound
	}
	for _, p := range roomPlayers {
		if p.Token == token {
			return copyPlayer(p), nil
		}
	}
	return nil, ports.ErrPlayerNotFound
}

func (m *Memory) SavePlayer(ctx context.Context, player *domain.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.savePlayerLocked(player)
}

func (m *Memory) SavePlayers(ctx context.Context, players []*domain.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range players {
		if err := m.savePlayerLocked(p); err != nil {
			return err
		}
	}
	return nil
}

// savePlayerLocked keys players by their current session id; a reconnect
// changes the session id, so the stale entry (same token) is dropped.
func (m *Memory) savePlayerLocked(player *domain.Player) error {
	roomPlayers, ok := m.players[player.RoomCode]
	if !ok {
		return ports.ErrRoomNotFound
	}
	for sessionID, existing := range roomPlayers {
		if existing.Token == player.Token && sessionID != player.SessionID {
			delete(roomPlayers, sessionID)
		}
	}
	roomPlayers[player.SessionID] = copyPlayer(player)
	return nil
}

func (m *Memory) DeletePlayer(ctx context.Context, roomCode, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	roomPlayers, ok := m.players[roomCode]
	if !ok {
		return ports.ErrRoomNotFound
	}
	delete(roomPlayers, sessionID)
	return nil
}

func (m *Memory) ReplaceQuests(ctx context.Context, roomCode string, quests []*domain.Quest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[roomCode]; !ok {
		return ports.ErrRoomNotFound
	}
	stored := make([]*domain.Quest, 0, len(quests))
	for _, q := range quests {
		stored = append(stored, copyQuest(q))
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].Number < stored[j].Number })
	m.quests[roomCode] = stored
	return nil
}

func (m *Memory) Quests(ctx context.Context, roomCode string) ([]*domain.Quest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.rooms[roomCode]; !ok {
		return nil, ports.ErrRoomNotFound
	}
	out := make([]*domain.Quest, 0, len(m.quests[roomCode]))
	for _, q := range m.quests[roomCode] {
		out = append(out, copyQuest(q))
	}
	return out, nil
}

func (m *Memory) ActiveQuest(ctx context.Context, roomCode string) (*domain.Quest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, q := range m.quests[roomCode] {
		if q.Active {
			return copyQuest(q), nil
		}
	}
	return nil, ports.ErrRoomNotFound
}

func (m *Memory) SaveQuest(ctx context.Context, quest *domain.Quest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, q := range m.quests[quest.RoomCode] {
		if q.Number == quest.Number {
			m.quests[quest.RoomCode][i] = copyQuest(quest)
			return nil
		}
	}
	return ports.ErrRoomNotFound
}
